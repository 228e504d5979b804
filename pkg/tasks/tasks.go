// Package tasks defines the structure for tasks that are sent to Kafka.
package tasks

// 任务类型。
const (
	KindPDF     = "pdf"
	KindWebsite = "website"
)

// IngestTask represents the data structure for a document ingestion job.
// PDF 任务携带 MinIO 对象名，网站任务携带域名与抓取预算。
type IngestTask struct {
	Kind          string `json:"kind"`
	DocID         string `json:"doc_id,omitempty"`
	ObjectName    string `json:"object_name,omitempty"`
	FileName      string `json:"file_name,omitempty"`
	Domain        string `json:"domain,omitempty"`
	MaxPages      int    `json:"max_pages,omitempty"`
	MaxTotalChars int    `json:"max_total_chars,omitempty"`
}

// Key 返回该任务的去重/重试计数键。
func (t IngestTask) Key() string {
	if t.Kind == KindWebsite {
		return t.Kind + ":" + t.Domain
	}
	return t.Kind + ":" + t.ObjectName
}
