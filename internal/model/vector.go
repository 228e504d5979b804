package model

// VectorMetadata 是随向量一起写入索引的元数据。
// Text 在写入前被截断到 1000 字符，控制索引体积。
type VectorMetadata struct {
	Text      string `json:"text"`
	Source    string `json:"source"`
	SourceURL string `json:"source_url,omitempty"`
	Title     string `json:"title,omitempty"`
	DocID     string `json:"doc_id"`
	ChunkID   int    `json:"chunk_id"`
	Length    int    `json:"length"`
	PageInfo  string `json:"page_info,omitempty"`
}

// VectorRecord 是写入向量索引的一条记录。
// ID 全局唯一（doc_id + 分块序号推导），相同 ID 的写入是整条覆盖。
type VectorRecord struct {
	ID       string         `json:"vector_id"`
	Values   []float32      `json:"vector"`
	Metadata VectorMetadata `json:"metadata"`
}

// VectorMatch 是一次相似度查询命中的一条结果，按相似度降序返回。
type VectorMatch struct {
	ID       string         `json:"vector_id"`
	Score    float64        `json:"score"`
	Metadata VectorMetadata `json:"metadata"`
}
