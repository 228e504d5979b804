package model

import "time"

// 文档来源类型。
const (
	SourcePDF     = "pdf"
	SourceWebsite = "website"
)

// IngestedDocument 对应于数据库中的 ingested_documents 表。
// 记录每次入库的文档元数据。doc_id 基于文件名/域名加时间戳推导，
// 重复入库同一份内容会产生新的 doc_id 和全量重复向量（刻意不做内容去重）。
type IngestedDocument struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	DocID      string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"docId"`
	SourceType string    `gorm:"type:varchar(16);not null" json:"sourceType"`
	SourceName string    `gorm:"type:varchar(255);not null" json:"sourceName"`
	ChunkCount int       `gorm:"not null;default:0" json:"chunkCount"`
	TotalChars int       `gorm:"not null;default:0" json:"totalChars"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (IngestedDocument) TableName() string {
	return "ingested_documents"
}

// DocumentChunk 对应于数据库中的 document_chunks 表。
// 分块文本先落库，再向量化写入索引（两阶段，便于排查与重放）。
type DocumentChunk struct {
	ID          uint   `gorm:"primaryKey;autoIncrement;column:id"`
	DocID       string `gorm:"type:varchar(255);not null;index;column:doc_id"`
	ChunkID     int    `gorm:"not null;column:chunk_id"`
	TextContent string `gorm:"type:text;column:text_content"`
	StartChar   int    `gorm:"not null;column:start_char"`
	EndChar     int    `gorm:"not null;column:end_char"`
	Length      int    `gorm:"not null;column:length"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (DocumentChunk) TableName() string {
	return "document_chunks"
}
