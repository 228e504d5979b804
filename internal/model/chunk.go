// Package model 定义了领域结构体以及与数据库表对应的 Go 结构体。
package model

// Chunk 是切块器从一篇文档全文中切出的一个文本分块。
// 偏移量以 rune 计数，Length 为去除首尾空白后的文本长度。
// 分块一旦生成即不可变。
type Chunk struct {
	ChunkID   int    `json:"chunk_id"`
	Text      string `json:"text"`
	StartChar int    `json:"start_char"`
	EndChar   int    `json:"end_char"`
	Length    int    `json:"length"`
}
