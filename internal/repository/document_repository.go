// Package repository 提供了数据访问层的实现。
package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"rfp-launchpad-go/internal/model"
)

// DocumentRepository 定义了入库文档登记表的数据操作接口。
// 分块文本先落库，向量写入索引成功后再回填统计（两阶段）。
type DocumentRepository interface {
	CreateDocument(doc *model.IngestedDocument) error
	UpdateDocumentStats(docID string, chunkCount, totalChars int) error
	BatchCreateChunks(chunks []*model.DocumentChunk) error
	FindByDocID(docID string) (*model.IngestedDocument, error)
	FindAll() ([]model.IngestedDocument, error)
	DeleteByDocID(docID string) error
}

type documentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository 创建一个新的 DocumentRepository 实例。
func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

// CreateDocument 在数据库中创建一条新的文档登记记录。
func (r *documentRepository) CreateDocument(doc *model.IngestedDocument) error {
	return r.db.Create(doc).Error
}

// UpdateDocumentStats 在向量全部写入索引后回填分块数与字符数。
func (r *documentRepository) UpdateDocumentStats(docID string, chunkCount, totalChars int) error {
	return r.db.Model(&model.IngestedDocument{}).
		Where("doc_id = ?", docID).
		Updates(map[string]interface{}{
			"chunk_count": chunkCount,
			"total_chars": totalChars,
		}).Error
}

// BatchCreateChunks 批量创建文档分块记录。
func (r *documentRepository) BatchCreateChunks(chunks []*model.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	return r.db.CreateInBatches(chunks, 100).Error // 每100条记录一批
}

// FindByDocID 根据 doc_id 查找文档登记记录。
func (r *documentRepository) FindByDocID(docID string) (*model.IngestedDocument, error) {
	var doc model.IngestedDocument
	err := r.db.Where("doc_id = ?", docID).First(&doc).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// FindAll 按入库时间倒序检索所有文档登记记录。
func (r *documentRepository) FindAll() ([]model.IngestedDocument, error) {
	var docs []model.IngestedDocument
	err := r.db.Order("created_at desc").Find(&docs).Error
	return docs, err
}

// DeleteByDocID 删除一个文档登记记录及其全部分块记录。
func (r *documentRepository) DeleteByDocID(docID string) error {
	var errs []error
	if err := r.db.Where("doc_id = ?", docID).Delete(&model.DocumentChunk{}).Error; err != nil {
		errs = append(errs, err)
	}
	if err := r.db.Where("doc_id = ?", docID).Delete(&model.IngestedDocument{}).Error; err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("删除文档记录部分失败（docID=%s）: %v", docID, errors.Join(errs...))
	}
	return nil
}
