// Package handler 存放所有 Gin 的 HTTP 处理器。
package handler

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/minio/minio-go/v7"

	"rfp-launchpad-go/internal/config"
	"rfp-launchpad-go/internal/ingest"
	"rfp-launchpad-go/internal/repository"
	"rfp-launchpad-go/pkg/kafka"
	"rfp-launchpad-go/pkg/log"
	"rfp-launchpad-go/pkg/storage"
	"rfp-launchpad-go/pkg/tasks"
)

// IngestHandler 处理知识库入库相关的请求。
// 上传的 PDF 先存入 MinIO，再投递 Kafka 任务异步处理；
// 网站入库直接投递抓取任务。
type IngestHandler struct {
	minioClient *minio.Client
	minioCfg    config.MinIOConfig
	producer    *kafka.Producer
	docRepo     repository.DocumentRepository
}

// NewIngestHandler 创建一个新的 IngestHandler 实例。
func NewIngestHandler(minioClient *minio.Client, minioCfg config.MinIOConfig, producer *kafka.Producer, docRepo repository.DocumentRepository) *IngestHandler {
	return &IngestHandler{
		minioClient: minioClient,
		minioCfg:    minioCfg,
		producer:    producer,
		docRepo:     docRepo,
	}
}

// UploadPDF 接收一个 PDF 文件，暂存到 MinIO 并投递入库任务。
func (h *IngestHandler) UploadPDF(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		log.Warnf("[IngestHandler] 上传请求缺少文件: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求中缺少 file 字段"})
		return
	}

	fileName := fileHeader.Filename
	if !strings.EqualFold(filepath.Ext(fileName), ".pdf") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "只支持 PDF 文件"})
		return
	}
	log.Infof("[IngestHandler] 收到PDF上传请求, FileName: %s, Size: %d", fileName, fileHeader.Size)

	file, err := fileHeader.Open()
	if err != nil {
		log.Errorf("[IngestHandler] 打开上传文件失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "读取上传文件失败"})
		return
	}
	defer file.Close()

	stem := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	docID := ingest.NewDocID(stem)
	objectName := fmt.Sprintf("rfp/%s.pdf", docID)

	if err := storage.PutObject(c.Request.Context(), h.minioClient, h.minioCfg.BucketName,
		objectName, "application/pdf", file, fileHeader.Size); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "暂存文件失败"})
		return
	}

	task := tasks.IngestTask{
		Kind:       tasks.KindPDF,
		DocID:      docID,
		ObjectName: objectName,
		FileName:   fileName,
	}
	if err := h.producer.ProduceIngestTask(task); err != nil {
		log.Errorf("[IngestHandler] 投递入库任务失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "投递入库任务失败"})
		return
	}

	log.Infof("[IngestHandler] PDF入库任务已投递, DocID: %s", docID)
	c.JSON(http.StatusAccepted, gin.H{"code": 202, "data": gin.H{"docId": docID}, "message": "入库任务已接收"})
}

// websiteIngestRequest 是网站入库请求体。
type websiteIngestRequest struct {
	Domain        string `json:"domain" binding:"required"`
	MaxPages      int    `json:"maxPages"`
	MaxTotalChars int    `json:"maxTotalChars"`
}

// IngestWebsite 接收一个域名并投递站点抓取入库任务。
func (h *IngestHandler) IngestWebsite(c *gin.Context) {
	var req websiteIngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求体: domain 必填"})
		return
	}
	log.Infof("[IngestHandler] 收到网站入库请求, Domain: %s", req.Domain)

	docID := ingest.NewDocID(req.Domain)
	task := tasks.IngestTask{
		Kind:          tasks.KindWebsite,
		DocID:         docID,
		Domain:        req.Domain,
		MaxPages:      req.MaxPages,
		MaxTotalChars: req.MaxTotalChars,
	}
	if err := h.producer.ProduceIngestTask(task); err != nil {
		log.Errorf("[IngestHandler] 投递入库任务失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "投递入库任务失败"})
		return
	}

	log.Infof("[IngestHandler] 网站入库任务已投递, DocID: %s", docID)
	c.JSON(http.StatusAccepted, gin.H{"code": 202, "data": gin.H{"docId": docID}, "message": "入库任务已接收"})
}

// ListDocuments 返回所有已入库文档的登记信息。
func (h *IngestHandler) ListDocuments(c *gin.Context) {
	docs, err := h.docRepo.FindAll()
	if err != nil {
		log.Errorf("[IngestHandler] 查询文档列表失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询文档列表失败"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": docs, "message": "success"})
}
