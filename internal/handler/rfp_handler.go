package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"rfp-launchpad-go/internal/rfp"
	"rfp-launchpad-go/pkg/log"
	"rfp-launchpad-go/pkg/tika"
)

// RFPHandler 处理 RFP 流水线请求：上传一份 RFP，同步跑完拆解与问答。
type RFPHandler struct {
	orchestrator *rfp.Orchestrator
	tikaClient   *tika.Client
}

// NewRFPHandler 创建一个新的 RFPHandler 实例。
func NewRFPHandler(orchestrator *rfp.Orchestrator, tikaClient *tika.Client) *RFPHandler {
	return &RFPHandler{
		orchestrator: orchestrator,
		tikaClient:   tikaClient,
	}
}

// textProcessRequest 是直接提交纯文本 RFP 的请求体。
type textProcessRequest struct {
	Text string `json:"text" binding:"required"`
}

// Process 执行完整的 RFP 流水线。
// 支持两种输入：multipart 的 PDF 文件（经 Tika 提取文本），或 JSON 里的纯文本。
// format=markdown 时返回渲染好的 Markdown 报告，默认返回结构化 JSON。
func (h *RFPHandler) Process(c *gin.Context) {
	rfpText, ok := h.extractText(c)
	if !ok {
		return
	}
	log.Infof("[RFPHandler] 收到RFP处理请求, 文本长度: %d", len(rfpText))

	result, err := h.orchestrator.Run(c.Request.Context(), rfpText)
	if err != nil {
		log.Errorf("[RFPHandler] RFP流水线执行失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "RFP处理失败"})
		return
	}

	if c.Query("format") == "markdown" {
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(rfp.FormatMarkdownReport(result)))
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "data": result, "message": "success"})
}

// extractText 从请求中取出 RFP 全文。失败时已写好响应，返回 ok=false。
func (h *RFPHandler) extractText(c *gin.Context) (string, bool) {
	contentType := c.GetHeader("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "请求中缺少 file 字段"})
			return "", false
		}
		file, err := fileHeader.Open()
		if err != nil {
			log.Errorf("[RFPHandler] 打开上传文件失败: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "读取上传文件失败"})
			return "", false
		}
		defer file.Close()

		text, err := h.tikaClient.ExtractPagedText(c.Request.Context(), file, fileHeader.Filename)
		if err != nil {
			log.Errorf("[RFPHandler] Tika提取RFP文本失败: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "RFP文本提取失败"})
			return "", false
		}
		if strings.TrimSpace(text) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "RFP文本内容为空"})
			return "", false
		}
		return text, true
	}

	var req textProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求体: text 必填"})
		return "", false
	}
	return req.Text, true
}
