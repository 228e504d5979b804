// Package ingest 定义了文档入库的核心流程：提取、分块、向量化、写索引。
package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/minio/minio-go/v7"

	"rfp-launchpad-go/internal/chunker"
	"rfp-launchpad-go/internal/config"
	"rfp-launchpad-go/internal/model"
	"rfp-launchpad-go/internal/repository"
	"rfp-launchpad-go/pkg/embedding"
	"rfp-launchpad-go/pkg/es"
	"rfp-launchpad-go/pkg/log"
	"rfp-launchpad-go/pkg/tasks"
	"rfp-launchpad-go/pkg/tika"
)

const (
	// 元数据里冗余保存的原文截断长度
	metadataTextLimit = 1000
	// 向量缓冲达到该数量就触发一次落盘
	vectorBufferLimit = 1000
	// 每次向索引批量写入的条数
	upsertBatchSize = 100
)

// Processor 封装了文档入库的所有依赖和逻辑。
type Processor struct {
	tikaClient      *tika.Client
	embeddingClient embedding.Client
	index           *es.Index
	minioClient     *minio.Client
	minioCfg        config.MinIOConfig
	ingestCfg       config.IngestConfig
	embeddingCfg    config.EmbeddingConfig
	docRepo         repository.DocumentRepository
	crawler         *Crawler
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(
	tikaClient *tika.Client,
	embeddingClient embedding.Client,
	index *es.Index,
	minioClient *minio.Client,
	minioCfg config.MinIOConfig,
	ingestCfg config.IngestConfig,
	embeddingCfg config.EmbeddingConfig,
	docRepo repository.DocumentRepository,
	crawler *Crawler,
) *Processor {
	return &Processor{
		tikaClient:      tikaClient,
		embeddingClient: embeddingClient,
		index:           index,
		minioClient:     minioClient,
		minioCfg:        minioCfg,
		ingestCfg:       ingestCfg,
		embeddingCfg:    embeddingCfg,
		docRepo:         docRepo,
		crawler:         crawler,
	}
}

// NewDocID 根据来源名加时间戳推导 doc_id。
// 刻意使用时间戳而不是内容哈希：重复入库同一份内容会产生新的 doc_id。
func NewDocID(name string) string {
	return fmt.Sprintf("%s_%s", sanitizeName(name), time.Now().Format("20060102_150405"))
}

// sanitizeName 把来源名归一化为只含字母数字和下划线的标识。
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return strings.Trim(b.String(), "_")
}

// ProcessTask 是 Kafka 消费端的入口，按任务类型分发。
func (p *Processor) ProcessTask(ctx context.Context, task tasks.IngestTask) error {
	switch task.Kind {
	case tasks.KindPDF:
		return p.processPDFTask(ctx, task)
	case tasks.KindWebsite:
		return p.IngestWebsite(ctx, task.DocID, task.Domain, task.MaxPages, task.MaxTotalChars)
	default:
		return fmt.Errorf("未知的入库任务类型: %s", task.Kind)
	}
}

// processPDFTask 从 MinIO 下载 PDF 并执行入库。
func (p *Processor) processPDFTask(ctx context.Context, task tasks.IngestTask) error {
	log.Infof("[Processor] 开始处理PDF入库任务, DocID: %s, Object: %s", task.DocID, task.ObjectName)

	log.Infof("[Processor] 步骤1: 从MinIO下载文件, Bucket: %s, Object: %s", p.minioCfg.BucketName, task.ObjectName)
	object, err := p.minioClient.GetObject(ctx, p.minioCfg.BucketName, task.ObjectName, minio.GetObjectOptions{})
	if err != nil {
		log.Errorf("[Processor] 从MinIO下载文件失败, Object: %s, Error: %v", task.ObjectName, err)
		return fmt.Errorf("从 MinIO 下载文件失败: %w", err)
	}
	defer object.Close()

	buf := new(bytes.Buffer)
	size, err := buf.ReadFrom(object)
	if err != nil {
		log.Errorf("[Processor] 从MinIO对象流中读取内容失败, Error: %v", err)
		return fmt.Errorf("读取MinIO对象流失败: %w", err)
	}
	log.Infof("[Processor] 步骤1: 文件下载成功, 大小: %d字节", size)
	if size == 0 {
		log.Warnf("[Processor] 文件 '%s' 内容为空, 处理中止", task.FileName)
		return errors.New("文件内容为空")
	}

	return p.IngestPDF(ctx, task.DocID, task.FileName, bytes.NewReader(buf.Bytes()))
}

// IngestPDF 提取 PDF 文本（带页标记）、分块、向量化并写入索引。
func (p *Processor) IngestPDF(ctx context.Context, docID, fileName string, fileReader io.Reader) error {
	log.Infof("[Processor] 步骤2: 使用Tika提取文本内容, FileName: %s", fileName)
	textContent, err := p.tikaClient.ExtractPagedText(ctx, fileReader, fileName)
	if err != nil {
		log.Errorf("[Processor] 使用Tika提取文本失败, FileName: %s, Error: %v", fileName, err)
		return fmt.Errorf("使用 Tika 提取文本失败: %w", err)
	}
	if strings.TrimSpace(textContent) == "" {
		log.Warnf("[Processor] Tika提取的文本内容为空, 处理中止, FileName: %s", fileName)
		return errors.New("提取的文本内容为空")
	}
	log.Infof("[Processor] 步骤2: 文本提取成功, 内容长度: %d 字符", utf8.RuneCountInString(textContent))

	doc := &model.IngestedDocument{
		DocID:      docID,
		SourceType: model.SourcePDF,
		SourceName: fileName,
	}
	if err := p.docRepo.CreateDocument(doc); err != nil {
		log.Errorf("[Processor] 创建文档登记记录失败, DocID: %s, Error: %v", docID, err)
		return fmt.Errorf("创建文档登记记录失败: %w", err)
	}

	log.Infof("[Processor] 步骤3: 进行文本分块, chunkSize: %d, chunkOverlap: %d",
		p.ingestCfg.ChunkSize, p.ingestCfg.ChunkOverlap)
	chunks, err := chunker.Split(textContent, p.ingestCfg.ChunkSize, p.ingestCfg.ChunkOverlap)
	if err != nil {
		return fmt.Errorf("文本分块失败: %w", err)
	}
	log.Infof("[Processor] 步骤3: 文本分块完成, 共生成 %d 个分块", len(chunks))
	if len(chunks) == 0 {
		log.Warnf("[Processor] 未生成任何文本分块, 处理中止, FileName: %s", fileName)
		return errors.New("未生成任何文本分块")
	}

	// 阶段一：分块文本先落库
	log.Info("[Processor] 阶段一: 开始将分块文本存入数据库")
	if err := p.persistChunks(docID, chunks); err != nil {
		return err
	}

	// 阶段二：向量化并批量写入索引
	log.Info("[Processor] 阶段二: 开始向量化并写入索引")
	records := make([]model.VectorRecord, 0, len(chunks))
	for _, chunk := range chunks {
		records = append(records, model.VectorRecord{
			ID: fmt.Sprintf("%s_chunk_%d", docID, chunk.ChunkID),
			Metadata: model.VectorMetadata{
				Text:    truncateRunes(chunk.Text, metadataTextLimit),
				Source:  fileName,
				DocID:   docID,
				ChunkID: chunk.ChunkID,
				Length:  chunk.Length,
			},
		})
	}
	if err := p.embedAndUpsert(ctx, chunks, records); err != nil {
		return err
	}

	totalChars := utf8.RuneCountInString(textContent)
	if err := p.docRepo.UpdateDocumentStats(docID, len(chunks), totalChars); err != nil {
		log.Warnf("[Processor] 回填文档统计失败, DocID: %s, Error: %v", docID, err)
	}

	p.logStorageEstimate(docID, len(chunks))
	log.Infof("[Processor] PDF入库完成, DocID: %s, 分块数: %d", docID, len(chunks))
	return nil
}

// IngestWebsite 爬取站点、逐页分块向量化，缓冲满 1000 条就批量写索引。
// 单页失败只记日志并跳过，不中断整次入库。
func (p *Processor) IngestWebsite(ctx context.Context, docID, domain string, maxPages, maxTotalChars int) error {
	log.Infof("[Processor] 开始处理网站入库任务, DocID: %s, Domain: %s", docID, domain)

	if maxPages <= 0 {
		maxPages = p.ingestCfg.MaxPages
	}
	if maxTotalChars <= 0 {
		maxTotalChars = p.ingestCfg.MaxTotalChars
	}

	doc := &model.IngestedDocument{
		DocID:      docID,
		SourceType: model.SourceWebsite,
		SourceName: domain,
	}
	if err := p.docRepo.CreateDocument(doc); err != nil {
		return fmt.Errorf("创建文档登记记录失败: %w", err)
	}

	log.Infof("[Processor] 步骤1: 开始发现并抓取页面, maxPages: %d, maxTotalChars: %d", maxPages, maxTotalChars)

	var (
		bufferedChunks  []model.Chunk
		bufferedRecords []model.VectorRecord
		nextChunkID     = 0
		totalChars      = 0
		totalChunks     = 0
	)

	flush := func() error {
		if len(bufferedRecords) == 0 {
			return nil
		}
		if err := p.persistChunks(docID, bufferedChunks); err != nil {
			return err
		}
		if err := p.embedAndUpsert(ctx, bufferedChunks, bufferedRecords); err != nil {
			return err
		}
		totalChunks += len(bufferedRecords)
		bufferedChunks = bufferedChunks[:0]
		bufferedRecords = bufferedRecords[:0]
		return nil
	}

	err := p.crawler.Crawl(ctx, domain, maxPages, maxTotalChars, func(page Page) error {
		chunks, err := chunker.Split(page.Text, p.ingestCfg.ChunkSize, p.ingestCfg.ChunkOverlap)
		if err != nil {
			return err
		}
		for _, chunk := range chunks {
			// 整个站点共用一条 chunk_id 序列
			chunk.ChunkID = nextChunkID
			nextChunkID++
			bufferedChunks = append(bufferedChunks, chunk)
			bufferedRecords = append(bufferedRecords, model.VectorRecord{
				ID: fmt.Sprintf("%s_chunk_%d", docID, chunk.ChunkID),
				Metadata: model.VectorMetadata{
					Text:      truncateRunes(chunk.Text, metadataTextLimit),
					Source:    domain,
					SourceURL: page.URL,
					Title:     page.Title,
					DocID:     docID,
					ChunkID:   chunk.ChunkID,
					Length:    chunk.Length,
					PageInfo:  page.URL,
				},
			})
		}
		totalChars += utf8.RuneCountInString(page.Text)
		if len(bufferedRecords) >= vectorBufferLimit {
			log.Infof("[Processor] 向量缓冲达到 %d 条, 触发落盘", len(bufferedRecords))
			return flush()
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("抓取站点失败: %w", err)
	}

	// 最后一批
	if err := flush(); err != nil {
		return err
	}
	if totalChunks == 0 {
		log.Warnf("[Processor] 站点 '%s' 未产出任何分块, 处理中止", domain)
		return errors.New("未生成任何文本分块")
	}

	if err := p.docRepo.UpdateDocumentStats(docID, totalChunks, totalChars); err != nil {
		log.Warnf("[Processor] 回填文档统计失败, DocID: %s, Error: %v", docID, err)
	}

	p.logStorageEstimate(docID, totalChunks)
	log.Infof("[Processor] 网站入库完成, DocID: %s, 分块数: %d, 总字符数: %d", docID, totalChunks, totalChars)
	return nil
}

// persistChunks 批量写入分块登记表。
func (p *Processor) persistChunks(docID string, chunks []model.Chunk) error {
	dbChunks := make([]*model.DocumentChunk, 0, len(chunks))
	for _, chunk := range chunks {
		dbChunks = append(dbChunks, &model.DocumentChunk{
			DocID:       docID,
			ChunkID:     chunk.ChunkID,
			TextContent: chunk.Text,
			StartChar:   chunk.StartChar,
			EndChar:     chunk.EndChar,
			Length:      chunk.Length,
		})
	}
	if err := p.docRepo.BatchCreateChunks(dbChunks); err != nil {
		log.Errorf("[Processor] 批量保存文本分块到数据库失败, Error: %v", err)
		return fmt.Errorf("批量保存文本分块失败: %w", err)
	}
	return nil
}

// embedAndUpsert 对分块做批量向量化，再按固定批次写入索引。
// chunks 与 records 一一对应。
func (p *Processor) embedAndUpsert(ctx context.Context, chunks []model.Chunk, records []model.VectorRecord) error {
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	vectors, err := p.embeddingClient.CreateEmbeddings(ctx, texts)
	if err != nil {
		log.Errorf("[Processor] 批量向量化失败, Error: %v", err)
		return fmt.Errorf("批量向量化失败: %w", err)
	}
	for i := range records {
		records[i].Values = vectors[i]
	}

	for i := 0; i < len(records); i += upsertBatchSize {
		end := i + upsertBatchSize
		if end > len(records) {
			end = len(records)
		}
		if err := p.index.BulkUpsert(ctx, records[i:end]); err != nil {
			log.Errorf("[Processor] 批量写入索引失败, batch: [%d,%d), Error: %v", i, end, err)
			return fmt.Errorf("批量写入索引失败: %w", err)
		}
	}
	return nil
}

// logStorageEstimate 粗略估算本次入库占用的索引存储并打印。
func (p *Processor) logStorageEstimate(docID string, chunkCount int) {
	// float32 向量 + 截断后的元数据原文
	bytesEstimate := chunkCount * (p.embeddingCfg.Dimensions*4 + metadataTextLimit)
	log.Infof("[Processor] 存储估算, DocID: %s, 向量数: %d, 约 %.2f MB",
		docID, chunkCount, float64(bytesEstimate)/(1024*1024))
}

// truncateRunes 按 rune 截断字符串。
func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
