// Package main 是知识库批量入库的命令行工具。
// 不经过 Kafka，直接同步执行入库，适合初始化知识库或本地调试。
package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"

	"rfp-launchpad-go/internal/config"
	"rfp-launchpad-go/internal/ingest"
	"rfp-launchpad-go/internal/model"
	"rfp-launchpad-go/internal/repository"
	"rfp-launchpad-go/pkg/database"
	"rfp-launchpad-go/pkg/embedding"
	"rfp-launchpad-go/pkg/es"
	"rfp-launchpad-go/pkg/log"
	"rfp-launchpad-go/pkg/tika"
)

func main() {
	configPath := flag.String("config", "./configs/config.yaml", "配置文件路径")
	pdfPath := flag.String("pdf", "", "要入库的单个 PDF 文件路径")
	dirPath := flag.String("dir", "", "要入库的 PDF 目录（递归扫描）")
	site := flag.String("site", "", "要入库的网站域名")
	maxPages := flag.Int("max-pages", 0, "网站抓取的最大页面数（0 使用配置默认值）")
	maxChars := flag.Int("max-chars", 0, "网站抓取的全站字符预算（0 使用配置默认值）")
	flag.Parse()

	if *pdfPath == "" && *dirPath == "" && *site == "" {
		flag.Usage()
		os.Exit(2)
	}

	config.Init(*configPath)
	cfg := config.Conf

	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()

	database.InitMySQL(cfg.Database.MySQL.DSN)
	if err := database.DB.AutoMigrate(&model.IngestedDocument{}, &model.DocumentChunk{}); err != nil {
		log.Fatalf("数据库表迁移失败: %v", err)
	}

	esClient, err := es.NewClient(cfg.Elasticsearch)
	if err != nil {
		log.Fatalf("es 初始化失败: %v", err)
	}
	index := es.NewIndex(esClient, cfg.Elasticsearch.IndexName, cfg.Elasticsearch.Dimensions)
	ctx := context.Background()
	if err := index.EnsureIndex(ctx); err != nil {
		log.Fatalf("向量索引初始化失败: %v", err)
	}

	// 本地入库不经过 MinIO，处理器的对象存储依赖留空
	processor := ingest.NewProcessor(
		tika.NewClient(cfg.Tika),
		embedding.NewClient(cfg.Embedding),
		index,
		nil,
		cfg.MinIO,
		cfg.Ingest,
		cfg.Embedding,
		repository.NewDocumentRepository(database.DB),
		ingest.NewCrawler(),
	)

	switch {
	case *pdfPath != "":
		if err := ingestLocalPDF(ctx, processor, *pdfPath); err != nil {
			log.Fatalf("PDF入库失败: %v", err)
		}
	case *dirPath != "":
		ingestDirectory(ctx, processor, *dirPath)
	case *site != "":
		docID := ingest.NewDocID(*site)
		if err := processor.IngestWebsite(ctx, docID, *site, *maxPages, *maxChars); err != nil {
			log.Fatalf("网站入库失败: %v", err)
		}
	}

	log.Info("入库完成")
}

// ingestLocalPDF 把本地 PDF 文件直接入库。
func ingestLocalPDF(ctx context.Context, processor *ingest.Processor, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	fileName := filepath.Base(path)
	stem := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	return processor.IngestPDF(ctx, ingest.NewDocID(stem), fileName, f)
}

// ingestDirectory 递归扫描目录并入库所有 PDF。
// 单个文件失败只记日志并跳过，不中断整个目录。
func ingestDirectory(ctx context.Context, processor *ingest.Processor, dir string) {
	total, failed := 0, 0
	walkErr := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".pdf") {
			return nil
		}
		total++
		if err := ingestLocalPDF(ctx, processor, path); err != nil {
			failed++
			log.Warnf("文件入库失败, 跳过: %s, Error: %v", path, err)
		}
		return nil
	})
	if walkErr != nil {
		log.Errorf("扫描目录失败: %v", walkErr)
	}
	log.Infof("目录入库完成, 共 %d 个PDF, 失败 %d 个", total, failed)
}
