// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"rfp-launchpad-go/internal/config"
	"rfp-launchpad-go/internal/handler"
	"rfp-launchpad-go/internal/ingest"
	"rfp-launchpad-go/internal/middleware"
	"rfp-launchpad-go/internal/model"
	"rfp-launchpad-go/internal/repository"
	"rfp-launchpad-go/internal/rfp"
	"rfp-launchpad-go/pkg/database"
	"rfp-launchpad-go/pkg/embedding"
	"rfp-launchpad-go/pkg/es"
	"rfp-launchpad-go/pkg/kafka"
	"rfp-launchpad-go/pkg/llm"
	"rfp-launchpad-go/pkg/log"
	"rfp-launchpad-go/pkg/storage"
	"rfp-launchpad-go/pkg/tika"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库、Redis 和对象存储
	database.InitMySQL(cfg.Database.MySQL.DSN)
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	if err := database.DB.AutoMigrate(&model.IngestedDocument{}, &model.DocumentChunk{}); err != nil {
		log.Fatalf("数据库表迁移失败: %v", err)
	}
	minioClient := storage.NewMinIO(cfg.MinIO)

	// 4. 初始化向量索引（启动时幂等建索引）
	esClient, err := es.NewClient(cfg.Elasticsearch)
	if err != nil {
		log.Fatalf("es 初始化失败: %v", err)
	}
	index := es.NewIndex(esClient, cfg.Elasticsearch.IndexName, cfg.Elasticsearch.Dimensions)
	if err := index.EnsureIndex(context.Background()); err != nil {
		log.Fatalf("向量索引初始化失败: %v", err)
	}

	// 5. 初始化外部模型客户端与 Kafka 生产者（依赖注入，不用包级全局）
	tikaClient := tika.NewClient(cfg.Tika)
	embeddingClient := embedding.NewClient(cfg.Embedding)
	llmClient := llm.NewClient(cfg.LLM)
	producer := kafka.NewProducer(cfg.Kafka)

	// 6. 初始化 Repository 与入库处理器
	docRepo := repository.NewDocumentRepository(database.DB)
	processor := ingest.NewProcessor(
		tikaClient,
		embeddingClient,
		index,
		minioClient,
		cfg.MinIO,
		cfg.Ingest,
		cfg.Embedding,
		docRepo,
		ingest.NewCrawler(),
	)

	// 7. 初始化 RFP 流水线
	orchestrator := rfp.NewOrchestrator(
		rfp.NewBreakdownStage(llmClient),
		rfp.NewSMEIdentifier(llmClient, cfg.RFP.SMEs),
		rfp.NewAnswerGenerator(embeddingClient, index, llmClient, cfg.RFP),
	)

	// 8. 启动后台 Kafka 消费者
	go kafka.StartConsumer(cfg.Kafka, database.RDB, processor)

	// 9. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	r.Use(middleware.RequestLogger(), gin.Recovery())

	// 10. 注册路由
	ingestHandler := handler.NewIngestHandler(minioClient, cfg.MinIO, producer, docRepo)
	rfpHandler := handler.NewRFPHandler(orchestrator, tikaClient)

	apiV1 := r.Group("/api/v1")
	apiV1.Use(middleware.WebhookAuth(cfg.Server.WebhookSecret))
	{
		ingestGroup := apiV1.Group("/ingest")
		{
			ingestGroup.POST("/pdf", ingestHandler.UploadPDF)
			ingestGroup.POST("/website", ingestHandler.IngestWebsite)
		}

		apiV1.GET("/documents", ingestHandler.ListDocuments)

		rfpGroup := apiV1.Group("/rfp")
		{
			rfpGroup.POST("/process", rfpHandler.Process)
		}
	}

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}

	// Kafka 消费者是一个阻塞循环，随进程退出自然结束
	log.Info("服务已优雅关闭")
}
