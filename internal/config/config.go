// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Log           LogConfig           `mapstructure:"log"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Tika          TikaConfig          `mapstructure:"tika"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	MinIO         MinIOConfig         `mapstructure:"minio"`
	Embedding     EmbeddingConfig     `mapstructure:"embedding"`
	LLM           LLMConfig           `mapstructure:"llm"`
	Ingest        IngestConfig        `mapstructure:"ingest"`
	RFP           RFPConfig           `mapstructure:"rfp"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port          string `mapstructure:"port"`
	Mode          string `mapstructure:"mode"`
	WebhookSecret string `mapstructure:"webhook_secret"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
	Redis RedisConfig `mapstructure:"redis"`
}

// MySQLConfig 存储 MySQL 数据库的配置。
type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// KafkaConfig 存储 Kafka 相关的配置。
type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
}

// TikaConfig 存储 Tika 服务器相关的配置。
type TikaConfig struct {
	ServerURL string `mapstructure:"server_url"`
}

// ElasticsearchConfig 存储 Elasticsearch 相关的配置。
type ElasticsearchConfig struct {
	Addresses  string `mapstructure:"addresses"`
	Username   string `mapstructure:"username"`
	Password   string `mapstructure:"password"`
	IndexName  string `mapstructure:"index_name"`
	Dimensions int    `mapstructure:"dimensions"`
}

// MinIOConfig 存储 MinIO 对象存储的配置。
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

// EmbeddingConfig 存储 Embedding 模型相关的配置。
type EmbeddingConfig struct {
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	Model      string `mapstructure:"model"`
	Dimensions int    `mapstructure:"dimensions"`
	BatchSize  int    `mapstructure:"batch_size"`
}

// LLMConfig 存储大语言模型相关的配置。
type LLMConfig struct {
	APIKey     string              `mapstructure:"api_key"`
	BaseURL    string              `mapstructure:"base_url"`
	Model      string              `mapstructure:"model"`
	RateLimit  float64             `mapstructure:"rate_limit"`
	Generation LLMGenerationConfig `mapstructure:"generation"`
}

// LLMGenerationConfig 配置生成相关参数（可选）。
type LLMGenerationConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	TopP        float64 `mapstructure:"top_p"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// IngestConfig 存储文档入库流程相关的配置。
type IngestConfig struct {
	ChunkSize     int `mapstructure:"chunk_size"`
	ChunkOverlap  int `mapstructure:"chunk_overlap"`
	MaxPages      int `mapstructure:"max_pages"`
	MaxTotalChars int `mapstructure:"max_total_chars"`
}

// RFPConfig 存储 RFP 问答流水线相关的配置。
// SMEs 是固定的专家名册，通过配置注入而非硬编码在代码里，换名册不用改代码。
type RFPConfig struct {
	TopK             int         `mapstructure:"top_k"`
	HighConfidence   float64     `mapstructure:"high_confidence"`
	MediumConfidence float64     `mapstructure:"medium_confidence"`
	SMEs             []SMEConfig `mapstructure:"smes"`
}

// SMEConfig 是专家名册中的一条记录。
type SMEConfig struct {
	FullName   string   `mapstructure:"full_name"`
	Role       string   `mapstructure:"role"`
	Department []string `mapstructure:"department"`
	Email      string   `mapstructure:"email"`
}

// Init 初始化配置加载，从指定的路径读取 YAML 文件并解析到 Conf 变量中。
func Init(configPath string) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		panic(fmt.Errorf("读取配置文件失败: %w", err))
	}

	if err := viper.Unmarshal(&Conf); err != nil {
		panic(fmt.Errorf("无法将配置解析到结构体中: %w", err))
	}

	applyDefaults()
}

// applyDefaults 为未配置的可选项填充默认值（与原有脚本使用的常量保持一致）。
func applyDefaults() {
	if Conf.Ingest.ChunkSize == 0 {
		Conf.Ingest.ChunkSize = 1500
	}
	if Conf.Ingest.ChunkOverlap == 0 {
		Conf.Ingest.ChunkOverlap = 300
	}
	if Conf.Ingest.MaxPages == 0 {
		Conf.Ingest.MaxPages = 600
	}
	if Conf.Ingest.MaxTotalChars == 0 {
		Conf.Ingest.MaxTotalChars = 3000000
	}
	if Conf.Embedding.Dimensions == 0 {
		Conf.Embedding.Dimensions = 1536
	}
	if Conf.Embedding.BatchSize == 0 {
		Conf.Embedding.BatchSize = 100
	}
	if Conf.Elasticsearch.Dimensions == 0 {
		Conf.Elasticsearch.Dimensions = 1536
	}
	if Conf.RFP.TopK == 0 {
		Conf.RFP.TopK = 5
	}
	if Conf.RFP.HighConfidence == 0 {
		Conf.RFP.HighConfidence = 0.8
	}
	if Conf.RFP.MediumConfidence == 0 {
		Conf.RFP.MediumConfidence = 0.6
	}
}
