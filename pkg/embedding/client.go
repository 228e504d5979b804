// Package embedding provides a client for interacting with embedding models.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"rfp-launchpad-go/internal/config"
	"rfp-launchpad-go/pkg/log"
	"rfp-launchpad-go/pkg/retry"
)

// Client defines the interface for an embedding client.
// CreateEmbeddings 保序返回：每个输入文本对应一个向量。
type Client interface {
	CreateEmbedding(ctx context.Context, text string) ([]float32, error)
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

type openAICompatibleClient struct {
	cfg      config.EmbeddingConfig
	client   *http.Client
	retryCfg retry.Config
}

// NewClient creates a new embedding client based on the provider in the config.
func NewClient(cfg config.EmbeddingConfig) Client {
	return &openAICompatibleClient{
		cfg:      cfg,
		client:   &http.Client{Timeout: 60 * time.Second},
		retryCfg: retry.DefaultConfig,
	}
}

type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// CreateEmbedding calls the OpenAI-compatible API to get the vector for a single text.
func (c *openAICompatibleClient) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.CreateEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// CreateEmbeddings embeds a batch of texts, splitting the input into
// API-sized sub-batches. 分批仅是接口限制层面的事，调用方不感知。
func (c *openAICompatibleClient) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	batchSize := c.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	all := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += batchSize {
		end := i + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vectors, err := c.embedBatch(ctx, texts[i:end])
		if err != nil {
			return nil, err
		}
		all = append(all, vectors...)
	}
	return all, nil
}

func (c *openAICompatibleClient) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	log.Infof("[EmbeddingClient] 开始调用 Embedding API, model: %s, batch_size: %d", c.cfg.Model, len(batch))
	reqBody := embeddingRequest{
		Model:      c.cfg.Model,
		Input:      batch,
		Dimensions: c.cfg.Dimensions,
	}

	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding request: %w", err)
	}

	var embeddingResp embeddingResponse
	err = retry.Do(ctx, c.retryCfg, "embedding", func() error {
		req, err := http.NewRequestWithContext(ctx, "POST", c.cfg.BaseURL+"/embeddings", bytes.NewReader(reqBytes))
		if err != nil {
			return retry.Permanent(fmt.Errorf("failed to create embedding request: %w", err))
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("failed to call embedding api: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			return &retry.StatusError{Code: resp.StatusCode, Status: resp.Status, Body: string(body)}
		}

		embeddingResp = embeddingResponse{}
		if err := json.NewDecoder(resp.Body).Decode(&embeddingResp); err != nil {
			return retry.Permanent(fmt.Errorf("failed to decode embedding response: %w", err))
		}
		return nil
	})
	if err != nil {
		log.Errorf("[EmbeddingClient] 调用 Embedding API 失败, error: %v", err)
		return nil, err
	}

	if len(embeddingResp.Data) != len(batch) {
		log.Errorf("[EmbeddingClient] Embedding API 返回向量数 %d 与输入数 %d 不一致", len(embeddingResp.Data), len(batch))
		return nil, fmt.Errorf("embedding api returned %d vectors for %d inputs", len(embeddingResp.Data), len(batch))
	}

	vectors := make([][]float32, len(embeddingResp.Data))
	for i, item := range embeddingResp.Data {
		if len(item.Embedding) == 0 {
			return nil, fmt.Errorf("received empty embedding from api at position %d", i)
		}
		vectors[i] = item.Embedding
	}

	log.Infof("[EmbeddingClient] 成功从 Embedding API 获取 %d 个向量, 维度: %d", len(vectors), len(vectors[0]))
	return vectors, nil
}
