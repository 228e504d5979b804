// Package llm provides a client for interacting with Large Language Models.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"rfp-launchpad-go/internal/config"
	"rfp-launchpad-go/pkg/log"
	"rfp-launchpad-go/pkg/retry"
)

// ErrSchemaViolation 表示模型在结构化输出调用中返回了不符合声明 schema 的内容。
// 调用方不应重试，也绝不能接受半解析的结果（parse-or-fail）。
var ErrSchemaViolation = errors.New("llm response does not conform to the declared schema")

// Schema declares a strict JSON schema for structured-output calls.
type Schema struct {
	Name   string
	Schema json.RawMessage
}

// Client defines the interface for an LLM client.
type Client interface {
	// Complete 发送 system/user 提示词并返回模型的自由文本回复。
	Complete(ctx context.Context, system, user string) (string, error)
	// CompleteJSON 以严格 JSON Schema 约束模型输出，并将结果解析到 out。
	// 输出无法按 schema 解析时返回 ErrSchemaViolation。
	CompleteJSON(ctx context.Context, system, user string, schema Schema, out any) error
}

type openAICompatibleClient struct {
	cfg      config.LLMConfig
	client   *http.Client
	limiter  *rate.Limiter
	retryCfg retry.Config
}

// NewClient creates a new LLM client based on the provider in the config.
func NewClient(cfg config.LLMConfig) Client {
	// 客户端侧限速，避免打满外部 API 的速率配额
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	return &openAICompatibleClient{
		cfg:      cfg,
		client:   &http.Client{Timeout: 300 * time.Second},
		limiter:  rate.NewLimiter(limit, 1),
		retryCfg: retry.DefaultConfig,
	}
}

// Message 表示一条角色消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    *float64        `json:"temperature,omitempty"`
	TopP           *float64        `json:"top_p,omitempty"`
	MaxTokens      *int            `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type       string      `json:"type"`
	JSONSchema *jsonSchema `json:"json_schema,omitempty"`
}

type jsonSchema struct {
	Name   string          `json:"name"`
	Strict bool            `json:"strict"`
	Schema json.RawMessage `json:"schema"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete calls the chat completions API and returns the full reply text.
func (c *openAICompatibleClient) Complete(ctx context.Context, system, user string) (string, error) {
	return c.complete(ctx, system, user, nil)
}

// CompleteJSON calls the chat completions API with a strict json_schema
// response format and unmarshals the reply into out.
func (c *openAICompatibleClient) CompleteJSON(ctx context.Context, system, user string, schema Schema, out any) error {
	format := &responseFormat{
		Type: "json_schema",
		JSONSchema: &jsonSchema{
			Name:   schema.Name,
			Strict: true,
			Schema: schema.Schema,
		},
	}

	content, err := c.complete(ctx, system, user, format)
	if err != nil {
		return err
	}

	return StrictUnmarshal([]byte(content), out)
}

// StrictUnmarshal 按 parse-or-fail 语义解析结构化输出：
// 未知字段或格式错误一律判为 schema 违例。
func StrictUnmarshal(data []byte, out any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaViolation, err)
	}
	return nil
}

func (c *openAICompatibleClient) complete(ctx context.Context, system, user string, format *responseFormat) (string, error) {
	reqBody := chatRequest{
		Model: c.cfg.Model,
		Messages: []Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		ResponseFormat: format,
	}
	// 从全局配置注入生成参数（若非零值）
	if c.cfg.Generation.Temperature != 0 {
		t := c.cfg.Generation.Temperature
		reqBody.Temperature = &t
	}
	if c.cfg.Generation.TopP != 0 {
		p := c.cfg.Generation.TopP
		reqBody.TopP = &p
	}
	if c.cfg.Generation.MaxTokens != 0 {
		m := c.cfg.Generation.MaxTokens
		reqBody.MaxTokens = &m
	}

	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	var chatResp chatResponse
	err = retry.Do(ctx, c.retryCfg, "llm", func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return retry.Permanent(err)
		}

		req, err := http.NewRequestWithContext(ctx, "POST", c.cfg.BaseURL+"/chat/completions", bytes.NewReader(reqBytes))
		if err != nil {
			return retry.Permanent(fmt.Errorf("failed to create chat request: %w", err))
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("failed to call chat api: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			return &retry.StatusError{Code: resp.StatusCode, Status: resp.Status, Body: string(body)}
		}

		chatResp = chatResponse{}
		if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
			return retry.Permanent(fmt.Errorf("failed to decode chat response: %w", err))
		}
		return nil
	})
	if err != nil {
		log.Errorf("[LLMClient] 调用 Chat API 失败, error: %v", err)
		return "", err
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("chat api returned no choices")
	}
	return chatResp.Choices[0].Message.Content, nil
}
