// Package tika 提供了一个与 Apache Tika 服务器交互的客户端。
package tika

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"rfp-launchpad-go/internal/config"
)

// Client 是 Tika 服务器的客户端。
type Client struct {
	serverURL string
	client    *http.Client
}

// NewClient 创建一个新的 Tika 客户端实例。
func NewClient(cfg config.TikaConfig) *Client {
	return &Client{
		serverURL: cfg.ServerURL,
		client:    &http.Client{Timeout: 120 * time.Second},
	}
}

// ExtractText 自动根据文件后缀推断 MIME 类型，并调用 Tika 提取纯文本。
// Tika 的纯文本输出用换页符（\f）分隔 PDF 页面。
func (c *Client) ExtractText(ctx context.Context, fileReader io.Reader, fileName string) (string, error) {
	contentType := detectMimeType(fileName)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.serverURL+"/tika", fileReader)
	if err != nil {
		return "", fmt.Errorf("创建请求失败: %w", err)
	}

	req.Header.Set("Accept", "text/plain")
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("调用 Tika 失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("Tika 返回错误 [%d]: %s", resp.StatusCode, string(body))
	}

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, resp.Body); err != nil {
		return "", fmt.Errorf("读取 Tika 响应失败: %w", err)
	}

	return buf.String(), nil
}

// ExtractPagedText 提取文本并把 Tika 的换页符重写为显式的页标记，
// 与原始 PDF 提取输出的 "--- Page N ---" 形式对齐。
func (c *Client) ExtractPagedText(ctx context.Context, fileReader io.Reader, fileName string) (string, error) {
	raw, err := c.ExtractText(ctx, fileReader, fileName)
	if err != nil {
		return "", err
	}
	return MarkPages(raw), nil
}

// MarkPages 将 \f 分隔的文本重写为带 "--- Page N ---" 标记的整篇文本。
// 不含换页符的输入视作单页。
func MarkPages(text string) string {
	pages := strings.Split(text, "\f")
	var b strings.Builder
	n := 0
	for _, page := range pages {
		if strings.TrimSpace(page) == "" {
			continue
		}
		n++
		fmt.Fprintf(&b, "\n--- Page %d ---\n", n)
		b.WriteString(strings.TrimRight(page, "\n"))
	}
	return b.String()
}

// detectMimeType 根据文件扩展名判断 Content-Type
func detectMimeType(fileName string) string {
	ext := filepath.Ext(fileName)
	if ext == "" {
		return "application/octet-stream"
	}
	mimeType := mime.TypeByExtension(ext)
	if mimeType == "" {
		// fallback 默认
		return "application/octet-stream"
	}
	return mimeType
}
