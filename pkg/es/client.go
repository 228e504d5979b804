// Package es 将 Elasticsearch 适配为固定维度余弦相似度的向量索引。
package es

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"rfp-launchpad-go/internal/config"
	"rfp-launchpad-go/internal/model"
	"rfp-launchpad-go/pkg/log"
	"rfp-launchpad-go/pkg/retry"
)

// NewClient 创建 Elasticsearch 客户端。
func NewClient(esCfg config.ElasticsearchConfig) (*elasticsearch.Client, error) {
	cfg := elasticsearch.Config{
		Addresses: []string{esCfg.Addresses},
		Username:  esCfg.Username,
		Password:  esCfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
	return elasticsearch.NewClient(cfg)
}

// Index 封装对单个向量索引的 upsert 与 top-k 查询。
// 通过构造函数显式注入客户端，而不是包级全局变量。
type Index struct {
	client   *elasticsearch.Client
	name     string
	dims     int
	retryCfg retry.Config
}

// NewIndex 创建一个面向 name 索引的适配器，dims 为向量维度。
func NewIndex(client *elasticsearch.Client, name string, dims int) *Index {
	return &Index{
		client:   client,
		name:     name,
		dims:     dims,
		retryCfg: retry.DefaultConfig,
	}
}

// Name 返回索引名。
func (ix *Index) Name() string {
	return ix.name
}

// EnsureIndex 检查索引是否存在，不存在则按固定维度 + cosine 相似度创建（幂等）。
// 必须在首次使用前于进程启动时调用一次。
func (ix *Index) EnsureIndex(ctx context.Context) error {
	res, err := ix.client.Indices.Exists([]string{ix.name}, ix.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		log.Errorf("检查索引是否存在时出错: %v", err)
		return err
	}
	// 200 说明索引已存在
	if !res.IsError() && res.StatusCode == http.StatusOK {
		log.Infof("索引 '%s' 已存在", ix.name)
		return nil
	}
	// 404 说明索引不存在，需要创建
	if res.StatusCode != http.StatusNotFound {
		log.Errorf("检查索引 '%s' 是否存在时收到意外的状态码: %d", ix.name, res.StatusCode)
		return fmt.Errorf("检查索引是否存在时收到意外的状态码: %d", res.StatusCode)
	}

	mapping := fmt.Sprintf(`{
		"mappings": {
			"properties": {
				"vector_id": { "type": "keyword" },
				"vector": {
					"type": "dense_vector",
					"dims": %d,
					"index": true,
					"similarity": "cosine"
				},
				"metadata": {
					"properties": {
						"text": { "type": "text" },
						"source": { "type": "keyword" },
						"source_url": { "type": "keyword" },
						"title": { "type": "text" },
						"doc_id": { "type": "keyword" },
						"chunk_id": { "type": "integer" },
						"length": { "type": "integer" },
						"page_info": { "type": "keyword" }
					}
				}
			}
		}
	}`, ix.dims)

	res, err = ix.client.Indices.Create(
		ix.name,
		ix.client.Indices.Create.WithContext(ctx),
		ix.client.Indices.Create.WithBody(strings.NewReader(mapping)),
	)
	if err != nil {
		log.Errorf("创建索引 '%s' 失败: %v", ix.name, err)
		return err
	}
	if res.IsError() {
		log.Errorf("创建索引 '%s' 时 Elasticsearch 返回错误: %s", ix.name, res.String())
		return errors.New("创建索引时 Elasticsearch 返回错误")
	}

	log.Infof("索引 '%s' 创建成功", ix.name)
	return nil
}

// BulkUpsert 批量写入向量记录，文档 _id 取 record.ID，相同 ID 整条覆盖。
func (ix *Index) BulkUpsert(ctx context.Context, records []model.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for _, rec := range records {
		meta := fmt.Sprintf(`{"index":{"_index":%q,"_id":%q}}`, ix.name, rec.ID)
		buf.WriteString(meta)
		buf.WriteByte('\n')
		docBytes, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("序列化向量记录失败: %w", err)
		}
		buf.Write(docBytes)
		buf.WriteByte('\n')
	}

	return retry.Do(ctx, ix.retryCfg, "es bulk upsert", func() error {
		req := esapi.BulkRequest{
			Body:    bytes.NewReader(buf.Bytes()),
			Refresh: "true",
		}
		res, err := req.Do(ctx, ix.client)
		if err != nil {
			return err
		}
		defer res.Body.Close()

		if res.IsError() {
			return &retry.StatusError{Code: res.StatusCode, Status: res.Status(), Body: res.String()}
		}

		var bulkResp struct {
			Errors bool `json:"errors"`
		}
		if err := json.NewDecoder(res.Body).Decode(&bulkResp); err != nil {
			return retry.Permanent(fmt.Errorf("解析 bulk 响应失败: %w", err))
		}
		if bulkResp.Errors {
			return retry.Permanent(errors.New("bulk 写入存在失败的条目"))
		}
		return nil
	})
}

// Query 以 kNN 检索与 vector 最近的 topK 条记录，按相似度降序返回。
// 同一向量对未变更的索引重复查询，结果序列一致。
func (ix *Index) Query(ctx context.Context, vector []float32, topK int) ([]model.VectorMatch, error) {
	esQuery := map[string]interface{}{
		"knn": map[string]interface{}{
			"field":          "vector",
			"query_vector":   vector,
			"k":              topK,
			"num_candidates": topK * 10,
		},
		"size": topK,
		"_source": map[string]interface{}{
			"excludes": []string{"vector"},
		},
	}

	var body bytes.Buffer
	if err := json.NewEncoder(&body).Encode(esQuery); err != nil {
		return nil, fmt.Errorf("序列化 kNN 查询失败: %w", err)
	}

	var esResponse struct {
		Hits struct {
			Hits []struct {
				ID     string  `json:"_id"`
				Score  float64 `json:"_score"`
				Source struct {
					Metadata model.VectorMetadata `json:"metadata"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}

	err := retry.Do(ctx, ix.retryCfg, "es knn query", func() error {
		res, err := ix.client.Search(
			ix.client.Search.WithContext(ctx),
			ix.client.Search.WithIndex(ix.name),
			ix.client.Search.WithBody(bytes.NewReader(body.Bytes())),
		)
		if err != nil {
			return err
		}
		defer res.Body.Close()

		if res.IsError() {
			return &retry.StatusError{Code: res.StatusCode, Status: res.Status(), Body: res.String()}
		}

		esResponse.Hits.Hits = esResponse.Hits.Hits[:0]
		if err := json.NewDecoder(res.Body).Decode(&esResponse); err != nil {
			return retry.Permanent(fmt.Errorf("解析 kNN 响应失败: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	matches := make([]model.VectorMatch, 0, len(esResponse.Hits.Hits))
	for _, hit := range esResponse.Hits.Hits {
		matches = append(matches, model.VectorMatch{
			ID:       hit.ID,
			Score:    hit.Score,
			Metadata: hit.Source.Metadata,
		})
	}
	return matches, nil
}

// DeleteByDocID 删除某个 doc_id 下的全部向量（显式清理用，入库流程不会调用）。
func (ix *Index) DeleteByDocID(ctx context.Context, docID string) error {
	query := fmt.Sprintf(`{"query":{"term":{"metadata.doc_id":%q}}}`, docID)
	res, err := ix.client.DeleteByQuery(
		[]string{ix.name},
		strings.NewReader(query),
		ix.client.DeleteByQuery.WithContext(ctx),
		ix.client.DeleteByQuery.WithRefresh(true),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Errorf("按 doc_id 删除向量出错: %s", res.String())
		return errors.New("failed to delete vectors by doc_id")
	}
	return nil
}
