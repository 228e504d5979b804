package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfp-launchpad-go/internal/config"
)

// newEmbeddingServer 返回一个按输入顺序回显向量的假 embedding 服务。
// 向量首元素编码了该文本在本批次里的序号，便于校验保序。
func newEmbeddingServer(t *testing.T, batchSizes *[]int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req struct {
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		*batchSizes = append(*batchSizes, len(req.Input))

		type item struct {
			Embedding []float32 `json:"embedding"`
		}
		data := make([]item, len(req.Input))
		for i := range req.Input {
			data[i] = item{Embedding: []float32{float32(i), 1.0}}
		}
		json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
}

func TestCreateEmbeddingsSplitsBatches(t *testing.T) {
	var batchSizes []int
	srv := newEmbeddingServer(t, &batchSizes)
	defer srv.Close()

	client := NewClient(config.EmbeddingConfig{
		APIKey:    "test-key",
		BaseURL:   srv.URL,
		Model:     "test-model",
		BatchSize: 2,
	})

	texts := []string{"a", "b", "c", "d", "e"}
	vectors, err := client.CreateEmbeddings(context.Background(), texts)
	require.NoError(t, err)

	// 5 条输入按 2 条一批拆成 3 批，输出保序
	assert.Equal(t, []int{2, 2, 1}, batchSizes)
	require.Len(t, vectors, 5)
	assert.Equal(t, float32(0), vectors[0][0])
	assert.Equal(t, float32(1), vectors[1][0])
	assert.Equal(t, float32(0), vectors[2][0])
}

func TestCreateEmbeddingsEmptyInput(t *testing.T) {
	client := NewClient(config.EmbeddingConfig{})
	vectors, err := client.CreateEmbeddings(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vectors)
}

func TestCreateEmbeddingsCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 两条输入只回一个向量
		fmt.Fprint(w, `{"data":[{"embedding":[0.1]}]}`)
	}))
	defer srv.Close()

	client := NewClient(config.EmbeddingConfig{APIKey: "k", BaseURL: srv.URL, BatchSize: 100})
	_, err := client.CreateEmbeddings(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 inputs")
}

func TestCreateEmbeddingAuthErrorNotRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, `{"error":"invalid api key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient(config.EmbeddingConfig{APIKey: "bad", BaseURL: srv.URL})
	_, err := client.CreateEmbedding(context.Background(), "text")
	require.Error(t, err)
	// 401 不是瞬态错误，不应重试
	assert.Equal(t, 1, calls)
}
