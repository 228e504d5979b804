package llm

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

func TestStrictUnmarshal(t *testing.T) {
	var out struct {
		Name string `json:"name"`
	}

	require.NoError(t, StrictUnmarshal([]byte(`{"name":"x"}`), &out))
	assert.Equal(t, "x", out.Name)

	// 未知字段判为 schema 违例
	err := StrictUnmarshal([]byte(`{"name":"x","extra":1}`), &out)
	assert.ErrorIs(t, err, ErrSchemaViolation)

	// 非法 JSON 同样判为 schema 违例
	err = StrictUnmarshal([]byte(`not json`), &out)
	assert.ErrorIs(t, err, ErrSchemaViolation)
}

func TestCompleteJSONSendsSchema(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		format, ok := req["response_format"].(map[string]any)
		require.True(t, ok, "response_format missing")
		assert.Equal(t, "json_schema", format["type"])
		schema := format["json_schema"].(map[string]any)
		assert.Equal(t, "test_schema", schema["name"])
		assert.Equal(t, true, schema["strict"])

		fmt.Fprint(w, `{"choices":[{"message":{"content":"{\"value\":42}"}}]}`)
	}))
	defer srv.Close()

	client := NewClient(config.LLMConfig{APIKey: "k", BaseURL: srv.URL, Model: "m"})

	var out struct {
		Value int `json:"value"`
	}
	err := client.CompleteJSON(context.Background(), "system", "user",
		Schema{Name: "test_schema", Schema: json.RawMessage(`{"type":"object"}`)}, &out)
	require.NoError(t, err)
	assert.Equal(t, 42, out.Value)
}

func TestCompleteJSONNonConformingOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[{"message":{"content":"{\"value\":42,\"rogue\":true}"}}]}`)
	}))
	defer srv.Close()

	client := NewClient(config.LLMConfig{APIKey: "k", BaseURL: srv.URL, Model: "m"})

	var out struct {
		Value int `json:"value"`
	}
	err := client.CompleteJSON(context.Background(), "system", "user",
		Schema{Name: "s", Schema: json.RawMessage(`{"type":"object"}`)}, &out)
	assert.ErrorIs(t, err, ErrSchemaViolation)
}

func TestCompleteReturnsReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		// 普通补全不携带 response_format
		_, hasFormat := req["response_format"]
		assert.False(t, hasFormat)
		fmt.Fprint(w, `{"choices":[{"message":{"content":"a free-text reply"}}]}`)
	}))
	defer srv.Close()

	client := NewClient(config.LLMConfig{APIKey: "k", BaseURL: srv.URL, Model: "m"})
	reply, err := client.Complete(context.Background(), "system", "user")
	require.NoError(t, err)
	assert.Equal(t, "a free-text reply", reply)
}

func TestCompleteNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[]}`)
	}))
	defer srv.Close()

	client := NewClient(config.LLMConfig{APIKey: "k", BaseURL: srv.URL, Model: "m"})
	_, err := client.Complete(context.Background(), "system", "user")
	assert.Error(t, err)
}
