package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/agent-cli/internal/config"
)

// newOpenAITestServer serves canned chat completions and records the last
// request body for assertions.
func newOpenAITestServer(t *testing.T, content string, lastReq *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if lastReq != nil {
			*lastReq = body
		}

		w.Header().Set("Content-Type", "application/json")
		resp := map[string]any{
			"id":    "chatcmpl-test",
			"model": "gpt-4o",
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}},
			},
			"usage": map[string]any{"prompt_tokens": 12, "completion_tokens": 8},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func newTestOpenAI(t *testing.T, baseURL string) Provider {
	t.Helper()
	p, err := NewOpenAI(config.OpenAIConfig{
		Key:     "test-key",
		Model:   "gpt-4o",
		BaseURL: baseURL + "/v1",
	})
	require.NoError(t, err)
	return p
}

func TestOpenAIComplete(t *testing.T) {
	t.Parallel()

	var lastReq map[string]any
	srv := newOpenAITestServer(t, "hello there", &lastReq)
	defer srv.Close()

	p := newTestOpenAI(t, srv.URL)
	resp, err := p.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}}, "be brief", "")
	require.NoError(t, err)

	assert.Equal(t, "hello there", resp.Content)
	assert.Equal(t, "gpt-4o", resp.Model)
	assert.Equal(t, int64(12), resp.InputTokens)
	assert.Equal(t, int64(8), resp.OutputTokens)

	// System prompt travels as the first message.
	msgs, ok := lastReq["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	first := msgs[0].(map[string]any)
	assert.Equal(t, "system", first["role"])
	assert.Equal(t, "be brief", first["content"])
}

func TestOpenAICompleteWithSearchAppendsHint(t *testing.T) {
	t.Parallel()

	var lastReq map[string]any
	srv := newOpenAITestServer(t, "findings", &lastReq)
	defer srv.Close()

	p := newTestOpenAI(t, srv.URL)
	_, err := p.CompleteWithSearch(context.Background(), []Message{{Role: "user", Content: "research X"}}, "system prompt", "")
	require.NoError(t, err)

	msgs := lastReq["messages"].([]any)
	first := msgs[0].(map[string]any)
	assert.Contains(t, first["content"], "system prompt")
	assert.Contains(t, first["content"], "training knowledge")
}

func TestOpenAICompleteStructured(t *testing.T) {
	t.Parallel()

	var lastReq map[string]any
	srv := newOpenAITestServer(t, `{"name": "Metro Transit"}`, &lastReq)
	defer srv.Close()

	p := newTestOpenAI(t, srv.URL)
	schema := Schema{
		Properties: map[string]FieldSpec{"name": {Type: "string"}},
		Required:   []string{"name"},
	}
	result, err := p.CompleteStructured(context.Background(), []Message{{Role: "user", Content: "extract"}}, "extract fields", schema, "")
	require.NoError(t, err)

	assert.False(t, IsParseError(result))
	assert.Equal(t, "Metro Transit", result["name"])

	format, ok := lastReq["response_format"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "json_object", format["type"])
}

func TestOpenAICompleteStructuredParseSentinel(t *testing.T) {
	t.Parallel()

	srv := newOpenAITestServer(t, "sorry, I cannot help with that", nil)
	defer srv.Close()

	p := newTestOpenAI(t, srv.URL)
	result, err := p.CompleteStructured(context.Background(), []Message{{Role: "user", Content: "extract"}}, "", Schema{}, "")
	require.NoError(t, err)

	assert.True(t, IsParseError(result))
	assert.NotEmpty(t, result[RawContentKey])
}
