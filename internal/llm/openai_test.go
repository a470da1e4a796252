package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foliorag/foliorag/internal/log"
	"github.com/foliorag/foliorag/internal/retrieval"
)

// fakeProvider speaks just enough of the OpenAI REST surface for the
// client: POST …/embeddings and POST …/chat/completions.
type fakeProvider struct {
	srv *httptest.Server

	embedding   []float64
	answer      string
	emptyData   bool
	noChoices   bool
	embedStatus int
	chatStatus  int
	delay       time.Duration

	mu            sync.Mutex
	embedRequests []map[string]any
	chatRequests  []map[string]any
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()

	f := &fakeProvider{
		embedding: []float64{0.1, 0.2, 0.3},
		answer:    "fake answer",
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeProvider) handle(w http.ResponseWriter, r *http.Request) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)

	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/embeddings"):
		f.mu.Lock()
		f.embedRequests = append(f.embedRequests, body)
		f.mu.Unlock()

		if f.embedStatus != 0 {
			w.WriteHeader(f.embedStatus)
			fmt.Fprint(w, `{"error":{"message":"induced failure"}}`)
			return
		}
		if f.emptyData {
			fmt.Fprint(w, `{"object":"list","data":[],"model":"test"}`)
			return
		}
		resp := map[string]any{
			"object": "list",
			"data": []map[string]any{
				{"object": "embedding", "index": 0, "embedding": f.embedding},
			},
			"model": "test",
			"usage": map[string]any{"prompt_tokens": 1, "total_tokens": 1},
		}
		_ = json.NewEncoder(w).Encode(resp)

	case strings.HasSuffix(r.URL.Path, "/chat/completions"):
		f.mu.Lock()
		f.chatRequests = append(f.chatRequests, body)
		f.mu.Unlock()

		if f.chatStatus != 0 {
			w.WriteHeader(f.chatStatus)
			fmt.Fprint(w, `{"error":{"message":"induced failure"}}`)
			return
		}
		if f.noChoices {
			fmt.Fprint(w, `{"id":"chatcmpl-0","object":"chat.completion","created":1,"model":"test","choices":[]}`)
			return
		}
		resp := map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   "test",
			"choices": []map[string]any{
				{
					"index":         0,
					"message":       map[string]any{"role": "assistant", "content": f.answer},
					"finish_reason": "stop",
				},
			},
			"usage": map[string]any{"prompt_tokens": 1, "completion_tokens": 1, "total_tokens": 1},
		}
		_ = json.NewEncoder(w).Encode(resp)

	default:
		http.NotFound(w, r)
	}
}

func (f *fakeProvider) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.embedRequests) + len(f.chatRequests)
}

func newTestClient(t *testing.T, f *fakeProvider) *Client {
	t.Helper()
	return New(Config{
		APIKey:         "test-key",
		BaseURL:        f.srv.URL,
		EmbeddingModel: "text-embedding-3-small",
		ChatModel:      "gpt-4o-mini",
		RequestTimeout: 5 * time.Second,
	}, log.NewNop())
}

func TestEmbedQuery(t *testing.T) {
	f := newFakeProvider(t)
	f.embedding = []float64{0.5, -0.25, 1}
	c := newTestClient(t, f)

	vec, err := c.EmbedQuery(context.Background(), "What languages?")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, -0.25, 1}, vec)

	require.Len(t, f.embedRequests, 1)
	req := f.embedRequests[0]
	assert.Equal(t, "text-embedding-3-small", req["model"])
	assert.Equal(t, []any{"What languages?"}, req["input"], "the query must be sent as a single-element array")
}

func TestEmbedQuery_NotConfigured(t *testing.T) {
	f := newFakeProvider(t)
	c := New(Config{
		BaseURL:        f.srv.URL,
		EmbeddingModel: "text-embedding-3-small",
		ChatModel:      "gpt-4o-mini",
	}, log.NewNop())

	_, err := c.EmbedQuery(context.Background(), "query")
	require.ErrorIs(t, err, retrieval.ErrNotConfigured)
	assert.Zero(t, f.requestCount(), "an unconfigured client must not reach the network")
}

func TestEmbedQuery_EmptyData(t *testing.T) {
	f := newFakeProvider(t)
	f.emptyData = true
	c := newTestClient(t, f)

	_, err := c.EmbedQuery(context.Background(), "query")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no vector")
	assert.NotErrorIs(t, err, retrieval.ErrNotConfigured)
}

func TestEmbedQuery_ProviderError(t *testing.T) {
	f := newFakeProvider(t)
	f.embedStatus = http.StatusInternalServerError
	c := newTestClient(t, f)

	_, err := c.EmbedQuery(context.Background(), "query")
	require.Error(t, err)

	// Transport retries are disabled; exactly one attempt.
	assert.Len(t, f.embedRequests, 1)
}

func TestComplete(t *testing.T) {
	f := newFakeProvider(t)
	f.answer = "Go, Python and SQL."
	c := newTestClient(t, f)

	answer, err := c.Complete(context.Background(), []retrieval.Message{
		{Role: retrieval.RoleSystem, Content: "persona"},
		{Role: retrieval.RoleSystem, Content: "CONTEXT:\nSOURCE 1 (score:1.0000):\nchunk"},
		{Role: retrieval.RoleUser, Content: "What languages?"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Go, Python and SQL.", answer)

	require.Len(t, f.chatRequests, 1)
	req := f.chatRequests[0]
	assert.Equal(t, "gpt-4o-mini", req["model"])
	assert.Equal(t, float64(600), req["max_tokens"], "output length cap is fixed")
	assert.Equal(t, float64(0), req["temperature"], "decoding must be deterministic")

	msgs, ok := req["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 3)

	first := msgs[0].(map[string]any)
	assert.Equal(t, "system", first["role"])
	assert.Equal(t, "persona", first["content"])

	second := msgs[1].(map[string]any)
	assert.Equal(t, "system", second["role"])
	assert.Contains(t, second["content"], "CONTEXT:")

	third := msgs[2].(map[string]any)
	assert.Equal(t, "user", third["role"])
	assert.Equal(t, "What languages?", third["content"])
}

func TestComplete_NoChoices(t *testing.T) {
	f := newFakeProvider(t)
	f.noChoices = true
	c := newTestClient(t, f)

	answer, err := c.Complete(context.Background(), []retrieval.Message{
		{Role: retrieval.RoleUser, Content: "query"},
	})
	require.NoError(t, err, "a choiceless response is not an error")
	assert.Equal(t, "No answer", answer)
}

func TestComplete_NotConfigured(t *testing.T) {
	f := newFakeProvider(t)
	c := New(Config{BaseURL: f.srv.URL, ChatModel: "gpt-4o-mini"}, log.NewNop())

	_, err := c.Complete(context.Background(), []retrieval.Message{
		{Role: retrieval.RoleUser, Content: "query"},
	})
	require.ErrorIs(t, err, retrieval.ErrNotConfigured)
	assert.Zero(t, f.requestCount())
}

func TestComplete_ProviderError(t *testing.T) {
	f := newFakeProvider(t)
	f.chatStatus = http.StatusBadGateway
	c := newTestClient(t, f)

	_, err := c.Complete(context.Background(), []retrieval.Message{
		{Role: retrieval.RoleUser, Content: "query"},
	})
	require.Error(t, err)
	assert.Len(t, f.chatRequests, 1)
}

func TestRequestTimeout(t *testing.T) {
	f := newFakeProvider(t)
	f.delay = 300 * time.Millisecond
	c := New(Config{
		APIKey:         "test-key",
		BaseURL:        f.srv.URL,
		EmbeddingModel: "text-embedding-3-small",
		ChatModel:      "gpt-4o-mini",
		RequestTimeout: 30 * time.Millisecond,
	}, log.NewNop())

	start := time.Now()
	_, err := c.EmbedQuery(context.Background(), "query")
	require.Error(t, err, "a hung provider must not hang the invocation")
	assert.Less(t, time.Since(start), 250*time.Millisecond)
}

func TestClientSatisfiesPipelineInterfaces(t *testing.T) {
	var _ retrieval.Embedder = (*Client)(nil)
	var _ retrieval.Generator = (*Client)(nil)
}
