package retrieval

import (
	"context"
	"encoding/json"

	"github.com/foliorag/foliorag/internal/corpus"
)

// Chat message roles understood by Generator implementations.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is one turn of the chat sequence handed to the Generator.
type Message struct {
	Role    string
	Content string
}

// Source is one ranked retrieval hit, returned to clients alongside the
// answer. Meta is always a valid JSON value; chunks without metadata carry
// an empty object.
type Source struct {
	ID    string          `json:"id"`
	Text  string          `json:"text"`
	Meta  json.RawMessage `json:"meta"`
	Score float64         `json:"score"`
}

// Result is the outcome of one pipeline invocation: the generated answer
// and the sources it was grounded in, in rank order.
type Result struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// Store provides read access to the chunk corpus.
//
// Interfaces are defined here, by the consumer, following the accept
// interfaces / return structs convention. *corpus.Store satisfies Store.
type Store interface {
	// SearchByVector returns the topK chunks nearest to embedding, most
	// similar first, scored by the store's native relevance metric.
	SearchByVector(ctx context.Context, embedding []float32, topK int) ([]corpus.ScoredChunk, error)

	// ListChunks returns the full candidate set for the brute-force
	// fallback, embeddings included.
	ListChunks(ctx context.Context) ([]corpus.Chunk, error)
}

// Embedder turns query text into a vector. *llm.Client satisfies Embedder.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Generator produces a completion for a chat message sequence.
// *llm.Client satisfies Generator.
type Generator interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}
