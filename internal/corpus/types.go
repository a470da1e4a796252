// Package corpus provides read access to the indexed document collection
// backed by PostgreSQL + pgvector.
//
// The collection is written by an offline indexing pipeline; this service
// only searches it. Two access paths exist: SearchByVector runs an
// index-assisted nearest-neighbor query, and ListChunks streams the raw
// collection for similarity scoring outside the database.
package corpus

import "encoding/json"

// VectorDimension is the embedding width of the chunks table.
// text-embedding-3-small produces 1536-dimensional vectors; see the
// vector(1536) column in db/migrations.
const VectorDimension = 1536

// Chunk is one indexed fragment of the collection, embedding included.
type Chunk struct {
	ID        string
	Text      string
	Meta      json.RawMessage
	Embedding []float32
}

// ScoredChunk is a chunk ranked by a vector search, embedding omitted.
// Score is cosine similarity (1 - cosine distance).
type ScoredChunk struct {
	ID    string
	Text  string
	Meta  json.RawMessage
	Score float64
}
