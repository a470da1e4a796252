package testutil

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"math"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// Vector generates a normalized embedding from content using SHA-256.
// The same content always produces the same vector, and at realistic
// dimensions vectors for distinct contents are close to orthogonal, which
// keeps similarity assertions stable across runs.
func Vector(content string, dim int) []float32 {
	hash := sha256.Sum256([]byte(content))
	vec := make([]float32, dim)

	for i := range vec {
		// Cycle through hash bytes
		idx := (i * 4) % len(hash)
		bits := binary.LittleEndian.Uint32([]byte{
			hash[idx%32],
			hash[(idx+1)%32],
			hash[(idx+2)%32],
			hash[(idx+3)%32],
		})
		// Map to [-1, 1] range
		vec[i] = (float32(bits)/float32(math.MaxUint32))*2 - 1
	}

	return normalize(vec)
}

// Blend returns a unit vector pulled toward a with weight w and toward b
// with weight 1-w. With a fixed query vector a, chunks built from
// descending weights have strictly descending cosine similarity to a,
// which lets ranking tests construct a corpus with a known result order.
func Blend(a, b []float32, w float64) []float32 {
	out := make([]float32, len(a))
	for i := range a {
		out[i] = float32(w*float64(a[i]) + (1-w)*float64(b[i]))
	}
	return normalize(out)
}

func normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec
}

// SeedChunk inserts one corpus row. A nil meta stores an empty JSON object,
// matching the column default.
func SeedChunk(t *testing.T, pool *pgxpool.Pool, id, text string, meta json.RawMessage, embedding []float32) {
	t.Helper()

	if meta == nil {
		meta = json.RawMessage(`{}`)
	}
	_, err := pool.Exec(context.Background(),
		`INSERT INTO chunks (id, text, meta, embedding) VALUES ($1, $2, $3, $4)`,
		id, text, string(meta), pgvector.NewVector(embedding))
	if err != nil {
		t.Fatalf("seeding chunk %s: %v", id, err)
	}
}
