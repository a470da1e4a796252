package corpus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// searchTimeout bounds index-assisted vector searches so a degraded index
// cannot block a request indefinitely. The fallback scan runs under the
// caller's context instead: its whole point is to finish the work.
const searchTimeout = 10 * time.Second

// searchChunksSQL ranks chunks by cosine distance to the query embedding.
// The score column converts distance back to similarity.
const searchChunksSQL = `SELECT id, text, meta, 1 - (embedding <=> $1) AS score
	 FROM chunks
	 ORDER BY embedding <=> $1
	 LIMIT $2`

// listChunksSQL streams the collection for out-of-database scoring.
// Ordered by id so a configured scan limit reads a deterministic subset.
const (
	listChunksSQL        = `SELECT id, text, meta, embedding FROM chunks ORDER BY id`
	listChunksLimitedSQL = listChunksSQL + ` LIMIT $1`
)

// Store reads the chunk collection.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	pool      *pgxpool.Pool
	logger    *slog.Logger
	scanLimit int
}

// New creates a corpus Store.
func New(pool *pgxpool.Pool, logger *slog.Logger, opts ...Option) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{pool: pool, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SearchByVector returns the topK chunks nearest to the query embedding,
// ordered by similarity descending.
func (s *Store) SearchByVector(ctx context.Context, embedding []float32, topK int) ([]ScoredChunk, error) {
	if len(embedding) == 0 {
		return nil, fmt.Errorf("query embedding is required")
	}
	if topK < 1 {
		return nil, fmt.Errorf("topK must be at least 1, got %d", topK)
	}

	queryCtx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	rows, err := s.pool.Query(queryCtx, searchChunksSQL, pgvector.NewVector(embedding), topK)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("vector search timeout: %w", err)
		}
		return nil, fmt.Errorf("searching chunks: %w", err)
	}
	defer rows.Close()

	chunks, err := scanScoredChunks(rows)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("vector search", "top_k", topK, "rows", len(chunks))
	return chunks, nil
}

// ListChunks reads the collection, embeddings included, up to the configured
// scan limit (0 = everything).
func (s *Store) ListChunks(ctx context.Context) ([]Chunk, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if s.scanLimit > 0 {
		rows, err = s.pool.Query(ctx, listChunksLimitedSQL, s.scanLimit)
	} else {
		rows, err = s.pool.Query(ctx, listChunksSQL)
	}
	if err != nil {
		return nil, fmt.Errorf("listing chunks: %w", err)
	}
	defer rows.Close()

	chunks, err := scanChunks(rows)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("collection scan", "rows", len(chunks), "scan_limit", s.scanLimit)
	return chunks, nil
}

// Count returns the number of chunks in the collection.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return count, nil
}

// scanScoredChunks reads ScoredChunk rows from a search query.
func scanScoredChunks(rows pgx.Rows) ([]ScoredChunk, error) {
	var chunks []ScoredChunk
	for rows.Next() {
		var (
			c    ScoredChunk
			meta []byte
		)
		if err := rows.Scan(&c.ID, &c.Text, &meta, &c.Score); err != nil {
			return nil, fmt.Errorf("scanning scored chunk: %w", err)
		}
		c.Meta = meta
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating scored chunks: %w", err)
	}
	return chunks, nil
}

// scanChunks reads Chunk rows, decoding the embedding column.
func scanChunks(rows pgx.Rows) ([]Chunk, error) {
	var chunks []Chunk
	for rows.Next() {
		var (
			c    Chunk
			meta []byte
			vec  pgvector.Vector
		)
		if err := rows.Scan(&c.ID, &c.Text, &meta, &vec); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		c.Meta = meta
		c.Embedding = vec.Slice()
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return chunks, nil
}
