package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/foliorag/foliorag/internal/corpus"
	"github.com/foliorag/foliorag/internal/log"
)

const (
	// defaultTopK is the result count when the caller supplies none.
	defaultTopK = 4

	// defaultMaxTopK caps caller-supplied k values.
	defaultMaxTopK = 20
)

// Config holds the pipeline's ranking policy.
type Config struct {
	// TopK is used when a request does not carry a usable k. Zero means
	// the package default (4).
	TopK int

	// MaxTopK caps oversized k values from requests. Zero means the
	// package default (20). Never sits below TopK.
	MaxTopK int
}

// Pipeline answers queries against the chunk corpus. Safe for concurrent
// use; invocations share no mutable state.
type Pipeline struct {
	store     Store
	embedder  Embedder
	generator Generator
	logger    log.Logger
	cfg       Config
	tracer    trace.Tracer
}

// New creates a Pipeline. store, embedder and generator are required; a
// nil logger falls back to a no-op logger.
func New(store Store, embedder Embedder, generator Generator, logger log.Logger, cfg Config) (*Pipeline, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if generator == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}

	if cfg.TopK < 1 {
		cfg.TopK = defaultTopK
	}
	if cfg.MaxTopK < 1 {
		cfg.MaxTopK = defaultMaxTopK
	}
	if cfg.MaxTopK < cfg.TopK {
		cfg.MaxTopK = cfg.TopK
	}

	return &Pipeline{
		store:     store,
		embedder:  embedder,
		generator: generator,
		logger:    logger,
		cfg:       cfg,
		tracer:    otel.Tracer("foliorag/retrieval"),
	}, nil
}

// Answer runs the full pipeline for one query: validate, embed, search,
// assemble context, generate. k <= 0 selects the configured default; values
// above the configured maximum are clamped.
//
// The returned error carries ErrInvalidInput, ErrNotConfigured,
// ErrEmbedding or ErrGeneration when the failure is classifiable; a
// fallback-scan failure is returned unclassified.
func (p *Pipeline) Answer(ctx context.Context, query string, k int) (*Result, error) {
	ctx, span := p.tracer.Start(ctx, "retrieval.answer")
	defer span.End()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: nothing to answer after trimming", ErrInvalidInput)
	}

	k = p.clampTopK(k)
	span.SetAttributes(attribute.Int("retrieval.top_k", k))

	embedding, err := p.embed(ctx, query)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	sources, fromFallback, err := p.search(ctx, embedding, k)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	answer, err := p.generate(ctx, sources, query)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	p.logger.Debug("query answered",
		"top_k", k,
		"sources", len(sources),
		"fallback", fromFallback)

	return &Result{Answer: answer, Sources: sources}, nil
}

// clampTopK applies the k policy: non-positive selects the default, values
// above the maximum are clamped.
func (p *Pipeline) clampTopK(k int) int {
	switch {
	case k < 1:
		return p.cfg.TopK
	case k > p.cfg.MaxTopK:
		return p.cfg.MaxTopK
	default:
		return k
	}
}

func (p *Pipeline) embed(ctx context.Context, query string) ([]float32, error) {
	ctx, span := p.tracer.Start(ctx, "retrieval.embed")
	defer span.End()

	vec, err := p.embedder.EmbedQuery(ctx, query)
	if err != nil {
		if errors.Is(err, ErrNotConfigured) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrEmbedding, err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: provider returned no vector", ErrEmbedding)
	}
	return vec, nil
}

// search resolves the k best sources for embedding. The primary index path
// is tried first; any primary error switches to the brute-force scan and is
// never returned to the caller. The second return value reports whether the
// fallback served the request.
func (p *Pipeline) search(ctx context.Context, embedding []float32, k int) ([]Source, bool, error) {
	ctx, span := p.tracer.Start(ctx, "retrieval.search")
	defer span.End()

	chunks, err := p.store.SearchByVector(ctx, embedding, k)
	if err == nil {
		if len(chunks) > k {
			chunks = chunks[:k]
		}
		span.SetAttributes(
			attribute.String("retrieval.search_path", "index"),
			attribute.Int("retrieval.results", len(chunks)))
		return scoredSources(chunks), false, nil
	}

	p.logger.Warn("index search failed, falling back to corpus scan", "error", err)

	sources, err := p.scanCorpus(ctx, embedding, k)
	if err != nil {
		span.RecordError(err)
		return nil, true, fmt.Errorf("scanning corpus: %w", err)
	}
	span.SetAttributes(
		attribute.String("retrieval.search_path", "scan"),
		attribute.Int("retrieval.results", len(sources)))
	return sources, true, nil
}

// scanCorpus loads every chunk and ranks it by cosine similarity to the
// query vector in-process. The resulting order is strictly non-increasing
// by score, ties keeping store order.
func (p *Pipeline) scanCorpus(ctx context.Context, embedding []float32, k int) ([]Source, error) {
	chunks, err := p.store.ListChunks(ctx)
	if err != nil {
		return nil, err
	}

	sources := make([]Source, 0, len(chunks))
	for _, c := range chunks {
		sources = append(sources, Source{
			ID:    c.ID,
			Text:  c.Text,
			Meta:  normalizeMeta(c.Meta),
			Score: Cosine(embedding, c.Embedding),
		})
	}
	sort.SliceStable(sources, func(i, j int) bool {
		return sources[i].Score > sources[j].Score
	})
	if len(sources) > k {
		sources = sources[:k]
	}
	return sources, nil
}

func (p *Pipeline) generate(ctx context.Context, sources []Source, query string) (string, error) {
	ctx, span := p.tracer.Start(ctx, "retrieval.generate")
	defer span.End()

	messages := buildMessages(BuildContext(sources), query)
	answer, err := p.generator.Complete(ctx, messages)
	if err != nil {
		if errors.Is(err, ErrNotConfigured) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	return answer, nil
}

// scoredSources converts index search hits to client-facing sources.
func scoredSources(chunks []corpus.ScoredChunk) []Source {
	sources := make([]Source, 0, len(chunks))
	for _, c := range chunks {
		sources = append(sources, Source{
			ID:    c.ID,
			Text:  c.Text,
			Meta:  normalizeMeta(c.Meta),
			Score: c.Score,
		})
	}
	return sources
}

// normalizeMeta guarantees sources carry a valid JSON value; chunks stored
// without metadata get an empty object.
func normalizeMeta(meta json.RawMessage) json.RawMessage {
	if len(meta) == 0 {
		return json.RawMessage(`{}`)
	}
	return meta
}
