package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/foliorag/foliorag/db"
	"github.com/foliorag/foliorag/internal/config"
	"github.com/foliorag/foliorag/internal/corpus"
	"github.com/foliorag/foliorag/internal/llm"
	"github.com/foliorag/foliorag/internal/log"
	"github.com/foliorag/foliorag/internal/observability"
	"github.com/foliorag/foliorag/internal/retrieval"
)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup; call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	if logger == nil {
		logger = log.NewNop()
	}
	a := &App{Config: cfg, Logger: logger}

	// On error, clean up everything already initialized
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	a.tracingShutdown = provideTracing(ctx, cfg, logger)

	pool, err := providePool(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Pool = pool

	store, err := corpus.New(pool, logger, corpus.WithScanLimit(cfg.ScanLimit))
	if err != nil {
		return nil, fmt.Errorf("creating chunk store: %w", err)
	}
	a.Store = store

	// One client serves both pipeline roles, embedding and completion
	a.LLM = llm.New(llm.Config{
		APIKey:         cfg.OpenAIAPIKey,
		BaseURL:        cfg.OpenAIBaseURL,
		EmbeddingModel: cfg.EmbeddingModel,
		ChatModel:      cfg.ChatModel,
		RequestTimeout: cfg.RequestTimeout,
	}, logger)

	pipeline, err := retrieval.New(store, a.LLM, a.LLM, logger, retrieval.Config{
		TopK:    cfg.TopK,
		MaxTopK: cfg.MaxTopK,
	})
	if err != nil {
		return nil, fmt.Errorf("creating retrieval pipeline: %w", err)
	}
	a.Pipeline = pipeline

	// The corpus is read-only at runtime; report its size once at startup
	count, err := store.Count(ctx)
	if err != nil {
		logger.Warn("counting corpus chunks", "error", err)
	} else {
		logger.Info("corpus ready", "chunks", count)
	}

	return a, nil
}

// provideTracing sets up OTLP trace export. Tracing is best-effort: on
// failure the returned shutdown is a no-op and the service runs without it.
func provideTracing(ctx context.Context, cfg *config.Config, logger log.Logger) func(context.Context) error {
	shutdown, err := observability.Setup(ctx, observability.Config{
		Endpoint:    cfg.Tracing.Endpoint,
		Environment: cfg.Tracing.Environment,
		ServiceName: cfg.Tracing.ServiceName,
	}, logger)
	if err != nil {
		logger.Warn("setting up tracing", "error", err)
		return func(context.Context) error { return nil }
	}
	return shutdown
}

// providePool creates a PostgreSQL connection pool and runs migrations.
// Pool is configured with sensible defaults for connection management.
func providePool(ctx context.Context, cfg *config.Config, logger log.Logger) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL(), logger); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Verify connectivity with timeout to fail fast if database is unreachable
	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}
