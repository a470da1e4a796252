// Package app provides application initialization and dependency wiring.
//
// App is the container holding every long-lived component: the database
// pool, the chunk store, the provider client, and the retrieval pipeline.
// Setup builds them in dependency order and returns an App with embedded
// cleanup; Close releases resources in reverse order.
package app

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/foliorag/foliorag/internal/config"
	"github.com/foliorag/foliorag/internal/corpus"
	"github.com/foliorag/foliorag/internal/llm"
	"github.com/foliorag/foliorag/internal/log"
	"github.com/foliorag/foliorag/internal/retrieval"
)

// App is the core application container.
type App struct {
	Config *config.Config
	Logger log.Logger

	Pool     *pgxpool.Pool
	Store    *corpus.Store
	LLM      *llm.Client
	Pipeline *retrieval.Pipeline

	tracingShutdown func(context.Context) error
}

// Close gracefully shuts down all resources. Safe to call on a partially
// initialized App; nil components are skipped.
func (a *App) Close() error {
	logger := a.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	logger.Info("shutting down application")

	if a.Pool != nil {
		a.Pool.Close()
		logger.Info("database pool closed")
	}

	if a.tracingShutdown != nil {
		// The shutdown closure bounds its own flush timeout.
		if err := a.tracingShutdown(context.Background()); err != nil {
			logger.Warn("shutting down tracer provider", "error", err)
		}
	}

	return nil
}
