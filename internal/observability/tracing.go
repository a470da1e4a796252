// Package observability provides OpenTelemetry integration for distributed tracing.
//
// # Architecture Decision: Collector-Local OTLP
//
// Spans are exported over OTLP/HTTP to a collector running next to the
// service (an OpenTelemetry Collector or any agent with an OTLP receiver
// on localhost:4318). This decision was made because:
//
//   - The collector owns vendor authentication - no backend API key in app
//   - Local buffering and retry survive backend hiccups
//   - Lower latency (localhost vs internet roundtrip)
//   - Swapping the backend is a collector config change, not a redeploy
//
// # Graceful Degradation
//
// Tracing is best-effort. If the exporter cannot be constructed the setup
// logs a warning and returns a no-op shutdown; a missing collector never
// blocks startup or request handling. Spans that fail to export are dropped
// by the batch processor.
//
// # Verify the Collector
//
//	curl -v http://localhost:4318/v1/traces
//
// A 405 or 415 response means the receiver is listening.
//
// # Configuration
//
// Environment variables (optional):
//   - OTEL_EXPORTER_OTLP_ENDPOINT: collector endpoint (default: localhost:4318)
//   - FOLIORAG_ENVIRONMENT: deployment environment tag (default: dev)
//   - FOLIORAG_SERVICE_NAME: service name on exported spans (default: foliorag)
//
// Config file (~/.foliorag/config.yaml):
//
//	tracing:
//	  endpoint: "localhost:4318"
//	  environment: "dev"
//	  service_name: "foliorag"
package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/foliorag/foliorag/internal/log"
)

// Config for the OTLP trace exporter.
type Config struct {
	// Endpoint is the OTLP/HTTP collector endpoint (default: localhost:4318)
	Endpoint string
	// Environment is the deployment environment tag (dev, staging, prod)
	Environment string
	// ServiceName is the service name attached to exported spans
	ServiceName string
}

// DefaultEndpoint is the default OTLP/HTTP collector endpoint.
const DefaultEndpoint = "localhost:4318"

// flushTimeout bounds the final span flush during shutdown.
const flushTimeout = 5 * time.Second

// Setup installs a global tracer provider exporting spans over OTLP/HTTP.
// Spans are batched and sent to the local collector, which forwards them
// to the configured backend.
//
// Returns a shutdown function that flushes pending spans. If the exporter
// cannot be constructed the service runs without tracing: the failure is
// logged and the returned shutdown is a no-op.
func Setup(ctx context.Context, cfg Config, logger log.Logger) (shutdown func(context.Context) error, err error) {
	if logger == nil {
		logger = log.NewNop()
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "foliorag"
	}

	// The collector handles authentication and forwarding to the backend
	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(), // localhost doesn't need TLS
	)
	if err != nil {
		logger.Warn("failed to create trace exporter, tracing disabled", "error", err)
		return func(context.Context) error { return nil }, nil
	}

	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		attribute.String("service.name", serviceName),
		attribute.String("deployment.environment", cfg.Environment),
	))
	if err != nil {
		logger.Warn("failed to build trace resource, tracing disabled", "error", err)
		return func(context.Context) error { return nil }, nil
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	logger.Debug("tracing enabled",
		"endpoint", endpoint,
		"service", serviceName,
		"environment", cfg.Environment,
	)

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, flushTimeout)
		defer cancel()
		return tp.Shutdown(ctx)
	}, nil
}
