package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foliorag/foliorag/internal/log"
	"github.com/foliorag/foliorag/internal/retrieval"
)

func newTestServer(t *testing.T, pipeline Answerer) *Server {
	t.Helper()
	srv, err := NewServer(ServerConfig{
		Logger:      log.NewNop(),
		Pipeline:    pipeline,
		CORSOrigins: []string{"*"},
	})
	require.NoError(t, err)
	return srv
}

func TestNewServer(t *testing.T) {
	srv := newTestServer(t, &stubAnswerer{})
	assert.NotNil(t, srv.Handler())
}

func TestNewServer_MissingPipeline(t *testing.T) {
	_, err := NewServer(ServerConfig{Logger: log.NewNop()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline is required")
}

func TestServer_HealthEndpoints(t *testing.T) {
	handler := newTestServer(t, &stubAnswerer{}).Handler()

	t.Run("GET / returns 200", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	})

	t.Run("GET /api/health returns 200", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	})

	t.Run("GET /api/ready returns 503 when pool is nil", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/ready", nil)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.JSONEq(t, `{"status":"unavailable"}`, w.Body.String())
	})

	t.Run("probes skip the middleware chain", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Empty(t, w.Header().Get("X-Request-ID"))
	})
}

func TestServer_Routing(t *testing.T) {
	handler := newTestServer(t, &stubAnswerer{}).Handler()

	t.Run("unknown path returns 404", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("GET on the query route returns 405", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/query", nil)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})

	t.Run("query responses carry a request id", func(t *testing.T) {
		w := postQuery(t, handler, `{"q": "hello"}`)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	})

	t.Run("preflight is answered before routing", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/query", nil)
		req.Header.Set("Origin", "https://portfolio.example")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}

func TestServer_MiddlewareChain(t *testing.T) {
	answerer := &stubAnswerer{
		fn: func(context.Context, string, int) (*retrieval.Result, error) {
			panic("pipeline exploded")
		},
	}
	srv := newTestServer(t, answerer)

	t.Run("panic in handler is recovered", func(t *testing.T) {
		// Should not panic
		w := postQuery(t, srv.Handler(), `{"q": "hello"}`)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.JSONEq(t, `{"error":"internal error"}`, w.Body.String())
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	})
}

func TestServer_Run_GracefulShutdown(t *testing.T) {
	srv := newTestServer(t, &stubAnswerer{})

	// Create a context that will be cancelled
	ctx, cancel := context.WithCancel(context.Background())

	// Find an available port
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	_ = listener.Close()

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run(ctx, addr)
	}()

	// Poll for server readiness instead of fixed sleep
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 50*time.Millisecond)
		if err == nil {
			_ = conn.Close()
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	// Cancel context to trigger shutdown
	cancel()

	// Wait for server to stop
	select {
	case err := <-errCh:
		// Should return nil on graceful shutdown
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down in time")
	}
}

func TestServer_DefaultAddr(t *testing.T) {
	assert.Equal(t, "127.0.0.1:8080", DefaultAddr)
}

func TestWriteJSON_Integration(t *testing.T) {
	w := httptest.NewRecorder()

	data := map[string]any{
		"sources": []string{"a", "b"},
		"total":   2,
	}
	writeJSON(w, http.StatusOK, data)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var result map[string]any
	err := json.Unmarshal(w.Body.Bytes(), &result)
	require.NoError(t, err)
	assert.Equal(t, float64(2), result["total"]) // JSON numbers are float64
}
