package api

import (
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/foliorag/foliorag/internal/log"
)

// HealthHandler serves the liveness and readiness probes for Docker and
// Kubernetes style deployments.
type HealthHandler struct {
	pool   *pgxpool.Pool
	logger log.Logger
}

// NewHealthHandler creates a new health handler.
// pool is the database connection pool used for readiness checks.
func NewHealthHandler(pool *pgxpool.Pool, logger log.Logger) *HealthHandler {
	if logger == nil {
		logger = log.NewNop()
	}
	return &HealthHandler{pool: pool, logger: logger}
}

// RegisterRoutes registers the probe routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.liveness)
	mux.HandleFunc("GET /api/health", h.liveness)
	mux.HandleFunc("GET /api/ready", h.readiness)
}

type healthResponse struct {
	Status string `json:"status"`
}

// liveness reports that the process is alive and serving requests.
func (h *HealthHandler) liveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

// readiness additionally pings the database, so load balancers stop
// routing queries while Postgres is unreachable.
func (h *HealthHandler) readiness(w http.ResponseWriter, r *http.Request) {
	if h.pool == nil {
		h.logger.Error("readiness check failed", "error", "database pool not configured")
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
		return
	}
	if err := h.pool.Ping(r.Context()); err != nil {
		h.logger.Error("readiness check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}
