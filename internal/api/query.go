package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/foliorag/foliorag/internal/log"
	"github.com/foliorag/foliorag/internal/retrieval"
)

// maxQueryBody caps the request body. A query is a short question; anything
// approaching this limit is not a legitimate request.
const maxQueryBody = 1 << 20

// Answerer runs a retrieval query. *retrieval.Pipeline satisfies it; tests
// substitute stubs.
type Answerer interface {
	Answer(ctx context.Context, query string, topK int) (*retrieval.Result, error)
}

// QueryHandler serves the retrieval endpoint.
type QueryHandler struct {
	pipeline Answerer
	logger   log.Logger
}

// NewQueryHandler creates a new query handler.
func NewQueryHandler(pipeline Answerer, logger log.Logger) *QueryHandler {
	if logger == nil {
		logger = log.NewNop()
	}
	return &QueryHandler{pipeline: pipeline, logger: logger}
}

// RegisterRoutes registers the query route on the given mux.
func (h *QueryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/query", h.query)
}

// queryRequest is the body of POST /api/query. K is typed loosely: clients
// send numbers, numeric strings, or nothing at all, and all three should
// behave the same.
type queryRequest struct {
	Q string `json:"q"`
	K any    `json:"k"`
}

func (h *QueryHandler) query(w http.ResponseWriter, r *http.Request) {
	if h.pipeline == nil {
		h.logger.Error("query pipeline not configured",
			"request_id", requestIDFrom(r.Context()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxQueryBody)
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}

	result, err := h.pipeline.Answer(r.Context(), req.Q, coerceTopK(req.K))
	if err != nil {
		h.writeQueryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// writeQueryError maps pipeline failures onto the HTTP error contract. The
// full error chain goes to the log; response bodies stay generic so provider
// internals never leak to callers.
func (h *QueryHandler) writeQueryError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, retrieval.ErrInvalidInput) {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}

	h.logger.Error("query failed",
		"error", err,
		"request_id", requestIDFrom(r.Context()))

	switch {
	case errors.Is(err, retrieval.ErrNotConfigured):
		writeError(w, http.StatusInternalServerError, "service is not configured")
	case errors.Is(err, retrieval.ErrEmbedding):
		writeError(w, http.StatusInternalServerError, "embedding provider error")
	case errors.Is(err, retrieval.ErrGeneration):
		writeError(w, http.StatusInternalServerError, "chat provider error")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// coerceTopK accepts the lax k encodings seen in the wild. Numbers and
// numeric strings are used as-is; anything else means "not provided" and
// comes back 0, which Answer replaces with the configured default.
func coerceTopK(v any) int {
	switch k := v.(type) {
	case float64:
		return int(k)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}
