// Package api provides the JSON HTTP API for the retrieval service.
//
// # Architecture
//
// The server uses Go 1.22+ routing with a layered middleware stack:
//
//	Recovery → RequestID → Logging → CORS → Routes
//
// RequestID runs before Logging so request_id is available in log
// attributes. Health probes bypass the middleware stack via a top-level
// mux, ensuring they remain fast and quiet in the logs.
//
// # Endpoints
//
// Health probes (no middleware):
//   - GET /            liveness, returns {"status":"ok"}
//   - GET /api/health  liveness, returns {"status":"ok"}
//   - GET /api/ready   readiness, pings Postgres; returns 503
//     {"status":"unavailable"} while the database is unreachable
//
// Retrieval:
//   - POST /api/query  accepts {"q": string, "k"?: number|string} and
//     returns {"answer": string, "sources": [{"id","text","meta","score"}...]}
//
// # Error Handling
//
// All error responses use a flat envelope:
//
//	{"error": "<stable message>"}
//
// Pipeline failures map onto it via errors.Is: invalid input becomes
// 400 "q is required"; missing credentials, embedding failures and
// generation failures become 500 with a stable per-stage message;
// everything else becomes 500 "internal error". Underlying error detail
// is logged with the request id, never returned to the caller.
package api
