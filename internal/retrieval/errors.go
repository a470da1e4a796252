package retrieval

import "errors"

// Sentinel errors classifying pipeline failures. Wrapped errors keep these
// in their chain, so callers match with errors.Is.
var (
	// ErrInvalidInput reports a query that is empty after trimming.
	ErrInvalidInput = errors.New("query is empty")

	// ErrNotConfigured reports a provider call attempted without credentials.
	ErrNotConfigured = errors.New("provider is not configured")

	// ErrEmbedding reports a failed or unusable embedding provider response.
	ErrEmbedding = errors.New("embedding provider error")

	// ErrGeneration reports a failed or unusable chat provider response.
	ErrGeneration = errors.New("chat provider error")
)
