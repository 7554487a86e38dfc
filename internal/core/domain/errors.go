package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotReady indicates no snapshot has been built yet.
	// Queries issued before the first successful reconciliation fail
	// with this error rather than observe a partial index.
	ErrNotReady = errors.New("index not ready")

	// ErrDimensionMismatch indicates a vector's dimensionality does not
	// match the active embedder. A global mismatch invalidates the
	// entire cache.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured or unreachable.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrCacheCorrupt indicates the persisted cache is unreadable or
	// structurally invalid. Recovery is a full rebuild, never partial
	// trust of malformed data.
	ErrCacheCorrupt = errors.New("cache corrupt")
)
