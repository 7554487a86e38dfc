package driven

import (
	"context"

	"github.com/custodia-labs/docquery/internal/core/domain"
)

// CacheMeta describes the embedder configuration a persisted cache was
// written under. A mismatch with the active embedder invalidates the
// entire cache.
type CacheMeta struct {
	// Model is the embedding model name.
	Model string

	// Dimensions is the vector size of every persisted embedding.
	Dimensions int
}

// CacheStore persists the chunk/vector cache between runs.
// Backed by SQLite; the format is pure structured data and loading it
// never executes file bytes.
//
// Single-writer: only the owner performing reconciliation calls Persist,
// and concurrent readers of the underlying file are not supported.
type CacheStore interface {
	// Load reads all persisted entries and the metadata they were
	// written under. An unreadable or structurally invalid cache is
	// discarded and reported as an empty set, never partially trusted
	// and never an error that stops startup.
	Load(ctx context.Context) ([]domain.CacheEntry, CacheMeta, error)

	// Persist atomically replaces the full persisted set with the
	// given entries. A crash mid-persist leaves the previous cache
	// intact.
	Persist(ctx context.Context, entries []domain.CacheEntry, meta CacheMeta) error

	// Close releases resources.
	Close() error
}
