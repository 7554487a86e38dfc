package services

import (
	"sync"
	"sync/atomic"

	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driven"
	"github.com/custodia-labs/docquery/internal/core/ports/driving"
)

// Ensure Engine implements the driving ports.
var (
	_ driving.QueryService     = (*Engine)(nil)
	_ driving.ReconcileService = (*Engine)(nil)
)

// Engine owns the corpus index. It reconciles the persisted cache
// against the storage directory and answers queries from an immutable
// snapshot.
//
// The snapshot is published with an atomic pointer swap: any number of
// concurrent queries may read the current snapshot without locking, and
// a reconciliation triggered later builds an entirely new snapshot
// while in-flight queries keep the old one to completion.
type Engine struct {
	storageDir string
	store      driven.CacheStore
	embedder   driven.EmbeddingService

	// reconcileMu serialises reconciliation passes. Queries never
	// take it.
	reconcileMu sync.Mutex

	snapshot atomic.Pointer[domain.Snapshot]
}

// NewEngine creates an engine over the given storage directory.
func NewEngine(storageDir string, store driven.CacheStore, embedder driven.EmbeddingService) *Engine {
	return &Engine{
		storageDir: storageDir,
		store:      store,
		embedder:   embedder,
	}
}

// Ready reports whether a snapshot has been published.
func (e *Engine) Ready() bool {
	return e.snapshot.Load() != nil
}

// current returns the published snapshot, or ErrNotReady before the
// first successful reconciliation.
func (e *Engine) current() (*domain.Snapshot, error) {
	s := e.snapshot.Load()
	if s == nil {
		return nil, domain.ErrNotReady
	}
	return s, nil
}
