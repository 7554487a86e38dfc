// Package memory provides in-memory driven-port implementations,
// primarily for tests.
package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driven"
)

// Ensure CacheStore implements the interface.
var _ driven.CacheStore = (*CacheStore)(nil)

// CacheStore is an in-memory implementation of driven.CacheStore.
type CacheStore struct {
	mu      sync.RWMutex
	entries []domain.CacheEntry
	meta    driven.CacheMeta

	// PersistCalls counts Persist invocations, for tests.
	PersistCalls int
}

// NewCacheStore creates a new in-memory cache store.
func NewCacheStore() *CacheStore {
	return &CacheStore{}
}

// Load returns the stored entries and metadata.
func (s *CacheStore) Load(_ context.Context) ([]domain.CacheEntry, driven.CacheMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]domain.CacheEntry, len(s.entries))
	copy(entries, s.entries)
	return entries, s.meta, nil
}

// Persist replaces the full stored set.
func (s *CacheStore) Persist(_ context.Context, entries []domain.CacheEntry, meta driven.CacheMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make([]domain.CacheEntry, len(entries))
	copy(s.entries, entries)
	s.meta = meta
	s.PersistCalls++
	return nil
}

// Close releases resources.
func (s *CacheStore) Close() error {
	return nil
}
