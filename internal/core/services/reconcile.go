package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driven"
	"github.com/custodia-labs/docquery/internal/core/ports/driving"
	"github.com/custodia-labs/docquery/internal/logger"
	"github.com/custodia-labs/docquery/internal/markdown"
)

// Reconcile brings the cache in line with the storage directory and
// publishes a fresh snapshot.
//
// An entry is reused iff its file still exists, the on-disk mtime
// equals the recorded one, and every vector matches the embedder's
// dimensionality. Everything else is re-chunked and re-embedded with a
// single EmbedBatch call for the whole pass. Entries for deleted files
// are dropped. The merged set is persisted before the snapshot swap,
// so a crash between the two leaves a coherent cache for the next run.
func (e *Engine) Reconcile(ctx context.Context) (*driving.ReconcileStats, error) {
	e.reconcileMu.Lock()
	defer e.reconcileMu.Unlock()

	stats := &driving.ReconcileStats{PassID: uuid.New().String()}

	logger.Section("Reconciliation")
	logger.Debug("Pass %s: storage dir %s", stats.PassID, e.storageDir)

	files, err := e.scanStorage()
	if err != nil {
		return nil, fmt.Errorf("scan storage: %w", err)
	}
	logger.Debug("Found %d markdown files", len(files))

	cached, meta, err := e.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load cache: %w", err)
	}

	dims := e.embedder.Dimensions()
	model := e.embedder.ModelName()

	// A cache written under a different model or dimensionality is
	// invalid as a whole, never partially trusted.
	if len(cached) > 0 && (meta.Dimensions != dims || meta.Model != model) {
		logger.Warn("Cache written for model %s (%d dims), active is %s (%d dims); rebuilding",
			meta.Model, meta.Dimensions, model, dims)
		cached = nil
	}

	valid := make(map[string]domain.CacheEntry, len(cached))
	for _, entry := range cached {
		mtime, exists := files[entry.Document.Path]
		switch {
		case !exists:
			stats.Removed++
			logger.Debug("Dropping cache entry for deleted file %s", entry.Document.Path)
		case mtime.UnixNano() != entry.Document.ModTime.UnixNano():
			logger.Debug("Stale cache entry for %s (mtime changed)", entry.Document.Path)
		case !entryDimensionsOK(entry, dims):
			logger.Warn("Cache entry for %s has wrong vector size; re-embedding", entry.Document.Path)
		default:
			valid[entry.Document.Path] = entry
		}
	}
	stats.Reused = len(valid)

	fresh, err := e.rechunkPending(ctx, files, valid)
	if err != nil {
		return nil, err
	}
	stats.Rechunked = len(fresh)

	merged := make([]domain.CacheEntry, 0, len(valid)+len(fresh))
	for _, entry := range valid {
		merged = append(merged, entry)
	}
	merged = append(merged, fresh...)
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Document.Path < merged[j].Document.Path
	})

	if err := e.store.Persist(ctx, merged, driven.CacheMeta{Model: model, Dimensions: dims}); err != nil {
		return nil, fmt.Errorf("persist cache: %w", err)
	}

	snapshot := domain.BuildSnapshot(merged, dims)
	e.snapshot.Store(snapshot)

	stats.Documents = len(snapshot.Documents())
	stats.Chunks = snapshot.Len()
	logger.Info("Pass %s: %d documents, %d chunks (%d reused, %d re-chunked, %d removed)",
		stats.PassID, stats.Documents, stats.Chunks, stats.Reused, stats.Rechunked, stats.Removed)

	return stats, nil
}

// scanStorage lists the Markdown files in the storage directory.
// The corpus is a flat directory; document identity is the normalised
// relative path.
func (e *Engine) scanStorage() (map[string]time.Time, error) {
	dirEntries, err := os.ReadDir(e.storageDir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", e.storageDir, err)
	}

	files := make(map[string]time.Time)
	for _, de := range dirEntries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".md") {
			continue
		}
		info, err := de.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", de.Name(), err)
		}
		files[filepath.ToSlash(de.Name())] = info.ModTime()
	}
	return files, nil
}

// rechunkPending chunks every file without a valid cache entry and
// embeds all of the resulting chunk texts in one batch.
func (e *Engine) rechunkPending(
	ctx context.Context, files map[string]time.Time, valid map[string]domain.CacheEntry,
) ([]domain.CacheEntry, error) {
	var pending []string
	for path := range files {
		if _, ok := valid[path]; !ok {
			pending = append(pending, path)
		}
	}
	sort.Strings(pending)

	if len(pending) == 0 {
		logger.Debug("Nothing to re-chunk, cache fully reused")
		return nil, nil
	}

	entries := make([]domain.CacheEntry, 0, len(pending))
	var texts []string

	for _, path := range pending {
		content, err := os.ReadFile(filepath.Join(e.storageDir, path))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}

		res := markdown.Chunk(path, string(content))
		entries = append(entries, domain.CacheEntry{
			Document: domain.Document{
				Path:       path,
				Title:      res.Title,
				ModTime:    files[path],
				Outline:    res.Outline,
				ChunkCount: len(res.Chunks),
			},
			Chunks: res.Chunks,
		})
		for _, c := range res.Chunks {
			texts = append(texts, c.Content)
		}
	}

	if len(texts) == 0 {
		return entries, nil
	}

	logger.Info("Embedding %d chunks from %d documents", len(texts), len(pending))
	vectors, err := e.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed batch: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts: %w",
			len(vectors), len(texts), domain.ErrEmbeddingUnavailable)
	}

	dims := e.embedder.Dimensions()
	i := 0
	for ei := range entries {
		for ci := range entries[ei].Chunks {
			if len(vectors[i]) != dims {
				return nil, fmt.Errorf("vector %d has %d dimensions, embedder reports %d: %w",
					i, len(vectors[i]), dims, domain.ErrDimensionMismatch)
			}
			entries[ei].Chunks[ci].Embedding = vectors[i]
			i++
		}
	}

	return entries, nil
}

// entryDimensionsOK reports whether every chunk vector in the entry has
// the expected size.
func entryDimensionsOK(entry domain.CacheEntry, dims int) bool {
	for _, c := range entry.Chunks {
		if len(c.Embedding) != dims {
			return false
		}
	}
	return true
}
