package driving

import (
	"context"

	"github.com/custodia-labs/docquery/internal/core/domain"
)

// QueryService answers read-only queries against the current corpus
// snapshot. All methods fail with domain.ErrNotReady until the first
// reconciliation has completed.
type QueryService interface {
	// ListDocuments returns document summaries in lexicographic
	// path order.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// GetDocumentHeadings returns a document's outline: the empty
	// root path followed by each heading's full path in document
	// order. Unknown identity is domain.ErrNotFound.
	GetDocumentHeadings(ctx context.Context, path string) ([]domain.HeadingPath, error)

	// GetDocumentChunks returns one document's chunks in ordinal
	// order. Unknown identity is domain.ErrNotFound.
	GetDocumentChunks(ctx context.Context, path string) ([]domain.Chunk, error)

	// SearchDocumentation embeds the query text and returns the
	// top-K chunks by cosine similarity, descending, with provenance.
	// opts.TopK <= 0 is domain.ErrInvalidInput.
	SearchDocumentation(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error)
}

// ReconcileService reconciles the persisted cache against the storage
// directory and swaps in a fresh snapshot.
type ReconcileService interface {
	// Reconcile re-chunks stale or new documents, re-embeds their
	// chunks, drops entries for deleted files, persists the merged
	// set, and atomically publishes the resulting snapshot.
	// In-flight queries keep the previous snapshot to completion.
	Reconcile(ctx context.Context) (*ReconcileStats, error)
}

// ReconcileStats summarises one reconciliation pass.
type ReconcileStats struct {
	// PassID identifies this pass in logs.
	PassID string

	// Documents is the total number of documents in the snapshot.
	Documents int

	// Chunks is the total number of indexed chunks.
	Chunks int

	// Reused is the number of documents served from the cache.
	Reused int

	// Rechunked is the number of documents re-chunked and re-embedded.
	Rechunked int

	// Removed is the number of cache entries dropped for deleted files.
	Removed int
}
