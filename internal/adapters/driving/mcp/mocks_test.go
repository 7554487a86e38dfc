package mcp

import (
	"context"

	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driving"
)

// mockQueryService is a mock implementation of driving.QueryService.
type mockQueryService struct {
	documents []domain.Document
	outline   []domain.HeadingPath
	chunks    []domain.Chunk
	results   []domain.SearchResult
	err       error

	// lastOpts records the options passed to SearchDocumentation.
	lastOpts domain.SearchOptions
}

func (m *mockQueryService) ListDocuments(_ context.Context) ([]domain.Document, error) {
	return m.documents, m.err
}

func (m *mockQueryService) GetDocumentHeadings(_ context.Context, _ string) ([]domain.HeadingPath, error) {
	return m.outline, m.err
}

func (m *mockQueryService) GetDocumentChunks(_ context.Context, _ string) ([]domain.Chunk, error) {
	return m.chunks, m.err
}

func (m *mockQueryService) SearchDocumentation(
	_ context.Context,
	_ string,
	opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	m.lastOpts = opts
	return m.results, m.err
}

// mockReconcileService is a mock implementation of driving.ReconcileService.
type mockReconcileService struct {
	stats *driving.ReconcileStats
	err   error
}

func (m *mockReconcileService) Reconcile(_ context.Context) (*driving.ReconcileStats, error) {
	return m.stats, m.err
}
