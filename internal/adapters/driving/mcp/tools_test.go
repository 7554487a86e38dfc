package mcp

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driving"
)

func TestServer_handleListDocuments(t *testing.T) {
	ctx := context.Background()

	t.Run("returns document summaries", func(t *testing.T) {
		mockQuery := &mockQueryService{
			documents: []domain.Document{
				{Path: "api.md", Title: "API Reference", ChunkCount: 12},
				{Path: "guide.md", Title: "User Guide", ChunkCount: 4},
			},
		}

		server, err := NewServer(&Ports{Query: mockQuery}, Options{})
		require.NoError(t, err)

		_, output, err := server.handleListDocuments(ctx, nil, ListDocumentsInput{})
		require.NoError(t, err)
		assert.Equal(t, 2, output.Count)
		assert.Equal(t, "api.md", output.Documents[0].Path)
		assert.Equal(t, "API Reference", output.Documents[0].Title)
		assert.Equal(t, 12, output.Documents[0].ChunkCount)
	})

	t.Run("returns error before first reconciliation", func(t *testing.T) {
		mockQuery := &mockQueryService{err: domain.ErrNotReady}

		server, err := NewServer(&Ports{Query: mockQuery}, Options{})
		require.NoError(t, err)

		_, _, err = server.handleListDocuments(ctx, nil, ListDocumentsInput{})
		assert.ErrorIs(t, err, domain.ErrNotReady)
	})
}

func TestServer_handleGetDocumentHeadings(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the outline with the root path first", func(t *testing.T) {
		mockQuery := &mockQueryService{
			outline: []domain.HeadingPath{
				{},
				{"Install"},
				{"Install", "Linux"},
			},
		}

		server, err := NewServer(&Ports{Query: mockQuery}, Options{})
		require.NoError(t, err)

		_, output, err := server.handleGetDocumentHeadings(ctx, nil, HeadingsInput{Path: "guide.md"})
		require.NoError(t, err)
		assert.Equal(t, "guide.md", output.Path)
		require.Len(t, output.Headings, 3)
		assert.NotNil(t, output.Headings[0])
		assert.Empty(t, output.Headings[0])
		assert.Equal(t, []string{"Install", "Linux"}, output.Headings[2])
	})

	t.Run("propagates not found", func(t *testing.T) {
		mockQuery := &mockQueryService{err: domain.ErrNotFound}

		server, err := NewServer(&Ports{Query: mockQuery}, Options{})
		require.NoError(t, err)

		_, _, err = server.handleGetDocumentHeadings(ctx, nil, HeadingsInput{Path: "missing.md"})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestServer_handleSearchDocumentation(t *testing.T) {
	ctx := context.Background()

	t.Run("returns search results with provenance", func(t *testing.T) {
		mockQuery := &mockQueryService{
			results: []domain.SearchResult{
				{
					DocumentPath: "api.md",
					Chunk: domain.Chunk{
						DocumentPath: "api.md",
						Ordinal:      3,
						Headings:     domain.HeadingPath{"Endpoints", "Users"},
						Content:      "GET /users returns all users.",
						SourceURL:    "https://example.com/docs/api#users",
					},
					Score: 0.91,
				},
			},
		}

		server, err := NewServer(&Ports{Query: mockQuery}, Options{})
		require.NoError(t, err)

		input := SearchInput{Query: "list users", TopK: 3}
		_, output, err := server.handleSearchDocumentation(ctx, nil, input)
		require.NoError(t, err)

		assert.Equal(t, 1, output.Count)
		assert.Equal(t, "api.md", output.Results[0].DocumentPath)
		assert.Equal(t, []string{"Endpoints", "Users"}, output.Results[0].Headings)
		assert.Equal(t, 0.91, output.Results[0].Score)
		assert.Equal(t, "GET /users returns all users.", output.Results[0].Content)
		assert.Equal(t, "https://example.com/docs/api#users", output.Results[0].SourceURL)
		assert.False(t, output.Results[0].Truncated)
		assert.Equal(t, 3, mockQuery.lastOpts.TopK)
	})

	t.Run("omitted top_k uses default", func(t *testing.T) {
		mockQuery := &mockQueryService{}

		server, err := NewServer(&Ports{Query: mockQuery}, Options{DefaultTopK: 7})
		require.NoError(t, err)

		_, _, err = server.handleSearchDocumentation(ctx, nil, SearchInput{Query: "x"})
		require.NoError(t, err)
		assert.Equal(t, 7, mockQuery.lastOpts.TopK)
	})

	t.Run("configured floor applies when caller omits one", func(t *testing.T) {
		mockQuery := &mockQueryService{}

		server, err := NewServer(&Ports{Query: mockQuery}, Options{DefaultFloor: 0.4})
		require.NoError(t, err)

		_, _, err = server.handleSearchDocumentation(ctx, nil, SearchInput{Query: "x"})
		require.NoError(t, err)
		require.NotNil(t, mockQuery.lastOpts.SimilarityFloor)
		assert.Equal(t, 0.4, *mockQuery.lastOpts.SimilarityFloor)

		// An explicit floor wins over the configured default.
		zero := 0.0
		_, _, err = server.handleSearchDocumentation(ctx, nil, SearchInput{Query: "x", SimilarityFloor: &zero})
		require.NoError(t, err)
		require.NotNil(t, mockQuery.lastOpts.SimilarityFloor)
		assert.Equal(t, 0.0, *mockQuery.lastOpts.SimilarityFloor)
	})

	t.Run("excessive top_k is capped", func(t *testing.T) {
		mockQuery := &mockQueryService{}

		server, err := NewServer(&Ports{Query: mockQuery}, Options{MaxTopK: 20})
		require.NoError(t, err)

		_, _, err = server.handleSearchDocumentation(ctx, nil, SearchInput{Query: "x", TopK: 500})
		require.NoError(t, err)
		assert.Equal(t, 20, mockQuery.lastOpts.TopK)
	})

	t.Run("long content is truncated", func(t *testing.T) {
		long := strings.Repeat("a", 600)
		mockQuery := &mockQueryService{
			results: []domain.SearchResult{
				{DocumentPath: "big.md", Chunk: domain.Chunk{Content: long}, Score: 0.5},
			},
		}

		server, err := NewServer(&Ports{Query: mockQuery}, Options{SnippetChars: 500})
		require.NoError(t, err)

		_, output, err := server.handleSearchDocumentation(ctx, nil, SearchInput{Query: "x"})
		require.NoError(t, err)
		assert.Equal(t, strings.Repeat("a", 500)+"…", output.Results[0].Content)
		assert.True(t, output.Results[0].Truncated)
	})

	t.Run("returns error on search failure", func(t *testing.T) {
		mockQuery := &mockQueryService{err: errors.New("embedder unreachable")}

		server, err := NewServer(&Ports{Query: mockQuery}, Options{})
		require.NoError(t, err)

		_, _, err = server.handleSearchDocumentation(ctx, nil, SearchInput{Query: "x"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "embedder unreachable")
	})
}

func TestServer_handleRefreshIndex(t *testing.T) {
	ctx := context.Background()

	mockRec := &mockReconcileService{
		stats: &driving.ReconcileStats{Documents: 3, Chunks: 9, Reused: 2, Rechunked: 1},
	}

	server, err := NewServer(&Ports{Query: &mockQueryService{}, Reconcile: mockRec}, Options{})
	require.NoError(t, err)

	_, output, err := server.handleRefreshIndex(ctx, nil, RefreshInput{})
	require.NoError(t, err)
	assert.Equal(t, 3, output.Documents)
	assert.Equal(t, 9, output.Chunks)
	assert.Equal(t, 2, output.Reused)
	assert.Equal(t, 1, output.Rechunked)
}

func TestSnippet(t *testing.T) {
	t.Run("multi-byte runes are not split", func(t *testing.T) {
		content := strings.Repeat("é", 10)
		got, truncated := snippet(content, 4)
		assert.True(t, truncated)
		assert.Equal(t, "éééé…", got)
	})

	t.Run("short content passes through", func(t *testing.T) {
		got, truncated := snippet("hello", 500)
		assert.False(t, truncated)
		assert.Equal(t, "hello", got)
	})
}
