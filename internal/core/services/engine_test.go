package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docquery/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docquery/internal/core/domain"
)

// --- Mock implementations ---

// mockEmbedder is a deterministic embedder: identical texts always get
// identical vectors, distinct texts almost surely distinct ones.
type mockEmbedder struct {
	dims  int
	model string

	embedCalls int
	batchCalls int
	batchSizes []int

	batchErr error
	// shortBatch returns one vector fewer than requested.
	shortBatch bool
}

func newMockEmbedder() *mockEmbedder {
	return &mockEmbedder{dims: 4, model: "mock-embed"}
}

func (m *mockEmbedder) vector(text string) []float32 {
	h := xxhash.Sum64String(text)
	v := make([]float32, m.dims)
	for i := range v {
		// Signed byte-sliced hash so vectors spread over the whole
		// sphere rather than the positive orthant.
		v[i] = float32(int((h>>(8*i))&0xFF) - 128)
	}
	if norm(v) == 0 {
		v[0] = 1
	}
	return v
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.embedCalls++
	return m.vector(text), nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.batchCalls++
	m.batchSizes = append(m.batchSizes, len(texts))
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	n := len(texts)
	if m.shortBatch && n > 0 {
		n--
	}
	vectors := make([][]float32, 0, n)
	for _, text := range texts[:n] {
		vectors = append(vectors, m.vector(text))
	}
	return vectors, nil
}

func (m *mockEmbedder) Dimensions() int              { return m.dims }
func (m *mockEmbedder) ModelName() string            { return m.model }
func (m *mockEmbedder) Ping(_ context.Context) error { return nil }
func (m *mockEmbedder) Close() error                 { return nil }

// --- Helpers ---

type testFixture struct {
	dir      string
	store    *memory.CacheStore
	embedder *mockEmbedder
	engine   *Engine
}

func newFixture(t *testing.T, files map[string]string) *testFixture {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	store := memory.NewCacheStore()
	embedder := newMockEmbedder()
	return &testFixture{
		dir:      dir,
		store:    store,
		embedder: embedder,
		engine:   NewEngine(dir, store, embedder),
	}
}

func (f *testFixture) write(t *testing.T, name, content string) {
	t.Helper()
	path := filepath.Join(f.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	// Force a visibly different mtime even on coarse filesystems.
	stamp := time.Now().Add(time.Duration(len(content)+1) * time.Second)
	require.NoError(t, os.Chtimes(path, stamp, stamp))
}

const sampleDoc = `# Install Guide

Intro paragraph.

## Linux

Use the package manager.

## macOS

Use the installer image.
`

// --- Reconciliation ---

func TestReconcile_BuildsSnapshot(t *testing.T) {
	f := newFixture(t, map[string]string{"guide.md": sampleDoc})

	stats, err := f.engine.Reconcile(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Documents)
	assert.Equal(t, 3, stats.Chunks)
	assert.Equal(t, 0, stats.Reused)
	assert.Equal(t, 1, stats.Rechunked)
	assert.Equal(t, 0, stats.Removed)
	assert.NotEmpty(t, stats.PassID)
	assert.True(t, f.engine.Ready())

	docs, err := f.engine.ListDocuments(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "guide.md", docs[0].Path)
	assert.Equal(t, "Install Guide", docs[0].Title)
	assert.Equal(t, 3, docs[0].ChunkCount)
}

func TestQueries_BeforeFirstReconcile(t *testing.T) {
	f := newFixture(t, map[string]string{"guide.md": sampleDoc})
	ctx := context.Background()

	_, err := f.engine.ListDocuments(ctx)
	assert.ErrorIs(t, err, domain.ErrNotReady)

	_, err = f.engine.GetDocumentHeadings(ctx, "guide.md")
	assert.ErrorIs(t, err, domain.ErrNotReady)

	_, err = f.engine.SearchDocumentation(ctx, "anything", domain.SearchOptions{TopK: 3})
	assert.ErrorIs(t, err, domain.ErrNotReady)
}

func TestReconcile_ReusesFreshEntries(t *testing.T) {
	f := newFixture(t, map[string]string{
		"a.md": "# A\n\nalpha content.\n",
		"b.md": "# B\n\nbeta content.\n",
	})
	ctx := context.Background()

	_, err := f.engine.Reconcile(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, f.embedder.batchCalls)

	stats, err := f.engine.Reconcile(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Reused)
	assert.Equal(t, 0, stats.Rechunked)
	assert.Equal(t, 1, f.embedder.batchCalls, "unchanged corpus must not re-embed")
	assert.Equal(t, 2, f.store.PersistCalls)
}

func TestReconcile_ReembedsOnlyModifiedFile(t *testing.T) {
	f := newFixture(t, map[string]string{
		"a.md": "# A\n\nalpha content.\n",
		"b.md": "# B\n\nbeta content.\n",
	})
	ctx := context.Background()

	_, err := f.engine.Reconcile(ctx)
	require.NoError(t, err)

	f.write(t, "b.md", "# B\n\nrewritten beta content.\n")

	stats, err := f.engine.Reconcile(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Reused)
	assert.Equal(t, 1, stats.Rechunked)
	require.Equal(t, 2, f.embedder.batchCalls)
	assert.Equal(t, 1, f.embedder.batchSizes[1], "only the modified document's chunks are embedded")
}

func TestReconcile_DropsDeletedFile(t *testing.T) {
	f := newFixture(t, map[string]string{
		"keep.md": "# Keep\n\nkept.\n",
		"gone.md": "# Gone\n\ndeleted later.\n",
	})
	ctx := context.Background()

	_, err := f.engine.Reconcile(ctx)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(f.dir, "gone.md")))

	stats, err := f.engine.Reconcile(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Removed)
	assert.Equal(t, 1, stats.Documents)

	docs, err := f.engine.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "keep.md", docs[0].Path)

	_, err = f.engine.GetDocumentHeadings(ctx, "gone.md")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReconcile_ModelChangeInvalidatesWholeCache(t *testing.T) {
	f := newFixture(t, map[string]string{
		"a.md": "# A\n\nalpha.\n",
		"b.md": "# B\n\nbeta.\n",
	})
	ctx := context.Background()

	_, err := f.engine.Reconcile(ctx)
	require.NoError(t, err)

	f.embedder.model = "other-embed"

	stats, err := f.engine.Reconcile(ctx)
	require.NoError(t, err)

	assert.Equal(t, 0, stats.Reused)
	assert.Equal(t, 2, stats.Rechunked)
}

func TestReconcile_ShortEmbedBatchFails(t *testing.T) {
	f := newFixture(t, map[string]string{"a.md": "# A\n\nalpha.\n"})
	f.embedder.shortBatch = true

	_, err := f.engine.Reconcile(context.Background())
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.False(t, f.engine.Ready(), "failed pass must not publish a snapshot")
	assert.Equal(t, 0, f.store.PersistCalls)
}

func TestReconcile_EmptyStorageDirectory(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	stats, err := f.engine.Reconcile(ctx)
	require.NoError(t, err)

	assert.Equal(t, 0, stats.Documents)
	assert.True(t, f.engine.Ready())

	docs, err := f.engine.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)

	results, err := f.engine.SearchDocumentation(ctx, "anything", domain.SearchOptions{TopK: 3})
	require.NoError(t, err)
	assert.Empty(t, results)
}

// --- Headings ---

func TestGetDocumentHeadings_KeepsEmptySectionsInOutline(t *testing.T) {
	// The Linux section has no body, so it produces no chunk, yet its
	// heading stays in the outline.
	doc := "# Guide\n\nintro.\n\n## Linux\n\n### Debian\n\napt install.\n"
	f := newFixture(t, map[string]string{"guide.md": doc})
	ctx := context.Background()

	_, err := f.engine.Reconcile(ctx)
	require.NoError(t, err)

	outline, err := f.engine.GetDocumentHeadings(ctx, "guide.md")
	require.NoError(t, err)

	expected := []domain.HeadingPath{
		{},
		{"Guide"},
		{"Guide", "Linux"},
		{"Guide", "Linux", "Debian"},
	}
	require.Len(t, outline, len(expected))
	for i := range expected {
		assert.True(t, outline[i].Equal(expected[i]), "outline[%d] = %v", i, outline[i])
	}

	docs, err := f.engine.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, docs[0].ChunkCount, "empty section contributes no chunk")
}

func TestGetDocumentChunks(t *testing.T) {
	f := newFixture(t, map[string]string{"guide.md": sampleDoc})
	ctx := context.Background()

	_, err := f.engine.Reconcile(ctx)
	require.NoError(t, err)

	chunks, err := f.engine.GetDocumentChunks(ctx, "guide.md")
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, 0, chunks[0].Ordinal)
	assert.Equal(t, "Intro paragraph.", chunks[0].Content)
	assert.True(t, chunks[1].Headings.Equal(domain.HeadingPath{"Install Guide", "Linux"}))

	_, err = f.engine.GetDocumentChunks(ctx, "missing.md")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetDocumentHeadings_UnknownDocument(t *testing.T) {
	f := newFixture(t, map[string]string{"a.md": "# A\n\nalpha.\n"})
	ctx := context.Background()

	_, err := f.engine.Reconcile(ctx)
	require.NoError(t, err)

	_, err = f.engine.GetDocumentHeadings(ctx, "missing.md")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// --- Search ---

func TestSearch_ExactTextRanksFirst(t *testing.T) {
	f := newFixture(t, map[string]string{
		"a.md": "# A\n\nthe quick brown fox.\n",
		"b.md": "# B\n\nsomething else entirely.\n",
	})
	ctx := context.Background()

	_, err := f.engine.Reconcile(ctx)
	require.NoError(t, err)

	results, err := f.engine.SearchDocumentation(ctx, "the quick brown fox.", domain.SearchOptions{TopK: 2})
	require.NoError(t, err)

	require.NotEmpty(t, results)
	assert.Equal(t, "a.md", results[0].DocumentPath)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)

	// Descending order throughout.
	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i].Score, results[i-1].Score)
	}
}

func TestSearch_TopKBoundsResults(t *testing.T) {
	f := newFixture(t, map[string]string{
		"a.md": "# A\n\none.\n\n## B\n\ntwo.\n\n## C\n\nthree.\n\n## D\n\nfour.\n",
	})
	ctx := context.Background()

	_, err := f.engine.Reconcile(ctx)
	require.NoError(t, err)

	results, err := f.engine.SearchDocumentation(ctx, "two", domain.SearchOptions{TopK: 2})
	require.NoError(t, err)
	assert.Len(t, results, 2)

	// More slots than chunks is fine.
	results, err = f.engine.SearchDocumentation(ctx, "two", domain.SearchOptions{TopK: 100})
	require.NoError(t, err)
	assert.Len(t, results, 4)
}

func TestSearch_InvalidTopK(t *testing.T) {
	f := newFixture(t, map[string]string{"a.md": "# A\n\nalpha.\n"})
	ctx := context.Background()

	_, err := f.engine.Reconcile(ctx)
	require.NoError(t, err)

	for _, topK := range []int{0, -1} {
		_, err = f.engine.SearchDocumentation(ctx, "x", domain.SearchOptions{TopK: topK})
		assert.ErrorIs(t, err, domain.ErrInvalidInput, "top_k=%d", topK)
	}
}

func TestSearch_BlankQueryReturnsNoResults(t *testing.T) {
	f := newFixture(t, map[string]string{"a.md": "# A\n\nalpha.\n"})
	ctx := context.Background()

	_, err := f.engine.Reconcile(ctx)
	require.NoError(t, err)

	for _, query := range []string{"", "   ", "\n\t"} {
		results, err := f.engine.SearchDocumentation(ctx, query, domain.SearchOptions{TopK: 3})
		require.NoError(t, err)
		assert.Empty(t, results)
	}
	assert.Equal(t, 0, f.embedder.embedCalls, "blank queries never reach the embedder")
}

func TestSearch_SimilarityFloorExcludes(t *testing.T) {
	f := newFixture(t, map[string]string{
		"a.md": "# A\n\nthe quick brown fox.\n",
		"b.md": "# B\n\nsomething else entirely.\n",
	})
	ctx := context.Background()

	_, err := f.engine.Reconcile(ctx)
	require.NoError(t, err)

	// A floor just under a perfect score keeps only the exact match.
	floor := 0.999999
	results, err := f.engine.SearchDocumentation(ctx, "the quick brown fox.", domain.SearchOptions{
		TopK:            5,
		SimilarityFloor: &floor,
	})
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, "a.md", results[0].DocumentPath)
}

func TestSearch_DocumentFilter(t *testing.T) {
	f := newFixture(t, map[string]string{
		"a.md": "# A\n\nshared content here.\n",
		"b.md": "# B\n\nshared content here.\n",
	})
	ctx := context.Background()

	_, err := f.engine.Reconcile(ctx)
	require.NoError(t, err)

	results, err := f.engine.SearchDocumentation(ctx, "shared content", domain.SearchOptions{
		TopK:     5,
		Document: "b.md",
	})
	require.NoError(t, err)

	require.NotEmpty(t, results)
	for _, r := range results {
		assert.Equal(t, "b.md", r.DocumentPath)
	}

	_, err = f.engine.SearchDocumentation(ctx, "shared content", domain.SearchOptions{
		TopK:     5,
		Document: "missing.md",
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSearch_TiesBreakOnEarliestChunk(t *testing.T) {
	// Identical content in two documents scores identically; the chunk
	// from the lexicographically earlier document wins.
	f := newFixture(t, map[string]string{
		"b.md": "# B\n\nidentical body.\n",
		"a.md": "# A\n\nidentical body.\n",
	})
	ctx := context.Background()

	_, err := f.engine.Reconcile(ctx)
	require.NoError(t, err)

	results, err := f.engine.SearchDocumentation(ctx, "identical body.", domain.SearchOptions{TopK: 1})
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, "a.md", results[0].DocumentPath)
}

func TestSearch_ResultsCarryProvenance(t *testing.T) {
	doc := "# Guide\n\n## Linux\n\nSource: https://example.com/docs/guide\n\napt install docquery.\n"
	f := newFixture(t, map[string]string{"guide.md": doc})
	ctx := context.Background()

	_, err := f.engine.Reconcile(ctx)
	require.NoError(t, err)

	results, err := f.engine.SearchDocumentation(ctx, "apt install docquery.", domain.SearchOptions{TopK: 1})
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, "guide.md", results[0].DocumentPath)
	assert.True(t, results[0].Chunk.Headings.Equal(domain.HeadingPath{"Guide", "Linux"}))
	assert.Equal(t, "https://example.com/docs/guide", results[0].Chunk.SourceURL)
	assert.NotContains(t, results[0].Chunk.Content, "Source:")
}

// --- Snapshot isolation ---

func TestReconcile_InFlightSnapshotSurvivesSwap(t *testing.T) {
	f := newFixture(t, map[string]string{"a.md": "# A\n\nalpha.\n"})
	ctx := context.Background()

	_, err := f.engine.Reconcile(ctx)
	require.NoError(t, err)

	before, err := f.engine.ListDocuments(ctx)
	require.NoError(t, err)

	// A query started against the old snapshot keeps seeing it even
	// after a reconciliation publishes a new one.
	f.write(t, "b.md", "# B\n\nbeta.\n")
	_, err = f.engine.Reconcile(ctx)
	require.NoError(t, err)

	after, err := f.engine.ListDocuments(ctx)
	require.NoError(t, err)

	assert.Len(t, before, 1)
	assert.Len(t, after, 2)
}
