package services

import (
	"container/heap"
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/logger"
)

// ListDocuments returns document summaries in lexicographic path order.
func (e *Engine) ListDocuments(_ context.Context) ([]domain.Document, error) {
	s, err := e.current()
	if err != nil {
		return nil, err
	}
	return s.Documents(), nil
}

// GetDocumentHeadings returns a document's recorded outline.
func (e *Engine) GetDocumentHeadings(_ context.Context, path string) ([]domain.HeadingPath, error) {
	s, err := e.current()
	if err != nil {
		return nil, err
	}
	headings, err := s.Headings(path)
	if err != nil {
		return nil, fmt.Errorf("document %s: %w", path, err)
	}
	return headings, nil
}

// GetDocumentChunks returns one document's chunks in ordinal order.
func (e *Engine) GetDocumentChunks(_ context.Context, path string) ([]domain.Chunk, error) {
	s, err := e.current()
	if err != nil {
		return nil, err
	}
	start, end, err := s.ChunkRange(path)
	if err != nil {
		return nil, fmt.Errorf("document %s: %w", path, err)
	}
	return s.Chunks()[start:end], nil
}

// SearchDocumentation embeds the query and ranks every indexed chunk by
// cosine similarity, returning at most opts.TopK results in descending
// score order. Ties break on earliest document-then-chunk order.
func (e *Engine) SearchDocumentation(
	ctx context.Context, query string, opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	if opts.TopK <= 0 {
		return nil, fmt.Errorf("top_k must be positive, got %d: %w", opts.TopK, domain.ErrInvalidInput)
	}

	s, err := e.current()
	if err != nil {
		return nil, err
	}

	logger.Section("Search Execution")
	logger.Debug("Query: %q, top_k=%d", query, opts.TopK)

	query = strings.TrimSpace(query)
	if query == "" {
		logger.Debug("Empty query, returning no results")
		return []domain.SearchResult{}, nil
	}

	start, end := 0, s.Len()
	if opts.Document != "" {
		start, end, err = s.ChunkRange(opts.Document)
		if err != nil {
			return nil, fmt.Errorf("document %s: %w", opts.Document, err)
		}
		logger.Debug("Restricting scan to %s (%d chunks)", opts.Document, end-start)
	}

	if s.Len() == 0 {
		return []domain.SearchResult{}, nil
	}

	qvec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(qvec) != s.Dimensions() {
		return nil, fmt.Errorf("query vector has %d dimensions, index has %d: %w",
			len(qvec), s.Dimensions(), domain.ErrDimensionMismatch)
	}
	qnorm := norm(qvec)

	// Full scan with a bounded heap: O(n log k). The heap keeps the
	// current worst of the best k at its root.
	chunks := s.Chunks()
	h := make(candidateHeap, 0, opts.TopK)
	for i := start; i < end; i++ {
		score := cosine(qvec, qnorm, chunks[i].Embedding)
		if opts.SimilarityFloor != nil && score < *opts.SimilarityFloor {
			continue
		}
		cand := candidate{index: i, score: score}
		if h.Len() < opts.TopK {
			heap.Push(&h, cand)
		} else if cand.better(h[0]) {
			h[0] = cand
			heap.Fix(&h, 0)
		}
	}

	// Drain ascending, fill descending.
	results := make([]domain.SearchResult, h.Len())
	for i := len(results) - 1; i >= 0; i-- {
		c := heap.Pop(&h).(candidate)
		results[i] = domain.SearchResult{
			DocumentPath: chunks[c.index].DocumentPath,
			Chunk:        chunks[c.index],
			Score:        c.score,
		}
	}

	logger.Info("Search returned %d results", len(results))
	return results, nil
}

// candidate is one scored chunk identified by its flat index.
type candidate struct {
	index int
	score float64
}

// better reports whether c outranks other: higher score, or equal score
// and earlier flat index.
func (c candidate) better(other candidate) bool {
	if c.score != other.score {
		return c.score > other.score
	}
	return c.index < other.index
}

// candidateHeap is a min-heap on ranking order, so the root is always
// the candidate to evict next.
type candidateHeap []candidate

func (h candidateHeap) Len() int           { return len(h) }
func (h candidateHeap) Less(i, j int) bool { return h[j].better(h[i]) }
func (h candidateHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *candidateHeap) Push(x any)        { *h = append(*h, x.(candidate)) }
func (h *candidateHeap) Pop() any {
	old := *h
	n := len(old)
	c := old[n-1]
	*h = old[:n-1]
	return c
}

// cosine computes dot(q, v) / (||q|| * ||v||). A zero-norm vector on
// either side yields 0, never a division fault.
func cosine(q []float32, qnorm float64, v []float32) float64 {
	if len(q) != len(v) || qnorm == 0 {
		return 0
	}
	var dot, vsq float64
	for i := range q {
		dot += float64(q[i]) * float64(v[i])
		vsq += float64(v[i]) * float64(v[i])
	}
	if vsq == 0 {
		return 0
	}
	return dot / (qnorm * math.Sqrt(vsq))
}

// norm computes the Euclidean norm of a vector.
func norm(v []float32) float64 {
	var sq float64
	for _, x := range v {
		sq += float64(x) * float64(x)
	}
	return math.Sqrt(sq)
}
