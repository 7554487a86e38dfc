package domain

// SearchOptions configures a similarity query.
type SearchOptions struct {
	// TopK is the maximum number of results. Must be positive.
	TopK int

	// SimilarityFloor excludes results scoring below it when set.
	// Results are never padded back up to TopK.
	SimilarityFloor *float64

	// Document restricts the scan to one document identity when
	// non-empty. An unknown identity is a NotFound failure.
	Document string
}

// SearchResult represents a single similarity hit.
type SearchResult struct {
	// DocumentPath is the owning document's identity.
	DocumentPath string

	// Chunk is the matched chunk.
	Chunk Chunk

	// Score is the cosine similarity against the query vector.
	// A zero-norm vector on either side scores 0.
	Score float64
}
