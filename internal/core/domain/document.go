package domain

import "time"

// Document represents one Markdown file in the corpus.
// Its identity is the normalised path relative to the storage directory.
type Document struct {
	// Path is the normalised relative path and the document identity.
	Path string

	// Title is derived from the first level-1 heading, falling back
	// to the filename.
	Title string

	// ModTime is the file's last-modified timestamp at chunk time.
	// Freshness is equality of this value, not ordering.
	ModTime time.Time

	// Outline is the heading structure in document order: the empty
	// root path first, then each heading's full path. It is recorded
	// at chunk time and survives empty-chunk dropping.
	Outline []HeadingPath

	// ChunkCount is the number of chunks produced by the last
	// chunking pass.
	ChunkCount int
}

// HeadingPath is the ordered sequence of ancestor heading texts for a
// chunk, root-to-leaf. The root chunk has an empty path.
type HeadingPath []string

// Equal reports whether two heading paths are identical.
func (p HeadingPath) Equal(other HeadingPath) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// Leaf returns the innermost heading text, or "" for the root path.
func (p HeadingPath) Leaf() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// Chunk represents a heading-delimited unit within a document.
//
// A chunk's identity for retrieval is (DocumentPath, Ordinal). Identities
// are stable only within one chunking pass: re-chunking a document
// replaces all of its chunks atomically.
type Chunk struct {
	// DocumentPath is the owning document's identity.
	DocumentPath string

	// Ordinal is the position within the document's chunk list.
	Ordinal int

	// Headings is the heading path for this chunk.
	Headings HeadingPath

	// Content is the raw text content, trimmed. Never empty: empty
	// chunks are dropped at chunk time.
	Content string

	// ContentHash is an xxhash64 fingerprint of Content, kept for
	// integrity checks across persist/reload.
	ContentHash uint64

	// SourceURL is the crawler-recorded origin URL for this section,
	// if the source Markdown carried a "Source:" line. May be empty.
	SourceURL string

	// Embedding is the vector representation. Length must equal the
	// active embedder's dimensionality.
	Embedding []float32
}

// CacheEntry is the persisted unit of the chunk cache: one document
// together with its chunk list. Chunks carry their vectors inline, so
// the chunk list and vector list correspond index-for-index by
// construction.
type CacheEntry struct {
	// Document holds identity and freshness data.
	Document Document

	// Chunks is the ordered chunk list, vectors included.
	Chunks []Chunk
}
