package domain

import "sort"

// Snapshot is the immutable in-memory corpus index. It is built
// wholesale from the reconciled cache entries and shared read-only
// across any number of concurrent query callers; a later reconciliation
// builds a new Snapshot and swaps it in, never mutating this one.
type Snapshot struct {
	docs     []Document
	docIndex map[string]int

	// Flat chunk list in document-then-ordinal order. This is the
	// layout the query engine scans; tie-breaks use the flat index.
	chunks []Chunk

	// chunkRange maps a document path to its [start, end) range in
	// chunks, so a per-document search need not scan the whole list.
	chunkRange map[string][2]int

	dimensions int
}

// BuildSnapshot flattens cache entries into a Snapshot. Documents are
// ordered lexicographically by path, chunks by their stored ordinal.
// The dimensions argument records the vector size all entries share.
func BuildSnapshot(entries []CacheEntry, dimensions int) *Snapshot {
	sorted := make([]CacheEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Document.Path < sorted[j].Document.Path
	})

	s := &Snapshot{
		docs:       make([]Document, 0, len(sorted)),
		docIndex:   make(map[string]int, len(sorted)),
		chunkRange: make(map[string][2]int, len(sorted)),
		dimensions: dimensions,
	}

	for _, entry := range sorted {
		start := len(s.chunks)
		s.chunks = append(s.chunks, entry.Chunks...)
		s.docIndex[entry.Document.Path] = len(s.docs)
		s.docs = append(s.docs, entry.Document)
		s.chunkRange[entry.Document.Path] = [2]int{start, len(s.chunks)}
	}

	return s
}

// Documents returns the document registry in lexicographic path order.
// The returned slice must not be modified.
func (s *Snapshot) Documents() []Document {
	return s.docs
}

// Document looks up one document by identity.
func (s *Snapshot) Document(path string) (Document, error) {
	i, ok := s.docIndex[path]
	if !ok {
		return Document{}, ErrNotFound
	}
	return s.docs[i], nil
}

// Headings returns the recorded outline for a document: the empty root
// path followed by each heading's full path in document order.
func (s *Snapshot) Headings(path string) ([]HeadingPath, error) {
	doc, err := s.Document(path)
	if err != nil {
		return nil, err
	}
	return doc.Outline, nil
}

// Chunks returns the flat chunk list in document-then-ordinal order.
// The returned slice must not be modified.
func (s *Snapshot) Chunks() []Chunk {
	return s.chunks
}

// ChunkRange returns the [start, end) range of a document's chunks
// within the flat list.
func (s *Snapshot) ChunkRange(path string) (start, end int, err error) {
	r, ok := s.chunkRange[path]
	if !ok {
		return 0, 0, ErrNotFound
	}
	return r[0], r[1], nil
}

// Dimensions returns the vector size shared by all indexed chunks.
func (s *Snapshot) Dimensions() int {
	return s.dimensions
}

// Len returns the total number of indexed chunks.
func (s *Snapshot) Len() int {
	return len(s.chunks)
}
