// Package domain defines the core business entities for docquery.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: A Markdown file in the corpus, identified by its path
//   - Chunk: A heading-delimited unit within a document
//   - CacheEntry: The persisted unit of the chunk/vector cache
//   - Snapshot: The immutable in-memory corpus index queries run against
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
