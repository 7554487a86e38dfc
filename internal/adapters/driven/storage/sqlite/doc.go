// Package sqlite provides the SQLite-backed implementation of the
// CacheStore driven port.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation
// that requires no CGO, enabling easy cross-compilation.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in
// the migrations/ directory. It is pure structured data: documents,
// chunks with heading paths as JSON arrays, and embeddings as
// little-endian float32 blobs. Loading never executes file bytes.
//
// # Corruption Recovery
//
// An unreadable or structurally invalid database is discarded and
// recreated empty rather than partially trusted. Persisting a
// reconciled set happens in a single transaction under WAL journaling,
// so a crash mid-write leaves the previously committed cache intact.
//
// # Thread Safety
//
// All operations are thread-safe through database-level locking, but
// the cache follows a single-writer discipline: only the reconciling
// owner calls Persist, and a second process sharing the file is not
// supported.
package sqlite
