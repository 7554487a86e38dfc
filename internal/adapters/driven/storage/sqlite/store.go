package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/docquery/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/docquery/internal/core/domain"
	"github.com/custodia-labs/docquery/internal/core/ports/driven"
	"github.com/custodia-labs/docquery/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.CacheStore = (*Store)(nil)

// Store is the SQLite-backed chunk/vector cache.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates or opens the cache database at the given path.
// If path is empty, defaults to ~/.docquery/cache.db.
//
// A database that cannot be opened or migrated is deleted and recreated
// empty: the cache is derived data and a corrupt file must never stop
// startup.
func NewStore(path string) (*Store, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		path = filepath.Join(home, ".docquery", "cache.db")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	db, err := open(path)
	if err != nil {
		logger.Warn("Cache database unusable (%v); rebuilding from scratch", err)
		if rmErr := removeDatabase(path); rmErr != nil {
			return nil, fmt.Errorf("removing corrupt cache: %w", rmErr)
		}
		db, err = open(path)
		if err != nil {
			return nil, fmt.Errorf("recreating cache database: %w", err)
		}
	}

	return &Store{db: db, path: path}, nil
}

// open opens the database and applies migrations.
func open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	if err := migrate(db, migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return db, nil
}

// removeDatabase deletes the database file and its WAL sidecars.
func removeDatabase(path string) error {
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads all persisted cache entries. A structurally invalid cache
// (malformed outline or heading JSON, truncated embedding blob) is
// discarded wholesale and reported as empty.
func (s *Store) Load(ctx context.Context) ([]domain.CacheEntry, driven.CacheMeta, error) {
	entries, meta, err := s.load(ctx)
	if err != nil {
		logger.Warn("Cache load failed (%v); treating cache as empty", err)
		if resetErr := s.reset(ctx); resetErr != nil {
			return nil, driven.CacheMeta{}, fmt.Errorf("resetting cache: %w", resetErr)
		}
		return nil, driven.CacheMeta{}, nil
	}
	return entries, meta, nil
}

func (s *Store) load(ctx context.Context) ([]domain.CacheEntry, driven.CacheMeta, error) {
	var meta driven.CacheMeta
	row := s.db.QueryRowContext(ctx, "SELECT model, dimensions FROM meta WHERE id = 1")
	if err := row.Scan(&meta.Model, &meta.Dimensions); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, meta, fmt.Errorf("%w: reading meta: %v", domain.ErrCacheCorrupt, err)
		}
		// Empty cache, nothing persisted yet.
		return nil, meta, nil
	}

	docRows, err := s.db.QueryContext(ctx, `
		SELECT path, title, mtime_ns, outline, chunk_count
		FROM documents ORDER BY path
	`)
	if err != nil {
		return nil, meta, fmt.Errorf("querying documents: %w", err)
	}
	defer docRows.Close()

	var entries []domain.CacheEntry
	for docRows.Next() {
		var (
			doc         domain.Document
			mtimeNS     int64
			outlineJSON string
		)
		if err := docRows.Scan(&doc.Path, &doc.Title, &mtimeNS, &outlineJSON, &doc.ChunkCount); err != nil {
			return nil, meta, fmt.Errorf("scanning document: %w", err)
		}
		doc.ModTime = time.Unix(0, mtimeNS)
		if err := json.Unmarshal([]byte(outlineJSON), &doc.Outline); err != nil {
			return nil, meta, fmt.Errorf("%w: outline for %s: %v", domain.ErrCacheCorrupt, doc.Path, err)
		}
		entries = append(entries, domain.CacheEntry{Document: doc})
	}
	if err := docRows.Err(); err != nil {
		return nil, meta, fmt.Errorf("iterating documents: %w", err)
	}

	for i := range entries {
		chunks, err := s.loadChunks(ctx, entries[i].Document.Path, meta.Dimensions)
		if err != nil {
			return nil, meta, err
		}
		entries[i].Chunks = chunks
	}

	return entries, meta, nil
}

// loadChunks reads one document's chunk list in ordinal order.
func (s *Store) loadChunks(ctx context.Context, docPath string, dims int) ([]domain.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT document_path, ordinal, headings, content, content_hash, source_url, embedding
		FROM chunks WHERE document_path = ?
		ORDER BY ordinal
	`, docPath)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk
	for rows.Next() {
		var (
			chunk        domain.Chunk
			headingsJSON string
			hash         int64
			blob         []byte
		)
		if err := rows.Scan(&chunk.DocumentPath, &chunk.Ordinal, &headingsJSON,
			&chunk.Content, &hash, &chunk.SourceURL, &blob); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		if err := json.Unmarshal([]byte(headingsJSON), &chunk.Headings); err != nil {
			return nil, fmt.Errorf("%w: headings for %s[%d]: %v",
				domain.ErrCacheCorrupt, docPath, chunk.Ordinal, err)
		}
		if len(blob)%4 != 0 || (dims > 0 && len(blob) != dims*4) {
			return nil, fmt.Errorf("%w: embedding blob for %s[%d] has %d bytes",
				domain.ErrCacheCorrupt, docPath, chunk.Ordinal, len(blob))
		}
		chunk.ContentHash = uint64(hash)
		chunk.Embedding = bytesToFloat32Slice(blob)
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	return chunks, nil
}

// Persist atomically replaces the full persisted set in one
// transaction.
func (s *Store) Persist(ctx context.Context, entries []domain.CacheEntry, meta driven.CacheMeta) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM documents"); err != nil {
		return fmt.Errorf("clearing documents: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks"); err != nil {
		return fmt.Errorf("clearing chunks: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO meta (id, model, dimensions) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			model = excluded.model,
			dimensions = excluded.dimensions
	`, meta.Model, meta.Dimensions); err != nil {
		return fmt.Errorf("saving meta: %w", err)
	}

	docStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO documents (path, title, mtime_ns, outline, chunk_count)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing document statement: %w", err)
	}
	defer docStmt.Close()

	chunkStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (document_path, ordinal, headings, content, content_hash, source_url, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing chunk statement: %w", err)
	}
	defer chunkStmt.Close()

	for _, entry := range entries {
		outlineJSON, err := json.Marshal(entry.Document.Outline)
		if err != nil {
			return fmt.Errorf("marshalling outline: %w", err)
		}
		if _, err := docStmt.ExecContext(ctx, entry.Document.Path, entry.Document.Title,
			entry.Document.ModTime.UnixNano(), string(outlineJSON), entry.Document.ChunkCount); err != nil {
			return fmt.Errorf("saving document %s: %w", entry.Document.Path, err)
		}

		for _, chunk := range entry.Chunks {
			headingsJSON, err := json.Marshal(chunk.Headings)
			if err != nil {
				return fmt.Errorf("marshalling headings: %w", err)
			}
			if _, err := chunkStmt.ExecContext(ctx, chunk.DocumentPath, chunk.Ordinal,
				string(headingsJSON), chunk.Content, int64(chunk.ContentHash),
				chunk.SourceURL, float32SliceToBytes(chunk.Embedding)); err != nil {
				return fmt.Errorf("saving chunk %s[%d]: %w", chunk.DocumentPath, chunk.Ordinal, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// reset clears all persisted data.
func (s *Store) reset(ctx context.Context) error {
	for _, stmt := range []string{"DELETE FROM chunks", "DELETE FROM documents", "DELETE FROM meta"} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s: %w", stmt, err)
		}
	}
	return nil
}

// migrate runs all pending migrations.
func migrate(db *sql.DB, fsys embed.FS) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}
		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// float32SliceToBytes converts a []float32 to a little-endian byte
// slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
