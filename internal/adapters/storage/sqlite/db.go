// Package sqlite implements the embedded, single-writer, WAL-journaled
// storage engine of spec.md §4.2/§5: one SQLite file per database, with
// the vector index and full-text index loaded alongside it at open, and
// every mutation funneled through a single serialized handle.
//
// Grounded on the teacher's internal/adapters/vectordb/lancedb.go
// (database/sql + mattn/go-sqlite3, initSchema, prepared statement reuse,
// sync.RWMutex guarding the handle), generalized from one chunks table to
// the full provenance schema.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ingestgraph/corpus/internal/adapters/storage/ftsindex"
	"github.com/ingestgraph/corpus/internal/adapters/storage/vectorindex"
	"github.com/ingestgraph/corpus/internal/domain/entities"
	"github.com/ingestgraph/corpus/internal/domain/ports"
)

// schemaVersion is the version of the schema that schemaSQL (schema.go) creates.
const schemaVersion = 1

// Store is the composite ports.Store implementation: a *sql.DB for
// everything relational, plus an embedded vector index and FTS index
// opened alongside it (spec.md §4.2 "both loaded as extensions at open").
type Store struct {
	mu   sync.RWMutex
	db   *sql.DB
	vec  *vectorindex.Index
	fts  *ftsindex.Index
	path string
}

// Opener implements ports.DatabaseOpener over a directory of named
// database files (spec.md §4.5 "database management"): each named
// database is a subdirectory holding corpus.db (the relational file) and
// fts.bleve/ (the inverted index). Extracted images are not kept here:
// the Orchestrator writes them under its own images directory.
type Opener struct {
	RootDir   string
	VectorDim int
}

// NewOpener builds an Opener rooted at rootDir.
func NewOpener(rootDir string, vectorDim int) *Opener {
	return &Opener{RootDir: rootDir, VectorDim: vectorDim}
}

func (o *Opener) dbDir(name string) string { return filepath.Join(o.RootDir, name) }

// Exists reports whether a database of this name has been created.
func (o *Opener) Exists(ctx context.Context, name string) (bool, error) {
	info, err := os.Stat(filepath.Join(o.dbDir(name), "corpus.db"))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !info.IsDir(), nil
}

// List returns the names of every created database.
func (o *Opener) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(o.RootDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if ok, _ := o.Exists(ctx, e.Name()); ok {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// Create makes a new, empty database directory and opens it.
func (o *Opener) Create(ctx context.Context, name string) (ports.Store, error) {
	dir := o.dbDir(name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("sqlite: create database dir: %w", err)
	}
	return o.Open(ctx, name)
}

// Open opens an existing database directory.
func (o *Opener) Open(ctx context.Context, name string) (ports.Store, error) {
	return Open(o.dbDir(name), o.VectorDim)
}

// Delete removes a database directory entirely.
func (o *Opener) Delete(ctx context.Context, name string) error {
	return os.RemoveAll(o.dbDir(name))
}

// Open opens (creating if absent) the SQLite file, vector index, and FTS
// index rooted at dir, applying the pragmas spec.md §4.2 requires: WAL
// journal mode, a busy timeout so concurrent readers never see
// SQLITE_BUSY under normal load, and foreign keys on for cascade delete.
func Open(dir string, vectorDim int) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("sqlite: mkdir %q: %w", dir, err)
	}
	dbPath := filepath.Join(dir, "corpus.db")
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", dbPath)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", dbPath, err)
	}
	db.SetMaxOpenConns(1) // single-writer discipline (spec.md §4.2): one connection, serialized

	if vectorDim <= 0 {
		vectorDim = entities.DefaultVectorDimension
	}

	s := &Store{db: db, path: dir}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	vec, err := vectorindex.Open(db, vectorDim)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: open vector index: %w", err)
	}
	s.vec = vec

	fts, err := ftsindex.Open(filepath.Join(dir, "fts.bleve"))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: open fts index: %w", err)
	}
	s.fts = fts

	return s, nil
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(schemaSQL)
	if err != nil {
		return fmt.Errorf("sqlite: init schema: %w", err)
	}
	return nil
}

// Close releases the connection and the FTS index handle, flushing WAL
// (spec.md §5 "Process exit").
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	if s.fts != nil {
		if err := s.fts.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := s.db.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// SchemaVersion reports the fixed schema version. schemaSQL is applied
// as-is on every open; there are no migrations.
func (s *Store) SchemaVersion() int { return schemaVersion }
