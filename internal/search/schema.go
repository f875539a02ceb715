// Package search provides the SQLite-backed full-text search store for vault notes.
//
// Builds with the sqlite_fts5 tag rank matches with FTS5 bm25; other builds
// fall back to LIKE matching over the documents table.
package search

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
	path  TEXT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	body  TEXT NOT NULL DEFAULT '',
	tags  TEXT NOT NULL DEFAULT ''
);
`

// Store is a search Index on SQLite.
//
// Writes go through a single connection serialized by mu. Queries use a
// separate read-only handle and see a write once it has committed.
type Store struct {
	mu     sync.Mutex
	writer *sql.DB
	reader *sql.DB
}

// Open opens (or creates) the search database at path and applies the schema.
func Open(path string) (*Store, error) {
	writer, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("search: open writer: %w", err)
	}
	writer.SetMaxOpenConns(1)
	if err := writer.Ping(); err != nil {
		writer.Close()
		return nil, fmt.Errorf("search: ping: %w", err)
	}
	if _, err := writer.Exec(coreSchemaSQL); err != nil {
		writer.Close()
		return nil, fmt.Errorf("search: apply core schema: %w", err)
	}
	if err := initFTS(writer); err != nil {
		writer.Close()
		return nil, fmt.Errorf("search: apply fts schema: %w", err)
	}

	reader, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_query_only=1")
	if err != nil {
		writer.Close()
		return nil, fmt.Errorf("search: open reader: %w", err)
	}
	if err := reader.Ping(); err != nil {
		writer.Close()
		reader.Close()
		return nil, fmt.Errorf("search: ping reader: %w", err)
	}
	return &Store{writer: writer, reader: reader}, nil
}

// Close closes both database handles.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rerr := s.reader.Close()
	if err := s.writer.Close(); err != nil {
		return fmt.Errorf("search: close: %w", err)
	}
	if rerr != nil {
		return fmt.Errorf("search: close reader: %w", rerr)
	}
	return nil
}
