package search

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"
)

const snippetLen = 200

// Upsert inserts or replaces a document and its full-text entry within a transaction.
func (s *Store) Upsert(ctx context.Context, doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("search: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	tags := strings.Join(doc.Tags, " ")
	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (path, title, body, tags)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title = excluded.title,
			body  = excluded.body,
			tags  = excluded.tags
	`, doc.Path, doc.Title, doc.Body, tags)
	if err != nil {
		return fmt.Errorf("search: upsert document: %w", err)
	}
	if err := ftsUpsert(ctx, tx, doc.Path, doc.Title, doc.Body, tags); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("search: commit: %w", err)
	}
	return nil
}

// Remove deletes the document stored under path. Removing an unknown path is a no-op.
func (s *Store) Remove(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("search: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := ftsDelete(ctx, tx, path); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE path = ?`, path); err != nil {
		return fmt.Errorf("search: delete document: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("search: commit: %w", err)
	}
	return nil
}

// Count returns the number of stored documents.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.reader.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("search: count: %w", err)
	}
	return n, nil
}

// snippet returns the first snippetLen characters of body, with "..." appended
// when it was cut.
func snippet(body string) string {
	if utf8.RuneCountInString(body) <= snippetLen {
		return body
	}
	runes := []rune(body)
	return string(runes[:snippetLen]) + "..."
}

// terms splits user input into search terms.
func terms(text string) []string {
	return strings.Fields(text)
}
