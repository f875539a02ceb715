//go:build sqlite_fts5

package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"unicode"

	"github.com/starford/vaultgraph/internal/models"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS documents_fts USING fts5(
			path UNINDEXED,
			title,
			body,
			tags,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(ctx context.Context, tx *sql.Tx, path, title, body, tags string) error {
	if err := ftsDelete(ctx, tx, path); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO documents_fts (path, title, body, tags) VALUES (?, ?, ?, ?)`,
		path, title, body, tags)
	if err != nil {
		return fmt.Errorf("search: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(ctx context.Context, tx *sql.Tx, path string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents_fts WHERE path = ?`, path); err != nil {
		return fmt.Errorf("search: delete fts: %w", err)
	}
	return nil
}

// matchExpr quotes every term so user punctuation is never read as FTS5 syntax.
// Terms are implicitly ANDed. Terms without any letter or digit produce no
// tokens and are dropped.
func matchExpr(words []string) string {
	quoted := make([]string, 0, len(words))
	for _, w := range words {
		if strings.IndexFunc(w, isTokenRune) < 0 {
			continue
		}
		quoted = append(quoted, `"`+strings.ReplaceAll(w, `"`, `""`)+`"`)
	}
	return strings.Join(quoted, " ")
}

func isTokenRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r)
}

// Query runs an FTS5 match ranked by bm25. Score is the negated rank, so
// higher is better.
func (s *Store) Query(ctx context.Context, text string, limit int) ([]models.SearchResult, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	expr := matchExpr(terms(text))
	if expr == "" {
		return []models.SearchResult{}, nil
	}

	rows, err := s.reader.QueryContext(ctx, `
		SELECT path, title, body, rank
		FROM documents_fts
		WHERE documents_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, expr, limit)
	if err != nil {
		return nil, fmt.Errorf("search: query: %w", err)
	}
	defer rows.Close()

	out := []models.SearchResult{}
	for rows.Next() {
		var (
			r    models.SearchResult
			body string
			rank float64
		)
		if err := rows.Scan(&r.Path, &r.Title, &body, &rank); err != nil {
			return nil, fmt.Errorf("search: scan: %w", err)
		}
		r.Snippet = snippet(body)
		r.Score = -rank
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search: rows: %w", err)
	}
	return out, nil
}
