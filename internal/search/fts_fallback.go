//go:build !sqlite_fts5

package search

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/starford/vaultgraph/internal/models"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; queries use LIKE over the documents table.
	return nil
}

func ftsUpsert(_ context.Context, _ *sql.Tx, _, _, _, _ string) error { return nil }

func ftsDelete(_ context.Context, _ *sql.Tx, _ string) error { return nil }

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Query matches documents containing every term in the title, body or tags.
// Score is the number of term occurrences.
func (s *Store) Query(ctx context.Context, text string, limit int) ([]models.SearchResult, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	words := terms(text)
	if len(words) == 0 {
		return []models.SearchResult{}, nil
	}

	var (
		where []string
		args  []any
	)
	for _, w := range words {
		like := "%" + likeEscaper.Replace(w) + "%"
		where = append(where, `(title LIKE ? ESCAPE '\' OR body LIKE ? ESCAPE '\' OR tags LIKE ? ESCAPE '\')`)
		args = append(args, like, like, like)
	}
	rows, err := s.reader.QueryContext(ctx,
		`SELECT path, title, body, tags FROM documents WHERE `+strings.Join(where, " AND "),
		args...)
	if err != nil {
		return nil, fmt.Errorf("search: query: %w", err)
	}
	defer rows.Close()

	out := []models.SearchResult{}
	for rows.Next() {
		var path, title, body, tags string
		if err := rows.Scan(&path, &title, &body, &tags); err != nil {
			return nil, fmt.Errorf("search: scan: %w", err)
		}
		hay := strings.ToLower(title + "\n" + body + "\n" + tags)
		score := 0
		for _, w := range words {
			score += strings.Count(hay, strings.ToLower(w))
		}
		out = append(out, models.SearchResult{
			Path:    path,
			Title:   title,
			Snippet: snippet(body),
			Score:   float64(score),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search: rows: %w", err)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Path < out[j].Path
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
