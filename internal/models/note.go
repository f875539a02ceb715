// Package models defines the domain types shared across vaultgraph packages.
package models

import "time"

// Note is a parsed Markdown file in the vault.
type Note struct {
	Path        string            `json:"path"`
	Name        string            `json:"name"`
	Title       string            `json:"title"`
	Frontmatter map[string]string `json:"frontmatter"`
	Links       []string          `json:"links"`
	Tags        []string          `json:"tags"`
}

// NoteMetadata is a lightweight representation returned by list operations.
type NoteMetadata struct {
	Path      string    `json:"path"`
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SearchResult is one full-text search hit.
type SearchResult struct {
	Path    string  `json:"path"`
	Title   string  `json:"title"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
}
