package api

import (
	"github.com/starford/vaultgraph/internal/models"
	"github.com/starford/vaultgraph/internal/noteservice"
	"github.com/starford/vaultgraph/internal/vault"
)

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest struct {
	Path    string `json:"path" example:"notes/hello.md" validate:"required"`
	Content string `json:"content" example:"# Hello\nWorld"`
}

// UpdateNoteRequest is the request body for updating a note.
type UpdateNoteRequest struct {
	Content string `json:"content" example:"# Updated\nContent" validate:"required"`
}

// RenameNoteRequest is the request body for moving a note.
type RenameNoteRequest struct {
	From string `json:"from" example:"inbox/idea.md" validate:"required"`
	To   string `json:"to" example:"projects/idea.md" validate:"required"`
}

// NoteDetail is the full note response type (aliased from the domain layer).
type NoteDetail = noteservice.NoteDetail

// NoteListResponse wraps paginated note listings.
type NoteListResponse struct {
	Notes []models.NoteMetadata `json:"notes" validate:"required"`
	Total int                   `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []models.SearchResult `json:"results" validate:"required"`
}

// GraphResponse is the node/edge projection of the link graph.
type GraphResponse = models.GraphData

// ClustersResponse wraps the connected groups of notes.
type ClustersResponse struct {
	Clusters []models.Cluster `json:"clusters" validate:"required"`
}

// NamesResponse wraps a sorted list of note names.
type NamesResponse struct {
	Names []string `json:"names" validate:"required"`
}

// BacklinksResponse lists the notes that link to path.
type BacklinksResponse struct {
	Path      string   `json:"path" example:"notes/hello.md" validate:"required"`
	Backlinks []string `json:"backlinks" validate:"required"`
}

// ResolveResponse is the result of resolving a wikilink target.
type ResolveResponse struct {
	Name     string `json:"name" example:"hello" validate:"required"`
	Path     string `json:"path,omitempty" example:"notes/hello.md"`
	Resolved bool   `json:"resolved" validate:"required"`
}

// IndexStatsResponse reports the outcome of a full re-index.
type IndexStatsResponse = vault.Stats
