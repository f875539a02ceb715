package search

import (
	"context"

	"github.com/starford/vaultgraph/internal/models"
)

// DefaultLimit caps a query when the caller passes a non-positive limit.
const DefaultLimit = 20

// Document is one note as seen by the search index.
type Document struct {
	Path  string
	Title string
	Body  string
	Tags  []string
}

// Index is the full-text search collaborator of a vault.
// Consumers depend on this interface rather than on *Store so tests can
// substitute fakes.
type Index interface {
	// Upsert replaces any document stored under doc.Path.
	Upsert(ctx context.Context, doc Document) error
	Remove(ctx context.Context, path string) error
	Query(ctx context.Context, text string, limit int) ([]models.SearchResult, error)
	Close() error
}

var _ Index = (*Store)(nil)
