// Package noteservice implements note CRUD and graph queries over an open vault.
// It is the single entry point used by the HTTP and MCP transports.
package noteservice

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/starford/vaultgraph/internal/apperr"
	"github.com/starford/vaultgraph/internal/checksum"
	"github.com/starford/vaultgraph/internal/models"
	"github.com/starford/vaultgraph/internal/parser"
	"github.com/starford/vaultgraph/internal/storage"
	"github.com/starford/vaultgraph/internal/vault"
)

// DefaultLocalDepth is the local graph depth used when a caller passes a negative depth.
const DefaultLocalDepth = 2

// NoteDetail is the full representation of a note.
type NoteDetail struct {
	Path        string            `json:"path"`
	Name        string            `json:"name"`
	Title       string            `json:"title"`
	Content     string            `json:"content"`
	Checksum    string            `json:"checksum"`
	Tags        []string          `json:"tags"`
	Frontmatter map[string]string `json:"frontmatter"`
	Links       []string          `json:"links"`
	Backlinks   []string          `json:"backlinks"`
}

// Option configures a Service.
type Option func(*Service)

// WithLocalDepth sets the default local graph depth.
func WithLocalDepth(depth int) Option {
	return func(s *Service) { s.localDepth = depth }
}

// WithSearchLimit sets the result limit used when a search passes none.
func WithSearchLimit(limit int) Option {
	return func(s *Service) { s.searchLimit = limit }
}

// WithNotifier registers a callback invoked after every successful mutation.
// kind is one of vault.EventCreated, vault.EventUpdated, vault.EventDeleted.
func WithNotifier(fn vault.EventCallback) Option {
	return func(s *Service) { s.notify = fn }
}

// WithLogger sets the logger used for failures that do not fail the request.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// Service coordinates storage writes with vault indexing.
type Service struct {
	vault       *vault.Vault
	store       storage.Provider
	localDepth  int
	searchLimit int
	notify      vault.EventCallback
	logger      *slog.Logger
}

// NewService creates a note service over an open vault.
func NewService(v *vault.Vault, opts ...Option) *Service {
	s := &Service{
		vault:      v,
		store:      v.Storage(),
		localDepth: DefaultLocalDepth,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetNote reads and parses a note and attaches its backlinks.
func (s *Service) GetNote(_ context.Context, notePath string) (*NoteDetail, error) {
	if err := validNotePath(notePath); err != nil {
		return nil, err
	}
	text, err := s.store.Read(notePath)
	if err != nil {
		return nil, err
	}
	return s.detail(notePath, text), nil
}

// CreateNote writes a new note and indexes it. Empty content is replaced by a
// heading with the note name.
func (s *Service) CreateNote(ctx context.Context, notePath, content string) (*NoteDetail, error) {
	if err := validNotePath(notePath); err != nil {
		return nil, err
	}
	if s.store.Exists(notePath) {
		return nil, fmt.Errorf("noteservice: create %s: %w", notePath, apperr.ErrAlreadyExists)
	}
	if content == "" {
		content = "# " + parser.NoteName(notePath) + "\n\n"
	}
	if err := s.store.Write(notePath, []byte(content)); err != nil {
		return nil, err
	}
	s.reindex(ctx, notePath)
	s.emit(vault.EventCreated, notePath)
	return s.detail(notePath, content), nil
}

// UpdateNote replaces the content of an existing note. A non-empty ifMatch
// must equal the checksum of the current content.
func (s *Service) UpdateNote(ctx context.Context, notePath, content, ifMatch string) (*NoteDetail, error) {
	if err := validNotePath(notePath); err != nil {
		return nil, err
	}
	existing, err := s.store.Read(notePath)
	if err != nil {
		return nil, err
	}
	if !checksum.Matches([]byte(existing), ifMatch) {
		return nil, fmt.Errorf("noteservice: update %s: %w", notePath, apperr.ErrConflict)
	}
	if err := s.store.Write(notePath, []byte(content)); err != nil {
		return nil, err
	}
	s.reindex(ctx, notePath)
	s.emit(vault.EventUpdated, notePath)
	return s.detail(notePath, content), nil
}

// DeleteNote removes a note from disk, the link graph and the search index.
func (s *Service) DeleteNote(ctx context.Context, notePath string) error {
	if err := validNotePath(notePath); err != nil {
		return err
	}
	if err := s.store.Delete(notePath); err != nil {
		return err
	}
	if err := s.vault.Remove(ctx, notePath); err != nil {
		s.logger.Warn("noteservice: remove from index failed", slog.String("path", notePath), slog.String("error", err.Error()))
	}
	s.emit(vault.EventDeleted, notePath)
	return nil
}

// RenameNote moves a note and re-indexes it under its new path. Links in
// other notes are not rewritten.
func (s *Service) RenameNote(ctx context.Context, oldPath, newPath string) (*NoteDetail, error) {
	if err := validNotePath(oldPath); err != nil {
		return nil, err
	}
	if err := validNotePath(newPath); err != nil {
		return nil, err
	}
	if err := s.store.Move(oldPath, newPath); err != nil {
		return nil, err
	}
	if err := s.vault.Remove(ctx, oldPath); err != nil {
		s.logger.Warn("noteservice: remove old path failed", slog.String("path", oldPath), slog.String("error", err.Error()))
	}
	s.emit(vault.EventDeleted, oldPath)

	text, err := s.store.Read(newPath)
	if err != nil {
		return nil, err
	}
	s.reindex(ctx, newPath)
	s.emit(vault.EventCreated, newPath)
	return s.detail(newPath, text), nil
}

// ListNotes returns a page of note metadata sorted by path, and the total count.
// A non-positive limit returns everything after offset.
func (s *Service) ListNotes(_ context.Context, limit, offset int) ([]models.NoteMetadata, int, error) {
	items, err := s.store.List("")
	if err != nil {
		return nil, 0, err
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Path < items[j].Path })
	total := len(items)
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items, total, nil
}

// Search runs a full-text query.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]models.SearchResult, error) {
	if limit <= 0 {
		limit = s.searchLimit
	}
	return s.vault.Search(ctx, query, limit)
}

// Graph returns the whole link graph.
func (s *Service) Graph(_ context.Context) models.GraphData {
	return s.vault.Graph().GraphData()
}

// LocalGraph returns the neighborhood of a note. A negative depth selects the
// configured default.
func (s *Service) LocalGraph(_ context.Context, notePath string, depth int) models.GraphData {
	if depth < 0 {
		depth = s.localDepth
	}
	return s.vault.Graph().LocalGraph(notePath, depth)
}

// Backlinks returns the paths of notes linking to notePath.
func (s *Service) Backlinks(_ context.Context, notePath string) []string {
	return s.vault.Graph().Backlinks(notePath)
}

// NoteNames returns every resolvable note name.
func (s *Service) NoteNames(_ context.Context) []string {
	return s.vault.Graph().NoteNames()
}

// ResolveLink maps a wikilink target to a note path.
func (s *Service) ResolveLink(_ context.Context, name string) (string, bool) {
	return s.vault.Graph().Resolve(strings.TrimSpace(name))
}

// Clusters returns the connected groups of notes.
func (s *Service) Clusters(_ context.Context) []models.Cluster {
	return s.vault.Graph().Clusters()
}

// Orphans returns notes without incoming or outgoing links.
func (s *Service) Orphans(_ context.Context) []string {
	return s.vault.Graph().Orphans()
}

// Reindex re-reads one note from disk.
func (s *Service) Reindex(ctx context.Context, notePath string) error {
	if err := validNotePath(notePath); err != nil {
		return err
	}
	if err := s.vault.Reindex(ctx, notePath); err != nil {
		return err
	}
	s.emit(vault.EventUpdated, notePath)
	return nil
}

// IndexAll rebuilds the index from every note on disk.
func (s *Service) IndexAll(ctx context.Context) (vault.Stats, error) {
	return s.vault.IndexAll(ctx)
}

// reindex indexes a note that was just written. The write has already
// succeeded, so an indexing failure is logged rather than returned.
func (s *Service) reindex(ctx context.Context, notePath string) {
	if err := s.vault.Reindex(ctx, notePath); err != nil {
		s.logger.Warn("noteservice: reindex failed", slog.String("path", notePath), slog.String("error", err.Error()))
	}
}

func (s *Service) emit(kind, notePath string) {
	if s.notify != nil {
		s.notify(kind, notePath)
	}
}

func (s *Service) detail(notePath, text string) *NoteDetail {
	res := parser.Parse(text)
	return &NoteDetail{
		Path:        notePath,
		Name:        parser.NoteName(notePath),
		Title:       res.Title(notePath),
		Content:     text,
		Checksum:    checksum.Sum([]byte(text)),
		Tags:        res.Tags,
		Frontmatter: res.Frontmatter,
		Links:       res.Links,
		Backlinks:   s.vault.Graph().Backlinks(notePath),
	}
}

// validNotePath accepts clean, relative, forward-slash paths to visible note files.
func validNotePath(p string) error {
	if p == "" || strings.HasPrefix(p, "/") || strings.Contains(p, `\`) || path.Clean(p) != p {
		return fmt.Errorf("noteservice: %q: %w", p, apperr.ErrInvalidPath)
	}
	if !storage.IsNote(p) {
		return fmt.Errorf("noteservice: %q is not a markdown file: %w", p, apperr.ErrInvalidPath)
	}
	parts := strings.Split(p, "/")
	for i, part := range parts {
		if part == ".." || storage.SkipEntry(part, i < len(parts)-1) {
			return fmt.Errorf("noteservice: %q: %w", p, apperr.ErrInvalidPath)
		}
	}
	return nil
}
