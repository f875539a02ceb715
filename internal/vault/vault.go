// Package vault orchestrates indexing of a Markdown vault: it reads notes
// from storage, parses them, and keeps the link graph and the search index
// up to date.
package vault

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/vaultgraph/internal/linkgraph"
	"github.com/starford/vaultgraph/internal/models"
	"github.com/starford/vaultgraph/internal/parser"
	"github.com/starford/vaultgraph/internal/search"
	"github.com/starford/vaultgraph/internal/storage"
)

// Option configures a Vault.
type Option func(*Vault)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(v *Vault) { v.logger = l }
}

// WithWorkers bounds the number of files read and parsed concurrently during
// a full index. Values below one fall back to GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(v *Vault) { v.workers = n }
}

// WithDebounce sets the quiet period the watcher waits for before applying
// a burst of file events.
func WithDebounce(d time.Duration) Option {
	return func(v *Vault) { v.debounce = d }
}

// Vault is an open vault: storage, link graph, and search index.
type Vault struct {
	store    storage.Provider
	index    search.Index
	graph    *linkgraph.Graph
	logger   *slog.Logger
	workers  int
	debounce time.Duration
}

// Stats summarizes one full index pass.
type Stats struct {
	Notes          int           `json:"notes"`
	Indexed        int           `json:"indexed"`
	ReadFailures   int           `json:"read_failures"`
	Removed        int           `json:"removed"`
	SearchFailures int           `json:"search_failures"`
	Duration       time.Duration `json:"duration"`
}

// Open builds a vault over store and index and runs a full index.
// On error the search index is left open; the caller owns it.
func Open(ctx context.Context, store storage.Provider, index search.Index, opts ...Option) (*Vault, Stats, error) {
	v := &Vault{
		store:    store,
		index:    index,
		graph:    linkgraph.New(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		debounce: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.workers < 1 {
		v.workers = runtime.GOMAXPROCS(0)
	}

	stats, err := v.IndexAll(ctx)
	if err != nil {
		return nil, stats, err
	}
	return v, stats, nil
}

// Close releases the search index.
func (v *Vault) Close() error {
	return v.index.Close()
}

// Graph returns the link graph. It is safe for concurrent use.
func (v *Vault) Graph() *linkgraph.Graph { return v.graph }

// Storage returns the storage provider the vault indexes.
func (v *Vault) Storage() storage.Provider { return v.store }

// Search runs a full-text query against the search index.
func (v *Vault) Search(ctx context.Context, text string, limit int) ([]models.SearchResult, error) {
	res, err := v.index.Query(ctx, text, limit)
	if err != nil {
		return nil, fmt.Errorf("vault: search: %w", err)
	}
	return res, nil
}

type parsed struct {
	path string
	text string
	res  *parser.Result
	err  error
}

// IndexAll indexes every note in the vault. Files are read and parsed
// concurrently, then applied in listing order so that name collisions resolve
// the same way on every run. Indexed notes whose files are no longer listed
// are removed afterwards. Read and search failures are logged and counted;
// only a failed listing or a cancelled ctx is returned as an error.
func (v *Vault) IndexAll(ctx context.Context) (Stats, error) {
	start := time.Now()
	metas, err := v.store.List("")
	if err != nil {
		return Stats{}, fmt.Errorf("vault: list: %w", err)
	}
	stats := Stats{Notes: len(metas)}

	results := make([]parsed, len(metas))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(v.workers)
	for i, m := range metas {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			text, err := v.store.Read(m.Path)
			if err != nil {
				results[i] = parsed{path: m.Path, err: err}
				return nil
			}
			results[i] = parsed{path: m.Path, text: text, res: parser.Parse(text)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, fmt.Errorf("vault: index: %w", err)
	}

	for _, p := range results {
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("vault: index: %w", err)
		}
		if p.err != nil {
			stats.ReadFailures++
			v.logger.Warn("index: read failed", slog.String("path", p.path), slog.String("error", p.err.Error()))
			continue
		}
		stats.Indexed++
		if err := v.apply(ctx, p.path, p.text, p.res); err != nil {
			stats.SearchFailures++
			v.logger.Warn("index: search upsert failed", slog.String("path", p.path), slog.String("error", err.Error()))
		}
	}
	stats.Removed = len(v.dropMissing(ctx, metas))

	stats.Duration = time.Since(start)
	v.logger.Info("index: complete",
		slog.Int("notes", stats.Notes),
		slog.Int("indexed", stats.Indexed),
		slog.Int("read_failures", stats.ReadFailures),
		slog.Int("search_failures", stats.SearchFailures),
		slog.Int("removed", stats.Removed),
		slog.Duration("duration", stats.Duration))
	return stats, nil
}

// dropMissing removes every indexed note that is not in metas and returns
// the paths it removed.
func (v *Vault) dropMissing(ctx context.Context, metas []models.NoteMetadata) []string {
	listed := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		listed[m.Path] = struct{}{}
	}
	var removed []string
	for _, p := range v.graph.Paths() {
		if _, ok := listed[p]; ok {
			continue
		}
		if err := v.Remove(ctx, p); err != nil {
			v.logger.Warn("index: remove stale failed", slog.String("path", p), slog.String("error", err.Error()))
		}
		v.logger.Debug("index: removed stale", slog.String("path", p))
		removed = append(removed, p)
	}
	return removed
}

// Reindex re-reads and re-indexes a single note. The link graph is updated
// even when the search upsert fails; that failure is still returned.
func (v *Vault) Reindex(ctx context.Context, path string) error {
	text, err := v.store.Read(path)
	if err != nil {
		return fmt.Errorf("vault: reindex %s: %w", path, err)
	}
	if err := v.apply(ctx, path, text, parser.Parse(text)); err != nil {
		return fmt.Errorf("vault: reindex %s: %w", path, err)
	}
	return nil
}

// Remove drops a note from the link graph and the search index.
func (v *Vault) Remove(ctx context.Context, path string) error {
	v.graph.RemoveNote(path)
	if err := v.index.Remove(ctx, path); err != nil {
		return fmt.Errorf("vault: remove %s: %w", path, err)
	}
	return nil
}

// apply registers the note and its links, then upserts the search document.
func (v *Vault) apply(ctx context.Context, path, text string, res *parser.Result) error {
	if displaced := v.graph.RegisterNote(path); displaced != "" {
		v.logger.Debug("index: name collision",
			slog.String("name", parser.NoteName(path)),
			slog.String("path", path),
			slog.String("displaced", displaced))
	}
	v.graph.UpdateLinks(path, res.Links)

	return v.index.Upsert(ctx, search.Document{
		Path:  path,
		Title: res.Title(path),
		Body:  strings.TrimSpace(parser.Body(text)),
		Tags:  res.Tags,
	})
}
