package vault

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/vaultgraph/internal/storage"
)

// Event kinds passed to an EventCallback.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// EventCallback is called after a watcher-driven index change.
type EventCallback func(kind string, path string)

// reconcileDelay is how long the watcher waits after a directory rename
// before comparing the index with the disk.
const reconcileDelay = 200 * time.Millisecond

// Watch follows file changes under the vault root until ctx is cancelled.
// Events are coalesced per path for the debounce window, then applied:
// existing notes are reindexed, vanished ones removed. cb (if non-nil) is
// called after each applied change.
//
// New directories are added to the watch list and their notes indexed.
// A rename or removal of anything other than a note (typically a directory)
// schedules a reconciliation pass that syncs the index with the notes on disk.
func (v *Vault) Watch(ctx context.Context, cb EventCallback) error {
	root := v.store.Root()
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("vault: watcher: %w", err)
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return fmt.Errorf("vault: watch %s: %w", root, err)
	}
	v.logger.Info("watcher: started", slog.String("root", root))

	pending := make(map[string]fsnotify.Op)
	var (
		flushTimer     *time.Timer
		flushCh        <-chan time.Time
		reconcileTimer *time.Timer
		reconcileCh    <-chan time.Time
	)
	schedule := func(t **time.Timer, ch *<-chan time.Time, d time.Duration) {
		if *t == nil {
			*t = time.NewTimer(d)
			*ch = (*t).C
			return
		}
		(*t).Reset(d)
	}

	for {
		select {
		case <-ctx.Done():
			if flushTimer != nil {
				flushTimer.Stop()
			}
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			v.logger.Info("watcher: stopped")
			return nil

		case <-flushCh:
			v.flush(ctx, pending, cb)
			pending = make(map[string]fsnotify.Op)

		case <-reconcileCh:
			v.reconcile(ctx, cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			rel, relErr := filepath.Rel(root, ev.Name)
			if relErr != nil || skipped(rel) {
				continue
			}
			rel = filepath.ToSlash(rel)

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if storage.SkipEntry(info.Name(), true) {
						continue
					}
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						v.logger.Warn("watcher: add new dir failed",
							slog.String("path", rel),
							slog.String("error", addErr.Error()))
					} else {
						v.logger.Debug("watcher: watching new dir", slog.String("path", rel))
					}
					v.indexDir(ctx, rel, cb)
					continue
				}
			}

			if !storage.IsNote(rel) {
				if ev.Op&(fsnotify.Rename|fsnotify.Remove) != 0 {
					schedule(&reconcileTimer, &reconcileCh, reconcileDelay)
				}
				continue
			}
			pending[rel] |= ev.Op
			schedule(&flushTimer, &flushCh, v.debounce)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			v.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// flush applies coalesced note events in path order.
func (v *Vault) flush(ctx context.Context, pending map[string]fsnotify.Op, cb EventCallback) {
	paths := make([]string, 0, len(pending))
	for p := range pending {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		if !v.store.Exists(p) {
			if !v.graph.Contains(p) {
				continue
			}
			if err := v.Remove(ctx, p); err != nil {
				v.logger.Warn("watcher: remove failed", slog.String("path", p), slog.String("error", err.Error()))
			}
			v.logger.Debug("watcher: removed", slog.String("path", p))
			notify(cb, EventDeleted, p)
			continue
		}

		kind := EventUpdated
		if pending[p]&fsnotify.Create != 0 || !v.graph.Contains(p) {
			kind = EventCreated
		}
		if err := v.Reindex(ctx, p); err != nil {
			v.logger.Warn("watcher: index failed", slog.String("path", p), slog.String("error", err.Error()))
			if !v.graph.Contains(p) {
				continue
			}
		}
		v.logger.Debug("watcher: indexed", slog.String("path", p), slog.String("op", kind))
		notify(cb, kind, p)
	}
}

// reconcile removes indexed notes that no longer exist on disk and indexes
// notes on disk that the graph does not know.
func (v *Vault) reconcile(ctx context.Context, cb EventCallback) {
	metas, err := v.store.List("")
	if err != nil {
		v.logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}
	for _, p := range v.dropMissing(ctx, metas) {
		notify(cb, EventDeleted, p)
	}

	for _, m := range metas {
		if v.graph.Contains(m.Path) {
			continue
		}
		if err := v.Reindex(ctx, m.Path); err != nil {
			v.logger.Warn("reconcile: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		}
		if v.graph.Contains(m.Path) {
			v.logger.Debug("reconcile: indexed new", slog.String("path", m.Path))
			notify(cb, EventCreated, m.Path)
		}
	}
}

// indexDir indexes the notes found in a newly created directory.
func (v *Vault) indexDir(ctx context.Context, dir string, cb EventCallback) {
	metas, err := v.store.List(dir)
	if err != nil {
		v.logger.Warn("watcher: list new dir failed", slog.String("path", dir), slog.String("error", err.Error()))
		return
	}
	for _, m := range metas {
		if err := v.Reindex(ctx, m.Path); err != nil {
			v.logger.Warn("watcher: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			if !v.graph.Contains(m.Path) {
				continue
			}
		}
		v.logger.Debug("watcher: indexed from new dir", slog.String("path", m.Path))
		notify(cb, EventCreated, m.Path)
	}
}

func notify(cb EventCallback, kind, path string) {
	if cb != nil {
		cb(kind, path)
	}
}

// skipped reports whether any component of a vault-relative path is excluded
// from indexing.
func skipped(rel string) bool {
	if rel == "." {
		return true
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	for i, part := range parts {
		if part == ".." || storage.SkipEntry(part, i < len(parts)-1) {
			return true
		}
	}
	return false
}

// addDirsRecursive adds root and all its non-skipped subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && storage.SkipEntry(d.Name(), true) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
