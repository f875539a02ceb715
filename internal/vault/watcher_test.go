package vault

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/vaultgraph/internal/testutil"
)

type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) record(kind, path string) {
	l.mu.Lock()
	l.events = append(l.events, kind+":"+path)
	l.mu.Unlock()
}

func (l *eventLog) has(e string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, got := range l.events {
		if got == e {
			return true
		}
	}
	return false
}

// openWatched opens a vault (after setup populates it) and starts its watcher.
func openWatched(t *testing.T, setup func(dir string)) (string, *Vault, *eventLog) {
	t.Helper()
	dir, store := testutil.TestVault(t)
	if setup != nil {
		setup(dir)
	}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	v, _, err := Open(context.Background(), store, newRecordingIndex(),
		WithLogger(logger), WithDebounce(20*time.Millisecond))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	log := &eventLog{}
	go func() {
		defer close(done)
		_ = v.Watch(ctx, log.record)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	time.Sleep(100 * time.Millisecond)
	return dir, v, log
}

func TestWatcher_NewFileIndexed(t *testing.T) {
	dir, v, log := openWatched(t, nil)

	testutil.WriteNote(t, dir, "new.md", "# New\n[[other]]")

	testutil.Eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		return v.Graph().Contains("new.md")
	}, "new file not indexed by watcher")
	testutil.Eventually(t, 2*time.Second, 20*time.Millisecond, func() bool {
		return log.has("created:new.md")
	}, "expected created:new.md callback")
}

func TestWatcher_ModifiedFileReindexed(t *testing.T) {
	dir, v, log := openWatched(t, func(dir string) {
		testutil.WriteNote(t, dir, "m.md", "[[a]]")
	})

	testutil.WriteNote(t, dir, "m.md", "[[b]]")

	testutil.Eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		out := v.Graph().OutgoingLinks("m.md")
		return len(out) == 1 && out[0] == "b"
	}, "modified file not reindexed")
	testutil.Eventually(t, 2*time.Second, 20*time.Millisecond, func() bool {
		return log.has("updated:m.md")
	}, "expected updated:m.md callback")
}

func TestWatcher_NewDirWatched(t *testing.T) {
	dir, v, _ := openWatched(t, nil)

	subDir := filepath.Join(dir, "subdir")
	if err := os.MkdirAll(subDir, 0o755); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)
	testutil.WriteNote(t, dir, "subdir/deep.md", "# Deep")

	testutil.Eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		return v.Graph().Contains("subdir/deep.md")
	}, "file in new subdir not indexed by watcher")
}

func TestWatcher_DeleteRemovesFromIndex(t *testing.T) {
	dir, v, log := openWatched(t, func(dir string) {
		testutil.WriteNote(t, dir, "del.md", "# Delete Me")
	})
	if !v.Graph().Contains("del.md") {
		t.Fatal("precondition: file should be indexed")
	}

	_ = os.Remove(filepath.Join(dir, "del.md"))

	testutil.Eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		return !v.Graph().Contains("del.md")
	}, "deleted file still in index")
	testutil.Eventually(t, 2*time.Second, 20*time.Millisecond, func() bool {
		return log.has("deleted:del.md")
	}, "expected deleted:del.md callback")
}

func TestWatcher_RenameReconciles(t *testing.T) {
	dir, v, _ := openWatched(t, func(dir string) {
		testutil.WriteNote(t, dir, "old.md", "# Rename")
	})

	_ = os.Rename(filepath.Join(dir, "old.md"), filepath.Join(dir, "renamed.md"))

	testutil.Eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		return !v.Graph().Contains("old.md") && v.Graph().Contains("renamed.md")
	}, "rename: old path should be removed and new path indexed")
}

func TestWatcher_DirectoryRenameReconciles(t *testing.T) {
	dir, v, _ := openWatched(t, func(dir string) {
		testutil.WriteNote(t, dir, "folder/inner.md", "x")
	})

	_ = os.Rename(filepath.Join(dir, "folder"), filepath.Join(dir, "moved"))

	testutil.Eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		return !v.Graph().Contains("folder/inner.md") && v.Graph().Contains("moved/inner.md")
	}, "directory rename not reconciled")
}

func TestWatcher_HiddenFilesIgnored(t *testing.T) {
	dir, v, log := openWatched(t, nil)

	testutil.WriteNote(t, dir, ".draft.md", "hidden")
	testutil.WriteNote(t, dir, "visible.md", "shown")

	testutil.Eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		return v.Graph().Contains("visible.md")
	}, "visible note not indexed")
	if v.Graph().Contains(".draft.md") || log.has("created:.draft.md") {
		t.Error("hidden note should be ignored")
	}
}

func TestSkipped(t *testing.T) {
	cases := map[string]bool{
		"a.md":            false,
		"dir/a.md":        false,
		".hidden.md":      true,
		".git/config":     true,
		"CVS/x.md":        true,
		"CVS.md":          false,
		"dir/.tmp-123":    true,
		"../outside.md":   true,
		".":               true,
		"_darcs/patch.md": true,
	}
	for in, want := range cases {
		if got := skipped(in); got != want {
			t.Errorf("skipped(%q) = %v, want %v", in, got, want)
		}
	}
}
