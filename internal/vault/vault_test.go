package vault

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"github.com/starford/vaultgraph/internal/apperr"
	"github.com/starford/vaultgraph/internal/models"
	"github.com/starford/vaultgraph/internal/search"
	"github.com/starford/vaultgraph/internal/storage"
	"github.com/starford/vaultgraph/internal/testutil"
)

// recordingIndex is an in-memory search.Index that can be told to fail upserts.
type recordingIndex struct {
	mu         sync.Mutex
	docs       map[string]search.Document
	failUpsert bool
	closed     bool
}

func newRecordingIndex() *recordingIndex {
	return &recordingIndex{docs: make(map[string]search.Document)}
}

func (r *recordingIndex) Upsert(_ context.Context, doc search.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failUpsert {
		return errors.New("upsert refused")
	}
	r.docs[doc.Path] = doc
	return nil
}

func (r *recordingIndex) Remove(_ context.Context, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.docs, path)
	return nil
}

func (r *recordingIndex) Query(context.Context, string, int) ([]models.SearchResult, error) {
	return []models.SearchResult{}, nil
}

func (r *recordingIndex) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *recordingIndex) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// flakyStore is a storage.Provider whose Read fails for selected paths.
type flakyStore struct {
	storage.Provider
	fail map[string]bool
}

func (f *flakyStore) Read(path string) (string, error) {
	if f.fail[path] {
		return "", errors.New("read refused")
	}
	return f.Provider.Read(path)
}

func (r *recordingIndex) doc(path string) (search.Document, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.docs[path]
	return d, ok
}

func TestOpen_IndexesVault(t *testing.T) {
	dir, store := testutil.TestVault(t)
	testutil.WriteNote(t, dir, "a.md", "Links to [[b]] and [[sub/c.markdown]].")
	testutil.WriteNote(t, dir, "b.md", "# B\n\nback to [[a|A]]")
	testutil.WriteNote(t, dir, "sub/c.markdown", "leaf")
	testutil.WriteNote(t, dir, ".hidden/x.md", "[[b]]")
	testutil.WriteNote(t, dir, "notes.txt", "[[b]]")

	idx := testutil.TestSearch(t)
	v, stats, err := Open(context.Background(), store, idx, WithWorkers(2))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if stats.Notes != 3 || stats.Indexed != 3 || stats.ReadFailures != 0 || stats.SearchFailures != 0 {
		t.Errorf("stats = %+v", stats)
	}

	g := v.Graph()
	if got := g.NoteNames(); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("names = %v", got)
	}
	if got := g.Backlinks("b.md"); !reflect.DeepEqual(got, []string{"a.md"}) {
		t.Errorf("backlinks(b) = %v", got)
	}
	if got := g.Backlinks("sub/c.markdown"); !reflect.DeepEqual(got, []string{"a.md"}) {
		t.Errorf("backlinks(c) = %v", got)
	}

	res, err := v.Search(context.Background(), "leaf", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res) != 1 || res[0].Path != "sub/c.markdown" {
		t.Errorf("search = %+v", res)
	}
}

func TestOpen_SearchDocument(t *testing.T) {
	dir, store := testutil.TestVault(t)
	testutil.WriteNote(t, dir, "n.md", "---\ntitle: Custom\ntags: [x]\n---\n\nBody text #y\n")
	testutil.WriteNote(t, dir, "plain.md", "no front matter")

	idx := newRecordingIndex()
	if _, _, err := Open(context.Background(), store, idx); err != nil {
		t.Fatalf("Open: %v", err)
	}
	d, ok := idx.doc("n.md")
	if !ok {
		t.Fatal("n.md not upserted")
	}
	if d.Title != "Custom" || d.Body != "Body text #y" || !reflect.DeepEqual(d.Tags, []string{"x", "y"}) {
		t.Errorf("doc = %+v", d)
	}
	if d, _ := idx.doc("plain.md"); d.Title != "plain" {
		t.Errorf("fallback title = %q, want plain", d.Title)
	}
}

func TestIndexAll_NameCollisionIsDeterministic(t *testing.T) {
	dir, store := testutil.TestVault(t)
	testutil.WriteNote(t, dir, "one/same.md", "first")
	testutil.WriteNote(t, dir, "two/same.md", "second")
	testutil.WriteNote(t, dir, "three/same.md", "third")

	for i := 0; i < 5; i++ {
		v, _, err := Open(context.Background(), store, newRecordingIndex(), WithWorkers(3))
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		// Listing order is lexical, so two/ is applied last.
		if p, _ := v.Graph().Resolve("same"); p != "two/same.md" {
			t.Fatalf("run %d: Resolve(same) = %q, want two/same.md", i, p)
		}
	}
}

func TestIndexAll_SearchFailureKeepsGraph(t *testing.T) {
	dir, store := testutil.TestVault(t)
	testutil.WriteNote(t, dir, "a.md", "[[b]]")
	testutil.WriteNote(t, dir, "b.md", "")

	idx := newRecordingIndex()
	idx.failUpsert = true
	v, stats, err := Open(context.Background(), store, idx)
	if err != nil {
		t.Fatalf("Open should swallow search failures: %v", err)
	}
	if stats.SearchFailures != 2 || stats.Indexed != 2 {
		t.Errorf("stats = %+v", stats)
	}
	if got := v.Graph().Backlinks("b.md"); !reflect.DeepEqual(got, []string{"a.md"}) {
		t.Errorf("graph not applied: backlinks = %v", got)
	}
}

func TestIndexAll_ReadFailureSkipsFile(t *testing.T) {
	dir, store := testutil.TestVault(t)
	testutil.WriteNote(t, dir, "a.md", "[[c]]")
	testutil.WriteNote(t, dir, "bad.md", "[[c]]")
	testutil.WriteNote(t, dir, "c.md", "")

	idx := newRecordingIndex()
	flaky := &flakyStore{Provider: store, fail: map[string]bool{"bad.md": true}}
	v, stats, err := Open(context.Background(), flaky, idx)
	if err != nil {
		t.Fatalf("Open should skip unreadable files: %v", err)
	}
	if stats.Notes != 3 || stats.Indexed != 2 || stats.ReadFailures != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if got := v.Graph().Paths(); !reflect.DeepEqual(got, []string{"a.md", "c.md"}) {
		t.Errorf("paths = %v", got)
	}
	if got := v.Graph().Backlinks("c.md"); !reflect.DeepEqual(got, []string{"a.md"}) {
		t.Errorf("backlinks(c) = %v", got)
	}
	if _, ok := idx.doc("bad.md"); ok {
		t.Error("unreadable file reached the search index")
	}
}

func TestIndexAll_DropsDeletedNotes(t *testing.T) {
	dir, store := testutil.TestVault(t)
	testutil.WriteNote(t, dir, "a.md", "[[b]]")
	testutil.WriteNote(t, dir, "b.md", "")

	idx := newRecordingIndex()
	v, _, err := Open(context.Background(), store, idx)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(dir, "a.md")); err != nil {
		t.Fatal(err)
	}

	stats, err := v.IndexAll(context.Background())
	if err != nil {
		t.Fatalf("IndexAll: %v", err)
	}
	if stats.Notes != 1 || stats.Indexed != 1 || stats.Removed != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if got := v.Graph().Paths(); !reflect.DeepEqual(got, []string{"b.md"}) {
		t.Errorf("paths = %v", got)
	}
	if got := v.Graph().Backlinks("b.md"); len(got) != 0 {
		t.Errorf("backlinks(b) = %v", got)
	}
	if _, ok := v.Graph().Resolve("a"); ok {
		t.Error("deleted note still resolves")
	}
	if _, ok := idx.doc("a.md"); ok {
		t.Error("deleted note still in search index")
	}
}

func TestIndexAll_Cancelled(t *testing.T) {
	dir, store := testutil.TestVault(t)
	testutil.WriteNote(t, dir, "a.md", "x")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := Open(ctx, store, newRecordingIndex()); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestOpen_MissingRoot(t *testing.T) {
	dir, store := testutil.TestVault(t)
	testutil.WriteNote(t, dir, "a.md", "x")
	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}
	if _, _, err := Open(context.Background(), store, newRecordingIndex()); err == nil {
		t.Error("expected error when the vault root is gone")
	}
}

func TestReindex(t *testing.T) {
	dir, store := testutil.TestVault(t)
	testutil.WriteNote(t, dir, "a.md", "[[b]]")
	testutil.WriteNote(t, dir, "b.md", "")

	idx := newRecordingIndex()
	v, _, err := Open(context.Background(), store, idx)
	if err != nil {
		t.Fatal(err)
	}

	testutil.WriteNote(t, dir, "a.md", "now [[c]]")
	if err := v.Reindex(context.Background(), "a.md"); err != nil {
		t.Fatalf("Reindex: %v", err)
	}
	if got := v.Graph().Backlinks("b.md"); len(got) != 0 {
		t.Errorf("stale backlink: %v", got)
	}
	if got := v.Graph().OutgoingLinks("a.md"); !reflect.DeepEqual(got, []string{"c"}) {
		t.Errorf("outgoing = %v", got)
	}
	if d, _ := idx.doc("a.md"); d.Body != "now [[c]]" {
		t.Errorf("search body = %q", d.Body)
	}
}

func TestReindex_MissingFile(t *testing.T) {
	_, store := testutil.TestVault(t)
	v, _, err := Open(context.Background(), store, newRecordingIndex())
	if err != nil {
		t.Fatal(err)
	}
	err = v.Reindex(context.Background(), "ghost.md")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if v.Graph().Contains("ghost.md") {
		t.Error("missing file should not be indexed")
	}
}

func TestReindex_SearchFailureReturnedAfterGraphUpdate(t *testing.T) {
	dir, store := testutil.TestVault(t)
	testutil.WriteNote(t, dir, "a.md", "[[b]]")

	idx := newRecordingIndex()
	v, _, err := Open(context.Background(), store, idx)
	if err != nil {
		t.Fatal(err)
	}
	idx.failUpsert = true
	testutil.WriteNote(t, dir, "a.md", "[[c]]")
	if err := v.Reindex(context.Background(), "a.md"); err == nil {
		t.Fatal("expected search failure to be returned")
	}
	if got := v.Graph().OutgoingLinks("a.md"); !reflect.DeepEqual(got, []string{"c"}) {
		t.Errorf("graph not updated: %v", got)
	}
}

func TestRemove(t *testing.T) {
	dir, store := testutil.TestVault(t)
	testutil.WriteNote(t, dir, "a.md", "[[b]]")
	testutil.WriteNote(t, dir, "b.md", "")

	idx := newRecordingIndex()
	v, _, err := Open(context.Background(), store, idx)
	if err != nil {
		t.Fatal(err)
	}
	if err := v.Remove(context.Background(), "a.md"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, ok := v.Graph().Resolve("a"); ok {
		t.Error("a still resolves")
	}
	if got := v.Graph().Backlinks("b.md"); len(got) != 0 {
		t.Errorf("backlinks = %v", got)
	}
	if _, ok := idx.doc("a.md"); ok {
		t.Error("a.md still in search index")
	}
}

func TestClose(t *testing.T) {
	_, store := testutil.TestVault(t)
	idx := newRecordingIndex()
	v, _, err := Open(context.Background(), store, idx)
	if err != nil {
		t.Fatal(err)
	}
	if err := v.Close(); err != nil || !idx.isClosed() {
		t.Errorf("Close: err=%v closed=%v", err, idx.isClosed())
	}
}
