//go:build sqlite_fts5

package search

import (
	"context"
	"testing"
)

func TestFTS5_TableExists(t *testing.T) {
	s := testStore(t)
	var count int
	if err := s.writer.QueryRow(`SELECT count(*) FROM documents_fts`).Scan(&count); err != nil {
		t.Fatalf("documents_fts table missing: %v", err)
	}
}

func TestFTS5_RanksDenserMatchFirst(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	_ = s.Upsert(ctx, Document{Path: "sparse.md", Body: "kiwi among many other unrelated words in a long sentence about fruit"})
	_ = s.Upsert(ctx, Document{Path: "dense.md", Title: "Kiwi", Body: "kiwi kiwi"})

	res, err := s.Query(ctx, "kiwi", 10)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(res) != 2 || res[0].Path != "dense.md" {
		t.Fatalf("results = %+v", res)
	}
	if res[0].Score < res[1].Score {
		t.Errorf("scores not descending: %v < %v", res[0].Score, res[1].Score)
	}
}

func TestFTS5_DiacriticsRemoved(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	_ = s.Upsert(ctx, Document{Path: "cafe.md", Body: "un café noir"})
	if got := paths(t, s, "cafe"); len(got) != 1 {
		t.Errorf("got %v, want cafe.md", got)
	}
}

func TestMatchExpr(t *testing.T) {
	got := matchExpr([]string{"a", `b"c`})
	if got != `"a" "b""c"` {
		t.Errorf("matchExpr = %s", got)
	}
}

func TestMatchExpr_DropsPunctuationOnlyTerms(t *testing.T) {
	if got := matchExpr([]string{"(", "*", "ok"}); got != `"ok"` {
		t.Errorf("matchExpr = %s", got)
	}
	if got := matchExpr([]string{"--"}); got != "" {
		t.Errorf("matchExpr = %s, want empty", got)
	}
}
