package linkgraph

import (
	"reflect"
	"sort"
	"testing"

	"github.com/starford/vaultgraph/internal/models"
)

// chain: a → b → c → d, plus e → b and a dangling link from d.
func chainGraph(t *testing.T) *Graph {
	t.Helper()
	return build(t, map[string][]string{
		"a.md": {"b"},
		"b.md": {"c"},
		"c.md": {"d"},
		"d.md": {"ghost"},
		"e.md": {"b"},
		"f.md": {},
	})
}

func TestLocalGraph_DepthZero(t *testing.T) {
	g := chainGraph(t)
	d := g.LocalGraph("b.md", 0)
	if ids := nodeIDs(d); !reflect.DeepEqual(ids, []string{"b"}) {
		t.Errorf("nodes = %v, want [b]", ids)
	}
	if len(d.Edges) != 0 {
		t.Errorf("edges = %v, want none", d.Edges)
	}
}

func TestLocalGraph_DepthOneBothDirections(t *testing.T) {
	g := chainGraph(t)
	d := g.LocalGraph("b.md", 1)
	if ids := nodeIDs(d); !reflect.DeepEqual(ids, []string{"a", "b", "c", "e"}) {
		t.Errorf("nodes = %v", ids)
	}
	want := []models.GraphEdge{
		{Source: "a", Target: "b"},
		{Source: "b", Target: "c"},
		{Source: "e", Target: "b"},
	}
	if !reflect.DeepEqual(d.Edges, want) {
		t.Errorf("edges = %v, want %v", d.Edges, want)
	}
	b, _ := nodeByID(d, "b")
	if b.BacklinkCount != 2 {
		t.Errorf("b backlink_count = %d, want 2", b.BacklinkCount)
	}
}

func TestLocalGraph_DanglingTargetIncluded(t *testing.T) {
	g := chainGraph(t)
	d := g.LocalGraph("d.md", 1)
	ghost, ok := nodeByID(d, "ghost")
	if !ok {
		t.Fatalf("ghost node missing: %v", nodeIDs(d))
	}
	if ghost.Path != "ghost.md" {
		t.Errorf("ghost path = %q", ghost.Path)
	}
}

func TestLocalGraph_EdgesDeduplicatedAndSorted(t *testing.T) {
	g := build(t, map[string][]string{
		"a.md": {"b", "b"},
		"b.md": {"a"},
	})
	d := g.LocalGraph("a.md", 3)
	want := []models.GraphEdge{
		{Source: "a", Target: "b"},
		{Source: "b", Target: "a"},
	}
	if !reflect.DeepEqual(d.Edges, want) {
		t.Errorf("edges = %v, want %v", d.Edges, want)
	}
}

func TestLocalGraph_EdgeEndpointsAreNodes(t *testing.T) {
	g := chainGraph(t)
	for depth := 0; depth <= 4; depth++ {
		d := g.LocalGraph("c.md", depth)
		ids := make(map[string]bool)
		for _, n := range d.Nodes {
			ids[n.ID] = true
		}
		for _, e := range d.Edges {
			if !ids[e.Source] || !ids[e.Target] {
				t.Errorf("depth %d: edge %v has endpoint outside node set %v", depth, e, nodeIDs(d))
			}
		}
	}
}

func TestLocalGraph_MonotonicInDepth(t *testing.T) {
	// A shortcut a → d makes d reachable at distance 1 and via the long way at 3.
	g := build(t, map[string][]string{
		"a.md": {"b", "d"},
		"b.md": {"c"},
		"c.md": {"d"},
		"d.md": {"x"},
		"x.md": {"y"},
	})
	prev := []string{}
	for depth := 0; depth <= 5; depth++ {
		ids := nodeIDs(g.LocalGraph("a.md", depth))
		for _, p := range prev {
			i := sort.SearchStrings(ids, p)
			if i >= len(ids) || ids[i] != p {
				t.Errorf("depth %d lost node %q (had %v, now %v)", depth, p, prev, ids)
			}
		}
		prev = ids
	}
	if ids := nodeIDs(g.LocalGraph("a.md", 2)); !reflect.DeepEqual(ids, []string{"a", "b", "c", "d", "x"}) {
		t.Errorf("depth 2 nodes = %v", ids)
	}
}

func TestLocalGraph_UnknownNote(t *testing.T) {
	g := chainGraph(t)
	d := g.LocalGraph("nowhere.md", 2)
	if ids := nodeIDs(d); !reflect.DeepEqual(ids, []string{"nowhere"}) {
		t.Errorf("nodes = %v, want [nowhere]", ids)
	}
	if len(d.Edges) != 0 {
		t.Errorf("edges = %v", d.Edges)
	}
}

func TestLocalGraph_NegativeDepthTreatedAsZero(t *testing.T) {
	g := chainGraph(t)
	if d := g.LocalGraph("a.md", -3); len(d.Nodes) != 1 || len(d.Edges) != 0 {
		t.Errorf("got %+v", d)
	}
}
