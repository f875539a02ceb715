// Package linkgraph maintains the in-memory wikilink graph of a vault.
//
// The graph stores only outgoing link targets per note and a name → path
// resolution table. Backlinks are computed on demand by scanning outgoing
// targets, so there is no reverse index to keep consistent.
package linkgraph

import (
	"sort"
	"sync"

	"github.com/starford/vaultgraph/internal/models"
	"github.com/starford/vaultgraph/internal/parser"
)

// Graph is a concurrency-safe directed link graph keyed by note path.
//
// Locking: outgoing and names are guarded by independent RW locks. Operations
// that need both acquire outMu before namesMu and hold them for the whole call.
type Graph struct {
	outMu    sync.RWMutex
	outgoing map[string][]string // note path → raw link targets

	namesMu    sync.RWMutex
	nameToPath map[string]string // note name → note path, last writer wins
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		outgoing:   make(map[string][]string),
		nameToPath: make(map[string]string),
	}
}

// RegisterNote records path as the resolution target of its name. A later
// registration of a different path with the same name replaces the mapping.
// It reports the path that was displaced, if any.
func (g *Graph) RegisterNote(path string) (displaced string) {
	name := parser.NoteName(path)
	g.namesMu.Lock()
	defer g.namesMu.Unlock()
	if prev, ok := g.nameToPath[name]; ok && prev != path {
		displaced = prev
	}
	g.nameToPath[name] = path
	return displaced
}

// UpdateLinks replaces the outgoing targets of path.
func (g *Graph) UpdateLinks(path string, targets []string) {
	cp := make([]string, len(targets))
	copy(cp, targets)
	g.outMu.Lock()
	g.outgoing[path] = cp
	g.outMu.Unlock()
}

// RemoveNote drops the outgoing entry of path and the name mapping for its
// derived name, even when that mapping now points at another path.
func (g *Graph) RemoveNote(path string) {
	name := parser.NoteName(path)
	g.outMu.Lock()
	defer g.outMu.Unlock()
	g.namesMu.Lock()
	defer g.namesMu.Unlock()

	delete(g.outgoing, path)
	delete(g.nameToPath, name)
}

// Backlinks returns the paths of notes whose targets include the name or the
// literal path of the given note. The result is sorted and never nil.
func (g *Graph) Backlinks(path string) []string {
	name := parser.NoteName(path)
	g.outMu.RLock()
	defer g.outMu.RUnlock()

	out := []string{}
	for source, targets := range g.outgoing {
		for _, t := range targets {
			if t == name || t == path {
				out = append(out, source)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

// OutgoingLinks returns a copy of the raw targets of path.
func (g *Graph) OutgoingLinks(path string) []string {
	g.outMu.RLock()
	defer g.outMu.RUnlock()
	targets := g.outgoing[path]
	out := make([]string, len(targets))
	copy(out, targets)
	return out
}

// Contains reports whether path has been indexed.
func (g *Graph) Contains(path string) bool {
	g.outMu.RLock()
	defer g.outMu.RUnlock()
	_, ok := g.outgoing[path]
	return ok
}

// Paths returns the sorted paths of all indexed notes.
func (g *Graph) Paths() []string {
	g.outMu.RLock()
	defer g.outMu.RUnlock()
	return sortedKeys(g.outgoing)
}

// NoteNames returns a sorted snapshot of all registered note names.
func (g *Graph) NoteNames() []string {
	g.namesMu.RLock()
	defer g.namesMu.RUnlock()
	names := make([]string, 0, len(g.nameToPath))
	for n := range g.nameToPath {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the path registered for name. ok is false for a dangling link.
func (g *Graph) Resolve(name string) (path string, ok bool) {
	g.namesMu.RLock()
	defer g.namesMu.RUnlock()
	path, ok = g.nameToPath[name]
	return path, ok
}

// GraphData materializes the whole graph. Every source name and every raw
// target becomes a node; targets without a registered note get a synthetic
// "<name>.md" path. Nodes are sorted by ID, edges by source path then link order.
func (g *Graph) GraphData() models.GraphData {
	g.outMu.RLock()
	defer g.outMu.RUnlock()
	g.namesMu.RLock()
	defer g.namesMu.RUnlock()

	ids := make(map[string]struct{})
	counts := make(map[string]int)
	edges := []models.GraphEdge{}

	for _, source := range sortedKeys(g.outgoing) {
		sourceName := parser.NoteName(source)
		ids[sourceName] = struct{}{}
		for _, target := range g.outgoing[source] {
			ids[target] = struct{}{}
			counts[target]++
			edges = append(edges, models.GraphEdge{Source: sourceName, Target: target})
		}
	}

	return models.GraphData{
		Nodes: g.nodesLocked(ids, counts),
		Edges: edges,
	}
}

// nodesLocked builds sorted nodes for ids. Callers hold namesMu.
func (g *Graph) nodesLocked(ids map[string]struct{}, counts map[string]int) []models.GraphNode {
	nodes := make([]models.GraphNode, 0, len(ids))
	for id := range ids {
		path, ok := g.nameToPath[id]
		if !ok {
			path = id + ".md"
		}
		nodes = append(nodes, models.GraphNode{
			ID:            id,
			Label:         id,
			Path:          path,
			BacklinkCount: counts[id],
		})
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return nodes
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
