package linkgraph

import (
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/starford/vaultgraph/internal/models"
	"github.com/starford/vaultgraph/internal/parser"
)

// Clusters groups every graph node (note names and dangling targets) into
// weakly connected components. Clusters are ordered by size, largest first;
// ties are broken by hub name. The hub is the member with the highest degree.
func (g *Graph) Clusters() []models.Cluster {
	g.outMu.RLock()
	ug, names := g.undirectedLocked()
	g.outMu.RUnlock()

	components := topo.ConnectedComponents(ug)
	clusters := make([]models.Cluster, 0, len(components))
	for _, comp := range components {
		members := make([]string, 0, len(comp))
		hub, hubDegree := "", -1
		for _, n := range comp {
			name := names[n.ID()]
			members = append(members, name)
			deg := ug.From(n.ID()).Len()
			if deg > hubDegree || (deg == hubDegree && name < hub) {
				hub, hubDegree = name, deg
			}
		}
		sort.Strings(members)
		clusters = append(clusters, models.Cluster{
			Size:  len(members),
			Names: members,
			Hub:   hub,
		})
	}

	sort.Slice(clusters, func(i, j int) bool {
		if clusters[i].Size != clusters[j].Size {
			return clusters[i].Size > clusters[j].Size
		}
		return clusters[i].Hub < clusters[j].Hub
	})
	for i := range clusters {
		clusters[i].ID = i + 1
	}
	return clusters
}

// Orphans returns the registered note names with no incoming or outgoing links.
func (g *Graph) Orphans() []string {
	g.outMu.RLock()
	defer g.outMu.RUnlock()
	g.namesMu.RLock()
	defer g.namesMu.RUnlock()

	linked := make(map[string]struct{})
	for source, targets := range g.outgoing {
		if len(targets) > 0 {
			linked[parser.NoteName(source)] = struct{}{}
		}
		for _, t := range targets {
			linked[t] = struct{}{}
		}
	}

	out := []string{}
	for name := range g.nameToPath {
		if _, ok := linked[name]; !ok {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// undirectedLocked projects outgoing onto a gonum undirected graph. Self links
// are dropped because simple graphs do not allow loops. Callers hold outMu.
func (g *Graph) undirectedLocked() (*simple.UndirectedGraph, map[int64]string) {
	ug := simple.NewUndirectedGraph()
	ids := make(map[string]int64)
	names := make(map[int64]string)

	nodeID := func(name string) int64 {
		if id, ok := ids[name]; ok {
			return id
		}
		id := int64(len(ids))
		ids[name] = id
		names[id] = name
		ug.AddNode(simple.Node(id))
		return id
	}

	for _, source := range sortedKeys(g.outgoing) {
		from := nodeID(parser.NoteName(source))
		for _, target := range g.outgoing[source] {
			to := nodeID(target)
			if from == to {
				continue
			}
			ug.SetEdge(ug.NewEdge(simple.Node(from), simple.Node(to)))
		}
	}
	return ug, names
}
