package linkgraph

import (
	"sort"

	"github.com/starford/vaultgraph/internal/models"
	"github.com/starford/vaultgraph/internal/parser"
)

type hop struct {
	name string
	dist int
}

// LocalGraph returns the neighborhood of the note at path: every name within
// depth hops following links in either direction, and the edges traversed to
// reach them. A depth of zero yields only the centre node.
//
// The frontier is a LIFO stack. A name is expanded the first time it is seen
// and again whenever it is reached at a strictly smaller distance, so the node
// set equals the true depth-bounded neighborhood regardless of stack order.
func (g *Graph) LocalGraph(path string, depth int) models.GraphData {
	if depth < 0 {
		depth = 0
	}
	center := parser.NoteName(path)

	g.outMu.RLock()
	defer g.outMu.RUnlock()
	g.namesMu.RLock()
	defer g.namesMu.RUnlock()

	expanded := make(map[string]int)
	edgeSet := make(map[models.GraphEdge]struct{})
	stack := []hop{{name: center, dist: 0}}

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if cur.dist > depth {
			continue
		}
		if d, seen := expanded[cur.name]; seen && d <= cur.dist {
			continue
		}
		expanded[cur.name] = cur.dist
		if cur.dist == depth {
			continue
		}
		next := cur.dist + 1

		if notePath, ok := g.nameToPath[cur.name]; ok {
			for _, target := range g.outgoing[notePath] {
				edgeSet[models.GraphEdge{Source: cur.name, Target: target}] = struct{}{}
				stack = append(stack, hop{name: target, dist: next})
			}
		}

		for source, targets := range g.outgoing {
			for _, t := range targets {
				if t != cur.name {
					continue
				}
				sourceName := parser.NoteName(source)
				edgeSet[models.GraphEdge{Source: sourceName, Target: cur.name}] = struct{}{}
				stack = append(stack, hop{name: sourceName, dist: next})
				break
			}
		}
	}

	edges := make([]models.GraphEdge, 0, len(edgeSet))
	counts := make(map[string]int)
	for e := range edgeSet {
		edges = append(edges, e)
		counts[e.Target]++
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Source != edges[j].Source {
			return edges[i].Source < edges[j].Source
		}
		return edges[i].Target < edges[j].Target
	})

	ids := make(map[string]struct{}, len(expanded))
	for name := range expanded {
		ids[name] = struct{}{}
	}
	return models.GraphData{
		Nodes: g.nodesLocked(ids, counts),
		Edges: edges,
	}
}
