package graph

import (
	"slices"
	"strings"

	"github.com/comicverse/unigraph/pkg/common"
	"github.com/comicverse/unigraph/pkg/logger"
)

// DefaultTopN is the size of the ranked set when no size is configured.
const DefaultTopN = 20

// DegreeRecord holds the in- and out-degree of one node.
type DegreeRecord struct {
	ID        string `json:"id"`
	InDegree  int    `json:"in_degree"`
	OutDegree int    `json:"out_degree"`
}

// Degrees returns the degree of every node in lexical identifier order.
func Degrees(g *MentionGraph) []DegreeRecord {
	nodes := g.Nodes()
	out := make([]DegreeRecord, len(nodes))
	for i, n := range nodes {
		out[i] = DegreeRecord{
			ID:        n.ID,
			InDegree:  g.InDegree(n.ID),
			OutDegree: g.OutDegree(n.ID),
		}
	}
	return out
}

// DegreeRows renders degree records as the degrees table.
func DegreeRows(records []DegreeRecord) []common.DegreeRow {
	rows := make([]common.DegreeRow, len(records))
	for i, r := range records {
		rows[i] = common.DegreeRow{ID: r.ID, InDegree: r.InDegree, OutDegree: r.OutDegree}
	}
	return rows
}

// WeakComponents partitions the nodes of g into weakly connected components,
// treating every edge as undirected.
//
// Members of a component are in lexical order. Components are ordered by size,
// largest first; components of equal size are ordered by their smallest
// identifier. The first component is therefore the giant component, with ties
// going to the component whose smallest identifier sorts first.
func WeakComponents(g *MentionGraph) [][]string {
	parent := make(map[string]string, g.NodeCount())

	var find func(x string) string
	find = func(x string) string {
		if _, ok := parent[x]; !ok {
			parent[x] = x
		}
		if parent[x] != x {
			parent[x] = find(parent[x])
		}
		return parent[x]
	}

	union := func(x, y string) {
		px, py := find(x), find(y)
		if px == py {
			return
		}
		// keep the lexically smaller root so the result does not depend on
		// the order edges are visited in
		if px < py {
			parent[py] = px
		} else {
			parent[px] = py
		}
	}

	for _, n := range g.Nodes() {
		find(n.ID)
	}
	for _, e := range g.Edges() {
		union(e.Source, e.Target)
	}

	grouped := make(map[string][]string)
	for id := range parent {
		root := find(id)
		grouped[root] = append(grouped[root], id)
	}

	components := make([][]string, 0, len(grouped))
	for _, members := range grouped {
		slices.Sort(members)
		components = append(components, members)
	}
	slices.SortFunc(components, func(a, b []string) int {
		if len(a) != len(b) {
			return len(b) - len(a)
		}
		return strings.Compare(a[0], b[0])
	})

	return components
}

// GiantComponent returns the subgraph induced by the largest weakly connected
// component of g, frozen. An empty graph yields an empty graph.
func GiantComponent(g *MentionGraph) *MentionGraph {
	return GiantOf(g, WeakComponents(g))
}

// GiantOf is GiantComponent for components already computed by
// WeakComponents on g.
func GiantOf(g *MentionGraph, components [][]string) *MentionGraph {
	sub := NewMentionGraph()
	if len(components) > 0 {
		sub = g.Subgraph(components[0])
	}
	sub.Freeze()
	return sub
}

// TopByInDegree returns the n records with the highest in-degree. Ties are
// broken by identifier in ascending order. n <= 0 selects DefaultTopN.
func TopByInDegree(records []DegreeRecord, n int) []DegreeRecord {
	if n <= 0 {
		n = DefaultTopN
	}
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b DegreeRecord) int {
		if a.InDegree != b.InDegree {
			return b.InDegree - a.InDegree
		}
		return strings.Compare(a.ID, b.ID)
	})
	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n]
}

// TopSet returns the identifiers of records as a set.
func TopSet(records []DegreeRecord) map[string]struct{} {
	set := make(map[string]struct{}, len(records))
	for _, r := range records {
		set[r.ID] = struct{}{}
	}
	return set
}

// EdgeClass tags an edge by whether it crosses universes.
type EdgeClass string

const (
	EdgeCross EdgeClass = "Cross"
	EdgeIntra EdgeClass = "Intra"
)

// ClassifiedEdge is an edge annotated with its class and endpoint universes.
type ClassifiedEdge struct {
	Edge
	Class          EdgeClass       `json:"class"`
	SourceUniverse common.Universe `json:"source_universe"`
	TargetUniverse common.Universe `json:"target_universe"`
}

// ClassifyEdges tags every edge of g as Cross or Intra. An edge with an
// endpoint that has no universe is skipped and logged as a data-quality
// event. The graph is not modified.
func ClassifyEdges(g *MentionGraph) []ClassifiedEdge {
	edges := g.Edges()
	out := make([]ClassifiedEdge, 0, len(edges))
	for _, e := range edges {
		su, ok := g.Universe(e.Source)
		if !ok {
			logger.DataQuality("analytics", "missing_universe", "source", e.Source, "target", e.Target, "node", e.Source)
			continue
		}
		tu, ok := g.Universe(e.Target)
		if !ok {
			logger.DataQuality("analytics", "missing_universe", "source", e.Source, "target", e.Target, "node", e.Target)
			continue
		}
		class := EdgeIntra
		if su != tu {
			class = EdgeCross
		}
		out = append(out, ClassifiedEdge{
			Edge:           e,
			Class:          class,
			SourceUniverse: su,
			TargetUniverse: tu,
		})
	}
	return out
}
