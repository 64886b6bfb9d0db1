package graph

import (
	"errors"
	"slices"
	"strings"

	"github.com/comicverse/unigraph/pkg/common"
)

// ErrFrozen is returned when a frozen graph is mutated.
var ErrFrozen = errors.New("mention graph is frozen")

// Node is a graph node with its universe attribute. HasUniverse is false for
// nodes that were created implicitly by an edge and never given one.
type Node struct {
	ID          string          `json:"id"`
	Universe    common.Universe `json:"universe"`
	HasUniverse bool            `json:"-"`
}

// Edge is a directed mention from Source to Target.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// MentionGraph is a directed simple graph of character mentions. Inserting
// an existing (source, target) pair is a no-op. The graph is append-only
// until Freeze is called; after that every mutation returns ErrFrozen.
//
// A MentionGraph is not safe for concurrent mutation.
type MentionGraph struct {
	nodes  map[string]*Node
	order  []string
	out    map[string]map[string]struct{}
	in     map[string]map[string]struct{}
	edges  int
	frozen bool
}

// NewMentionGraph returns an empty graph.
func NewMentionGraph() *MentionGraph {
	return &MentionGraph{
		nodes: make(map[string]*Node),
		out:   make(map[string]map[string]struct{}),
		in:    make(map[string]map[string]struct{}),
	}
}

func (g *MentionGraph) ensureNode(id string) *Node {
	if n, ok := g.nodes[id]; ok {
		return n
	}
	n := &Node{ID: id}
	g.nodes[id] = n
	g.order = append(g.order, id)
	return n
}

// AddNode adds id with the given universe, or sets the universe of an
// existing node.
func (g *MentionGraph) AddNode(id string, universe common.Universe) error {
	if g.frozen {
		return ErrFrozen
	}
	n := g.ensureNode(id)
	n.Universe = universe
	n.HasUniverse = true
	return nil
}

// AddEdge adds the directed edge source -> target. Missing endpoints are
// created without a universe. It reports whether the edge is new.
func (g *MentionGraph) AddEdge(source, target string) (bool, error) {
	if g.frozen {
		return false, ErrFrozen
	}
	g.ensureNode(source)
	g.ensureNode(target)

	succ, ok := g.out[source]
	if !ok {
		succ = make(map[string]struct{})
		g.out[source] = succ
	}
	if _, exists := succ[target]; exists {
		return false, nil
	}
	succ[target] = struct{}{}

	pred, ok := g.in[target]
	if !ok {
		pred = make(map[string]struct{})
		g.in[target] = pred
	}
	pred[source] = struct{}{}

	g.edges++
	return true, nil
}

// Freeze makes the graph read-only.
func (g *MentionGraph) Freeze() {
	g.frozen = true
}

// Frozen reports whether Freeze was called.
func (g *MentionGraph) Frozen() bool {
	return g.frozen
}

// HasNode reports whether id is a node.
func (g *MentionGraph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// HasEdge reports whether source -> target is an edge.
func (g *MentionGraph) HasEdge(source, target string) bool {
	_, ok := g.out[source][target]
	return ok
}

// Universe returns the universe attribute of id. ok is false if the node does
// not exist or has no universe.
func (g *MentionGraph) Universe(id string) (common.Universe, bool) {
	n, exists := g.nodes[id]
	if !exists || !n.HasUniverse {
		return "", false
	}
	return n.Universe, true
}

// NodeCount returns the number of nodes.
func (g *MentionGraph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges.
func (g *MentionGraph) EdgeCount() int {
	return g.edges
}

// InDegree returns the number of edges ending at id.
func (g *MentionGraph) InDegree(id string) int {
	return len(g.in[id])
}

// OutDegree returns the number of edges starting at id.
func (g *MentionGraph) OutDegree(id string) int {
	return len(g.out[id])
}

// Successors returns the targets of id's outgoing edges in lexical order.
func (g *MentionGraph) Successors(id string) []string {
	return sortedKeys(g.out[id])
}

// Predecessors returns the sources of id's incoming edges in lexical order.
func (g *MentionGraph) Predecessors(id string) []string {
	return sortedKeys(g.in[id])
}

// InsertionOrder returns node identifiers in the order they were first seen.
func (g *MentionGraph) InsertionOrder() []string {
	return slices.Clone(g.order)
}

// Nodes returns all nodes in lexical identifier order.
func (g *MentionGraph) Nodes() []Node {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	out := make([]Node, len(ids))
	for i, id := range ids {
		out[i] = *g.nodes[id]
	}
	return out
}

// Edges returns all edges ordered by source, then target.
func (g *MentionGraph) Edges() []Edge {
	out := make([]Edge, 0, g.edges)
	for source, succ := range g.out {
		for target := range succ {
			out = append(out, Edge{Source: source, Target: target})
		}
	}
	slices.SortFunc(out, compareEdges)
	return out
}

// Subgraph returns a new graph induced by ids: the listed nodes with their
// attributes and every edge whose endpoints are both listed. Identifiers that
// are not nodes of g are ignored. The result is not frozen.
func (g *MentionGraph) Subgraph(ids []string) *MentionGraph {
	members := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if g.HasNode(id) {
			members[id] = struct{}{}
		}
	}

	sub := NewMentionGraph()
	for _, id := range g.order {
		if _, ok := members[id]; !ok {
			continue
		}
		n := g.nodes[id]
		added := sub.ensureNode(id)
		added.Universe = n.Universe
		added.HasUniverse = n.HasUniverse
	}
	for _, e := range g.Edges() {
		_, srcIn := members[e.Source]
		_, tgtIn := members[e.Target]
		if srcIn && tgtIn {
			sub.AddEdge(e.Source, e.Target)
		}
	}
	return sub
}

// NodeRows renders the graph as the nodes(id, universe) table.
func (g *MentionGraph) NodeRows() []common.NodeRow {
	nodes := g.Nodes()
	rows := make([]common.NodeRow, len(nodes))
	for i, n := range nodes {
		rows[i] = common.NodeRow{ID: n.ID, Universe: n.Universe}
	}
	return rows
}

// EdgeRows renders the graph as the edges(source, target) table.
func (g *MentionGraph) EdgeRows() []common.EdgeRow {
	edges := g.Edges()
	rows := make([]common.EdgeRow, len(edges))
	for i, e := range edges {
		rows[i] = common.EdgeRow{Source: e.Source, Target: e.Target}
	}
	return rows
}

func compareEdges(a, b Edge) int {
	if c := strings.Compare(a.Source, b.Source); c != 0 {
		return c
	}
	return strings.Compare(a.Target, b.Target)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
