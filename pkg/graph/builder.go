package graph

import (
	"github.com/comicverse/unigraph/pkg/logger"
)

// ResolvedArticle is the outcome of extraction and resolution for one article:
// the owning character and the distinct identifiers it mentions.
type ResolvedArticle struct {
	Owner   string
	Targets []string
	Stats   ResolutionStats
}

// BuildStats counts what the builder did with its input.
type BuildStats struct {
	Articles       int `json:"articles"`
	EdgesAdded     int `json:"edges_added"`
	EdgesDuplicate int `json:"edges_duplicate"`
	EdgesDropped   int `json:"edges_dropped"`
	UnknownOwners  int `json:"unknown_owners"`
}

// Builder accumulates resolved articles into a MentionGraph. It is the single
// writer of the graph: callers hand it results one at a time and take the
// finished graph with Build. A Builder must not be used after Build.
type Builder struct {
	catalog *Catalog
	graph   *MentionGraph
	stats   BuildStats
	built   bool
}

// NewBuilder creates a builder whose graph already holds every catalog entry
// as a node, tagged with its universe.
func NewBuilder(catalog *Catalog) *Builder {
	g := NewMentionGraph()
	for _, ch := range catalog.entries {
		_ = g.AddNode(ch.ID, ch.Universe)
	}
	return &Builder{
		catalog: catalog,
		graph:   g,
	}
}

// Add records the mentions of one article. Targets that are not catalog
// identifiers are dropped and logged; so are all targets of an owner that is
// not in the catalog. Adding the same mention twice has no effect.
func (b *Builder) Add(article ResolvedArticle) {
	if b.built {
		logger.Error("[Graph] Builder used after Build", "owner", article.Owner)
		return
	}
	b.stats.Articles++

	if !b.catalog.Contains(article.Owner) {
		b.stats.UnknownOwners++
		b.stats.EdgesDropped += len(article.Targets)
		logger.DataQuality("graph", "uncataloged_owner", "source", article.Owner, "targets", len(article.Targets))
		return
	}

	for _, target := range article.Targets {
		if !b.catalog.Contains(target) {
			b.stats.EdgesDropped++
			logger.DataQuality("graph", "uncataloged_target", "source", article.Owner, "target", target)
			continue
		}
		added, err := b.graph.AddEdge(article.Owner, target)
		if err != nil {
			logger.Error("[Graph] Failed to add edge", "source", article.Owner, "target", target, "err", err)
			continue
		}
		if added {
			b.stats.EdgesAdded++
		} else {
			b.stats.EdgesDuplicate++
		}
	}
}

// Stats returns the counters collected so far.
func (b *Builder) Stats() BuildStats {
	return b.stats
}

// Build freezes the graph and hands it over to the caller.
func (b *Builder) Build() *MentionGraph {
	b.built = true
	b.graph.Freeze()
	return b.graph
}

// BuildMentionGraph builds the graph for catalog from articles in one call.
func BuildMentionGraph(catalog *Catalog, articles []ResolvedArticle) (*MentionGraph, BuildStats) {
	b := NewBuilder(catalog)
	for _, a := range articles {
		b.Add(a)
	}
	return b.Build(), b.Stats()
}
