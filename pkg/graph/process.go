package graph

import (
	"context"
	"fmt"

	"github.com/comicverse/unigraph/pkg/common"
	"github.com/comicverse/unigraph/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// Result is everything the pipeline derives from one catalog snapshot and its
// articles. Graph and Giant are frozen.
type Result struct {
	Graph       *MentionGraph
	Giant       *MentionGraph
	Components  [][]string
	Degrees     []DegreeRecord
	Top         []DegreeRecord
	VisualEdges []common.VisualEdgeRow
	Resolution  ResolutionStats
	Build       BuildStats
}

// resolveArticle runs extraction and resolution for a single article.
func resolveArticle(resolver *Resolver, article common.Article) ResolvedArticle {
	raw := ExtractReferences(article.Text)
	targets, stats := resolver.ResolveArticle(raw)
	return ResolvedArticle{
		Owner:   article.CharacterID,
		Targets: targets,
		Stats:   stats,
	}
}

// ResolveArticles extracts and resolves the references of every article,
// using up to parallel goroutines. The result slice is index-aligned with
// articles.
func ResolveArticles(
	ctx context.Context,
	resolver *Resolver,
	articles []common.Article,
	parallel int,
) ([]ResolvedArticle, error) {
	results := make([]ResolvedArticle, len(articles))

	eg, gCtx := errgroup.WithContext(ctx)
	if parallel > 0 {
		eg.SetLimit(parallel)
	}
	for idx, article := range articles {
		eg.Go(func() error {
			select {
			case <-gCtx.Done():
				return gCtx.Err()
			default:
				// each goroutine owns one slot, no lock needed
				results[idx] = resolveArticle(resolver, article)
				return nil
			}
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("failed to resolve articles: %w", err)
	}
	return results, nil
}

// ProcessGraph builds the mention graph for catalog from articles and
// computes its analytics. Articles are resolved in parallel; the graph is
// written by a single builder in article order.
//
// Data problems never fail the run. The only error is a cancelled context.
func (g *GraphClient) ProcessGraph(
	ctx context.Context,
	catalog *Catalog,
	articles []common.Article,
) (*Result, error) {
	logger.Info("[Graph] Processing", "characters", catalog.Len(), "articles", len(articles))

	resolver := NewResolver(catalog, g.resolverOpts...)
	resolved, err := ResolveArticles(ctx, resolver, articles, g.parallelArticles)
	if err != nil {
		return nil, err
	}

	var resolution ResolutionStats
	builder := NewBuilder(catalog)
	for _, r := range resolved {
		resolution.Merge(r.Stats)
		builder.Add(r)
	}
	mentionGraph := builder.Build()

	logger.Info(
		"[Graph] Graph built",
		"nodes", mentionGraph.NodeCount(),
		"edges", mentionGraph.EdgeCount(),
		"references", resolution.Total,
		"resolved", resolution.Resolved,
	)
	for reason, n := range resolution.Rejected {
		logger.Debug("[Resolve] Rejected references", "reason", reason, "count", n)
	}
	if n := resolution.Rejected[RejectCaseMismatch]; n > 0 {
		logger.Warn("[Resolve] References differ from the catalog only by case", "count", n)
	}

	res := g.Analyze(mentionGraph)
	res.Resolution = resolution
	res.Build = builder.Stats()
	return res, nil
}

// Analyze computes degrees, components, the giant component, the top-N
// ranking and the visualization table for a frozen graph.
func (g *GraphClient) Analyze(mentionGraph *MentionGraph) *Result {
	degrees := Degrees(mentionGraph)
	components := WeakComponents(mentionGraph)

	giant := GiantOf(mentionGraph, components)

	top := TopByInDegree(degrees, g.topN)
	visual := VisualEdges(giant, top, g.palette)

	logger.Info(
		"[Analytics] Analytics computed",
		"components", len(components),
		"giant_nodes", giant.NodeCount(),
		"giant_edges", giant.EdgeCount(),
		"visual_edges", len(visual),
	)

	return &Result{
		Graph:       mentionGraph,
		Giant:       giant,
		Components:  components,
		Degrees:     degrees,
		Top:         top,
		VisualEdges: visual,
	}
}
