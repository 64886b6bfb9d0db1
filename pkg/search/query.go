package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/comicverse/unigraph/pkg/common"
	"github.com/comicverse/unigraph/pkg/logger"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params configures a character search.
type Params struct {
	Query    string
	Universe common.Universe // empty searches every universe
	Limit    int
	Offset   int
}

// Hit is one matching character.
type Hit struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Universe   common.Universe   `json:"universe"`
	Sentiment  string            `json:"sentiment,omitempty"`
	Score      float64           `json:"score"`
	Highlights map[string]string `json:"highlights,omitempty"`
}

// Result is one page of hits.
type Result struct {
	Query  string `json:"query"`
	Total  uint64 `json:"total"`
	TookMs int64  `json:"took_ms"`
	Hits   []Hit  `json:"hits"`
}

func normalizeLimit(n int) int {
	switch {
	case n <= 0:
		return DefaultLimit
	case n > MaxLimit:
		return MaxLimit
	}
	return n
}

// buildQuery matches the name (boosted) or the article text. An empty query
// matches everything.
func buildQuery(params Params) query.Query {
	var main query.Query
	text := strings.TrimSpace(params.Query)
	if text == "" {
		main = bleve.NewMatchAllQuery()
	} else {
		name := bleve.NewMatchQuery(text)
		name.SetField("name")
		name.SetBoost(3.0)

		namePrefix := bleve.NewPrefixQuery(strings.ToLower(text))
		namePrefix.SetField("name")
		namePrefix.SetBoost(2.0)

		body := bleve.NewMatchQuery(text)
		body.SetField("text")

		main = bleve.NewDisjunctionQuery(name, namePrefix, body)
	}

	if params.Universe == "" {
		return main
	}
	universe := bleve.NewTermQuery(string(params.Universe))
	universe.SetField("universe")
	return bleve.NewConjunctionQuery(main, universe)
}

// Search runs params against the index. Ties in score are ordered by id.
func (c *CharacterIndex) Search(ctx context.Context, params Params) (*Result, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	req := bleve.NewSearchRequestOptions(buildQuery(params), normalizeLimit(params.Limit), max(params.Offset, 0), false)
	req.SortBy([]string{"-_score", "id"})
	req.Fields = []string{"id", "name", "universe", "sentiment"}
	req.Highlight = bleve.NewHighlight()
	req.Highlight.AddField("name")
	req.Highlight.AddField("text")

	res, err := c.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	out := &Result{
		Query:  params.Query,
		Total:  res.Total,
		TookMs: res.Took.Milliseconds(),
		Hits:   make([]Hit, 0, len(res.Hits)),
	}
	for _, h := range res.Hits {
		hit := Hit{ID: h.ID, Score: h.Score}
		if v, ok := h.Fields["name"].(string); ok {
			hit.Name = v
		}
		if v, ok := h.Fields["universe"].(string); ok {
			hit.Universe = common.Universe(v)
		}
		if v, ok := h.Fields["sentiment"].(string); ok {
			hit.Sentiment = v
		}
		if len(h.Fragments) > 0 {
			hit.Highlights = make(map[string]string)
			for field, fragments := range h.Fragments {
				if len(fragments) > 0 {
					hit.Highlights[field] = fragments[0]
				}
			}
		}
		out.Hits = append(out.Hits, hit)
	}

	logger.Debug("[Search] Query executed", "query", params.Query, "universe", params.Universe, "total", out.Total)
	return out, nil
}
