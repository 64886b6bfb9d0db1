package graph

// GraphClient runs the mention graph pipeline: reference extraction and
// resolution per article, graph construction, and analytics.
//
// A GraphClient should be created using NewGraphClient.
type GraphClient struct {
	parallelArticles int
	topN             int
	palette          Palette
	resolverOpts     []ResolverOption
}

// NewGraphClientParams defines the configuration parameters for creating
// a new GraphClient.
//
// ParallelArticles controls how many articles are extracted and resolved
// concurrently. TopN is the size of the ranked set (DefaultTopN if <= 0).
// Palette defaults to DefaultPalette when nil.
type NewGraphClientParams struct {
	ParallelArticles int
	TopN             int
	Palette          *Palette
	ResolverOptions  []ResolverOption
}

// NewGraphClient creates and returns a new GraphClient configured with
// the provided parameters.
//
// Example:
//
//	client, err := graph.NewGraphClient(graph.NewGraphClientParams{
//		ParallelArticles: 8,
//		TopN:             20,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	result, err := client.ProcessGraph(ctx, catalog, articles)
func NewGraphClient(params NewGraphClientParams) (*GraphClient, error) {
	parallel := params.ParallelArticles
	if parallel <= 0 {
		parallel = 1
	}
	topN := params.TopN
	if topN <= 0 {
		topN = DefaultTopN
	}
	palette := DefaultPalette()
	if params.Palette != nil {
		palette = *params.Palette
	}

	g := &GraphClient{
		parallelArticles: parallel,
		topN:             topN,
		palette:          palette,
		resolverOpts:     params.ResolverOptions,
	}

	return g, nil
}

// TopN returns the configured ranking size.
func (g *GraphClient) TopN() int {
	return g.topN
}
