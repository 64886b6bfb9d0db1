package pipeline

import (
	"time"

	"github.com/comicverse/unigraph/internal/timing"
	"github.com/comicverse/unigraph/pkg/common"
	"github.com/comicverse/unigraph/pkg/graph"
	"github.com/comicverse/unigraph/pkg/sentiment"
)

// Report summarizes one run.
type Report struct {
	RunID           string                `json:"run_id"`
	Characters      int                   `json:"characters"`
	Articles        int                   `json:"articles"`
	MissingArticles int                   `json:"missing_articles"`
	Nodes           int                   `json:"nodes"`
	Edges           int                   `json:"edges"`
	GiantNodes      int                   `json:"giant_nodes"`
	GiantEdges      int                   `json:"giant_edges"`
	Components      int                   `json:"components"`
	Top             []common.DegreeRow    `json:"top"`
	Resolution      graph.ResolutionStats `json:"resolution"`
	Build           graph.BuildStats      `json:"build"`
	Sentiment       *sentiment.Stats      `json:"sentiment,omitempty"`
	DataQuality     map[string]int        `json:"data_quality"`
	SnapshotKeys    []string              `json:"snapshot_keys,omitempty"`
	Steps           []timing.Step         `json:"steps"`
	Duration        time.Duration         `json:"duration"`
}

func (r *Report) applyResult(res *graph.Result) {
	r.Nodes = res.Graph.NodeCount()
	r.Edges = res.Graph.EdgeCount()
	r.GiantNodes = res.Giant.NodeCount()
	r.GiantEdges = res.Giant.EdgeCount()
	r.Components = len(res.Components)
	r.Top = graph.DegreeRows(res.Top)
	r.Resolution = res.Resolution
	r.Build = res.Build
}

// DataQualityTotal is the number of data-quality events of the run.
func (r *Report) DataQualityTotal() int {
	total := 0
	for _, n := range r.DataQuality {
		total += n
	}
	return total
}
