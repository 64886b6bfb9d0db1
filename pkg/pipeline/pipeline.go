// Package pipeline runs one end-to-end build of the mention graph: catalog
// ingestion, article loading, text processing, optional sentiment scoring,
// graph analytics, persistence and the optional snapshot upload.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/comicverse/unigraph/internal/storage"
	"github.com/comicverse/unigraph/internal/timing"
	"github.com/comicverse/unigraph/internal/util"
	"github.com/comicverse/unigraph/pkg/common"
	"github.com/comicverse/unigraph/pkg/graph"
	"github.com/comicverse/unigraph/pkg/loader"
	"github.com/comicverse/unigraph/pkg/loader/csv"
	"github.com/comicverse/unigraph/pkg/loader/wiki"
	"github.com/comicverse/unigraph/pkg/logger"
	"github.com/comicverse/unigraph/pkg/logger/memory"
	"github.com/comicverse/unigraph/pkg/sentiment"
	"github.com/comicverse/unigraph/pkg/store"
	"github.com/comicverse/unigraph/pkg/text"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Scorer scores article windows. *sentiment.Client satisfies it.
type Scorer interface {
	Score(ctx context.Context, docs []sentiment.Document) (map[string]common.Sentiment, sentiment.Stats, error)
}

// SnapshotUploader writes the run snapshot. *storage.BlobStore satisfies it.
type SnapshotUploader interface {
	UploadSnapshot(ctx context.Context, params storage.UploadSnapshotParams) ([]string, error)
}

// Pipeline should be created using NewPipeline. Runs on the same Pipeline
// must not overlap: data-quality counting is process wide.
type Pipeline struct {
	characters  *csv.CSVGraphLoader
	articles    *wiki.WikiGraphLoader
	storage     store.GraphStorage
	scorer      Scorer
	snapshots   SnapshotUploader
	graphParams graph.NewGraphClientParams
	storeTries  int
	now         func() time.Time
}

// NewPipelineParams defines the collaborators of a Pipeline.
//
// Scorer and Snapshots are optional; a nil value skips the step.
// Graph is the template for the per-run GraphClient.
type NewPipelineParams struct {
	Characters *csv.CSVGraphLoader
	Articles   *wiki.WikiGraphLoader
	Storage    store.GraphStorage
	Scorer     Scorer
	Snapshots  SnapshotUploader
	Graph      graph.NewGraphClientParams
	StoreTries int
	Now        func() time.Time
}

func NewPipeline(params NewPipelineParams) (*Pipeline, error) {
	if params.Characters == nil {
		return nil, errors.New("character loader is required")
	}
	if params.Articles == nil {
		return nil, errors.New("article loader is required")
	}
	if params.Storage == nil {
		return nil, errors.New("graph storage is required")
	}
	p := &Pipeline{
		characters:  params.Characters,
		articles:    params.Articles,
		storage:     params.Storage,
		scorer:      params.Scorer,
		snapshots:   params.Snapshots,
		graphParams: params.Graph,
		storeTries:  params.StoreTries,
		now:         params.Now,
	}
	if p.storeTries <= 0 {
		p.storeTries = 3
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p, nil
}

// RunParams selects what one run processes. Files are the character
// listings in catalog order. An empty RunID is generated; TopN <= 0 keeps
// the pipeline default; an empty ArticlePrefix keeps the loader's prefix.
type RunParams struct {
	RunID         string
	Files         []loader.GraphFile
	TopN          int
	ArticlePrefix string
}

// Run executes the pipeline and returns its report. The run row is written
// first, so a failing run is still visible with status failed.
func (p *Pipeline) Run(ctx context.Context, params RunParams) (*Report, error) {
	runID := params.RunID
	if runID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return nil, fmt.Errorf("failed to generate run id: %w", err)
		}
		runID = id
	}
	graphParams := p.graphParams
	if params.TopN > 0 {
		graphParams.TopN = params.TopN
	}

	// loaders outlive the run; cached inputs must not leak into the next one
	p.resetLoaders()
	defer p.resetLoaders()

	quality := memory.NewMemoryLogger(memory.LevelWarn)
	detach := logger.Attach(quality)
	defer detach()

	rec := timing.NewRecorder()
	started := p.now()
	run := store.Run{
		ID:        runID,
		Status:    store.RunStatusRunning,
		TopN:      store.NormalizeTopN(graphParams.TopN),
		CreatedAt: started,
	}
	if err := p.retryStore(ctx, func(ctx context.Context) error { return p.storage.SaveRun(ctx, run) }); err != nil {
		return nil, fmt.Errorf("failed to register run: %w", err)
	}
	logger.Info("[Pipeline] Run started", "run", runID, "files", len(params.Files))

	articles := p.articles
	if params.ArticlePrefix != "" {
		articles = articles.WithPrefix(params.ArticlePrefix)
	}

	report, err := p.execute(ctx, runID, params.Files, articles, graphParams, rec)
	finished := p.now()
	if err != nil {
		run.Status = store.RunStatusFailed
		run.Error = err.Error()
		run.FinishedAt = &finished
		saveCtx := context.WithoutCancel(ctx)
		if saveErr := p.storage.SaveRun(saveCtx, run); saveErr != nil {
			logger.Error("[Pipeline] Failed to mark run as failed", "run", runID, "err", saveErr)
		}
		logger.Error("[Pipeline] Run failed", "run", runID, "err", err)
		return nil, err
	}

	report.RunID = runID
	report.Duration = finished.Sub(started)
	report.Steps = rec.Steps()
	report.DataQuality = quality.DataQualityCounts()

	run.Status = store.RunStatusCompleted
	run.Characters = report.Characters
	run.Nodes = report.Nodes
	run.Edges = report.Edges
	run.GiantNodes = report.GiantNodes
	run.GiantEdges = report.GiantEdges
	run.Components = report.Components
	run.FinishedAt = &finished
	if err := p.retryStore(ctx, func(ctx context.Context) error { return p.storage.SaveRun(ctx, run) }); err != nil {
		return nil, fmt.Errorf("failed to complete run: %w", err)
	}

	logger.Info(
		"[Pipeline] Run completed",
		"run", runID,
		"nodes", report.Nodes,
		"edges", report.Edges,
		"giant_nodes", report.GiantNodes,
		"data_quality", report.DataQualityTotal(),
		"duration", timing.FormatDuration(report.Duration),
	)
	return report, nil
}

func (p *Pipeline) resetLoaders() {
	loader.ResetAll(p.characters, p.articles)
}

func (p *Pipeline) retryStore(ctx context.Context, fn func(ctx context.Context) error) error {
	return util.RetryErrWithContext(ctx, p.storeTries, fn)
}

func (p *Pipeline) execute(
	ctx context.Context,
	runID string,
	files []loader.GraphFile,
	articleLoader *wiki.WikiGraphLoader,
	graphParams graph.NewGraphClientParams,
	rec *timing.Recorder,
) (*Report, error) {
	report := &Report{}

	stop := rec.Track("load_catalog")
	characters, err := p.characters.LoadCatalog(ctx, files)
	stop()
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	catalog := graph.NewCatalog(characters)
	entries := catalog.Entries()
	report.Characters = catalog.Len()

	stop = rec.Track("load_articles")
	pages, err := articleLoader.LoadPages(ctx, entries)
	stop()
	if err != nil {
		return nil, fmt.Errorf("failed to load articles: %w", err)
	}

	stop = rec.Track("process_text")
	records := make([]common.CharacterRecord, len(entries))
	articles := make([]common.Article, 0, len(pages))
	for i, page := range pages {
		records[i] = common.CharacterRecord{
			Character:     entries[i],
			ProcessedText: text.Process(page.Text),
		}
		if page.Missing {
			report.MissingArticles++
			continue
		}
		articles = append(articles, page.Article())
	}
	report.Articles = len(articles)
	stop()

	if p.scorer != nil {
		stop = rec.Track("sentiment")
		stats, err := p.scoreSentiment(ctx, pages, records)
		stop()
		if err != nil {
			return nil, err
		}
		report.Sentiment = &stats
	}

	stop = rec.Track("graph")
	client, err := graph.NewGraphClient(graphParams)
	if err != nil {
		return nil, err
	}
	res, err := client.ProcessGraph(ctx, catalog, articles)
	stop()
	if err != nil {
		return nil, err
	}
	report.applyResult(res)

	stop = rec.Track("persist")
	nodes, edges := res.Graph.NodeRows(), res.Graph.EdgeRows()
	degrees := graph.DegreeRows(res.Degrees)
	writes := []struct {
		table string
		fn    func(ctx context.Context) error
	}{
		{"characters", func(ctx context.Context) error { return p.storage.SaveCharacters(ctx, runID, records) }},
		{"graph", func(ctx context.Context) error { return p.storage.SaveGraph(ctx, runID, nodes, edges) }},
		{"degrees", func(ctx context.Context) error { return p.storage.SaveDegrees(ctx, runID, degrees) }},
		{"visual edges", func(ctx context.Context) error { return p.storage.SaveVisualEdges(ctx, runID, res.VisualEdges) }},
	}
	for _, w := range writes {
		if err := p.retryStore(ctx, w.fn); err != nil {
			return nil, fmt.Errorf("failed to save %s: %w", w.table, err)
		}
	}
	stop()
	logger.Info("[Store] Run persisted", "run", runID, "characters", len(records), "nodes", len(nodes), "edges", len(edges))

	if p.snapshots != nil {
		stop = rec.Track("snapshot")
		raw := make([]storage.RawArticle, len(pages))
		for i, page := range pages {
			raw[i] = storage.RawArticle{Name: entries[i].Name, Universe: entries[i].Universe, Raw: page.Raw}
		}
		keys, err := p.snapshots.UploadSnapshot(ctx, storage.UploadSnapshotParams{
			Date: p.now(),
			Graph: storage.GraphSnapshot{
				RunID:       runID,
				CreatedAt:   p.now(),
				Report:      report,
				Nodes:       nodes,
				Edges:       edges,
				Degrees:     degrees,
				VisualEdges: res.VisualEdges,
			},
			Characters: records,
			Articles:   raw,
		})
		stop()
		if err != nil {
			return nil, fmt.Errorf("failed to upload snapshot: %w", err)
		}
		report.SnapshotKeys = keys
	}

	return report, nil
}

// scoreSentiment scores the sentiment window of every loaded article and
// attaches the result to its record. Records are index-aligned with pages.
func (p *Pipeline) scoreSentiment(ctx context.Context, pages []wiki.Page, records []common.CharacterRecord) (sentiment.Stats, error) {
	docs := make([]sentiment.Document, 0, len(pages))
	for _, page := range pages {
		if page.Missing {
			continue
		}
		docs = append(docs, sentiment.Document{ID: page.CharacterID, Text: text.SentimentWindow(page.Text)})
	}

	scores, stats, err := p.scorer.Score(ctx, docs)
	if err != nil {
		return stats, fmt.Errorf("failed to score sentiment: %w", err)
	}
	for i := range records {
		if s, ok := scores[records[i].ID]; ok {
			records[i].Sentiment = &s
		}
	}
	return stats, nil
}
