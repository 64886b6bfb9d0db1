// Command build runs the mention graph pipeline once, locally, and writes
// the output tables as CSV next to a JSON report.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/comicverse/unigraph/internal/config"
	"github.com/comicverse/unigraph/internal/timing"
	"github.com/comicverse/unigraph/internal/util"
	"github.com/comicverse/unigraph/pkg/export"
	"github.com/comicverse/unigraph/pkg/leaselock"
	"github.com/comicverse/unigraph/pkg/logger"
	"github.com/comicverse/unigraph/pkg/logger/console"
	"github.com/comicverse/unigraph/pkg/pipeline"
)

func main() {
	util.LoadEnv()

	runID := flag.String("run", "", "run id (generated when empty)")
	topN := flag.Int("top", 0, "number of top characters (TOP_N when 0)")
	outDir := flag.String("out", "", "output directory (OUTPUT_DIR when empty)")
	noExport := flag.Bool("no-export", false, "skip the CSV export")
	flag.Parse()

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: util.GetEnvBool("DEBUG", false),
		JSON:  util.GetEnvBool("LOG_JSON", false),
	})
	logger.Init(consoleLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", "err", err)
	}
	if *outDir != "" {
		cfg.OutputDir = *outDir
	}

	graphStorage, err := cfg.OpenStorage(ctx)
	if err != nil {
		logger.Fatal("Failed to open storage", "err", err)
	}
	defer graphStorage.Close()

	clients, err := cfg.OpenClients(ctx)
	if err != nil {
		logger.Fatal("Failed to create S3 client", "err", err)
	}

	p, err := cfg.NewPipeline(clients, graphStorage)
	if err != nil {
		logger.Fatal("Failed to create pipeline", "err", err)
	}

	var report *pipeline.Report
	err = leaselock.NewLocalLocker().WithLease(ctx, leaselock.GraphLockKey, leaselock.Options{}, func(ctx context.Context) error {
		var runErr error
		report, runErr = p.Run(ctx, pipeline.RunParams{
			RunID: *runID,
			Files: cfg.CharacterFiles(clients.Files),
			TopN:  *topN,
		})
		return runErr
	})
	if err != nil {
		logger.Fatal("Run failed", "err", err)
	}

	for i, row := range report.Top {
		logger.Info("Top character", "rank", i+1, "id", row.ID, "in_degree", row.InDegree, "out_degree", row.OutDegree)
	}
	logger.Info(
		"Run completed",
		"run", report.RunID,
		"nodes", report.Nodes,
		"edges", report.Edges,
		"giant_nodes", report.GiantNodes,
		"giant_edges", report.GiantEdges,
		"data_quality", report.DataQualityTotal(),
		"duration", timing.FormatDuration(report.Duration),
	)

	if *noExport {
		return
	}

	dir := filepath.Join(cfg.OutputDir, report.RunID)
	written, err := export.WriteRun(ctx, graphStorage, report.RunID, dir)
	if err != nil {
		logger.Fatal("Failed to export run", "err", err)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		logger.Fatal("Failed to encode report", "err", err)
	}
	reportPath := filepath.Join(dir, "report.json")
	if err := os.WriteFile(reportPath, data, 0o644); err != nil {
		logger.Fatal("Failed to write report", "err", err)
	}
	logger.Info("Export written", "dir", dir, "files", len(written)+1)
}
