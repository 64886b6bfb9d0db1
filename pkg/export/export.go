// Package export writes the output tables of a run as CSV files.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/comicverse/unigraph/pkg/common"
	"github.com/comicverse/unigraph/pkg/logger"
	"github.com/comicverse/unigraph/pkg/store"
)

const (
	NodesFile   = "nodes.csv"
	EdgesFile   = "edges.csv"
	DegreesFile = "degrees.csv"
	GraphFile   = "graph.csv"
)

var (
	nodesHeader   = []string{"id", "universe"}
	edgesHeader   = []string{"source", "target"}
	degreesHeader = []string{"id", "in_degree", "out_degree"}
	graphHeader   = []string{
		"universe_class", "from", "to", "edge_color", "edge_weight",
		"source_color", "target_color", "target_weight", "source_weight",
	}
)

func writeTable(w io.Writer, header []string, n int, row func(i int) []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for i := range n {
		if err := cw.Write(row(i)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteNodes(w io.Writer, rows []common.NodeRow) error {
	return writeTable(w, nodesHeader, len(rows), func(i int) []string {
		return []string{rows[i].ID, string(rows[i].Universe)}
	})
}

func WriteEdges(w io.Writer, rows []common.EdgeRow) error {
	return writeTable(w, edgesHeader, len(rows), func(i int) []string {
		return []string{rows[i].Source, rows[i].Target}
	})
}

func WriteDegrees(w io.Writer, rows []common.DegreeRow) error {
	return writeTable(w, degreesHeader, len(rows), func(i int) []string {
		r := rows[i]
		return []string{r.ID, strconv.Itoa(r.InDegree), strconv.Itoa(r.OutDegree)}
	})
}

// WriteVisualEdges writes the annotated edge table with the column names the
// dashboards read.
func WriteVisualEdges(w io.Writer, rows []common.VisualEdgeRow) error {
	return writeTable(w, graphHeader, len(rows), func(i int) []string {
		r := rows[i]
		return []string{
			r.UniverseClass, r.From, r.To, r.EdgeColor, strconv.Itoa(r.EdgeWeight),
			r.SourceColor, r.TargetColor, strconv.Itoa(r.TargetWeight), strconv.Itoa(r.SourceWeight),
		}
	})
}

func writeFile(dir, name string, write func(io.Writer) error) (err error) {
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if err := write(f); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

// WriteRun reads the four tables of runID from storage and writes them into
// dir, creating it if needed. It returns the paths written.
func WriteRun(ctx context.Context, storage store.GraphStorage, runID string, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}

	nodes, edges, err := storage.GetGraph(ctx, runID)
	if err != nil {
		return nil, err
	}
	degrees, err := storage.GetDegrees(ctx, runID)
	if err != nil {
		return nil, err
	}
	visual, err := storage.GetVisualEdges(ctx, runID, "")
	if err != nil {
		return nil, err
	}

	files := []struct {
		name  string
		write func(io.Writer) error
	}{
		{NodesFile, func(w io.Writer) error { return WriteNodes(w, nodes) }},
		{EdgesFile, func(w io.Writer) error { return WriteEdges(w, edges) }},
		{DegreesFile, func(w io.Writer) error { return WriteDegrees(w, degrees) }},
		{GraphFile, func(w io.Writer) error { return WriteVisualEdges(w, visual) }},
	}
	paths := make([]string, 0, len(files))
	for _, f := range files {
		if err := writeFile(dir, f.name, f.write); err != nil {
			return nil, err
		}
		paths = append(paths, filepath.Join(dir, f.name))
	}

	logger.Info("[Export] Tables written", "run", runID, "dir", dir)
	return paths, nil
}
