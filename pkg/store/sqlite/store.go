// Package sqlite implements store.GraphStorage on an embedded SQLite
// database. It backs local runs and tests.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/comicverse/unigraph/pkg/common"
	"github.com/comicverse/unigraph/pkg/store"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Store provides SQLite-backed persistence for mention graph runs.
type Store struct {
	db *sql.DB
}

var _ store.GraphStorage = (*Store)(nil)

// connPragmas are applied by the driver to every pooled connection.
var connPragmas = []string{
	"foreign_keys(1)",
	"busy_timeout(5000)",
	"synchronous(NORMAL)",
}

func dsn(path string) string {
	params := make([]string, 0, len(connPragmas))
	for _, p := range connPragmas {
		params = append(params, "_pragma="+p)
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return "file:" + path + sep + strings.Join(params, "&")
}

// Open creates a new SQLite store at the given path.
// It configures WAL mode, sets pragmas, and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec pragma journal_mode: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// replaceRows deletes the run's rows from table and inserts n new rows in
// multi-row statements, all in one transaction.
func (s *Store) replaceRows(
	ctx context.Context,
	runID string,
	table string,
	columns []string,
	n int,
	row func(i int) []any,
) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE run_id = ?", runID); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}

	cols := append([]string{"run_id"}, columns...)
	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?,", len(cols)), ",") + ")"
	prefix := "INSERT INTO " + table + " (" + strings.Join(cols, ", ") + ") VALUES "

	err = store.ChunkRange(n, store.InsertBatchSize, func(start, end int) error {
		values := make([]string, 0, end-start)
		args := make([]any, 0, (end-start)*len(cols))
		for i := start; i < end; i++ {
			values = append(values, placeholder)
			args = append(args, runID)
			args = append(args, row(i)...)
		}
		_, err := tx.ExecContext(ctx, prefix+strings.Join(values, ","), args...)
		return err
	})
	if err != nil {
		return fmt.Errorf("insert %s: %w", table, err)
	}

	return tx.Commit()
}

// SaveRun inserts or updates the run metadata.
func (s *Store) SaveRun(ctx context.Context, run store.Run) error {
	if run.ID == "" {
		return errors.New("run id is empty")
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	var finished sql.NullString
	if run.FinishedAt != nil {
		finished = sql.NullString{String: formatTime(*run.FinishedAt), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO runs (id, status, top_n, characters, nodes, edges, giant_nodes, giant_edges, components, error, created_at, finished_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    status = excluded.status,
    top_n = excluded.top_n,
    characters = excluded.characters,
    nodes = excluded.nodes,
    edges = excluded.edges,
    giant_nodes = excluded.giant_nodes,
    giant_edges = excluded.giant_edges,
    components = excluded.components,
    error = excluded.error,
    finished_at = excluded.finished_at`,
		run.ID, string(run.Status), run.TopN, run.Characters, run.Nodes, run.Edges,
		run.GiantNodes, run.GiantEdges, run.Components, run.Error,
		formatTime(run.CreatedAt), finished,
	)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

// GetRun returns the run metadata or store.ErrNotFound.
func (s *Store) GetRun(ctx context.Context, id string) (store.Run, error) {
	var (
		run      store.Run
		status   string
		created  string
		finished sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
SELECT id, status, top_n, characters, nodes, edges, giant_nodes, giant_edges, components, error, created_at, finished_at
FROM runs WHERE id = ?`, id).Scan(
		&run.ID, &status, &run.TopN, &run.Characters, &run.Nodes, &run.Edges,
		&run.GiantNodes, &run.GiantEdges, &run.Components, &run.Error, &created, &finished,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Run{}, fmt.Errorf("run %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return store.Run{}, fmt.Errorf("get run: %w", err)
	}

	run.Status = store.RunStatus(status)
	if run.CreatedAt, err = parseTime(created); err != nil {
		return store.Run{}, fmt.Errorf("parse created_at: %w", err)
	}
	if finished.Valid && finished.String != "" {
		t, err := parseTime(finished.String)
		if err != nil {
			return store.Run{}, fmt.Errorf("parse finished_at: %w", err)
		}
		run.FinishedAt = &t
	}
	return run, nil
}

// SaveCharacters replaces the enriched character rows of the run.
func (s *Store) SaveCharacters(ctx context.Context, runID string, records []common.CharacterRecord) error {
	return s.replaceRows(ctx, runID, "character_data",
		[]string{"id", "name", "universe", "processed_text", "sentiment_label", "sentiment_positive", "sentiment_neutral", "sentiment_negative"},
		len(records),
		func(i int) []any {
			r := records[i]
			row := []any{r.ID, r.Name, string(r.Universe), r.ProcessedText, nil, nil, nil, nil}
			if r.Sentiment != nil {
				row[4], row[5], row[6], row[7] = r.Sentiment.Label, r.Sentiment.Positive, r.Sentiment.Neutral, r.Sentiment.Negative
			}
			return row
		},
	)
}

// GetCharacters returns the enriched character rows of the run, ordered by id.
func (s *Store) GetCharacters(ctx context.Context, runID string) ([]common.CharacterRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, name, universe, processed_text, sentiment_label, sentiment_positive, sentiment_neutral, sentiment_negative
FROM character_data WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("get characters: %w", err)
	}
	defer rows.Close()

	out := make([]common.CharacterRecord, 0)
	for rows.Next() {
		var (
			r                  common.CharacterRecord
			universe           string
			label              sql.NullString
			pos, neutral, negv sql.NullFloat64
		)
		if err := rows.Scan(&r.ID, &r.Name, &universe, &r.ProcessedText, &label, &pos, &neutral, &negv); err != nil {
			return nil, err
		}
		r.Universe = common.Universe(universe)
		if label.Valid {
			r.Sentiment = &common.Sentiment{
				Label:    label.String,
				Positive: pos.Float64,
				Neutral:  neutral.Float64,
				Negative: negv.Float64,
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SaveGraph replaces the node and edge tables of the run.
func (s *Store) SaveGraph(ctx context.Context, runID string, nodes []common.NodeRow, edges []common.EdgeRow) error {
	err := s.replaceRows(ctx, runID, "graph_nodes", []string{"id", "universe"}, len(nodes), func(i int) []any {
		return []any{nodes[i].ID, string(nodes[i].Universe)}
	})
	if err != nil {
		return err
	}
	return s.replaceRows(ctx, runID, "graph_edges", []string{"source", "target"}, len(edges), func(i int) []any {
		return []any{edges[i].Source, edges[i].Target}
	})
}

// GetGraph returns the nodes and edges of the run in lexical order.
func (s *Store) GetGraph(ctx context.Context, runID string) ([]common.NodeRow, []common.EdgeRow, error) {
	nodeRows, err := s.db.QueryContext(ctx, `SELECT id, universe FROM graph_nodes WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, nil, fmt.Errorf("get nodes: %w", err)
	}
	defer nodeRows.Close()

	nodes := make([]common.NodeRow, 0)
	for nodeRows.Next() {
		var n common.NodeRow
		var universe string
		if err := nodeRows.Scan(&n.ID, &universe); err != nil {
			return nil, nil, err
		}
		n.Universe = common.Universe(universe)
		nodes = append(nodes, n)
	}
	if err := nodeRows.Err(); err != nil {
		return nil, nil, err
	}

	edgeRows, err := s.db.QueryContext(ctx, `SELECT source, target FROM graph_edges WHERE run_id = ? ORDER BY source, target`, runID)
	if err != nil {
		return nil, nil, fmt.Errorf("get edges: %w", err)
	}
	defer edgeRows.Close()

	edges := make([]common.EdgeRow, 0)
	for edgeRows.Next() {
		var e common.EdgeRow
		if err := edgeRows.Scan(&e.Source, &e.Target); err != nil {
			return nil, nil, err
		}
		edges = append(edges, e)
	}
	return nodes, edges, edgeRows.Err()
}

// SaveDegrees replaces the degree table of the run.
func (s *Store) SaveDegrees(ctx context.Context, runID string, degrees []common.DegreeRow) error {
	return s.replaceRows(ctx, runID, "character_degree", []string{"id", "in_degree", "out_degree"}, len(degrees), func(i int) []any {
		return []any{degrees[i].ID, degrees[i].InDegree, degrees[i].OutDegree}
	})
}

func (s *Store) queryDegrees(ctx context.Context, query string, args ...any) ([]common.DegreeRow, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get degrees: %w", err)
	}
	defer rows.Close()

	out := make([]common.DegreeRow, 0)
	for rows.Next() {
		var d common.DegreeRow
		if err := rows.Scan(&d.ID, &d.InDegree, &d.OutDegree); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetDegrees returns the degree table of the run ordered by id.
func (s *Store) GetDegrees(ctx context.Context, runID string) ([]common.DegreeRow, error) {
	return s.queryDegrees(ctx, `
SELECT id, in_degree, out_degree FROM character_degree WHERE run_id = ? ORDER BY id`, runID)
}

// GetTopCharacters returns the n characters with the highest in-degree,
// ties broken by id.
func (s *Store) GetTopCharacters(ctx context.Context, runID string, n int) ([]common.DegreeRow, error) {
	return s.queryDegrees(ctx, `
SELECT id, in_degree, out_degree FROM character_degree WHERE run_id = ?
ORDER BY in_degree DESC, id ASC LIMIT ?`, runID, store.NormalizeTopN(n))
}

// SaveVisualEdges replaces the visualization table of the run, keeping row order.
func (s *Store) SaveVisualEdges(ctx context.Context, runID string, rows []common.VisualEdgeRow) error {
	return s.replaceRows(ctx, runID, "character_graph",
		[]string{"position", "universe_class", "from_id", "to_id", "edge_color", "edge_weight", "source_color", "target_color", "target_weight", "source_weight"},
		len(rows),
		func(i int) []any {
			r := rows[i]
			return []any{i, r.UniverseClass, r.From, r.To, r.EdgeColor, r.EdgeWeight, r.SourceColor, r.TargetColor, r.TargetWeight, r.SourceWeight}
		},
	)
}

// GetVisualEdges returns the visualization rows of the run in stored order.
// A non-empty class keeps only rows of that universe class.
func (s *Store) GetVisualEdges(ctx context.Context, runID string, class string) ([]common.VisualEdgeRow, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT universe_class, from_id, to_id, edge_color, edge_weight, source_color, target_color, target_weight, source_weight
FROM character_graph
WHERE run_id = ? AND (? = '' OR universe_class = ?)
ORDER BY position`, runID, class, class)
	if err != nil {
		return nil, fmt.Errorf("get visual edges: %w", err)
	}
	defer rows.Close()

	out := make([]common.VisualEdgeRow, 0)
	for rows.Next() {
		var r common.VisualEdgeRow
		if err := rows.Scan(&r.UniverseClass, &r.From, &r.To, &r.EdgeColor, &r.EdgeWeight, &r.SourceColor, &r.TargetColor, &r.TargetWeight, &r.SourceWeight); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
