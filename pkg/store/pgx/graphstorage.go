package pgx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/comicverse/unigraph/internal/util"
	"github.com/comicverse/unigraph/pkg/common"
	"github.com/comicverse/unigraph/pkg/store"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

// GraphDBStorage implements the GraphStorage interface on PostgreSQL.
// Output tables are written with COPY inside one transaction per table.
type GraphDBStorage struct {
	conn  pgxIConn
	close func()
}

var _ store.GraphStorage = (*GraphDBStorage)(nil)

// NewGraphDBStorageWithConnection creates a new GraphDBStorage using an
// existing connection or pool. Close does not close conn.
func NewGraphDBStorageWithConnection(conn pgxIConn) *GraphDBStorage {
	return &GraphDBStorage{
		conn:  conn,
		close: func() {},
	}
}

// NewGraphDBStorage connects to databaseURL, applies pending migrations and
// returns a storage that owns the pool.
func NewGraphDBStorage(ctx context.Context, databaseURL string) (*GraphDBStorage, error) {
	if err := Migrate(databaseURL); err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &GraphDBStorage{conn: pool, close: pool.Close}, nil
}

// Close releases the pool if the storage owns it.
func (s *GraphDBStorage) Close() error {
	s.close()
	return nil
}

// copySource is the column list and row producer for one output table.
type copySource struct {
	table   string
	columns []string
	n       int
	row     func(i int) []any
}

// rowsWithRun prefixes each row with the run id.
func (c copySource) rowsWithRun(runID string) ([]string, pgxv5.CopyFromSource) {
	cols := append([]string{"run_id"}, c.columns...)
	return cols, pgxv5.CopyFromSlice(c.n, func(i int) ([]any, error) {
		return append([]any{runID}, c.row(i)...), nil
	})
}

// replace deletes the run's rows from every source table and copies the
// new rows in, in one transaction.
func (s *GraphDBStorage) replace(ctx context.Context, runID string, sources ...copySource) error {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, src := range sources {
		if _, err := tx.Exec(ctx, "DELETE FROM "+src.table+" WHERE run_id = $1", runID); err != nil {
			return fmt.Errorf("clear %s: %w", src.table, err)
		}
		if src.n == 0 {
			continue
		}
		cols, rows := src.rowsWithRun(runID)
		copied, err := tx.CopyFrom(ctx, pgxv5.Identifier{src.table}, cols, rows)
		if err != nil {
			return fmt.Errorf("copy %s: %w", src.table, err)
		}
		if int(copied) != src.n {
			return fmt.Errorf("copy %s: wrote %d of %d rows", src.table, copied, src.n)
		}
	}

	return tx.Commit(ctx)
}

func (s *GraphDBStorage) SaveRun(ctx context.Context, run store.Run) error {
	if run.ID == "" {
		return errors.New("run id is empty")
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	_, err := s.conn.Exec(ctx, saveRunSQL,
		run.ID, string(run.Status), run.TopN, run.Characters, run.Nodes, run.Edges,
		run.GiantNodes, run.GiantEdges, run.Components, run.Error, run.CreatedAt, run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

func (s *GraphDBStorage) GetRun(ctx context.Context, id string) (store.Run, error) {
	var (
		run    store.Run
		status string
	)
	err := s.conn.QueryRow(ctx, getRunSQL, id).Scan(
		&run.ID, &status, &run.TopN, &run.Characters, &run.Nodes, &run.Edges,
		&run.GiantNodes, &run.GiantEdges, &run.Components, &run.Error, &run.CreatedAt, &run.FinishedAt,
	)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return store.Run{}, fmt.Errorf("run %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return store.Run{}, fmt.Errorf("get run: %w", err)
	}
	run.Status = store.RunStatus(status)
	return run, nil
}

func characterSource(records []common.CharacterRecord) copySource {
	return copySource{
		table:   "character_data",
		columns: []string{"id", "name", "universe", "processed_text", "sentiment_label", "sentiment_positive", "sentiment_neutral", "sentiment_negative"},
		n:       len(records),
		row: func(i int) []any {
			r := records[i]
			row := []any{
				util.SanitizeDBText(r.ID), util.SanitizeDBText(r.Name), string(r.Universe),
				util.SanitizeDBText(r.ProcessedText), nil, nil, nil, nil,
			}
			if r.Sentiment != nil {
				row[4], row[5], row[6], row[7] = r.Sentiment.Label, r.Sentiment.Positive, r.Sentiment.Neutral, r.Sentiment.Negative
			}
			return row
		},
	}
}

func nodeSource(nodes []common.NodeRow) copySource {
	return copySource{
		table:   "graph_nodes",
		columns: []string{"id", "universe"},
		n:       len(nodes),
		row:     func(i int) []any { return []any{nodes[i].ID, string(nodes[i].Universe)} },
	}
}

func edgeSource(edges []common.EdgeRow) copySource {
	return copySource{
		table:   "graph_edges",
		columns: []string{"source", "target"},
		n:       len(edges),
		row:     func(i int) []any { return []any{edges[i].Source, edges[i].Target} },
	}
}

func degreeSource(degrees []common.DegreeRow) copySource {
	return copySource{
		table:   "character_degree",
		columns: []string{"id", "in_degree", "out_degree"},
		n:       len(degrees),
		row:     func(i int) []any { return []any{degrees[i].ID, degrees[i].InDegree, degrees[i].OutDegree} },
	}
}

func visualSource(rows []common.VisualEdgeRow) copySource {
	return copySource{
		table:   "character_graph",
		columns: []string{"position", "universe_class", "from_id", "to_id", "edge_color", "edge_weight", "source_color", "target_color", "target_weight", "source_weight"},
		n:       len(rows),
		row: func(i int) []any {
			r := rows[i]
			return []any{i, r.UniverseClass, r.From, r.To, r.EdgeColor, r.EdgeWeight, r.SourceColor, r.TargetColor, r.TargetWeight, r.SourceWeight}
		},
	}
}

func (s *GraphDBStorage) SaveCharacters(ctx context.Context, runID string, records []common.CharacterRecord) error {
	return s.replace(ctx, runID, characterSource(records))
}

func (s *GraphDBStorage) SaveGraph(ctx context.Context, runID string, nodes []common.NodeRow, edges []common.EdgeRow) error {
	return s.replace(ctx, runID, edgeSource(edges), nodeSource(nodes))
}

func (s *GraphDBStorage) SaveDegrees(ctx context.Context, runID string, degrees []common.DegreeRow) error {
	return s.replace(ctx, runID, degreeSource(degrees))
}

func (s *GraphDBStorage) SaveVisualEdges(ctx context.Context, runID string, rows []common.VisualEdgeRow) error {
	return s.replace(ctx, runID, visualSource(rows))
}

func (s *GraphDBStorage) GetCharacters(ctx context.Context, runID string) ([]common.CharacterRecord, error) {
	rows, err := s.conn.Query(ctx, getCharactersSQL, runID)
	if err != nil {
		return nil, fmt.Errorf("get characters: %w", err)
	}
	defer rows.Close()

	out := make([]common.CharacterRecord, 0)
	for rows.Next() {
		var (
			r                  common.CharacterRecord
			universe           string
			label              *string
			pos, neutral, negv *float64
		)
		if err := rows.Scan(&r.ID, &r.Name, &universe, &r.ProcessedText, &label, &pos, &neutral, &negv); err != nil {
			return nil, err
		}
		r.Universe = common.Universe(universe)
		if label != nil {
			r.Sentiment = &common.Sentiment{Label: *label}
			if pos != nil {
				r.Sentiment.Positive = *pos
			}
			if neutral != nil {
				r.Sentiment.Neutral = *neutral
			}
			if negv != nil {
				r.Sentiment.Negative = *negv
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *GraphDBStorage) GetGraph(ctx context.Context, runID string) ([]common.NodeRow, []common.EdgeRow, error) {
	nodeRows, err := s.conn.Query(ctx, `SELECT id, universe FROM graph_nodes WHERE run_id = $1 ORDER BY id COLLATE "C"`, runID)
	if err != nil {
		return nil, nil, fmt.Errorf("get nodes: %w", err)
	}
	nodes, err := pgxv5.CollectRows(nodeRows, func(row pgxv5.CollectableRow) (common.NodeRow, error) {
		var n common.NodeRow
		var universe string
		err := row.Scan(&n.ID, &universe)
		n.Universe = common.Universe(universe)
		return n, err
	})
	if err != nil {
		return nil, nil, err
	}

	edgeRows, err := s.conn.Query(ctx, `SELECT source, target FROM graph_edges WHERE run_id = $1 ORDER BY source COLLATE "C", target COLLATE "C"`, runID)
	if err != nil {
		return nil, nil, fmt.Errorf("get edges: %w", err)
	}
	edges, err := pgxv5.CollectRows(edgeRows, func(row pgxv5.CollectableRow) (common.EdgeRow, error) {
		var e common.EdgeRow
		err := row.Scan(&e.Source, &e.Target)
		return e, err
	})
	if err != nil {
		return nil, nil, err
	}
	return nodes, edges, nil
}

func scanDegree(row pgxv5.CollectableRow) (common.DegreeRow, error) {
	var d common.DegreeRow
	err := row.Scan(&d.ID, &d.InDegree, &d.OutDegree)
	return d, err
}

func (s *GraphDBStorage) GetDegrees(ctx context.Context, runID string) ([]common.DegreeRow, error) {
	rows, err := s.conn.Query(ctx, `SELECT id, in_degree, out_degree FROM character_degree WHERE run_id = $1 ORDER BY id COLLATE "C"`, runID)
	if err != nil {
		return nil, fmt.Errorf("get degrees: %w", err)
	}
	return pgxv5.CollectRows(rows, scanDegree)
}

func (s *GraphDBStorage) GetTopCharacters(ctx context.Context, runID string, n int) ([]common.DegreeRow, error) {
	rows, err := s.conn.Query(ctx, getTopSQL, runID, store.NormalizeTopN(n))
	if err != nil {
		return nil, fmt.Errorf("get top characters: %w", err)
	}
	return pgxv5.CollectRows(rows, scanDegree)
}

func (s *GraphDBStorage) GetVisualEdges(ctx context.Context, runID string, class string) ([]common.VisualEdgeRow, error) {
	rows, err := s.conn.Query(ctx, getVisualSQL, runID, class)
	if err != nil {
		return nil, fmt.Errorf("get visual edges: %w", err)
	}
	return pgxv5.CollectRows(rows, func(row pgxv5.CollectableRow) (common.VisualEdgeRow, error) {
		var r common.VisualEdgeRow
		err := row.Scan(&r.UniverseClass, &r.From, &r.To, &r.EdgeColor, &r.EdgeWeight, &r.SourceColor, &r.TargetColor, &r.TargetWeight, &r.SourceWeight)
		return r, err
	})
}

const saveRunSQL = `
INSERT INTO runs (id, status, top_n, characters, nodes, edges, giant_nodes, giant_edges, components, error, created_at, finished_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (id) DO UPDATE
SET status      = EXCLUDED.status,
    top_n       = EXCLUDED.top_n,
    characters  = EXCLUDED.characters,
    nodes       = EXCLUDED.nodes,
    edges       = EXCLUDED.edges,
    giant_nodes = EXCLUDED.giant_nodes,
    giant_edges = EXCLUDED.giant_edges,
    components  = EXCLUDED.components,
    error       = EXCLUDED.error,
    finished_at = EXCLUDED.finished_at;
`

const getRunSQL = `
SELECT id, status, top_n, characters, nodes, edges, giant_nodes, giant_edges, components, error, created_at, finished_at
FROM runs
WHERE id = $1;
`

const getCharactersSQL = `
SELECT id, name, universe, processed_text, sentiment_label, sentiment_positive, sentiment_neutral, sentiment_negative
FROM character_data
WHERE run_id = $1
ORDER BY id COLLATE "C";
`

const getTopSQL = `
SELECT id, in_degree, out_degree
FROM character_degree
WHERE run_id = $1
ORDER BY in_degree DESC, id COLLATE "C" ASC
LIMIT $2;
`

const getVisualSQL = `
SELECT universe_class, from_id, to_id, edge_color, edge_weight, source_color, target_color, target_weight, source_weight
FROM character_graph
WHERE run_id = $1 AND ($2 = '' OR universe_class = $2)
ORDER BY position;
`
