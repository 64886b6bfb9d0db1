package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/comicverse/unigraph/pkg/common"
	"github.com/comicverse/unigraph/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func saveTestRun(t *testing.T, s *Store, id string) {
	t.Helper()
	require.NoError(t, s.SaveRun(context.Background(), store.Run{ID: id, Status: store.RunStatusRunning, TopN: 20}))
}

func TestOpen(t *testing.T) {
	s := newTestStore(t)

	var journalMode string
	require.NoError(t, s.db.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
	assert.Equal(t, "wal", journalMode)

	for _, table := range []string{"runs", "character_data", "graph_nodes", "graph_edges", "character_degree", "character_graph"} {
		var name string
		err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		assert.NoError(t, err, table)
	}
}

func TestRun_SaveAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created := time.Date(2021, 6, 16, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveRun(ctx, store.Run{ID: "r1", Status: store.RunStatusRunning, TopN: 20, CreatedAt: created}))

	finished := created.Add(time.Minute)
	require.NoError(t, s.SaveRun(ctx, store.Run{
		ID: "r1", Status: store.RunStatusCompleted, TopN: 20, Characters: 5,
		Nodes: 5, Edges: 4, GiantNodes: 4, GiantEdges: 4, Components: 2,
		CreatedAt: finished, FinishedAt: &finished,
	}))

	run, err := s.GetRun(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, store.RunStatusCompleted, run.Status)
	assert.Equal(t, 4, run.GiantNodes)
	assert.True(t, created.Equal(run.CreatedAt), "created_at is kept on update")
	require.NotNil(t, run.FinishedAt)
	assert.True(t, finished.Equal(*run.FinishedAt))

	_, err = s.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.Error(t, s.SaveRun(ctx, store.Run{}))
}

func TestCharacters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	saveTestRun(t, s, "r1")

	records := []common.CharacterRecord{
		{Character: common.Character{ID: "Peter_Parker", Name: "Spider-Man", Universe: common.UniverseMarvel}, ProcessedText: "spider bite"},
		{
			Character:     common.Character{ID: "Bruce_Wayne", Name: "Batman", Universe: common.UniverseDC},
			ProcessedText: "gotham",
			Sentiment:     &common.Sentiment{Label: "negative", Positive: 0.1, Neutral: 0.2, Negative: 0.7},
		},
	}
	require.NoError(t, s.SaveCharacters(ctx, "r1", records))
	require.NoError(t, s.SaveCharacters(ctx, "r1", records), "saving twice replaces")

	got, err := s.GetCharacters(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, records[1], got[0])
	assert.Equal(t, records[0], got[1])
	assert.Nil(t, got[1].Sentiment)
}

func TestSaveGraph_RequiresRun(t *testing.T) {
	s := newTestStore(t)
	err := s.SaveGraph(context.Background(), "nope", []common.NodeRow{{ID: "A", Universe: common.UniverseDC}}, nil)
	assert.Error(t, err)
}

func TestGraphAndDegrees(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	saveTestRun(t, s, "r1")
	saveTestRun(t, s, "r2")

	nodes := []common.NodeRow{{ID: "A", Universe: common.UniverseMarvel}, {ID: "B", Universe: common.UniverseDC}, {ID: "C", Universe: common.UniverseDC}}
	edges := []common.EdgeRow{{Source: "A", Target: "B"}, {Source: "B", Target: "A"}, {Source: "C", Target: "B"}}
	require.NoError(t, s.SaveGraph(ctx, "r1", nodes, edges))
	require.NoError(t, s.SaveGraph(ctx, "r2", nodes[:1], nil))

	gotNodes, gotEdges, err := s.GetGraph(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, nodes, gotNodes)
	assert.Equal(t, edges, gotEdges)

	gotNodes, gotEdges, err = s.GetGraph(ctx, "r2")
	require.NoError(t, err)
	assert.Len(t, gotNodes, 1)
	assert.Empty(t, gotEdges)

	degrees := []common.DegreeRow{
		{ID: "A", InDegree: 1, OutDegree: 1},
		{ID: "B", InDegree: 2, OutDegree: 1},
		{ID: "C", InDegree: 0, OutDegree: 1},
		{ID: "D", InDegree: 1, OutDegree: 0},
	}
	require.NoError(t, s.SaveDegrees(ctx, "r1", degrees))

	got, err := s.GetDegrees(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, degrees, got)

	top, err := s.GetTopCharacters(ctx, "r1", 3)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, "B", top[0].ID)
	assert.Equal(t, "A", top[1].ID)
	assert.Equal(t, "D", top[2].ID)

	top, err = s.GetTopCharacters(ctx, "r1", 0)
	require.NoError(t, err)
	assert.Len(t, top, 4)
}

func TestLargeInsertIsChunked(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	saveTestRun(t, s, "r1")

	n := store.InsertBatchSize*2 + 7
	degrees := make([]common.DegreeRow, n)
	for i := range degrees {
		degrees[i] = common.DegreeRow{ID: fmt.Sprintf("c%05d", i), InDegree: i % 13}
	}
	require.NoError(t, s.SaveDegrees(ctx, "r1", degrees))

	got, err := s.GetDegrees(ctx, "r1")
	require.NoError(t, err)
	assert.Len(t, got, n)
}

func TestVisualEdges(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	saveTestRun(t, s, "r1")

	rows := []common.VisualEdgeRow{
		{UniverseClass: "Intra", From: "B", To: "A", EdgeColor: "#000000", EdgeWeight: 5, SourceColor: "#000000", TargetColor: "#000000", TargetWeight: 20, SourceWeight: 20},
		{UniverseClass: "Cross", From: "A", To: "C", EdgeColor: "#FFFF00", EdgeWeight: 20, SourceColor: "#CB1E1E", TargetColor: "#000000", TargetWeight: 5, SourceWeight: 20},
	}
	require.NoError(t, s.SaveVisualEdges(ctx, "r1", rows))

	all, err := s.GetVisualEdges(ctx, "r1", "")
	require.NoError(t, err)
	assert.Equal(t, rows, all, "stored order is kept")

	cross, err := s.GetVisualEdges(ctx, "r1", "Cross")
	require.NoError(t, err)
	assert.Equal(t, rows[1:], cross)
}

func TestForeignKeysOnEveryConnection(t *testing.T) {
	s := newTestStore(t)
	for range 4 {
		var fk int
		require.NoError(t, s.db.QueryRow("PRAGMA foreign_keys").Scan(&fk))
		assert.Equal(t, 1, fk)
	}
}
