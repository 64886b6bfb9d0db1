package search

import (
	"context"
	"testing"

	"github.com/comicverse/unigraph/pkg/common"
	"github.com/comicverse/unigraph/pkg/store"
	"github.com/comicverse/unigraph/pkg/store/sqlite"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecords() []common.CharacterRecord {
	return []common.CharacterRecord{
		{
			Character:     common.Character{ID: "Bruce_Wayne", Name: "Batman", Universe: common.UniverseDC},
			ProcessedText: "billionaire vigilante protects gotham city",
			Sentiment:     &common.Sentiment{Label: "negative"},
		},
		{
			Character:     common.Character{ID: "Dick_Grayson", Name: "Nightwing", Universe: common.UniverseDC},
			ProcessedText: "former robin trained batman",
		},
		{
			Character:     common.Character{ID: "Peter_Parker", Name: "Spider-Man", Universe: common.UniverseMarvel},
			ProcessedText: "bitten radioactive spider queens new york",
		},
	}
}

func setupTestIndex(t *testing.T) *CharacterIndex {
	t.Helper()
	idx, err := NewCharacterIndex()
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	require.NoError(t, idx.IndexCharacters(testRecords()))
	return idx
}

func TestCharacterIndex_Count(t *testing.T) {
	idx := setupTestIndex(t)
	count, err := idx.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)
}

func TestCharacterIndex_NameRanksFirst(t *testing.T) {
	idx := setupTestIndex(t)

	res, err := idx.Search(context.Background(), Params{Query: "batman"})
	require.NoError(t, err)
	require.Equal(t, uint64(2), res.Total)
	assert.Equal(t, "Bruce_Wayne", res.Hits[0].ID)
	assert.Equal(t, "Batman", res.Hits[0].Name)
	assert.Equal(t, common.UniverseDC, res.Hits[0].Universe)
	assert.Equal(t, "negative", res.Hits[0].Sentiment)
	assert.Equal(t, "Dick_Grayson", res.Hits[1].ID)
}

func TestCharacterIndex_UniverseFilter(t *testing.T) {
	idx := setupTestIndex(t)

	res, err := idx.Search(context.Background(), Params{Universe: common.UniverseMarvel})
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, "Peter_Parker", res.Hits[0].ID)

	res, err = idx.Search(context.Background(), Params{Query: "batman", Universe: common.UniverseMarvel})
	require.NoError(t, err)
	assert.Empty(t, res.Hits)
}

func TestCharacterIndex_EmptyQueryOrderedByID(t *testing.T) {
	idx := setupTestIndex(t)

	res, err := idx.Search(context.Background(), Params{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, uint64(3), res.Total)
	require.Len(t, res.Hits, 2)
	assert.Equal(t, "Bruce_Wayne", res.Hits[0].ID)
	assert.Equal(t, "Dick_Grayson", res.Hits[1].ID)
}

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, normalizeLimit(0))
	assert.Equal(t, 5, normalizeLimit(5))
	assert.Equal(t, MaxLimit, normalizeLimit(1000))
}

func TestRunIndexes_BuildsFromStore(t *testing.T) {
	ctx := context.Background()
	db, err := sqlite.Open(t.TempDir() + "/graph.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.SaveRun(ctx, store.Run{ID: "run1", Status: store.RunStatusCompleted, TopN: 20}))
	require.NoError(t, db.SaveCharacters(ctx, "run1", testRecords()))

	indexes := NewRunIndexes(db)
	t.Cleanup(func() { _ = indexes.Close() })

	first, err := indexes.ForRun(ctx, "run1")
	require.NoError(t, err)
	second, err := indexes.ForRun(ctx, "run1")
	require.NoError(t, err)
	assert.Same(t, first, second)

	res, err := first.Search(ctx, Params{Query: "spider"})
	require.NoError(t, err)
	require.NotEmpty(t, res.Hits)
	assert.Equal(t, "Peter_Parker", res.Hits[0].ID)
}
