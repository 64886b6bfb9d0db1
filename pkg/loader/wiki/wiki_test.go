package wiki

import (
	"context"
	"errors"
	"testing"

	"github.com/comicverse/unigraph/pkg/common"
	"github.com/comicverse/unigraph/pkg/loader"
	"github.com/comicverse/unigraph/pkg/logger"
	"github.com/comicverse/unigraph/pkg/logger/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const batmanResponse = `{"batchcomplete":"","query":{"pages":{"4335":{"pageid":4335,"ns":0,"title":"Batman","revisions":[{"contentformat":"text/x-wiki","contentmodel":"wikitext","*":"Partner of [[Dick Grayson|Robin]]."}]}}}}`

const missingResponse = `{"batchcomplete":"","query":{"pages":{"-1":{"ns":0,"title":"Nobody Here","missing":""}}}}`

const slotsResponse = `{"query":{"pages":{"12":{"title":"Robin","revisions":[{"slots":{"main":{"contentmodel":"wikitext","*":"[[Bruce Wayne]]"}}}]}}}}`

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		missing bool
	}{
		{name: "revision content", content: batmanResponse, want: "Partner of [[Dick Grayson|Robin]]."},
		{name: "slot content", content: slotsResponse, want: "[[Bruce Wayne]]"},
		{name: "missing page", content: missingResponse, missing: true},
		{name: "no pages", content: `{"query":{}}`, missing: true},
		{name: "no revisions", content: `{"query":{"pages":{"7":{"title":"X"}}}}`, missing: true},
		{name: "raw wikitext", content: "Not JSON [[Bruce Wayne]]", want: "Not JSON [[Bruce Wayne]]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseResponse([]byte(tt.content))
			if tt.missing {
				assert.ErrorIs(t, err, loader.ErrPageMissing)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

type mapLoader map[string]string

func (m mapLoader) GetFileText(ctx context.Context, file loader.GraphFile) ([]byte, error) {
	if s, ok := m[file.FilePath]; ok {
		return []byte(s), nil
	}
	if file.FilePath == "wiki/Broken.json" {
		return nil, errors.New("disk on fire")
	}
	return nil, loader.ErrNotFound
}

func TestWikiGraphLoader_LoadPages(t *testing.T) {
	mem := memory.NewMemoryLogger()
	logger.Init(mem)
	t.Cleanup(func() { logger.Init() })

	base := mapLoader{
		"wiki/Bruce_Wayne.json": batmanResponse,
		"wiki/Dick_Grayson.txt": "Raised by [[Bruce Wayne]].",
		"wiki/Nobody_Here.json": missingResponse,
	}
	l := NewWikiGraphLoader(NewWikiGraphLoaderParams{Loader: base, Prefix: "wiki/", Parallel: 4})

	characters := []common.Character{
		{ID: "Bruce_Wayne", Universe: common.UniverseDC},
		{ID: "Dick_Grayson", Universe: common.UniverseDC},
		{ID: "Nobody_Here", Universe: common.UniverseDC},
		{ID: "Never_Fetched", Universe: common.UniverseMarvel},
	}
	pages, err := l.LoadPages(context.Background(), characters)
	require.NoError(t, err)
	require.Len(t, pages, 4)

	assert.Equal(t, "Partner of [[Dick Grayson|Robin]].", pages[0].Text)
	assert.Equal(t, "wiki/Bruce_Wayne.json", pages[0].Path)
	assert.Equal(t, "Raised by [[Bruce Wayne]].", pages[1].Text)
	assert.Equal(t, "wiki/Dick_Grayson.txt", pages[1].Path)
	assert.True(t, pages[2].Missing)
	assert.NotEmpty(t, pages[2].Raw)
	assert.True(t, pages[3].Missing)
	assert.Equal(t, common.Article{CharacterID: "Never_Fetched"}, pages[3].Article())

	kinds := map[string]string{}
	for _, e := range mem.DataQualityEvents() {
		kinds[e.String("node")] = e.String("kind")
	}
	assert.Equal(t, map[string]string{"Nobody_Here": "missing_page", "Never_Fetched": "missing_article"}, kinds)
}

func TestWikiGraphLoader_LoadError(t *testing.T) {
	l := NewWikiGraphLoader(NewWikiGraphLoaderParams{Loader: mapLoader{}, Prefix: "wiki"})
	_, err := l.LoadPages(context.Background(), []common.Character{{ID: "Broken", Universe: common.UniverseDC}})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, loader.ErrNotFound)
}

func TestWikiGraphLoader_WithPrefix(t *testing.T) {
	base := mapLoader{"archive/2021/Bruce_Wayne.txt": "[[Dick Grayson]]"}
	l := NewWikiGraphLoader(NewWikiGraphLoaderParams{Loader: base, Prefix: "wiki"})
	archived := l.WithPrefix("archive/2021/")

	page, err := archived.LoadPage(context.Background(), common.Character{ID: "Bruce_Wayne"})
	require.NoError(t, err)
	assert.Equal(t, "[[Dick Grayson]]", page.Text)

	page, err = l.LoadPage(context.Background(), common.Character{ID: "Bruce_Wayne"})
	require.NoError(t, err)
	assert.True(t, page.Missing, "original prefix unchanged")
}
