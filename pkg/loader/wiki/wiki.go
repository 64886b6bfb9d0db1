// Package wiki reads stored encyclopedia responses for catalog characters.
package wiki

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/comicverse/unigraph/pkg/common"
	"github.com/comicverse/unigraph/pkg/loader"
	"github.com/comicverse/unigraph/pkg/logger"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"
)

// missingPageID is the page key MediaWiki uses for titles without a page.
const missingPageID = "-1"

var contentPaths = []string{
	`revisions.0.\*`,
	`revisions.0.slots.main.\*`,
	`revisions.0.slots.main.content`,
}

// ParseResponse returns the wikitext of a stored revisions query response.
// Only the first page is considered. Content that is not JSON is returned
// unchanged as raw wikitext.
func ParseResponse(content []byte) (string, error) {
	if !gjson.ValidBytes(content) {
		return string(content), nil
	}

	pages := gjson.GetBytes(content, "query.pages")
	if !pages.IsObject() {
		return "", fmt.Errorf("%w: response has no pages", loader.ErrPageMissing)
	}

	var (
		pageID string
		page   gjson.Result
	)
	pages.ForEach(func(key, value gjson.Result) bool {
		pageID = key.String()
		page = value
		return false
	})
	if pageID == "" || pageID == missingPageID {
		return "", fmt.Errorf("%w: %s", loader.ErrPageMissing, page.Get("title").String())
	}

	for _, p := range contentPaths {
		if text := page.Get(p); text.Exists() {
			return text.String(), nil
		}
	}
	return "", fmt.Errorf("%w: page %s has no revision content", loader.ErrPageMissing, pageID)
}

// Page is the stored article of one character.
// Raw is the response as stored; Text is the extracted wikitext.
type Page struct {
	CharacterID string
	Path        string
	Raw         []byte
	Text        string
	Missing     bool
}

// Article converts the page into the graph input for its character.
func (p Page) Article() common.Article {
	return common.Article{CharacterID: p.CharacterID, Text: p.Text}
}

// WikiGraphLoader looks up stored articles by character identifier under
// a prefix of its base loader.
type WikiGraphLoader struct {
	loader   loader.GraphFileLoader
	prefix   string
	parallel int
}

// NewWikiGraphLoaderParams defines the configuration for a WikiGraphLoader.
// Parallel limits concurrent reads (1 if <= 0).
type NewWikiGraphLoaderParams struct {
	Loader   loader.GraphFileLoader
	Prefix   string
	Parallel int
}

func NewWikiGraphLoader(params NewWikiGraphLoaderParams) *WikiGraphLoader {
	parallel := params.Parallel
	if parallel <= 0 {
		parallel = 1
	}
	return &WikiGraphLoader{
		loader:   params.Loader,
		prefix:   strings.TrimSuffix(params.Prefix, "/"),
		parallel: parallel,
	}
}

// WithPrefix returns a loader reading from prefix with the same base loader
// and parallelism.
func (l *WikiGraphLoader) WithPrefix(prefix string) *WikiGraphLoader {
	c := *l
	c.prefix = strings.TrimSuffix(prefix, "/")
	return &c
}

// Reset resets the base loader.
func (l *WikiGraphLoader) Reset() {
	loader.ResetAll(l.loader)
}

// LoadPage reads the article of one character. A character without a stored
// file, or whose response names a missing page, yields a page marked Missing
// and no error.
func (l *WikiGraphLoader) LoadPage(ctx context.Context, character common.Character) (Page, error) {
	page := Page{CharacterID: character.ID}

	for _, p := range loader.ArticlePaths(l.prefix, character.ID) {
		file := loader.NewArticleFile(loader.NewGraphFileParams{
			ID:       character.ID,
			FilePath: p,
			Loader:   l.loader,
		})
		raw, err := file.GetText(ctx)
		if errors.Is(err, loader.ErrNotFound) {
			continue
		}
		if err != nil {
			return page, err
		}

		page.Path = p
		page.Raw = raw
		text, err := ParseResponse(raw)
		if errors.Is(err, loader.ErrPageMissing) {
			page.Missing = true
			logger.DataQuality("loader", "missing_page", "node", character.ID, "path", p)
			return page, nil
		}
		if err != nil {
			return page, err
		}
		page.Text = text
		return page, nil
	}

	page.Missing = true
	logger.DataQuality("loader", "missing_article", "node", character.ID)
	return page, nil
}

// LoadPages reads the articles of all characters concurrently. The result is
// index-aligned with characters.
func (l *WikiGraphLoader) LoadPages(ctx context.Context, characters []common.Character) ([]Page, error) {
	pages := make([]Page, len(characters))

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(l.parallel)
	for idx, character := range characters {
		eg.Go(func() error {
			page, err := l.LoadPage(gCtx, character)
			if err != nil {
				return fmt.Errorf("failed to load article for %s: %w", character.ID, err)
			}
			pages[idx] = page
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	missing := 0
	for _, p := range pages {
		if p.Missing {
			missing++
		}
	}
	logger.Info("[Loader] Articles loaded", "articles", len(pages), "missing", missing)

	return pages, nil
}
