package csv

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/comicverse/unigraph/pkg/common"
	"github.com/comicverse/unigraph/pkg/loader"
	"github.com/comicverse/unigraph/pkg/logger"

	"golang.org/x/sync/singleflight"
)

const (
	ColumnCharacterName = "CharacterName"
	ColumnWikiLink      = "WikiLink"
)

// ParseOptions controls how a character listing is read.
//
// Separator defaults to '|'. Comment, when set, marks lines to ignore.
// The first column is an index column and is not treated as data.
type ParseOptions struct {
	Universe  common.Universe
	Separator rune
	Comment   rune
}

// ParseStats counts what happened to the rows of one listing.
type ParseStats struct {
	Rows       int
	Kept       int
	Incomplete int
	Malformed  int
}

// ParseCharacters reads a pipe-separated character listing. Rows with an
// empty field or a wrong field count are skipped and reported as data-quality
// events. WikiLink values become catalog identifiers via
// common.NormalizeLinkKey.
func ParseCharacters(content []byte, opts ParseOptions) ([]common.Character, ParseStats, error) {
	var stats ParseStats
	if !opts.Universe.Valid() {
		return nil, stats, fmt.Errorf("unknown universe %q", opts.Universe)
	}

	reader := csv.NewReader(bytes.NewReader(content))
	reader.Comma = '|'
	if opts.Separator != 0 {
		reader.Comma = opts.Separator
	}
	reader.Comment = opts.Comment
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, stats, fmt.Errorf("character listing for %s is empty", opts.Universe)
	}
	if err != nil {
		return nil, stats, fmt.Errorf("failed to read header: %w", err)
	}

	nameCol, linkCol := -1, -1
	for i, col := range header {
		switch strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")) {
		case ColumnCharacterName:
			nameCol = i
		case ColumnWikiLink:
			linkCol = i
		}
	}
	if nameCol < 1 || linkCol < 1 {
		return nil, stats, fmt.Errorf(
			"character listing for %s needs %s and %s columns after the index column",
			opts.Universe, ColumnCharacterName, ColumnWikiLink,
		)
	}

	characters := make([]common.Character, 0)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				stats.Rows++
				stats.Malformed++
				logger.DataQuality("loader", "malformed_row", "universe", opts.Universe, "line", parseErr.Line)
				continue
			}
			return nil, stats, err
		}

		stats.Rows++
		line, _ := reader.FieldPos(0)
		if len(record) != len(header) {
			stats.Malformed++
			logger.DataQuality("loader", "malformed_row", "universe", opts.Universe, "line", line, "fields", len(record))
			continue
		}

		complete := true
		for _, field := range record[1:] {
			if strings.TrimSpace(field) == "" {
				complete = false
				break
			}
		}
		if !complete {
			stats.Incomplete++
			logger.DataQuality("loader", "incomplete_row", "universe", opts.Universe, "line", line)
			continue
		}

		characters = append(characters, common.Character{
			ID:       common.NormalizeLinkKey(strings.TrimSpace(record[linkCol])),
			Name:     strings.TrimSpace(record[nameCol]),
			Universe: opts.Universe,
		})
		stats.Kept++
	}

	return characters, stats, nil
}

// CSVGraphLoader loads character listings through a base loader and caches
// the parsed result per file.
type CSVGraphLoader struct {
	loader  loader.GraphFileLoader
	options map[common.Universe]ParseOptions

	cache   map[string][]common.Character
	cacheMu sync.RWMutex
	group   singleflight.Group
}

// NewCSVGraphLoader creates a new CSVGraphLoader with the given base loader.
// DC listings are read with ';' comment lines.
func NewCSVGraphLoader(base loader.GraphFileLoader) *CSVGraphLoader {
	return &CSVGraphLoader{
		loader: base,
		options: map[common.Universe]ParseOptions{
			common.UniverseDC: {Comment: ';'},
		},
		cache: make(map[string][]common.Character),
	}
}

// WithParseOptions overrides the parse options used for one universe.
func (l *CSVGraphLoader) WithParseOptions(u common.Universe, opts ParseOptions) *CSVGraphLoader {
	l.options[u] = opts
	return l
}

// Reset drops the parsed listings and resets the base loader.
func (l *CSVGraphLoader) Reset() {
	l.cacheMu.Lock()
	l.cache = make(map[string][]common.Character)
	l.cacheMu.Unlock()
	loader.ResetAll(l.loader)
}

// GetFileText returns the raw listing from the base loader.
func (l *CSVGraphLoader) GetFileText(ctx context.Context, file loader.GraphFile) ([]byte, error) {
	return l.loader.GetFileText(ctx, file)
}

// LoadCharacters reads and parses one character listing.
func (l *CSVGraphLoader) LoadCharacters(ctx context.Context, file loader.GraphFile) ([]common.Character, error) {
	key := loader.CacheKey(file)

	l.cacheMu.RLock()
	if cached, ok := l.cache[key]; ok {
		l.cacheMu.RUnlock()
		return cached, nil
	}
	l.cacheMu.RUnlock()

	result, err, _ := l.group.Do(key, func() (any, error) {
		content, err := l.loader.GetFileText(ctx, file)
		if err != nil {
			return nil, err
		}

		opts := l.options[file.Universe]
		opts.Universe = file.Universe
		characters, stats, err := ParseCharacters(content, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", file.FilePath, err)
		}
		logger.Info(
			"[Loader] Characters loaded",
			"universe", file.Universe,
			"file", file.FilePath,
			"rows", stats.Rows,
			"kept", stats.Kept,
			"incomplete", stats.Incomplete,
			"malformed", stats.Malformed,
		)

		l.cacheMu.Lock()
		l.cache[key] = characters
		l.cacheMu.Unlock()

		return characters, nil
	})
	if err != nil {
		return nil, err
	}

	return result.([]common.Character), nil
}

// LoadCatalog loads every listing in order and concatenates the rows.
// Duplicate identifiers are left for the catalog to resolve.
func (l *CSVGraphLoader) LoadCatalog(ctx context.Context, files []loader.GraphFile) ([]common.Character, error) {
	all := make([]common.Character, 0)
	for _, file := range files {
		if file.FileType != loader.GraphFileTypeCharacters {
			return nil, fmt.Errorf("file %s is not a character listing", file.FilePath)
		}
		characters, err := l.LoadCharacters(ctx, file)
		if err != nil {
			return nil, err
		}
		all = append(all, characters...)
	}
	return all, nil
}
