package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/comicverse/unigraph/pkg/common"
	"github.com/comicverse/unigraph/pkg/logger"

	"golang.org/x/sync/errgroup"
)

const (
	LoadPrefix      = "load"
	TransformPrefix = "transform"

	dateLayout = "2006_01_02"
)

// GraphSnapshotKey is the object holding the graph of the day.
func GraphSnapshotKey(date time.Time) string {
	return fmt.Sprintf("%s/UniverseGraph_%s.json", TransformPrefix, date.Format(dateLayout))
}

// CharactersKey is the object holding the enriched character records.
func CharactersKey(date time.Time) string {
	return fmt.Sprintf("%s/WikiDataframe_%s.json", TransformPrefix, date.Format(dateLayout))
}

// ArticleKey is the object holding the raw article of one character.
func ArticleKey(name string, universe common.Universe, date time.Time) string {
	return fmt.Sprintf("%s/wiki__%s%s%s.txt", LoadPrefix, name, universe, date.Format(dateLayout))
}

// SentimentKey is the object holding the sentiment scores of one character.
func SentimentKey(name string, date time.Time) string {
	return fmt.Sprintf("%s/Api_sentiment_%s_%s.json", TransformPrefix, name, date.Format(dateLayout))
}

// GraphSnapshot is the serialized form of a finished run.
type GraphSnapshot struct {
	RunID       string                 `json:"run_id"`
	CreatedAt   time.Time              `json:"created_at"`
	Report      any                    `json:"report,omitempty"`
	Nodes       []common.NodeRow       `json:"nodes"`
	Edges       []common.EdgeRow       `json:"edges"`
	Degrees     []common.DegreeRow     `json:"degrees"`
	VisualEdges []common.VisualEdgeRow `json:"visual_edges"`
}

// RawArticle is the unparsed article of one character as it was read.
type RawArticle struct {
	Name     string
	Universe common.Universe
	Raw      []byte
}

type UploadSnapshotParams struct {
	Date       time.Time
	Graph      GraphSnapshot
	Characters []common.CharacterRecord
	Articles   []RawArticle
	Parallel   int
}

// UploadSnapshot writes the graph, the character records, every raw article
// and every sentiment result. It returns the keys written.
func (b *BlobStore) UploadSnapshot(ctx context.Context, params UploadSnapshotParams) ([]string, error) {
	date := params.Date
	if date.IsZero() {
		date = time.Now()
	}
	parallel := params.Parallel
	if parallel <= 0 {
		parallel = 8
	}

	type object struct {
		key  string
		body []byte
	}
	var objects []object

	graphJSON, err := json.Marshal(params.Graph)
	if err != nil {
		return nil, fmt.Errorf("failed to encode graph snapshot: %w", err)
	}
	objects = append(objects, object{GraphSnapshotKey(date), graphJSON})

	charactersJSON, err := json.Marshal(params.Characters)
	if err != nil {
		return nil, fmt.Errorf("failed to encode characters: %w", err)
	}
	objects = append(objects, object{CharactersKey(date), charactersJSON})

	for _, a := range params.Articles {
		if len(a.Raw) == 0 {
			continue
		}
		objects = append(objects, object{ArticleKey(a.Name, a.Universe, date), a.Raw})
	}
	for _, c := range params.Characters {
		if c.Sentiment == nil {
			continue
		}
		body, err := json.Marshal(c.Sentiment)
		if err != nil {
			return nil, fmt.Errorf("failed to encode sentiment of %s: %w", c.ID, err)
		}
		objects = append(objects, object{SentimentKey(c.Name, date), body})
	}

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(parallel)
	for _, o := range objects {
		eg.Go(func() error {
			return b.PutFile(gCtx, o.key, o.body)
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	keys := make([]string, len(objects))
	for i, o := range objects {
		keys[i] = o.key
	}
	logger.Info("[Storage] Snapshot uploaded", "bucket", b.bucket, "objects", len(keys), "graph", keys[0])
	return keys, nil
}
