package config

import (
	"context"
	"fmt"

	"github.com/comicverse/unigraph/internal/storage"
	"github.com/comicverse/unigraph/pkg/common"
	"github.com/comicverse/unigraph/pkg/graph"
	"github.com/comicverse/unigraph/pkg/loader"
	"github.com/comicverse/unigraph/pkg/loader/csv"
	fileio "github.com/comicverse/unigraph/pkg/loader/io"
	s3loader "github.com/comicverse/unigraph/pkg/loader/s3"
	"github.com/comicverse/unigraph/pkg/loader/wiki"
	"github.com/comicverse/unigraph/pkg/logger"
	"github.com/comicverse/unigraph/pkg/pipeline"
	"github.com/comicverse/unigraph/pkg/sentiment"
	"github.com/comicverse/unigraph/pkg/store"
	pgxstore "github.com/comicverse/unigraph/pkg/store/pgx"
	"github.com/comicverse/unigraph/pkg/store/sqlite"
)

// OpenStorage opens the configured output store. The postgres store is
// migrated before use.
func (c Config) OpenStorage(ctx context.Context) (store.GraphStorage, error) {
	if c.Store == StorePostgres {
		s, err := pgxstore.NewGraphDBStorage(ctx, c.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	s, err := sqlite.Open(c.SQLitePath)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Clients holds the S3 collaborators; both are nil when S3 is not used.
type Clients struct {
	Files     loader.GraphFileLoader
	Snapshots *storage.BlobStore
}

// OpenClients builds the input file loader and, when enabled, the snapshot
// store.
func (c Config) OpenClients(ctx context.Context) (Clients, error) {
	var out Clients
	if c.Source != SourceS3 && !c.UploadSnapshot {
		out.Files = fileio.NewIOGraphFileLoader(c.DataDir)
		return out, nil
	}

	client, err := storage.NewS3Client(ctx)
	if err != nil {
		return Clients{}, err
	}
	if c.Source == SourceS3 {
		out.Files = s3loader.NewS3GraphFileLoaderWithClient(c.Bucket, client)
	} else {
		out.Files = fileio.NewIOGraphFileLoader(c.DataDir)
	}
	if c.UploadSnapshot {
		out.Snapshots = storage.NewBlobStore(client, c.Bucket)
	}
	return out, nil
}

// CharacterFiles returns the two listings in catalog order.
func (c Config) CharacterFiles(base loader.GraphFileLoader) []loader.GraphFile {
	return []loader.GraphFile{
		loader.NewCharacterFile(loader.NewGraphFileParams{ID: "marvel", FilePath: c.MarvelPath, Loader: base}, common.UniverseMarvel),
		loader.NewCharacterFile(loader.NewGraphFileParams{ID: "dc", FilePath: c.DCPath, Loader: base}, common.UniverseDC),
	}
}

// NewPipeline wires a pipeline from the configuration.
func (c Config) NewPipeline(clients Clients, graphStorage store.GraphStorage) (*pipeline.Pipeline, error) {
	palette, err := c.Palette()
	if err != nil {
		return nil, err
	}

	params := pipeline.NewPipelineParams{
		Characters: csv.NewCSVGraphLoader(clients.Files),
		Articles: wiki.NewWikiGraphLoader(wiki.NewWikiGraphLoaderParams{
			Loader:   clients.Files,
			Prefix:   c.ArticlePrefix,
			Parallel: c.ParallelPages,
		}),
		Storage: graphStorage,
		Graph: graph.NewGraphClientParams{
			ParallelArticles: c.ParallelArticles,
			TopN:             c.TopN,
			Palette:          &palette,
		},
	}
	if clients.Snapshots != nil {
		params.Snapshots = clients.Snapshots
	}

	if c.Sentiment.Enabled() {
		scorer, err := sentiment.NewClient(sentiment.NewClientParams{
			Endpoint:          c.Sentiment.Endpoint,
			Key:               c.Sentiment.Key,
			BatchSize:         c.Sentiment.BatchSize,
			RequestsPerSecond: c.Sentiment.RequestsPerSecond,
			Timeout:           c.Sentiment.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create sentiment client: %w", err)
		}
		params.Scorer = scorer
	} else {
		logger.Info("[Config] Sentiment scoring disabled")
	}

	return pipeline.NewPipeline(params)
}
