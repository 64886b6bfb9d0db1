// Package config gathers the pipeline settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/comicverse/unigraph/internal/util"
	"github.com/comicverse/unigraph/pkg/graph"
	"github.com/comicverse/unigraph/pkg/leaselock"
	"github.com/comicverse/unigraph/pkg/sentiment"

	"github.com/go-playground/validator"
)

const (
	SourceLocal = "local"
	SourceS3    = "s3"

	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

type SentimentConfig struct {
	Endpoint          string `validate:"omitempty,url"`
	Key               string
	BatchSize         int     `validate:"min=1,max=10"`
	RequestsPerSecond float64 `validate:"min=0"`
	Timeout           time.Duration
}

// Enabled reports whether articles are sent for scoring.
func (s SentimentConfig) Enabled() bool {
	return s.Endpoint != "" && s.Key != ""
}

type Config struct {
	TopN             int `validate:"min=1,max=10000"`
	ParallelArticles int `validate:"min=1,max=1024"`
	ParallelPages    int `validate:"min=1,max=1024"`

	MarvelPath    string `validate:"required"`
	DCPath        string `validate:"required"`
	ArticlePrefix string

	Source  string `validate:"oneof=local s3"`
	DataDir string
	Bucket  string

	Store       string `validate:"oneof=sqlite postgres"`
	SQLitePath  string
	DatabaseURL string

	PalettePath    string
	OutputDir      string
	UploadSnapshot bool

	// LeaseTTL is how long a worker holds the graph lease between renewals.
	LeaseTTL time.Duration

	Sentiment SentimentConfig
}

var validate = validator.New()

// Load reads the configuration from the environment (after util.LoadEnv)
// and validates it.
func Load() (Config, error) {
	cfg := Config{
		TopN:             util.GetEnvInt("TOP_N", graph.DefaultTopN),
		ParallelArticles: util.GetEnvInt("PARALLEL_ARTICLES", 8),
		ParallelPages:    util.GetEnvInt("PARALLEL_PAGES", 16),

		MarvelPath:    util.GetEnvString("MARVEL_CSV", "marvel_characters.csv"),
		DCPath:        util.GetEnvString("DC_CSV", "dc_characters.csv"),
		ArticlePrefix: util.GetEnvString("ARTICLE_PREFIX", "wiki"),

		Source:  util.GetEnvString("INPUT_SOURCE", SourceLocal),
		DataDir: util.GetEnvString("DATA_DIR", "data"),
		Bucket:  util.GetEnv("AWS_BUCKET"),

		Store:       util.GetEnvString("STORE", StoreSQLite),
		SQLitePath:  util.GetEnvString("SQLITE_PATH", "unigraph.db"),
		DatabaseURL: util.GetEnv("DATABASE_URL"),

		PalettePath:    util.GetEnv("PALETTE_FILE"),
		OutputDir:      util.GetEnvString("OUTPUT_DIR", "out"),
		UploadSnapshot: util.GetEnvBool("UPLOAD_SNAPSHOT", false),

		Sentiment: SentimentConfig{
			Endpoint:          util.GetEnv("SENTIMENT_ENDPOINT"),
			Key:               util.GetEnv("SENTIMENT_KEY"),
			BatchSize:         util.GetEnvInt("SENTIMENT_BATCH_SIZE", 10),
			RequestsPerSecond: util.GetEnvNumeric("SENTIMENT_RPS", 0),
			Timeout:           util.GetEnvDuration("SENTIMENT_TIMEOUT", sentiment.DefaultTimeout),
		},

		LeaseTTL: util.GetEnvDuration("LEASE_TTL", leaselock.DefaultTTL),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the struct tags and the settings that depend on each other.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Store == StorePostgres && c.DatabaseURL == "" {
		return errors.New("invalid configuration: DATABASE_URL is required for the postgres store")
	}
	if c.Store == StoreSQLite && c.SQLitePath == "" {
		return errors.New("invalid configuration: SQLITE_PATH is required for the sqlite store")
	}
	if (c.Source == SourceS3 || c.UploadSnapshot) && c.Bucket == "" {
		return errors.New("invalid configuration: AWS_BUCKET is required for S3 input or snapshot upload")
	}
	return nil
}

// Palette returns the configured presentation palette, or the default one
// when no file is set.
func (c Config) Palette() (graph.Palette, error) {
	if c.PalettePath == "" {
		return graph.DefaultPalette(), nil
	}
	f, err := os.Open(c.PalettePath)
	if err != nil {
		return graph.Palette{}, fmt.Errorf("failed to open palette: %w", err)
	}
	defer f.Close()
	return graph.LoadPalette(f)
}

// LeaseOptions returns the graph run lease options with the configured TTL.
func (c Config) LeaseOptions() leaselock.Options {
	opts := leaselock.GraphRunOptions()
	if c.LeaseTTL > 0 {
		opts.TTL = c.LeaseTTL
	}
	return opts
}
