package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/comicverse/unigraph/pkg/common"
	"github.com/comicverse/unigraph/pkg/graph"
	"github.com/comicverse/unigraph/pkg/leaselock"
	"github.com/comicverse/unigraph/pkg/sentiment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, graph.DefaultTopN, cfg.TopN)
	assert.Equal(t, SourceLocal, cfg.Source)
	assert.Equal(t, StoreSQLite, cfg.Store)
	assert.Equal(t, "wiki", cfg.ArticlePrefix)
	assert.False(t, cfg.Sentiment.Enabled())
	assert.Equal(t, sentiment.DefaultTimeout, cfg.Sentiment.Timeout)
	assert.Equal(t, leaselock.DefaultTTL, cfg.LeaseOptions().TTL)
}

func TestLoad_Durations(t *testing.T) {
	t.Setenv("LEASE_TTL", "10m")
	t.Setenv("SENTIMENT_TIMEOUT", "5s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.Sentiment.Timeout)

	opts := cfg.LeaseOptions()
	assert.Equal(t, 10*time.Minute, opts.TTL)
	assert.True(t, opts.Wait)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("TOP_N", "5")
	t.Setenv("STORE", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/unigraph")
	t.Setenv("SENTIMENT_ENDPOINT", "https://example.cognitiveservices.azure.com")
	t.Setenv("SENTIMENT_KEY", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.TopN)
	assert.Equal(t, StorePostgres, cfg.Store)
	assert.True(t, cfg.Sentiment.Enabled())
}

func validConfig() Config {
	return Config{
		TopN: 20, ParallelArticles: 1, ParallelPages: 1,
		MarvelPath: "m.csv", DCPath: "d.csv",
		Source: SourceLocal, Store: StoreSQLite, SQLitePath: "x.db",
		Sentiment: SentimentConfig{BatchSize: 10},
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero top n", func(c *Config) { c.TopN = 0 }},
		{"unknown store", func(c *Config) { c.Store = "mysql" }},
		{"unknown source", func(c *Config) { c.Source = "ftp" }},
		{"missing marvel path", func(c *Config) { c.MarvelPath = "" }},
		{"postgres without url", func(c *Config) { c.Store = StorePostgres }},
		{"s3 without bucket", func(c *Config) { c.Source = SourceS3 }},
		{"upload without bucket", func(c *Config) { c.UploadSnapshot = true }},
		{"sentiment batch too large", func(c *Config) { c.Sentiment.BatchSize = 11 }},
		{"bad sentiment endpoint", func(c *Config) { c.Sentiment.Endpoint = "not a url" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestPalette(t *testing.T) {
	p, err := Config{}.Palette()
	require.NoError(t, err)
	assert.Equal(t, graph.DefaultPalette(), p)

	path := filepath.Join(t.TempDir(), "palette.yaml")
	require.NoError(t, os.WriteFile(path, []byte("universe_colors:\n  Marvel: \"#123456\"\n"), 0o644))

	p, err = Config{PalettePath: path}.Palette()
	require.NoError(t, err)
	assert.Equal(t, "#123456", p.ColorOf(common.UniverseMarvel))

	_, err = Config{PalettePath: filepath.Join(t.TempDir(), "missing.yaml")}.Palette()
	assert.Error(t, err)
}

func TestConfig_Wiring(t *testing.T) {
	cfg := validConfig()
	cfg.SQLitePath = filepath.Join(t.TempDir(), "graph.db")
	ctx := context.Background()

	storage, err := cfg.OpenStorage(ctx)
	require.NoError(t, err)
	defer storage.Close()

	clients, err := cfg.OpenClients(ctx)
	require.NoError(t, err)
	assert.NotNil(t, clients.Files)
	assert.Nil(t, clients.Snapshots)

	files := cfg.CharacterFiles(clients.Files)
	require.Len(t, files, 2)
	assert.Equal(t, common.UniverseMarvel, files[0].Universe)
	assert.Equal(t, common.UniverseDC, files[1].Universe)

	p, err := cfg.NewPipeline(clients, storage)
	require.NoError(t, err)
	assert.NotNil(t, p)
}
