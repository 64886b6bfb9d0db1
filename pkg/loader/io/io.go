package io

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/comicverse/unigraph/pkg/loader"
)

// IOGraphFileLoader loads files directly from the local filesystem with caching.
// When Root is set every path is resolved against it and must stay inside it.
type IOGraphFileLoader struct {
	Root  string
	cache *loader.FileCache
}

// NewIOGraphFileLoader creates a new filesystem-based file loader.
func NewIOGraphFileLoader(root string) *IOGraphFileLoader {
	return &IOGraphFileLoader{
		Root:  root,
		cache: loader.NewFileCache(),
	}
}

func (l *IOGraphFileLoader) resolve(p string) (string, error) {
	if l.Root == "" {
		return p, nil
	}
	if err := loader.CheckLocalPath(p); err != nil {
		return "", err
	}
	return filepath.Join(l.Root, p), nil
}

// Reset drops the cached file contents.
func (l *IOGraphFileLoader) Reset() {
	l.cache.Reset()
}

// GetFileText reads the file content from the filesystem. Results are cached
// until Reset.
func (l *IOGraphFileLoader) GetFileText(ctx context.Context, file loader.GraphFile) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := l.resolve(file.FilePath)
	if err != nil {
		return nil, err
	}
	return l.cache.Do(loader.CacheKey(file), func() ([]byte, error) {
		result, err := os.ReadFile(p)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", loader.ErrNotFound, p)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}
		return result, nil
	})
}
