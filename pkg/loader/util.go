package loader

import (
	"fmt"
	"path"
	"path/filepath"
	"sync"

	"golang.org/x/sync/singleflight"
)

// CacheKey generates a unique cache key for a GraphFile based on its ID and path.
func CacheKey(file GraphFile) string {
	return file.ID + ":" + file.FilePath
}

// CheckLocalPath rejects paths that are absolute or leave the directory they
// are resolved against. The empty path is local.
func CheckLocalPath(p string) error {
	if p == "" || filepath.IsLocal(p) && !path.IsAbs(p) {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrOutsideRoot, p)
}

// ArticleExtensions lists the file extensions tried, in order, when looking
// up the stored article of a character.
var ArticleExtensions = []string{".json", ".txt"}

// ArticlePaths returns the candidate paths of the article stored for id
// under prefix.
func ArticlePaths(prefix string, id string) []string {
	paths := make([]string, 0, len(ArticleExtensions))
	for _, ext := range ArticleExtensions {
		paths = append(paths, path.Join(prefix, id+ext))
	}
	return paths
}

// Resetter is implemented by loaders that cache content. Callers that reuse
// a loader across runs reset it between runs so every run reads its inputs.
type Resetter interface {
	Reset()
}

// ResetAll resets every loader that caches content.
func ResetAll(loaders ...any) {
	for _, l := range loaders {
		if r, ok := l.(Resetter); ok {
			r.Reset()
		}
	}
}

// FileCache memoizes file contents by key. Concurrent requests for the same
// key share one load. Failed loads are not cached. Entries live until Reset.
type FileCache struct {
	cache   map[string][]byte
	cacheMu sync.RWMutex
	group   singleflight.Group
}

func NewFileCache() *FileCache {
	return &FileCache{
		cache: make(map[string][]byte),
	}
}

func (c *FileCache) get(key string) ([]byte, bool) {
	c.cacheMu.RLock()
	defer c.cacheMu.RUnlock()
	cached, ok := c.cache[key]
	return cached, ok
}

// Do returns the cached content for key or calls load to produce it.
func (c *FileCache) Do(key string, load func() ([]byte, error)) ([]byte, error) {
	if cached, ok := c.get(key); ok {
		return cached, nil
	}

	result, err, _ := c.group.Do(key, func() (any, error) {
		if cached, ok := c.get(key); ok {
			return cached, nil
		}

		result, err := load()
		if err != nil {
			return nil, err
		}

		c.cacheMu.Lock()
		c.cache[key] = result
		c.cacheMu.Unlock()

		return result, nil
	})
	if err != nil {
		return nil, err
	}

	return result.([]byte), nil
}

// Len returns the number of cached entries.
func (c *FileCache) Len() int {
	c.cacheMu.RLock()
	defer c.cacheMu.RUnlock()
	return len(c.cache)
}

// Reset drops every cached entry. Loads in flight finish normally.
func (c *FileCache) Reset() {
	c.cacheMu.Lock()
	c.cache = make(map[string][]byte)
	c.cacheMu.Unlock()
}
