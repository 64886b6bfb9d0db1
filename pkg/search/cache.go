package search

import (
	"context"
	"fmt"
	"sync"

	"github.com/comicverse/unigraph/pkg/logger"
	"github.com/comicverse/unigraph/pkg/store"

	"golang.org/x/sync/singleflight"
)

// RunIndexes lazily builds one CharacterIndex per run from the store.
// Completed runs never change, so an index is built at most once.
type RunIndexes struct {
	storage store.GraphStorage

	mu      sync.RWMutex
	indexes map[string]*CharacterIndex
	group   singleflight.Group
}

func NewRunIndexes(storage store.GraphStorage) *RunIndexes {
	return &RunIndexes{
		storage: storage,
		indexes: make(map[string]*CharacterIndex),
	}
}

// ForRun returns the index of runID, building it on first use.
func (r *RunIndexes) ForRun(ctx context.Context, runID string) (*CharacterIndex, error) {
	r.mu.RLock()
	idx, ok := r.indexes[runID]
	r.mu.RUnlock()
	if ok {
		return idx, nil
	}

	v, err, _ := r.group.Do(runID, func() (any, error) {
		r.mu.RLock()
		idx, ok := r.indexes[runID]
		r.mu.RUnlock()
		if ok {
			return idx, nil
		}

		records, err := r.storage.GetCharacters(ctx, runID)
		if err != nil {
			return nil, fmt.Errorf("failed to load characters of run %s: %w", runID, err)
		}
		idx, err = NewCharacterIndex()
		if err != nil {
			return nil, err
		}
		if err := idx.IndexCharacters(records); err != nil {
			_ = idx.Close()
			return nil, err
		}

		r.mu.Lock()
		r.indexes[runID] = idx
		r.mu.Unlock()
		logger.Info("[Search] Index built", "run", runID, "characters", len(records))
		return idx, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*CharacterIndex), nil
}

// Close closes every cached index.
func (r *RunIndexes) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var first error
	for id, idx := range r.indexes {
		if err := idx.Close(); err != nil && first == nil {
			first = err
		}
		delete(r.indexes, id)
	}
	return first
}
