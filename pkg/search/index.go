// Package search is a full-text index over the enriched character records of
// one run. Indexes live in memory and are rebuilt from the store on demand.
package search

import (
	"fmt"
	"sync"

	"github.com/comicverse/unigraph/pkg/common"
	"github.com/comicverse/unigraph/pkg/store"

	"github.com/blevesearch/bleve/v2"
)

// CharacterIndex wraps an in-memory bleve index of character records.
// All methods are safe for concurrent use.
type CharacterIndex struct {
	index bleve.Index
	mu    sync.RWMutex
}

// NewCharacterIndex creates an empty in-memory index.
func NewCharacterIndex() (*CharacterIndex, error) {
	index, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	return &CharacterIndex{index: index}, nil
}

// toDocument flattens a record into the field names of the mapping.
func toDocument(record common.CharacterRecord) map[string]any {
	doc := map[string]any{
		"id":       record.ID,
		"name":     record.Name,
		"universe": string(record.Universe),
		"text":     record.ProcessedText,
	}
	if record.Sentiment != nil {
		doc["sentiment"] = record.Sentiment.Label
	}
	return doc
}

// IndexCharacters indexes records in batches of store.InsertBatchSize.
func (c *CharacterIndex) IndexCharacters(records []common.CharacterRecord) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return store.ChunkRange(len(records), store.InsertBatchSize, func(start, end int) error {
		batch := c.index.NewBatch()
		for _, record := range records[start:end] {
			if err := batch.Index(record.ID, toDocument(record)); err != nil {
				return fmt.Errorf("batch index %s: %w", record.ID, err)
			}
		}
		if err := c.index.Batch(batch); err != nil {
			return fmt.Errorf("commit batch %d-%d: %w", start, end, err)
		}
		return nil
	})
}

// DocumentCount returns the number of indexed characters.
func (c *CharacterIndex) DocumentCount() (uint64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.index.DocCount()
}

func (c *CharacterIndex) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index.Close()
}
