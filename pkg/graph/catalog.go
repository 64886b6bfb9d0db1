package graph

import (
	"strings"

	"github.com/comicverse/unigraph/pkg/common"
	"github.com/comicverse/unigraph/pkg/logger"
)

// Catalog is the immutable set of known characters, keyed by identifier.
// Entries keep the order they were loaded in.
//
// A Catalog should be created using NewCatalog.
type Catalog struct {
	entries []common.Character
	index   map[string]int
	folded  map[string]string
}

// NewCatalog builds a catalog from characters. Identifiers are expected to be
// normalized already (see common.NormalizeLinkKey). When an identifier occurs
// more than once the first entry wins and the duplicate is logged.
func NewCatalog(characters []common.Character) *Catalog {
	c := &Catalog{
		entries: make([]common.Character, 0, len(characters)),
		index:   make(map[string]int, len(characters)),
		folded:  make(map[string]string, len(characters)),
	}

	for _, ch := range characters {
		if ch.ID == "" {
			logger.DataQuality("catalog", "empty_identifier", "name", ch.Name, "universe", ch.Universe)
			continue
		}
		if _, ok := c.index[ch.ID]; ok {
			logger.DataQuality("catalog", "duplicate_identifier", "id", ch.ID, "universe", ch.Universe)
			continue
		}
		c.index[ch.ID] = len(c.entries)
		c.entries = append(c.entries, ch)

		key := strings.ToLower(ch.ID)
		if _, ok := c.folded[key]; !ok {
			c.folded[key] = ch.ID
		}
	}

	return c
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Contains reports whether id is a catalog identifier. Matching is exact.
func (c *Catalog) Contains(id string) bool {
	_, ok := c.index[id]
	return ok
}

// Lookup returns the entry for id.
func (c *Catalog) Lookup(id string) (common.Character, bool) {
	idx, ok := c.index[id]
	if !ok {
		return common.Character{}, false
	}
	return c.entries[idx], true
}

// lookupFolded returns the identifier that equals id when case is ignored.
func (c *Catalog) lookupFolded(id string) (string, bool) {
	match, ok := c.folded[strings.ToLower(id)]
	return match, ok
}

// Entries returns a copy of the entries in load order.
func (c *Catalog) Entries() []common.Character {
	out := make([]common.Character, len(c.entries))
	copy(out, c.entries)
	return out
}
