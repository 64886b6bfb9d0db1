package common

import "strings"

// Universe tags the dataset a character was ingested from. The set is closed:
// every catalog entry carries one of the declared values.
type Universe string

const (
	UniverseMarvel Universe = "Marvel"
	UniverseDC     Universe = "DC"
)

// Universes lists the known universes in ingestion order.
var Universes = []Universe{UniverseMarvel, UniverseDC}

// Valid reports whether u is one of the declared universes.
func (u Universe) Valid() bool {
	for _, known := range Universes {
		if u == known {
			return true
		}
	}
	return false
}

// LinkSeparator replaces spaces in encyclopedia link targets to form
// identifiers, e.g. "Bruce Wayne" becomes "Bruce_Wayne".
const LinkSeparator = "_"

// NormalizeLinkKey turns an encyclopedia link into a catalog identifier.
func NormalizeLinkKey(link string) string {
	return strings.ReplaceAll(link, " ", LinkSeparator)
}

// Character is one catalog entry. ID is the normalized link key and is unique
// across the catalog. Characters are immutable once loaded.
type Character struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Universe Universe `json:"universe"`
}

// Article is the encyclopedia text owned by one character.
type Article struct {
	CharacterID string `json:"character_id"`
	Text        string `json:"text"`
}

// Sentiment holds document-level sentiment scores for one article.
type Sentiment struct {
	Label    string  `json:"label"`
	Positive float64 `json:"positive"`
	Neutral  float64 `json:"neutral"`
	Negative float64 `json:"negative"`
}

// CharacterRecord is a fully enriched character as it is persisted: catalog
// data plus the processed article text and its sentiment, if any.
type CharacterRecord struct {
	Character
	ProcessedText string     `json:"processed_text"`
	Sentiment     *Sentiment `json:"sentiment,omitempty"`
}

// NodeRow is one row of the nodes(id, universe) table.
type NodeRow struct {
	ID       string   `json:"id"`
	Universe Universe `json:"universe"`
}

// EdgeRow is one row of the edges(source, target) table.
type EdgeRow struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// DegreeRow is one row of the degrees(id, in_degree, out_degree) table.
type DegreeRow struct {
	ID        string `json:"id"`
	InDegree  int    `json:"in_degree"`
	OutDegree int    `json:"out_degree"`
}

// VisualEdgeRow is one row of the annotated edge table consumed by the
// visualization layer.
type VisualEdgeRow struct {
	UniverseClass string `json:"universe_class"`
	From          string `json:"from"`
	To            string `json:"to"`
	EdgeColor     string `json:"edge_color"`
	EdgeWeight    int    `json:"edge_weight"`
	SourceColor   string `json:"source_color"`
	TargetColor   string `json:"target_color"`
	TargetWeight  int    `json:"target_weight"`
	SourceWeight  int    `json:"source_weight"`
}
