package graph

import (
	"fmt"
	"io"

	"github.com/comicverse/unigraph/pkg/common"

	"gopkg.in/yaml.v3"
)

// Palette holds the presentation constants of the visualization table.
type Palette struct {
	CrossEdgeColor    string                     `yaml:"cross_edge_color"`
	CrossEdgeWeight   int                        `yaml:"cross_edge_weight"`
	IntraEdgeWeight   int                        `yaml:"intra_edge_weight"`
	UniverseColors    map[common.Universe]string `yaml:"universe_colors"`
	FallbackColor     string                     `yaml:"fallback_color"`
	TopTargetWeight   int                        `yaml:"top_target_weight"`
	OtherTargetWeight int                        `yaml:"other_target_weight"`
	SourceWeight      int                        `yaml:"source_weight"`
}

// DefaultPalette returns the colors and weights used by the dashboards:
// DC in black, Marvel in red, cross-universe edges in yellow.
func DefaultPalette() Palette {
	return Palette{
		CrossEdgeColor:  "#FFFF00",
		CrossEdgeWeight: 20,
		IntraEdgeWeight: 5,
		UniverseColors: map[common.Universe]string{
			common.UniverseDC:     "#000000",
			common.UniverseMarvel: "#CB1E1E",
		},
		FallbackColor:     "#CB1E1E",
		TopTargetWeight:   20,
		OtherTargetWeight: 5,
		SourceWeight:      20,
	}
}

// LoadPalette reads a YAML palette. Fields missing from the document keep
// their DefaultPalette value; universe colors are merged key by key.
func LoadPalette(r io.Reader) (Palette, error) {
	p := DefaultPalette()
	defaults := p.UniverseColors

	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&p); err != nil && err != io.EOF {
		return Palette{}, fmt.Errorf("failed to decode palette: %w", err)
	}

	merged := make(map[common.Universe]string, len(defaults)+len(p.UniverseColors))
	for u, c := range defaults {
		merged[u] = c
	}
	for u, c := range p.UniverseColors {
		merged[u] = c
	}
	p.UniverseColors = merged
	return p, nil
}

// ColorOf returns the color of universe u.
func (p Palette) ColorOf(u common.Universe) string {
	if c, ok := p.UniverseColors[u]; ok {
		return c
	}
	return p.FallbackColor
}

// VisualEdges builds the annotated edge table for the visualization layer.
// It classifies the edges of giant and keeps those whose source is in top.
// Targets in top get TopTargetWeight, all others OtherTargetWeight.
func VisualEdges(giant *MentionGraph, top []DegreeRecord, palette Palette) []common.VisualEdgeRow {
	topSet := TopSet(top)

	rows := make([]common.VisualEdgeRow, 0)
	for _, e := range ClassifyEdges(giant) {
		if _, ok := topSet[e.Source]; !ok {
			continue
		}

		targetWeight := palette.OtherTargetWeight
		if _, ok := topSet[e.Target]; ok {
			targetWeight = palette.TopTargetWeight
		}

		row := common.VisualEdgeRow{
			UniverseClass: string(e.Class),
			From:          e.Source,
			To:            e.Target,
			SourceColor:   palette.ColorOf(e.SourceUniverse),
			TargetColor:   palette.ColorOf(e.TargetUniverse),
			TargetWeight:  targetWeight,
			SourceWeight:  palette.SourceWeight,
		}
		if e.Class == EdgeCross {
			row.EdgeColor = palette.CrossEdgeColor
			row.EdgeWeight = palette.CrossEdgeWeight
		} else {
			row.EdgeColor = palette.ColorOf(e.SourceUniverse)
			row.EdgeWeight = palette.IntraEdgeWeight
		}
		rows = append(rows, row)
	}
	return rows
}
