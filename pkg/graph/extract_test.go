package graph

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractReferences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "empty input",
			text: "",
			want: []string{},
		},
		{
			name: "alias and plain link",
			text: "See [[Bruce Wayne|Batman]] and [[Dick Grayson]]",
			want: []string{"Bruce Wayne", "Dick Grayson"},
		},
		{
			name: "duplicates are kept",
			text: "[[Robin]] met [[Robin]]",
			want: []string{"Robin", "Robin"},
		},
		{
			name: "empty brackets",
			text: "nothing [[]] here",
			want: []string{},
		},
		{
			name: "empty target before alias",
			text: "[[|Batman]] and [[Joker]]",
			want: []string{"Joker"},
		},
		{
			name: "only first pipe splits",
			text: "[[Selina Kyle|Cat|woman]]",
			want: []string{"Selina Kyle"},
		},
		{
			name: "unterminated span",
			text: "[[Alfred Pennyworth and more text",
			want: []string{},
		},
		{
			name: "unterminated span after a valid one",
			text: "[[Alfred]] then [[Lucius",
			want: []string{"Alfred"},
		},
		{
			name: "single closing bracket ends span",
			text: "[[Harvey]Dent]] then [[Two-Face]]",
			want: []string{"Two-Face"},
		},
		{
			name: "nested opening is kept for the resolver",
			text: "[[Gotham [[City]]",
			want: []string{"Gotham [[City"},
		},
		{
			name: "leading extra bracket",
			text: "[[[Bane]]",
			want: []string{"[Bane"},
		},
		{
			name: "span crosses lines",
			text: "[[Jim\nGordon]]",
			want: []string{"Jim\nGordon"},
		},
		{
			name: "single brackets are not links",
			text: "[Oracle] and [ [Huntress] ]",
			want: []string{},
		},
		{
			name: "trailing bracket pair",
			text: "text [[",
			want: []string{},
		},
		{
			name: "utf-8 content",
			text: "[[Zatanna Zatara|Zatanna]] [[Éclipso]]",
			want: []string{"Zatanna Zatara", "Éclipso"},
		},
		{
			name: "wiki template noise",
			text: "{{Infobox|image=[[File:Batman.png|thumb]]}} [[Category:DC]]",
			want: []string{"File:Batman.png", "Category:DC"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractReferences(tt.text)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractReferences_LargeInput(t *testing.T) {
	var b strings.Builder
	for range 10000 {
		b.WriteString("prose [[Clark Kent|Superman]] more prose [")
	}

	got := ExtractReferences(b.String())
	assert.Len(t, got, 10000)
	assert.Equal(t, "Clark Kent", got[0])
}
