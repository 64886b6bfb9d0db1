// Package text prepares article text for storage and sentiment scoring.
package text

import (
	"strings"
	"sync"
	"unicode"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
)

// Sentiment scoring looks at a fixed window of the raw article, skipping the
// infobox-heavy opening.
const (
	SentimentWindowStart = 1000
	SentimentWindowEnd   = 6000
)

var (
	stopWords     analysis.TokenMap
	stopWordsOnce sync.Once
)

func englishStopWords() analysis.TokenMap {
	stopWordsOnce.Do(func() {
		stopWords = analysis.NewTokenMap()
		if err := stopWords.LoadBytes(en.EnglishStopWords); err != nil {
			panic(err)
		}
	})
	return stopWords
}

// IsStopWord reports whether the lowercase token is an English stop word.
func IsStopWord(token string) bool {
	return englishStopWords()[token]
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}

// Tokenize splits s into maximal runs of word characters (letters, digits,
// marks and underscore).
func Tokenize(s string) []string {
	tokens := make([]string, 0)
	start := -1
	for i, r := range s {
		if isWordRune(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			tokens = append(tokens, s[start:i])
			start = -1
		}
	}
	if start >= 0 {
		tokens = append(tokens, s[start:])
	}
	return tokens
}

// Process lowercases raw, tokenizes it and drops English stop words. The
// remaining tokens are joined with single spaces.
func Process(raw string) string {
	tokens := Tokenize(strings.ToLower(raw))
	kept := tokens[:0]
	for _, t := range tokens {
		if !IsStopWord(t) {
			kept = append(kept, t)
		}
	}
	return strings.Join(kept, " ")
}

// Window returns the code points of s in [start, end), clamped to the length
// of s.
func Window(s string, start, end int) string {
	if start < 0 {
		start = 0
	}
	if end <= start {
		return ""
	}

	from, to := -1, len(s)
	n := 0
	for i := range s {
		if n == start {
			from = i
		}
		if n == end {
			to = i
			break
		}
		n++
	}
	if from < 0 {
		return ""
	}
	return s[from:to]
}

// SentimentWindow returns the slice of raw that is sent for sentiment scoring.
func SentimentWindow(raw string) string {
	return Window(raw, SentimentWindowStart, SentimentWindowEnd)
}
