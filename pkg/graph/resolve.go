package graph

import (
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/comicverse/unigraph/pkg/common"
)

// RejectReason explains why a raw reference did not resolve.
type RejectReason string

const (
	RejectNone         RejectReason = ""
	RejectNestedMarker RejectReason = "nested_marker"
	RejectSingleChar   RejectReason = "single_char"
	RejectCaseMismatch RejectReason = "case_mismatch"
	RejectUnknown      RejectReason = "unknown"
)

// ReferenceFilter is a named predicate that discards noise before catalog
// matching. Reject receives the normalized reference.
type ReferenceFilter struct {
	Name   RejectReason
	Reject func(ref string) bool
}

// HasNestedMarker matches references that still contain an opening "[[",
// which happens when a span was opened inside another one.
func HasNestedMarker(ref string) bool {
	return strings.Contains(ref, "[[")
}

// IsSingleChar matches references of exactly one code point.
func IsSingleChar(ref string) bool {
	return utf8.RuneCountInString(ref) == 1
}

// DefaultReferenceFilters is the filter policy applied by NewResolver.
var DefaultReferenceFilters = []ReferenceFilter{
	{Name: RejectNestedMarker, Reject: HasNestedMarker},
	{Name: RejectSingleChar, Reject: IsSingleChar},
}

// ResolutionStats counts what happened to the raw references of one or more
// articles. Duplicates counts resolved references that collapsed into an
// already resolved identifier of the same article.
type ResolutionStats struct {
	Total      int                  `json:"total"`
	Resolved   int                  `json:"resolved"`
	Duplicates int                  `json:"duplicates"`
	Rejected   map[RejectReason]int `json:"rejected"`
}

// Merge adds other into s.
func (s *ResolutionStats) Merge(other ResolutionStats) {
	s.Total += other.Total
	s.Resolved += other.Resolved
	s.Duplicates += other.Duplicates
	for reason, n := range other.Rejected {
		if s.Rejected == nil {
			s.Rejected = make(map[RejectReason]int)
		}
		s.Rejected[reason] += n
	}
}

// Resolver maps raw references onto catalog identifiers. It holds no mutable
// state and may be shared between goroutines.
type Resolver struct {
	catalog   *Catalog
	filters   []ReferenceFilter
	separator string
}

// ResolverOption customises a Resolver.
type ResolverOption func(*Resolver)

// WithFilters replaces the default filter policy.
func WithFilters(filters ...ReferenceFilter) ResolverOption {
	return func(r *Resolver) {
		r.filters = filters
	}
}

// WithSeparator sets the string spaces are replaced with during normalization.
func WithSeparator(sep string) ResolverOption {
	return func(r *Resolver) {
		r.separator = sep
	}
}

// NewResolver creates a Resolver for catalog using DefaultReferenceFilters and
// common.LinkSeparator unless overridden.
func NewResolver(catalog *Catalog, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		catalog:   catalog,
		filters:   DefaultReferenceFilters,
		separator: common.LinkSeparator,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(r)
	}
	return r
}

// Normalize replaces spaces in raw with the resolver's separator.
func (r *Resolver) Normalize(raw string) string {
	return strings.ReplaceAll(raw, " ", r.separator)
}

// Resolve maps one raw reference to a catalog identifier. When the reference
// is discarded ok is false and reason says why.
//
// Matching is case sensitive. A reference that would only match when case is
// ignored is still rejected, with RejectCaseMismatch, so the gap shows up in
// the statistics.
func (r *Resolver) Resolve(raw string) (id string, reason RejectReason, ok bool) {
	ref := r.Normalize(raw)
	for _, f := range r.filters {
		if f.Reject(ref) {
			return "", f.Name, false
		}
	}
	if r.catalog.Contains(ref) {
		return ref, RejectNone, true
	}
	if _, folded := r.catalog.lookupFolded(ref); folded {
		return "", RejectCaseMismatch, false
	}
	return "", RejectUnknown, false
}

// ResolveArticle resolves the raw references of one article and returns the
// distinct identifiers in lexical order. A reference to the owning article's
// own character is kept.
func (r *Resolver) ResolveArticle(raw []string) ([]string, ResolutionStats) {
	stats := ResolutionStats{Total: len(raw), Rejected: make(map[RejectReason]int)}
	seen := make(map[string]struct{}, len(raw))
	resolved := make([]string, 0, len(raw))

	for _, ref := range raw {
		id, reason, ok := r.Resolve(ref)
		if !ok {
			stats.Rejected[reason]++
			continue
		}
		if _, dup := seen[id]; dup {
			stats.Duplicates++
			continue
		}
		seen[id] = struct{}{}
		resolved = append(resolved, id)
		stats.Resolved++
	}

	slices.Sort(resolved)
	return resolved, stats
}
