package domain

import "slices"

// TextKind selects how the free-text part of a query matches.
type TextKind int

const (
	TextMatchAll TextKind = iota
	TextFuzzy
	TextPrefix
)

func (k TextKind) String() string {
	switch k {
	case TextFuzzy:
		return "fuzzy"
	case TextPrefix:
		return "prefix"
	default:
		return "match_all"
	}
}

// FuzzinessAuto scales allowed edits with term length: 0 for 1-2
// characters, 1 for 3-5, 2 beyond.
const FuzzinessAuto = "AUTO"

// TextQuery is the free-text part of a QuerySpec.
type TextQuery struct {
	Kind      TextKind
	Query     string
	Fields    []string
	Fuzziness string
}

// Filter restricts results to documents whose Field holds one of Values.
// A single value is an exact term match; several values are a set membership.
type Filter struct {
	Field  string
	Values []string
}

// SortField orders results by a keyword field.
type SortField struct {
	Field     string
	Ascending bool
}

// QuerySpec is a store-agnostic description of a search. Filters are
// AND-combined in order. Treat it as a value: use WithFilter to extend it.
type QuerySpec struct {
	Text    TextQuery
	Filters []Filter
	Sort    []SortField
	Size    int
	Source  []string
}

// WithFilter returns a copy of q with f appended. q itself is not modified.
func (q QuerySpec) WithFilter(f Filter) QuerySpec {
	out := q
	out.Filters = append(slices.Clone(q.Filters), f)
	return out
}

// SearchResult is the raw store response for a QuerySpec, hits in store order.
type SearchResult struct {
	Hits  []Document
	Total int
	// TookMs is the store-reported execution time.
	TookMs int64
}
