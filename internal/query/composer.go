// Package query turns a user term and facet selections into store-agnostic
// query specs.
package query

import (
	"strings"

	"github.com/utafrali/termsearch/internal/domain"
)

const (
	// SearchSize caps the number of full-search hits.
	SearchSize = 100
	// SuggestSize caps the number of suggestion hits.
	SuggestSize = 10
)

// Clause is an optional filter builder. It reports false when it adds nothing.
type Clause func() (domain.Filter, bool)

// Composer builds search and suggest queries over a fixed facet vocabulary.
// It holds no request state and is safe for concurrent use.
type Composer struct {
	composites map[string][]string
}

// NewComposer returns a Composer for the given facet vocabulary.
func NewComposer(facets domain.Facets) *Composer {
	composites := make(map[string][]string, len(facets.Composites))
	for name, members := range facets.Composites {
		composites[name] = append([]string(nil), members...)
	}
	return &Composer{composites: composites}
}

// BuildSearchQuery returns a fuzzy multi-field query over labels and
// definitions, filtered by the type and language facets.
func (c *Composer) BuildSearchQuery(term, typeFacet, languageFacet string) domain.QuerySpec {
	base := domain.QuerySpec{
		Text:   textQuery(domain.TextFuzzy, term, domain.FieldLabelValue, domain.FieldDefinitionValue),
		Sort:   []domain.SortField{{Field: domain.FieldLabelRaw, Ascending: true}},
		Size:   SearchSize,
		Source: []string{domain.FieldLabel, domain.FieldDefinition, domain.FieldType},
	}
	return facetedQuery(base, c.typeClause(typeFacet), languageClause(languageFacet))
}

// BuildSuggestQuery returns a case-insensitive prefix query on the raw label,
// filtered by the type and language facets.
func (c *Composer) BuildSuggestQuery(partialTerm, typeFacet, languageFacet string) domain.QuerySpec {
	base := domain.QuerySpec{
		Text:   textQuery(domain.TextPrefix, partialTerm, domain.FieldLabelRaw),
		Sort:   []domain.SortField{{Field: domain.FieldLabelRaw, Ascending: true}},
		Size:   SuggestSize,
		Source: []string{domain.FieldLabel},
	}
	return facetedQuery(base, c.typeClause(typeFacet), languageClause(languageFacet))
}

// facetedQuery folds the accepted clauses into base as AND-combined filters.
func facetedQuery(base domain.QuerySpec, clauses ...Clause) domain.QuerySpec {
	out := base
	for _, clause := range clauses {
		if f, ok := clause(); ok {
			out = out.WithFilter(f)
		}
	}
	return out
}

func textQuery(kind domain.TextKind, term string, fields ...string) domain.TextQuery {
	term = strings.TrimSpace(term)
	if term == "" {
		return domain.TextQuery{Kind: domain.TextMatchAll}
	}
	tq := domain.TextQuery{Kind: kind, Query: term, Fields: fields}
	if kind == domain.TextFuzzy {
		tq.Fuzziness = domain.FuzzinessAuto
	}
	return tq
}

func (c *Composer) typeClause(facet string) Clause {
	return func() (domain.Filter, bool) {
		if domain.IsAll(facet) {
			return domain.Filter{}, false
		}
		name := strings.TrimSpace(facet)
		if members, ok := c.composites[name]; ok {
			return domain.Filter{Field: domain.FieldType, Values: append([]string(nil), members...)}, true
		}
		return domain.Filter{Field: domain.FieldType, Values: []string{name}}, true
	}
}

func languageClause(facet string) Clause {
	return func() (domain.Filter, bool) {
		if domain.IsAll(facet) {
			return domain.Filter{}, false
		}
		return domain.Filter{Field: domain.FieldLabelLanguage, Values: []string{strings.TrimSpace(facet)}}, true
	}
}
