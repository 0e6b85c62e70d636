package domain

import "strings"

// FacetAll is the facet value meaning "no restriction".
const FacetAll = "all"

// Facets is the vocabulary of type and language facets a client may send.
// Composites name a set of concrete types, e.g. Attributes.
type Facets struct {
	Types      []string            `yaml:"types"`
	Composites map[string][]string `yaml:"composites"`
	Languages  []string            `yaml:"languages"`
}

// DefaultFacets returns the built-in vocabulary.
func DefaultFacets() Facets {
	return Facets{
		Types:      []string{"Class", "DatatypeProperty", "ObjectProperty", "Datatype"},
		Composites: map[string][]string{"Attributes": {"DatatypeProperty", "ObjectProperty"}},
		Languages:  []string{"en", "nl"},
	}
}

// IsAll reports whether a facet value places no restriction.
func IsAll(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.EqualFold(v, FacetAll)
}
