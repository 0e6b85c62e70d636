// Package projector flattens store hits into the response shapes clients render.
package projector

import (
	"strings"

	"github.com/utafrali/termsearch/internal/domain"
)

// SearchItem is one search result with a single representative value per field.
type SearchItem struct {
	Label      string `json:"label"`
	Definition string `json:"definition"`
	Type       string `json:"type"`
	Language   string `json:"language"`
}

// Search projects hits in store order. When languageFacet names a concrete
// language, values in that language are preferred.
func Search(hits []domain.Document, languageFacet string) []SearchItem {
	lang := concreteLanguage(languageFacet)
	items := make([]SearchItem, 0, len(hits))
	for _, h := range hits {
		label := pick(h.Label, lang, nil)
		definition := pick(h.Definition, lang, nil)
		items = append(items, SearchItem{
			Label:      label.Value,
			Definition: definition.Value,
			Type:       h.Type,
			Language:   label.Language,
		})
	}
	return items
}

// Suggestions picks one label per hit, preferring values that start with the
// input, then removes duplicates and echoes of the input.
func Suggestions(hits []domain.Document, partialTerm, languageFacet string) []string {
	lang := concreteLanguage(languageFacet)
	prefix := strings.ToLower(strings.TrimSpace(partialTerm))
	startsWith := func(v string) bool {
		return strings.HasPrefix(strings.ToLower(v), prefix)
	}

	labels := make([]string, 0, len(hits))
	for _, h := range hits {
		if v := pick(h.Label, lang, startsWith).Value; v != "" {
			labels = append(labels, v)
		}
	}
	return Dedupe(labels, partialTerm)
}

// Dedupe keeps the first case-insensitive occurrence of each label, drops
// labels equal to the trimmed input and preserves order. It never returns nil.
func Dedupe(labels []string, input string) []string {
	input = strings.ToLower(strings.TrimSpace(input))
	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		key := strings.ToLower(l)
		if key == input {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, l)
	}
	return out
}

// pick returns the first value in lang that also satisfies match, then the
// first value in lang, then the first value overall.
func pick(values []domain.LangString, lang string, match func(string) bool) domain.LangString {
	if len(values) == 0 {
		return domain.LangString{}
	}
	inLang := func(v domain.LangString) bool { return lang == "" || v.Language == lang }

	if match != nil {
		for _, v := range values {
			if inLang(v) && match(v.Value) {
				return v
			}
		}
	}
	for _, v := range values {
		if inLang(v) {
			return v
		}
	}
	return values[0]
}

func concreteLanguage(facet string) string {
	if domain.IsAll(facet) {
		return ""
	}
	return strings.TrimSpace(facet)
}
