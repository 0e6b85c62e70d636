package elasticsearch

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/termsearch/internal/domain"
)

// asJSON renders v so expectations can be written as JSON literals.
func asJSON(t *testing.T, v any) string {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return string(raw)
}

func TestBuildSearchBody_FuzzyWithFacets(t *testing.T) {
	spec := domain.QuerySpec{
		Text: domain.TextQuery{
			Kind:      domain.TextFuzzy,
			Query:     "cta",
			Fields:    []string{domain.FieldLabelValue, domain.FieldDefinitionValue},
			Fuzziness: domain.FuzzinessAuto,
		},
		Filters: []domain.Filter{
			{Field: domain.FieldType, Values: []string{"DatatypeProperty", "ObjectProperty"}},
			{Field: domain.FieldLabelLanguage, Values: []string{"en"}},
		},
		Sort:   []domain.SortField{{Field: domain.FieldLabelRaw, Ascending: true}},
		Size:   100,
		Source: []string{domain.FieldLabel, domain.FieldDefinition, domain.FieldType},
	}

	assert.JSONEq(t, `{
		"query": {"bool": {
			"must": [{"multi_match": {"query": "cta", "fields": ["label.@value", "definition.@value"], "fuzziness": "AUTO"}}],
			"filter": [
				{"terms": {"@type": ["DatatypeProperty", "ObjectProperty"]}},
				{"term": {"label.@language": "en"}}
			]
		}},
		"size": 100,
		"sort": [{"label.@value.raw": {"order": "asc"}}],
		"_source": ["label", "definition", "@type"]
	}`, asJSON(t, buildSearchBody(spec)))
}

func TestBuildSearchBody_PrefixWithoutFacets(t *testing.T) {
	spec := domain.QuerySpec{
		Text: domain.TextQuery{Kind: domain.TextPrefix, Query: "Ca", Fields: []string{domain.FieldLabelRaw}},
		Sort: []domain.SortField{{Field: domain.FieldLabelRaw, Ascending: true}},
		Size: 10,
	}

	assert.JSONEq(t, `{
		"query": {"prefix": {"label.@value.raw": {"value": "Ca", "case_insensitive": true}}},
		"size": 10,
		"sort": [{"label.@value.raw": {"order": "asc"}}]
	}`, asJSON(t, buildSearchBody(spec)))
}

func TestBuildSearchBody_MatchAll(t *testing.T) {
	assert.JSONEq(t, `{"query": {"match_all": {}}, "size": 5}`,
		asJSON(t, buildSearchBody(domain.QuerySpec{Size: 5})))
}

func TestBuildSearchBody_ExactTypeFilter(t *testing.T) {
	spec := domain.QuerySpec{Size: 1}.WithFilter(domain.Filter{Field: domain.FieldType, Values: []string{"Class"}})

	assert.JSONEq(t, `{
		"query": {"bool": {"must": [{"match_all": {}}], "filter": [{"term": {"@type": "Class"}}]}},
		"size": 1
	}`, asJSON(t, buildSearchBody(spec)))
}

func TestTextClause_PrefixOverSeveralFields(t *testing.T) {
	clause := textClause(domain.TextQuery{Kind: domain.TextPrefix, Query: "x", Fields: []string{"a", "b"}})

	assert.JSONEq(t, `{"bool": {"minimum_should_match": 1, "should": [
		{"prefix": {"a": {"value": "x", "case_insensitive": true}}},
		{"prefix": {"b": {"value": "x", "case_insensitive": true}}}
	]}}`, asJSON(t, clause))
}

func TestIndexMapping_IsValidJSON(t *testing.T) {
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(indexMapping), &m))

	props := m["mappings"].(map[string]any)["properties"].(map[string]any)
	label := props["label"].(map[string]any)["properties"].(map[string]any)
	raw := label["@value"].(map[string]any)["fields"].(map[string]any)["raw"].(map[string]any)
	assert.Equal(t, "keyword", raw["type"])
	assert.Equal(t, "keyword", props["@type"].(map[string]any)["type"])
}
