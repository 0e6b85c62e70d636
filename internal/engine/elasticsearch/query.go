package elasticsearch

import "github.com/utafrali/termsearch/internal/domain"

// buildSearchBody translates a QuerySpec into the Elasticsearch query DSL.
func buildSearchBody(spec domain.QuerySpec) map[string]any {
	body := map[string]any{
		"query": buildQuery(spec),
		"size":  spec.Size,
	}
	if len(spec.Sort) > 0 {
		sorts := make([]any, 0, len(spec.Sort))
		for _, s := range spec.Sort {
			order := "desc"
			if s.Ascending {
				order = "asc"
			}
			sorts = append(sorts, map[string]any{s.Field: map[string]any{"order": order}})
		}
		body["sort"] = sorts
	}
	if len(spec.Source) > 0 {
		body["_source"] = spec.Source
	}
	return body
}

// buildQuery places the text clause in must and the facet clauses in filter,
// so facets restrict without affecting scoring.
func buildQuery(spec domain.QuerySpec) map[string]any {
	text := textClause(spec.Text)
	if len(spec.Filters) == 0 {
		return text
	}

	filters := make([]any, 0, len(spec.Filters))
	for _, f := range spec.Filters {
		filters = append(filters, filterClause(f))
	}
	return map[string]any{
		"bool": map[string]any{
			"must":   []any{text},
			"filter": filters,
		},
	}
}

func textClause(q domain.TextQuery) map[string]any {
	switch q.Kind {
	case domain.TextFuzzy:
		mm := map[string]any{
			"query":  q.Query,
			"fields": q.Fields,
		}
		if q.Fuzziness != "" {
			mm["fuzziness"] = q.Fuzziness
		}
		return map[string]any{"multi_match": mm}
	case domain.TextPrefix:
		clauses := make([]any, 0, len(q.Fields))
		for _, field := range q.Fields {
			clauses = append(clauses, map[string]any{
				"prefix": map[string]any{
					field: map[string]any{"value": q.Query, "case_insensitive": true},
				},
			})
		}
		if len(clauses) == 1 {
			return clauses[0].(map[string]any)
		}
		return map[string]any{
			"bool": map[string]any{"should": clauses, "minimum_should_match": 1},
		}
	default:
		return map[string]any{"match_all": map[string]any{}}
	}
}

func filterClause(f domain.Filter) map[string]any {
	if len(f.Values) == 1 {
		return map[string]any{"term": map[string]any{f.Field: f.Values[0]}}
	}
	return map[string]any{"terms": map[string]any{f.Field: f.Values}}
}
