package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/termsearch/internal/domain"
)

func newTestDocument(id, typ string, labels ...domain.LangString) domain.Document {
	return domain.Document{
		ID:          id,
		Type:        typ,
		Label:       labels,
		Definition:  []domain.LangString{{Language: "en", Value: "Definition of " + id}},
		ContentHash: "h-" + id,
	}
}

func en(v string) domain.LangString { return domain.LangString{Language: "en", Value: v} }
func nl(v string) domain.LangString { return domain.LangString{Language: "nl", Value: v} }

func seeded(t *testing.T, docs ...domain.Document) *Engine {
	t.Helper()
	eng := New()
	res, err := eng.BulkUpsert(context.Background(), docs, domain.BulkOptions{RefreshNow: true})
	require.NoError(t, err)
	require.Equal(t, len(docs), res.Succeeded)
	return eng
}

func ids(res *domain.SearchResult) []string {
	out := make([]string, len(res.Hits))
	for i, h := range res.Hits {
		out[i] = h.ID
	}
	return out
}

func fuzzySpec(q string) domain.QuerySpec {
	return domain.QuerySpec{
		Text: domain.TextQuery{
			Kind:      domain.TextFuzzy,
			Query:     q,
			Fields:    []string{domain.FieldLabelValue, domain.FieldDefinitionValue},
			Fuzziness: domain.FuzzinessAuto,
		},
		Sort: []domain.SortField{{Field: domain.FieldLabelRaw, Ascending: true}},
		Size: 100,
	}
}

func prefixSpec(q string) domain.QuerySpec {
	return domain.QuerySpec{
		Text: domain.TextQuery{Kind: domain.TextPrefix, Query: q, Fields: []string{domain.FieldLabelRaw}},
		Sort: []domain.SortField{{Field: domain.FieldLabelRaw, Ascending: true}},
		Size: 10,
	}
}

func TestEngine_FuzzySearch_Transposition(t *testing.T) {
	eng := seeded(t,
		newTestDocument("cat", "Class", en("Cat")),
		newTestDocument("dog", "Class", en("Dog")),
	)

	res, err := eng.Search(context.Background(), fuzzySpec("Cta"))
	require.NoError(t, err)
	assert.Equal(t, []string{"cat"}, ids(res))
}

func TestEngine_FuzzySearch_ShortTermsAreExact(t *testing.T) {
	eng := seeded(t, newTestDocument("ox", "Class", en("Ox")), newTestDocument("oz", "Class", en("Oz")))

	res, err := eng.Search(context.Background(), fuzzySpec("ox"))
	require.NoError(t, err)
	assert.Equal(t, []string{"ox"}, ids(res))
}

func TestEngine_FuzzySearch_MatchesDefinitionTokens(t *testing.T) {
	doc := newTestDocument("feline", "Class", en("Feline"))
	doc.Definition = []domain.LangString{en("A carnivorous mammal with whiskers.")}
	eng := seeded(t, doc, newTestDocument("rock", "Class", en("Rock")))

	res, err := eng.Search(context.Background(), fuzzySpec("wiskers"))
	require.NoError(t, err)
	assert.Equal(t, []string{"feline"}, ids(res))
}

func TestEngine_FuzzySearch_OnlyWhitespaceMatchesNothing(t *testing.T) {
	eng := seeded(t, newTestDocument("cat", "Class", en("Cat")))

	res, err := eng.Search(context.Background(), fuzzySpec("  "))
	require.NoError(t, err)
	assert.Empty(t, res.Hits)
}

func TestEngine_Prefix_CaseInsensitive(t *testing.T) {
	eng := seeded(t,
		newTestDocument("car", "Class", en("car")),
		newTestDocument("cat", "Class", en("Cat")),
		newTestDocument("cart", "Class", en("CART")),
		newTestDocument("bus", "Class", en("Bus")),
	)

	res, err := eng.Search(context.Background(), prefixSpec("ca"))
	require.NoError(t, err)
	// Keyword sort is byte order: upper case first.
	assert.Equal(t, []string{"cart", "cat", "car"}, ids(res))
}

func TestEngine_Prefix_NoFuzziness(t *testing.T) {
	eng := seeded(t, newTestDocument("cat", "Class", en("Cat")))

	res, err := eng.Search(context.Background(), prefixSpec("ct"))
	require.NoError(t, err)
	assert.Empty(t, res.Hits)
}

func TestEngine_Filters(t *testing.T) {
	eng := seeded(t,
		newTestDocument("c", "Class", en("Cat")),
		newTestDocument("d", "DatatypeProperty", en("Catalog number")),
		newTestDocument("o", "ObjectProperty", nl("Categorie")),
		newTestDocument("t", "Datatype", en("Category code")),
	)
	matchAll := domain.QuerySpec{Size: 100, Sort: []domain.SortField{{Field: domain.FieldID, Ascending: true}}}

	tests := []struct {
		name    string
		filters []domain.Filter
		want    []string
	}{
		{"none", nil, []string{"c", "d", "o", "t"}},
		{"exact type", []domain.Filter{{Field: domain.FieldType, Values: []string{"Class"}}}, []string{"c"}},
		{"type set", []domain.Filter{{Field: domain.FieldType, Values: []string{"DatatypeProperty", "ObjectProperty"}}}, []string{"d", "o"}},
		{"language", []domain.Filter{{Field: domain.FieldLabelLanguage, Values: []string{"nl"}}}, []string{"o"}},
		{"and combined", []domain.Filter{
			{Field: domain.FieldType, Values: []string{"DatatypeProperty", "ObjectProperty"}},
			{Field: domain.FieldLabelLanguage, Values: []string{"en"}},
		}, []string{"d"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			spec := matchAll
			for _, f := range tc.filters {
				spec = spec.WithFilter(f)
			}
			res, err := eng.Search(context.Background(), spec)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ids(res))
		})
	}
}

func TestEngine_SortAndSize(t *testing.T) {
	var docs []domain.Document
	for i := 20; i > 0; i-- {
		docs = append(docs, newTestDocument(fmt.Sprintf("d%02d", i), "Class", en(fmt.Sprintf("Term %02d", i))))
	}
	docs = append(docs, newTestDocument("nolabel", "Class"))
	eng := seeded(t, docs...)

	spec := domain.QuerySpec{Sort: []domain.SortField{{Field: domain.FieldLabelRaw, Ascending: true}}, Size: 3}
	res, err := eng.Search(context.Background(), spec)
	require.NoError(t, err)
	assert.Equal(t, []string{"d01", "d02", "d03"}, ids(res))
	assert.Equal(t, 21, res.Total)

	spec.Size = 100
	res, err = eng.Search(context.Background(), spec)
	require.NoError(t, err)
	assert.Equal(t, "nolabel", res.Hits[len(res.Hits)-1].ID, "documents without a sort value go last")
}

func TestEngine_SortMultiValuedUsesSmallest(t *testing.T) {
	eng := seeded(t,
		newTestDocument("a", "Class", en("Zebra"), nl("Aap")),
		newTestDocument("b", "Class", en("Monkey")),
	)

	res, err := eng.Search(context.Background(), domain.QuerySpec{
		Sort: []domain.SortField{{Field: domain.FieldLabelRaw, Ascending: true}},
		Size: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids(res))
}

func TestEngine_SourceFiltering(t *testing.T) {
	eng := seeded(t, newTestDocument("cat", "Class", en("Cat")))

	res, err := eng.Search(context.Background(), domain.QuerySpec{Size: 10, Source: []string{domain.FieldLabel}})
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, "Cat", res.Hits[0].Label[0].Value)
	assert.Empty(t, res.Hits[0].Definition)
	assert.Empty(t, res.Hits[0].Type)
	assert.Empty(t, res.Hits[0].ContentHash)
}

func TestEngine_SnapshotSpansPages(t *testing.T) {
	eng := New(WithPageSize(2))
	var docs []domain.Document
	for i := 0; i < 5; i++ {
		docs = append(docs, newTestDocument(fmt.Sprintf("id-%d", i), "Class", en("x")))
	}
	_, err := eng.BulkUpsert(context.Background(), docs, domain.BulkOptions{})
	require.NoError(t, err)

	refs, err := eng.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, refs, 5)
	assert.Equal(t, domain.IndexedRef{ID: "id-4", ContentHash: "h-id-4"}, refs[4])
}

func TestEngine_SnapshotEmpty(t *testing.T) {
	refs, err := New().Snapshot(context.Background())
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestEngine_SnapshotCanceled(t *testing.T) {
	eng := seeded(t, newTestDocument("a", "Class", en("A")))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := eng.Snapshot(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngine_BulkUpsert_ReplacesByID(t *testing.T) {
	eng := seeded(t, newTestDocument("cat", "Class", en("Cat")))

	updated := newTestDocument("cat", "Class", en("Kitty"))
	res, err := eng.BulkUpsert(context.Background(), []domain.Document{updated}, domain.BulkOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Succeeded)

	n, err := eng.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := eng.Search(context.Background(), prefixSpec("kit"))
	require.NoError(t, err)
	assert.Equal(t, []string{"cat"}, ids(got))
}

func TestEngine_BulkUpsert_PartialFailure(t *testing.T) {
	eng := New()
	res, err := eng.BulkUpsert(context.Background(), []domain.Document{
		newTestDocument("ok", "Class", en("Ok")),
		newTestDocument("", "Class", en("Broken")),
	}, domain.BulkOptions{})

	require.NoError(t, err)
	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Failures, 1)
}

func TestEngine_IndexLifecycle(t *testing.T) {
	ctx := context.Background()
	eng := New()

	exists, err := eng.IndexExists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, eng.CreateIndex(ctx))
	exists, err = eng.IndexExists(ctx)
	require.NoError(t, err)
	assert.True(t, exists)

	assert.ErrorIs(t, eng.CreateIndex(ctx), ErrIndexExists)
	assert.NoError(t, eng.Ping(ctx))
}
