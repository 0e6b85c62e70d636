package projector

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/utafrali/termsearch/internal/domain"
)

func ls(lang, v string) domain.LangString {
	return domain.LangString{Language: lang, Value: v}
}

func TestDedupe(t *testing.T) {
	assert.Equal(t, []string{"Bus"}, Dedupe([]string{"Car", "car", "Bus", "CAR"}, "car"))
}

func TestDedupe_KeepsFirstOccurrenceAndOrder(t *testing.T) {
	got := Dedupe([]string{"Cart", "cat", "CART", "Car", "Cat"}, "ca")
	assert.Equal(t, []string{"Cart", "cat", "Car"}, got)
}

func TestDedupe_SelfExclusionTrimsInput(t *testing.T) {
	assert.Equal(t, []string{"Cats"}, Dedupe([]string{"cat", "Cats"}, "  CAT "))
}

func TestDedupe_NeverNil(t *testing.T) {
	got := Dedupe(nil, "x")
	assert.NotNil(t, got)
	assert.Empty(t, got)

	got = Dedupe([]string{"x", "X"}, "x")
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSearch_PrefersRequestedLanguage(t *testing.T) {
	hits := []domain.Document{{
		ID:         "cat",
		Label:      []domain.LangString{ls("en", "Cat"), ls("nl", "Kat")},
		Definition: []domain.LangString{ls("en", "A feline"), ls("nl", "Een katachtige")},
		Type:       "Class",
	}}

	assert.Equal(t, []SearchItem{{Label: "Kat", Definition: "Een katachtige", Type: "Class", Language: "nl"}}, Search(hits, "nl"))
	assert.Equal(t, []SearchItem{{Label: "Cat", Definition: "A feline", Type: "Class", Language: "en"}}, Search(hits, "all"))
}

func TestSearch_FallsBackToFirstValue(t *testing.T) {
	hits := []domain.Document{{
		ID:    "cat",
		Label: []domain.LangString{ls("en", "Cat")},
		Type:  "Class",
	}}

	got := Search(hits, "de")
	assert.Equal(t, []SearchItem{{Label: "Cat", Definition: "", Type: "Class", Language: "en"}}, got)
}

func TestSearch_PreservesStoreOrder(t *testing.T) {
	hits := []domain.Document{
		{ID: "b", Label: []domain.LangString{ls("en", "B")}},
		{ID: "a", Label: []domain.LangString{ls("en", "A")}},
	}
	got := Search(hits, "")
	assert.Equal(t, "B", got[0].Label)
	assert.Equal(t, "A", got[1].Label)
}

func TestSearch_EmptyHits(t *testing.T) {
	got := Search(nil, "")
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSuggestions_PicksMatchingLabel(t *testing.T) {
	hits := []domain.Document{
		{ID: "cat", Label: []domain.LangString{ls("nl", "Kat"), ls("en", "Cat")}},
		{ID: "car", Label: []domain.LangString{ls("en", "Car"), ls("nl", "Auto")}},
	}

	assert.Equal(t, []string{"Cat", "Car"}, Suggestions(hits, "ca", "all"))
	assert.Equal(t, []string{"Kat", "Auto"}, Suggestions(hits, "ca", "nl"))
}

func TestSuggestions_DropsEchoAndDuplicates(t *testing.T) {
	hits := []domain.Document{
		{ID: "1", Label: []domain.LangString{ls("en", "Car")}},
		{ID: "2", Label: []domain.LangString{ls("en", "car")}},
		{ID: "3", Label: []domain.LangString{ls("en", "Cargo")}},
		{ID: "4", Label: []domain.LangString{ls("en", "CARGO")}},
		{ID: "5"},
	}

	assert.Equal(t, []string{"Cargo"}, Suggestions(hits, "car", ""))
}
