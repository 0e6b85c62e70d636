package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/termsearch/internal/domain"
)

const categorized = `{
  "datatypes": [
    {"id": "string", "@type": "Datatype", "label": [{"@language": "en", "@value": "String"}]}
  ],
  "classes": [
    {"id": "cat", "@type": "Class",
     "label": [{"@language": "en", "@value": "Cat"}, {"@language": "nl", "@value": "Kat"}],
     "definition": [{"@language": "en", "@value": "A small feline."}]},
    {"id": "dog", "@type": "Class", "label": [{"@language": "en", "@value": "Dog"}]}
  ],
  "attributes": []
}`

func TestParse_CategoriesKeepFileOrder(t *testing.T) {
	ds, err := Parse(strings.NewReader(categorized))
	require.NoError(t, err)

	require.Len(t, ds.Categories, 3)
	assert.Equal(t, "datatypes", ds.Categories[0].Name)
	assert.Equal(t, "classes", ds.Categories[1].Name)
	assert.Equal(t, "attributes", ds.Categories[2].Name)
	assert.Equal(t, 3, ds.Len())

	cat := ds.Categories[1].Records[0]
	assert.Equal(t, "cat", cat.ID)
	assert.Equal(t, "Class", cat.Type)
	assert.Equal(t, "classes", cat.Category)
	assert.Equal(t, []domain.LangString{{Language: "en", Value: "Cat"}, {Language: "nl", Value: "Kat"}}, cat.Label)
	assert.Equal(t, "A small feline.", cat.Definition[0].Value)
}

func TestParse_TopLevelArray(t *testing.T) {
	ds, err := Parse(strings.NewReader(`[{"id":"a","@type":"Class"},{"id":"b","@type":"Datatype"}]`))
	require.NoError(t, err)

	require.Len(t, ds.Categories, 1)
	assert.Equal(t, DefaultCategory, ds.Categories[0].Name)
	assert.Equal(t, "records", ds.Categories[0].Records[1].Category)
	assert.Equal(t, 2, ds.Len())
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"empty", "   ", "empty file"},
		{"scalar", `"nope"`, "object or an array"},
		{"malformed", `{"classes": [{"id": "a"}`, "decode"},
		{"category not array", `{"classes": {"id": "a"}}`, `decode category "classes"`},
		{"missing id", `{"classes": [{"@type": "Class"}]}`, "classes[0]: record has no id"},
		{"blank id", `[{"id": "  "}]`, "record has no id"},
		{"duplicate id across categories", `{"classes": [{"id": "a"}], "attributes": [{"id": "a"}]}`, `attributes[0]: duplicate id "a"`},
		{"duplicate category", `{"classes": [], "classes": []}`, "duplicate category"},
		{"trailing data", `{"classes": []} {}`, "unexpected data"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ds, err := Parse(strings.NewReader(tc.input))
			assert.Nil(t, ds)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrDatasetLoad)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "localData.json")
	require.NoError(t, os.WriteFile(path, []byte(categorized), 0o600))

	ds, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, ds.Len())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDatasetLoad)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
