package domain

import (
	"encoding/json"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Index field paths shared by the composer, the projector and the store adapters.
const (
	FieldID              = "id"
	FieldType            = "@type"
	FieldLabel           = "label"
	FieldLabelValue      = "label.@value"
	FieldLabelRaw        = "label.@value.raw"
	FieldLabelLanguage   = "label.@language"
	FieldDefinition      = "definition"
	FieldDefinitionValue = "definition.@value"
	FieldContentHash     = "content_hash"
)

// LangString is a single language-tagged value.
type LangString struct {
	Language string `json:"@language"`
	Value    string `json:"@value"`
}

// Record is one authoritative vocabulary term. ID is its identity.
type Record struct {
	ID         string       `json:"id"`
	Label      []LangString `json:"label"`
	Definition []LangString `json:"definition"`
	Type       string       `json:"@type"`

	// Category is the dataset partition the record was loaded from.
	Category string `json:"-"`
}

// Document is the indexed form of a Record, addressed in the store by ID.
type Document struct {
	ID          string       `json:"id"`
	Label       []LangString `json:"label"`
	Definition  []LangString `json:"definition"`
	Type        string       `json:"@type"`
	ContentHash string       `json:"content_hash,omitempty"`
}

// IndexedRef identifies a document already present in the store.
type IndexedRef struct {
	ID          string `json:"id"`
	ContentHash string `json:"content_hash"`
}

// Document converts the record into its indexed form, stamping the content hash.
func (r Record) Document() Document {
	return Document{
		ID:          r.ID,
		Label:       r.Label,
		Definition:  r.Definition,
		Type:        r.Type,
		ContentHash: r.ContentHash(),
	}
}

// ContentHash is the hex xxhash64 of the canonical JSON of label, definition
// and type. Two records with the same content always hash equal.
func (r Record) ContentHash() string {
	canonical, _ := json.Marshal(struct {
		Label      []LangString `json:"label"`
		Definition []LangString `json:"definition"`
		Type       string       `json:"@type"`
	}{r.Label, r.Definition, r.Type})
	return strconv.FormatUint(xxhash.Sum64(canonical), 16)
}

// Category is a named, ordered partition of the dataset.
type Category struct {
	Name    string
	Records []Record
}

// Dataset is the authoritative record set, in file order.
type Dataset struct {
	Categories []Category
}

// Len returns the total number of records across all categories.
func (d *Dataset) Len() int {
	n := 0
	for _, c := range d.Categories {
		n += len(c.Records)
	}
	return n
}

// Records returns every record, categories in order, records in array order.
func (d *Dataset) Records() []Record {
	out := make([]Record, 0, d.Len())
	for _, c := range d.Categories {
		out = append(out, c.Records...)
	}
	return out
}
