// Package dataset reads the authoritative vocabulary file.
package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/utafrali/termsearch/internal/domain"
)

// DefaultCategory names the single category of a dataset whose top level is an array.
const DefaultCategory = "records"

// Load reads and validates the dataset at path. All errors wrap domain.ErrDatasetLoad.
func Load(path string) (*domain.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDatasetLoad, err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes a dataset. The top level is either an object whose keys are
// categories, kept in file order, or a bare array of records.
func Parse(r io.Reader) (*domain.Dataset, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read: %w", domain.ErrDatasetLoad, err)
	}

	var ds *domain.Dataset
	switch trimmed := bytes.TrimSpace(raw); {
	case len(trimmed) == 0:
		return nil, fmt.Errorf("%w: empty file", domain.ErrDatasetLoad)
	case trimmed[0] == '[':
		var records []domain.Record
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("%w: decode records: %w", domain.ErrDatasetLoad, err)
		}
		ds = &domain.Dataset{Categories: []domain.Category{{Name: DefaultCategory, Records: records}}}
	case trimmed[0] == '{':
		ds, err = decodeCategories(trimmed)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrDatasetLoad, err)
		}
	default:
		return nil, fmt.Errorf("%w: top level must be an object or an array", domain.ErrDatasetLoad)
	}

	if err := validate(ds); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDatasetLoad, err)
	}
	return ds, nil
}

// decodeCategories walks the top-level object token by token so category
// order matches the file.
func decodeCategories(raw []byte) (*domain.Dataset, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	ds := &domain.Dataset{}
	seen := make(map[string]struct{})
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode category name: %w", err)
		}
		name, _ := tok.(string)
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("duplicate category %q", name)
		}
		seen[name] = struct{}{}

		var records []domain.Record
		if err := dec.Decode(&records); err != nil {
			return nil, fmt.Errorf("decode category %q: %w", name, err)
		}
		ds.Categories = append(ds.Categories, domain.Category{Name: name, Records: records})
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("unexpected data after top-level object")
	}
	return ds, nil
}

func validate(ds *domain.Dataset) error {
	seen := make(map[string]string, ds.Len())
	for ci := range ds.Categories {
		c := &ds.Categories[ci]
		for i := range c.Records {
			rec := &c.Records[i]
			rec.ID = strings.TrimSpace(rec.ID)
			if rec.ID == "" {
				return fmt.Errorf("%s[%d]: record has no id", c.Name, i)
			}
			if prev, dup := seen[rec.ID]; dup {
				return fmt.Errorf("%s[%d]: duplicate id %q (first seen in %s)", c.Name, i, rec.ID, prev)
			}
			seen[rec.ID] = c.Name
			rec.Category = c.Name
		}
	}
	return nil
}
