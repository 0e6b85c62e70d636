package memory

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/utafrali/termsearch/internal/domain"
)

// DefaultPageSize is the snapshot page size used when none is configured.
const DefaultPageSize = 1000

// ErrIndexExists is returned by CreateIndex when the index was already created.
var ErrIndexExists = errors.New("memory: index already exists")

// Engine is an in-memory implementation of the SearchEngine interface with
// the same observable query semantics as the Elasticsearch engine: AUTO
// fuzziness on analyzed label and definition tokens, case-insensitive
// keyword prefix, keyword sort, and term filters.
// Thread-safe via sync.RWMutex.
type Engine struct {
	mu       sync.RWMutex
	docs     map[string]domain.Document
	order    []string
	created  bool
	pageSize int
}

// Option configures an Engine.
type Option func(*Engine)

// WithPageSize sets the page size Snapshot walks the index with.
func WithPageSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.pageSize = n
		}
	}
}

// New creates a new in-memory search engine. The index is created lazily on
// first write, as Elasticsearch does.
func New(opts ...Option) *Engine {
	e := &Engine{
		docs:     make(map[string]domain.Document),
		pageSize: DefaultPageSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search executes a composed query against the in-memory index.
func (e *Engine) Search(ctx context.Context, spec domain.QuerySpec) (*domain.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	e.mu.RLock()
	defer e.mu.RUnlock()

	match := textMatcher(spec.Text)
	matched := make([]domain.Document, 0)
	for _, id := range e.order {
		doc := e.docs[id]
		if !matchesFilters(doc, spec.Filters) || !match(doc) {
			continue
		}
		matched = append(matched, doc)
	}

	sortDocuments(matched, spec.Sort)

	total := len(matched)
	if spec.Size >= 0 && spec.Size < total {
		matched = matched[:spec.Size]
	}
	for i := range matched {
		matched[i] = project(matched[i], spec.Source)
	}

	return &domain.SearchResult{
		Hits:   matched,
		Total:  total,
		TookMs: time.Since(start).Milliseconds(),
	}, nil
}

// Count returns the number of stored documents.
func (e *Engine) Count(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return int64(len(e.docs)), nil
}

// Snapshot lists every document's id and content hash, one page at a time.
func (e *Engine) Snapshot(ctx context.Context) ([]domain.IndexedRef, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	refs := make([]domain.IndexedRef, 0, len(e.order))
	for from := 0; from < len(e.order); from += e.pageSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		to := min(from+e.pageSize, len(e.order))
		for _, id := range e.order[from:to] {
			refs = append(refs, domain.IndexedRef{ID: id, ContentHash: e.docs[id].ContentHash})
		}
	}
	return refs, nil
}

// BulkUpsert adds or replaces documents by ID. Documents without an ID are
// reported as failures; the rest are still written.
func (e *Engine) BulkUpsert(ctx context.Context, docs []domain.Document, _ domain.BulkOptions) (*domain.BulkResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	e.created = true
	result := &domain.BulkResult{}
	for _, doc := range docs {
		if doc.ID == "" {
			result.Failed++
			result.Failures = append(result.Failures, domain.BulkFailure{Reason: "document has no id"})
			continue
		}
		if _, ok := e.docs[doc.ID]; !ok {
			e.order = append(e.order, doc.ID)
		}
		e.docs[doc.ID] = doc
		result.Succeeded++
	}
	return result, nil
}

// IndexExists reports whether the index was created explicitly or by a write.
func (e *Engine) IndexExists(_ context.Context) (bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.created, nil
}

// CreateIndex marks the index as created.
func (e *Engine) CreateIndex(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.created {
		return ErrIndexExists
	}
	e.created = true
	return nil
}

// Ping always succeeds.
func (e *Engine) Ping(_ context.Context) error {
	return nil
}

// textMatcher returns the predicate for the free-text part of a query.
func textMatcher(q domain.TextQuery) func(domain.Document) bool {
	switch q.Kind {
	case domain.TextFuzzy:
		terms := tokenize(q.Query)
		if len(terms) == 0 {
			return func(domain.Document) bool { return false }
		}
		return func(doc domain.Document) bool {
			for _, field := range q.Fields {
				for _, value := range fieldValues(doc, field) {
					if anyTermMatches(terms, tokenize(value), q.Fuzziness) {
						return true
					}
				}
			}
			return false
		}
	case domain.TextPrefix:
		return func(doc domain.Document) bool {
			for _, field := range q.Fields {
				for _, value := range fieldValues(doc, field) {
					if hasPrefixFold(value, q.Query) {
						return true
					}
				}
			}
			return false
		}
	default:
		return func(domain.Document) bool { return true }
	}
}

func anyTermMatches(terms, tokens []string, fuzziness string) bool {
	for _, term := range terms {
		maxEdits := 0
		if fuzziness == domain.FuzzinessAuto {
			maxEdits = autoEdits(term)
		}
		for _, tok := range tokens {
			if fuzzyMatch(term, tok, maxEdits) {
				return true
			}
		}
	}
	return false
}

func matchesFilters(doc domain.Document, filters []domain.Filter) bool {
	for _, f := range filters {
		if !slices.ContainsFunc(fieldValues(doc, f.Field), func(v string) bool {
			return slices.Contains(f.Values, v)
		}) {
			return false
		}
	}
	return true
}

// fieldValues returns the values a document holds for an index field path.
// Keyword subfields resolve to their parent's values.
func fieldValues(doc domain.Document, field string) []string {
	switch field {
	case domain.FieldID:
		return []string{doc.ID}
	case domain.FieldType:
		return []string{doc.Type}
	case domain.FieldLabelValue, domain.FieldLabelRaw:
		return values(doc.Label)
	case domain.FieldLabelLanguage:
		return languages(doc.Label)
	case domain.FieldDefinitionValue:
		return values(doc.Definition)
	case domain.FieldContentHash:
		return []string{doc.ContentHash}
	default:
		return nil
	}
}

func values(ls []domain.LangString) []string {
	out := make([]string, len(ls))
	for i, l := range ls {
		out[i] = l.Value
	}
	return out
}

func languages(ls []domain.LangString) []string {
	out := make([]string, len(ls))
	for i, l := range ls {
		out[i] = l.Language
	}
	return out
}

// sortDocuments orders by keyword fields using the smallest value of a
// multi-valued field for ascending order and the largest for descending.
// Documents without a value sort last. Ties keep insertion order.
func sortDocuments(docs []domain.Document, sorts []domain.SortField) {
	if len(sorts) == 0 {
		return
	}
	slices.SortStableFunc(docs, func(a, b domain.Document) int {
		for _, s := range sorts {
			ka, okA := sortKey(fieldValues(a, s.Field), s.Ascending)
			kb, okB := sortKey(fieldValues(b, s.Field), s.Ascending)
			switch {
			case okA && !okB:
				return -1
			case !okA && okB:
				return 1
			case !okA && !okB:
				continue
			}
			c := cmp.Compare(ka, kb)
			if !s.Ascending {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})
}

func sortKey(vals []string, ascending bool) (string, bool) {
	if len(vals) == 0 {
		return "", false
	}
	if ascending {
		return slices.Min(vals), true
	}
	return slices.Max(vals), true
}

// project drops the fields a query did not ask for, as _source filtering does.
func project(doc domain.Document, source []string) domain.Document {
	if len(source) == 0 {
		return doc
	}
	out := domain.Document{ID: doc.ID}
	for _, f := range source {
		switch f {
		case domain.FieldLabel:
			out.Label = doc.Label
		case domain.FieldDefinition:
			out.Definition = doc.Definition
		case domain.FieldType:
			out.Type = doc.Type
		case domain.FieldContentHash:
			out.ContentHash = doc.ContentHash
		}
	}
	return out
}

func hasPrefixFold(s, prefix string) bool {
	sr, pr := []rune(s), []rune(prefix)
	if len(pr) > len(sr) {
		return false
	}
	return strings.EqualFold(string(sr[:len(pr)]), prefix)
}
