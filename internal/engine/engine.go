package engine

import (
	"context"
	"fmt"

	"github.com/utafrali/termsearch/internal/domain"
)

// SearchEngine is the document store the reconciler writes to and the
// search service reads from. Implementations are bound to a single index
// at construction and must be safe for concurrent use.
type SearchEngine interface {
	// Search executes a composed query and returns hits in store order.
	Search(ctx context.Context, spec domain.QuerySpec) (*domain.SearchResult, error)

	// Count returns the number of documents in the index.
	Count(ctx context.Context) (int64, error)

	// Snapshot returns the id and content hash of every indexed document.
	// It never returns a partial listing without an error.
	Snapshot(ctx context.Context) ([]domain.IndexedRef, error)

	// BulkUpsert writes docs keyed by their ID.
	BulkUpsert(ctx context.Context, docs []domain.Document, opts domain.BulkOptions) (*domain.BulkResult, error)

	// IndexExists reports whether the index has been created.
	IndexExists(ctx context.Context) (bool, error)

	// CreateIndex creates the index with the mapping the queries rely on.
	CreateIndex(ctx context.Context) error

	// Ping checks connectivity to the store.
	Ping(ctx context.Context) error
}

// EnsureIndex creates the index when it does not exist yet and reports
// whether it did so.
func EnsureIndex(ctx context.Context, e SearchEngine) (bool, error) {
	exists, err := e.IndexExists(ctx)
	if err != nil {
		return false, fmt.Errorf("check index: %w", err)
	}
	if exists {
		return false, nil
	}
	if err := e.CreateIndex(ctx); err != nil {
		return false, fmt.Errorf("create index: %w", err)
	}
	return true, nil
}
