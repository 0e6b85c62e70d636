package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.opentelemetry.io/otel/attribute"

	"github.com/utafrali/termsearch/internal/domain"
	"github.com/utafrali/termsearch/pkg/tracing"
)

// Snapshot scrolls through the whole index fetching only id and content
// hash. It fails rather than return fewer refs than the index reported.
func (e *Engine) Snapshot(ctx context.Context) (_ []domain.IndexedRef, err error) {
	ctx, span := e.startSpan(ctx, "snapshot")
	defer func() { tracing.RecordError(span, err); span.End() }()

	body, err := json.Marshal(map[string]any{
		"query":            map[string]any{"match_all": map[string]any{}},
		"_source":          []string{domain.FieldID, domain.FieldContentHash},
		"sort":             []string{"_doc"},
		"track_total_hits": true,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch snapshot: marshal query: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithIndex(e.indexName),
		e.client.Search.WithBody(bytes.NewReader(body)),
		e.client.Search.WithSize(e.pageSize),
		e.client.Search.WithScroll(e.keepAlive),
		e.client.Search.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch snapshot: %w", err)
	}
	page, err := decodePage("snapshot", res)
	if err != nil {
		return nil, err
	}

	scrollID := page.ScrollID
	defer func() { e.clearScroll(ctx, scrollID) }()

	total := page.Hits.Total.Value
	refs := make([]domain.IndexedRef, 0, total)
	pages := 0
	for len(page.Hits.Hits) > 0 {
		pages++
		for _, hit := range page.Hits.Hits {
			id := hit.Source.ID
			if id == "" {
				id = hit.ID
			}
			refs = append(refs, domain.IndexedRef{ID: id, ContentHash: hit.Source.ContentHash})
		}
		if len(refs) >= total {
			break
		}

		res, err := e.client.Scroll(
			e.client.Scroll.WithScrollID(scrollID),
			e.client.Scroll.WithScroll(e.keepAlive),
			e.client.Scroll.WithContext(ctx),
		)
		if err != nil {
			return nil, fmt.Errorf("elasticsearch scroll: %w", err)
		}
		page, err = decodePage("scroll", res)
		if err != nil {
			return nil, err
		}
		if page.ScrollID != "" {
			scrollID = page.ScrollID
		}
	}

	span.SetAttributes(attribute.Int("termsearch.pages", pages), attribute.Int("termsearch.refs", len(refs)))
	if len(refs) < total {
		return nil, fmt.Errorf("elasticsearch snapshot: truncated: got %d of %d documents", len(refs), total)
	}
	return refs, nil
}

func decodePage(op string, res *esapi.Response) (*esSearchResponse, error) {
	defer closeBody(res)
	if res.IsError() {
		return nil, responseError(op, res)
	}
	var page esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("elasticsearch %s: decode response: %w", op, err)
	}
	return &page, nil
}

func (e *Engine) clearScroll(ctx context.Context, scrollID string) {
	if scrollID == "" {
		return
	}
	res, err := e.client.ClearScroll(
		e.client.ClearScroll.WithScrollID(scrollID),
		e.client.ClearScroll.WithContext(context.WithoutCancel(ctx)),
	)
	if err != nil {
		e.logger.WarnContext(ctx, "failed to clear scroll", slog.String("error", err.Error()))
		return
	}
	defer closeBody(res)
	if res.IsError() {
		e.logger.WarnContext(ctx, "failed to clear scroll", slog.String("status", res.Status()))
	}
}
