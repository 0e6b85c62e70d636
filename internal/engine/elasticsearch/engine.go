package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/utafrali/termsearch/internal/domain"
	"github.com/utafrali/termsearch/pkg/tracing"
)

const (
	// DefaultSnapshotPageSize is the scroll page size used when none is configured.
	DefaultSnapshotPageSize = 1000

	defaultScrollKeepAlive = time.Minute
	tracerName             = "github.com/utafrali/termsearch/internal/engine/elasticsearch"
)

// Config holds the connection settings for the Elasticsearch engine.
// CloudID takes precedence over Addresses; APIKey over Username/Password.
type Config struct {
	Addresses        []string
	Username         string
	Password         string
	APIKey           string
	CloudID          string
	Index            string
	SnapshotPageSize int
	ScrollKeepAlive  time.Duration

	// Transport overrides the HTTP transport, for tests.
	Transport http.RoundTripper
}

// Engine is an Elasticsearch-backed implementation of the SearchEngine interface.
type Engine struct {
	client    *elasticsearch.Client
	indexName string
	pageSize  int
	keepAlive time.Duration
	logger    *slog.Logger
	tracer    trace.Tracer
}

// esErrorResponse is used to decode Elasticsearch error responses.
type esErrorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
	Status int `json:"status"`
}

// esSearchResponse decodes search and scroll responses.
type esSearchResponse struct {
	Took     int64  `json:"took"`
	ScrollID string `json:"_scroll_id"`
	Hits     struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID     string          `json:"_id"`
			Source domain.Document `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// esBulkResponse decodes bulk responses.
type esBulkResponse struct {
	Errors bool `json:"errors"`
	Items  []struct {
		Index struct {
			ID     string `json:"_id"`
			Status int    `json:"status"`
			Error  struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"index"`
	} `json:"items"`
}

// New creates an Elasticsearch engine bound to cfg.Index. It does not
// contact the cluster; callers wait for it with Ping and create the index
// with CreateIndex.
func New(cfg Config, logger *slog.Logger) (*Engine, error) {
	if cfg.Index == "" {
		return nil, errors.New("elasticsearch: index name is required")
	}
	if cfg.SnapshotPageSize <= 0 {
		cfg.SnapshotPageSize = DefaultSnapshotPageSize
	}
	if cfg.ScrollKeepAlive <= 0 {
		cfg.ScrollKeepAlive = defaultScrollKeepAlive
	}

	esCfg := elasticsearch.Config{
		Username:  cfg.Username,
		Password:  cfg.Password,
		APIKey:    cfg.APIKey,
		Transport: cfg.Transport,
	}
	if cfg.CloudID != "" {
		esCfg.CloudID = cfg.CloudID
	} else {
		esCfg.Addresses = cfg.Addresses
	}

	client, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: failed to create client: %w", err)
	}

	return &Engine{
		client:    client,
		indexName: cfg.Index,
		pageSize:  cfg.SnapshotPageSize,
		keepAlive: cfg.ScrollKeepAlive,
		logger:    logger,
		tracer:    tracing.Tracer(tracerName),
	}, nil
}

// Index returns the name of the index the engine is bound to.
func (e *Engine) Index() string {
	return e.indexName
}

func (e *Engine) startSpan(ctx context.Context, op string) (context.Context, trace.Span) {
	return e.tracer.Start(ctx, "elasticsearch."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "elasticsearch"),
			attribute.String("db.operation", op),
			attribute.String("db.elasticsearch.index", e.indexName),
		),
	)
}

// responseError turns a non-2xx response into an error carrying the
// Elasticsearch error type and reason when the body has them.
func responseError(op string, res *esapi.Response) error {
	var errResp esErrorResponse
	if decErr := json.NewDecoder(res.Body).Decode(&errResp); decErr == nil && errResp.Error.Type != "" {
		return fmt.Errorf("elasticsearch %s: %s: %s", op, errResp.Error.Type, errResp.Error.Reason)
	}
	return fmt.Errorf("elasticsearch %s: unexpected status %s", op, res.Status())
}

func closeBody(res *esapi.Response) {
	_, _ = io.Copy(io.Discard, res.Body)
	_ = res.Body.Close()
}

// Ping checks whether the Elasticsearch cluster is reachable.
func (e *Engine) Ping(ctx context.Context) (err error) {
	ctx, span := e.startSpan(ctx, "ping")
	defer func() { tracing.RecordError(span, err); span.End() }()

	res, err := e.client.Ping(e.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping: %w", err)
	}
	defer closeBody(res)

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping: unexpected status %s", res.Status())
	}
	return nil
}

// IndexExists reports whether the bound index exists.
func (e *Engine) IndexExists(ctx context.Context) (_ bool, err error) {
	ctx, span := e.startSpan(ctx, "indices.exists")
	defer func() { tracing.RecordError(span, err); span.End() }()

	res, err := e.client.Indices.Exists([]string{e.indexName}, e.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("elasticsearch index exists: %w", err)
	}
	defer closeBody(res)

	switch res.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("elasticsearch index exists: unexpected status %s", res.Status())
	}
}

// CreateIndex creates the bound index with its mapping.
func (e *Engine) CreateIndex(ctx context.Context) (err error) {
	ctx, span := e.startSpan(ctx, "indices.create")
	defer func() { tracing.RecordError(span, err); span.End() }()

	res, err := e.client.Indices.Create(
		e.indexName,
		e.client.Indices.Create.WithBody(strings.NewReader(indexMapping)),
		e.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch create index: %w", err)
	}
	defer closeBody(res)

	if res.IsError() {
		return responseError("create index", res)
	}

	e.logger.InfoContext(ctx, "elasticsearch index created", slog.String("index", e.indexName))
	return nil
}

// DeleteIndex removes the bound index. A missing index is not an error.
func (e *Engine) DeleteIndex(ctx context.Context) (err error) {
	ctx, span := e.startSpan(ctx, "indices.delete")
	defer func() { tracing.RecordError(span, err); span.End() }()

	res, err := e.client.Indices.Delete([]string{e.indexName}, e.client.Indices.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch delete index: %w", err)
	}
	defer closeBody(res)

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError("delete index", res)
	}
	return nil
}

// Count returns the number of documents in the bound index.
func (e *Engine) Count(ctx context.Context) (_ int64, err error) {
	ctx, span := e.startSpan(ctx, "count")
	defer func() { tracing.RecordError(span, err); span.End() }()

	res, err := e.client.Count(
		e.client.Count.WithIndex(e.indexName),
		e.client.Count.WithContext(ctx),
	)
	if err != nil {
		return 0, fmt.Errorf("elasticsearch count: %w", err)
	}
	defer closeBody(res)

	if res.IsError() {
		return 0, responseError("count", res)
	}

	var body struct {
		Count int64 `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("elasticsearch count: decode response: %w", err)
	}
	return body.Count, nil
}

// Search executes a composed query and returns hits in the order
// Elasticsearch ranked or sorted them.
func (e *Engine) Search(ctx context.Context, spec domain.QuerySpec) (_ *domain.SearchResult, err error) {
	ctx, span := e.startSpan(ctx, "search")
	span.SetAttributes(attribute.String("termsearch.query_kind", spec.Text.Kind.String()))
	defer func() { tracing.RecordError(span, err); span.End() }()

	data, err := json.Marshal(buildSearchBody(spec))
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search: marshal query: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithIndex(e.indexName),
		e.client.Search.WithBody(bytes.NewReader(data)),
		e.client.Search.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search: %w", err)
	}
	defer closeBody(res)

	if res.IsError() {
		return nil, responseError("search", res)
	}

	var esResp esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&esResp); err != nil {
		return nil, fmt.Errorf("elasticsearch search: decode response: %w", err)
	}

	hits := make([]domain.Document, 0, len(esResp.Hits.Hits))
	for _, hit := range esResp.Hits.Hits {
		doc := hit.Source
		if doc.ID == "" {
			doc.ID = hit.ID
		}
		hits = append(hits, doc)
	}
	span.SetAttributes(attribute.Int("termsearch.hits", len(hits)))

	return &domain.SearchResult{
		Hits:   hits,
		Total:  esResp.Hits.Total.Value,
		TookMs: esResp.Took,
	}, nil
}

// BulkUpsert writes docs with index actions keyed by ID, so repeating a
// write replaces rather than duplicates. Per-item rejections are returned
// in the result; only transport and whole-request failures return an error.
func (e *Engine) BulkUpsert(ctx context.Context, docs []domain.Document, opts domain.BulkOptions) (_ *domain.BulkResult, err error) {
	if len(docs) == 0 {
		return &domain.BulkResult{}, nil
	}

	ctx, span := e.startSpan(ctx, "bulk")
	span.SetAttributes(attribute.Int("termsearch.documents", len(docs)))
	defer func() { tracing.RecordError(span, err); span.End() }()

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range docs {
		action := map[string]any{
			"index": map[string]any{"_index": e.indexName, "_id": docs[i].ID},
		}
		if err := enc.Encode(action); err != nil {
			return nil, fmt.Errorf("elasticsearch bulk: encode action: %w", err)
		}
		if err := enc.Encode(docs[i]); err != nil {
			return nil, fmt.Errorf("elasticsearch bulk: encode document: %w", err)
		}
	}

	refresh := "false"
	if opts.RefreshNow {
		refresh = "true"
	}
	res, err := e.client.Bulk(
		bytes.NewReader(buf.Bytes()),
		e.client.Bulk.WithIndex(e.indexName),
		e.client.Bulk.WithRefresh(refresh),
		e.client.Bulk.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch bulk: %w", err)
	}
	defer closeBody(res)

	if res.IsError() {
		return nil, responseError("bulk", res)
	}

	var bulkResp esBulkResponse
	if err := json.NewDecoder(res.Body).Decode(&bulkResp); err != nil {
		return nil, fmt.Errorf("elasticsearch bulk: decode response: %w", err)
	}

	result := &domain.BulkResult{}
	for _, item := range bulkResp.Items {
		if item.Index.Error.Type == "" && item.Index.Status < http.StatusMultipleChoices {
			result.Succeeded++
			continue
		}
		result.Failed++
		result.Failures = append(result.Failures, domain.BulkFailure{
			ID:     item.Index.ID,
			Reason: strings.TrimPrefix(item.Index.Error.Type+": "+item.Index.Error.Reason, ": "),
		})
	}
	span.SetAttributes(attribute.Int("termsearch.failed", result.Failed))

	e.logger.DebugContext(ctx, "bulk upsert finished",
		slog.Int("succeeded", result.Succeeded),
		slog.Int("failed", result.Failed),
	)
	return result, nil
}
