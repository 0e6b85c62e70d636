// Package reconcile brings the search index in line with the authoritative
// dataset by upserting what the index lacks. It never deletes.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/utafrali/termsearch/internal/domain"
	"github.com/utafrali/termsearch/internal/engine"
)

// Reconciler runs reconciliation passes against one index. Only one pass
// runs at a time.
type Reconciler struct {
	store  engine.SearchEngine
	index  string
	strict bool
	logger *slog.Logger

	mu  sync.Mutex
	now func() time.Time
}

// New creates a Reconciler. In strict mode documents whose content hash
// differs from the dataset are rewritten as well as missing ones.
func New(store engine.SearchEngine, index string, strict bool, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		store:  store,
		index:  index,
		strict: strict,
		logger: logger,
		now:    time.Now,
	}
}

// Reconcile compares the dataset with an index snapshot and upserts the
// difference in one bulk request. The report is returned on failure too,
// except when another pass is already running.
func (r *Reconciler) Reconcile(ctx context.Context, ds *domain.Dataset) (*domain.ReconcileReport, error) {
	if !r.mu.TryLock() {
		return nil, domain.ErrReconcileInProgress
	}
	defer r.mu.Unlock()

	report := &domain.ReconcileReport{
		Index:     r.index,
		Examined:  ds.Len(),
		Strict:    r.strict,
		StartedAt: r.now().UTC(),
	}

	scanStart := time.Now()
	refs, err := r.store.Snapshot(ctx)
	if err != nil {
		report.Error = err.Error()
		reconcileRuns.WithLabelValues(resultFetchError).Inc()
		r.logReport(ctx, report)
		return report, fmt.Errorf("%w: %w", domain.ErrReconcileFetch, err)
	}
	report.IndexSize = len(refs)

	diff := r.diff(ds, refs, report)
	scanElapsed := time.Since(scanStart)
	report.ScanDurationMs = scanElapsed.Milliseconds()
	reconcileDuration.WithLabelValues(phaseScan).Observe(scanElapsed.Seconds())
	reconcileDocuments.WithLabelValues(outcomeMissing).Add(float64(report.Missing))
	reconcileDocuments.WithLabelValues(outcomeChanged).Add(float64(report.Changed))

	if len(diff) == 0 {
		reconcileRuns.WithLabelValues(resultSuccess).Inc()
		r.logReport(ctx, report)
		return report, nil
	}

	err = r.write(ctx, diff, report)
	if err != nil {
		report.Error = err.Error()
		reconcileRuns.WithLabelValues(resultWriteError).Inc()
	} else {
		reconcileRuns.WithLabelValues(resultSuccess).Inc()
	}
	r.logReport(ctx, report)
	return report, err
}

// diff returns the documents to write, in dataset order.
func (r *Reconciler) diff(ds *domain.Dataset, refs []domain.IndexedRef, report *domain.ReconcileReport) []domain.Document {
	indexed := make(map[string]string, len(refs))
	for _, ref := range refs {
		indexed[ref.ID] = ref.ContentHash
	}

	var docs []domain.Document
	for _, category := range ds.Categories {
		for _, rec := range category.Records {
			hash, ok := indexed[rec.ID]
			switch {
			case !ok:
				report.Missing++
			case r.strict && hash != rec.ContentHash():
				report.Changed++
			default:
				continue
			}
			docs = append(docs, rec.Document())
		}
	}
	return docs
}

func (r *Reconciler) write(ctx context.Context, docs []domain.Document, report *domain.ReconcileReport) error {
	start := time.Now()
	res, err := r.store.BulkUpsert(ctx, docs, domain.BulkOptions{RefreshNow: true})
	elapsed := time.Since(start)
	report.UpsertDurationMs = elapsed.Milliseconds()
	reconcileDuration.WithLabelValues(phaseUpsert).Observe(elapsed.Seconds())

	if err != nil {
		report.Failed = len(docs)
		reconcileDocuments.WithLabelValues(outcomeFailed).Add(float64(len(docs)))
		return fmt.Errorf("%w: %w", domain.ErrReconcileWrite, err)
	}

	report.Upserted = res.Succeeded
	report.Failed = res.Failed
	report.Failures = res.Failures
	reconcileDocuments.WithLabelValues(outcomeUpserted).Add(float64(res.Succeeded))
	reconcileDocuments.WithLabelValues(outcomeFailed).Add(float64(res.Failed))

	if res.Failed > 0 {
		return fmt.Errorf("%w: %d of %d documents rejected", domain.ErrReconcileWrite, res.Failed, len(docs))
	}
	return nil
}

func (r *Reconciler) logReport(ctx context.Context, report *domain.ReconcileReport) {
	attrs := []any{
		slog.String("index", report.Index),
		slog.Int("examined", report.Examined),
		slog.Int("index_size", report.IndexSize),
		slog.Int("missing", report.Missing),
		slog.Int("changed", report.Changed),
		slog.Int("upserted", report.Upserted),
		slog.Int("failed", report.Failed),
		slog.Bool("strict", report.Strict),
		slog.Int64("scan_ms", report.ScanDurationMs),
		slog.Int64("upsert_ms", report.UpsertDurationMs),
	}
	if report.Error != "" {
		r.logger.ErrorContext(ctx, "index reconciliation failed", append(attrs, slog.String("error", report.Error))...)
		return
	}
	r.logger.InfoContext(ctx, "index reconciled", attrs...)
}
