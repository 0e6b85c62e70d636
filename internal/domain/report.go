package domain

import "time"

// ReconcileReport is the outcome of one reconciliation pass.
type ReconcileReport struct {
	Index            string        `json:"index"`
	Examined         int           `json:"examined"`
	IndexSize        int           `json:"index_size"`
	Missing          int           `json:"missing"`
	Changed          int           `json:"changed"`
	Upserted         int           `json:"upserted"`
	Failed           int           `json:"failed"`
	Failures         []BulkFailure `json:"failures,omitempty"`
	Strict           bool          `json:"strict"`
	StartedAt        time.Time     `json:"started_at"`
	ScanDurationMs   int64         `json:"scan_duration_ms"`
	UpsertDurationMs int64         `json:"upsert_duration_ms"`
	Error            string        `json:"error,omitempty"`
}

// Diff is the number of documents the pass tried to write.
func (r *ReconcileReport) Diff() int {
	return r.Missing + r.Changed
}
