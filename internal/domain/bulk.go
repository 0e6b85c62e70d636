package domain

// BulkOptions controls a bulk upsert.
type BulkOptions struct {
	// RefreshNow makes the written documents visible to search before the call returns.
	RefreshNow bool
}

// BulkFailure describes a document the store rejected.
type BulkFailure struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// BulkResult summarizes a bulk upsert.
type BulkResult struct {
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Failures  []BulkFailure `json:"failures,omitempty"`
}
