package domain

import "errors"

var (
	// ErrStartupConnectivity means the store stayed unreachable for the whole retry budget.
	ErrStartupConnectivity = errors.New("store unreachable at startup")

	// ErrDatasetLoad means the authoritative dataset could not be read or parsed.
	ErrDatasetLoad = errors.New("dataset load failed")

	// ErrReconcileFetch means the index snapshot could not be read; nothing was written.
	ErrReconcileFetch = errors.New("reconcile: fetch index snapshot")

	// ErrReconcileWrite means the bulk upsert failed wholly or partly.
	ErrReconcileWrite = errors.New("reconcile: write documents")

	// ErrReconcileInProgress means another pass holds the reconcile lock.
	ErrReconcileInProgress = errors.New("reconcile: pass already in progress")

	// ErrQueryExecution means the store failed to execute a search or suggest query.
	ErrQueryExecution = errors.New("query execution failed")
)
