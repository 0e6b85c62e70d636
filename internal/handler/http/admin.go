package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/utafrali/termsearch/internal/domain"
	apperrors "github.com/utafrali/termsearch/pkg/errors"
	"github.com/utafrali/termsearch/pkg/httputil"
)

// ReconcileFunc runs one reconciliation pass over the loaded dataset.
type ReconcileFunc func(ctx context.Context) (*domain.ReconcileReport, error)

// AdminHandler exposes operational endpoints.
type AdminHandler struct {
	reconcile ReconcileFunc
	logger    *slog.Logger
}

// NewAdminHandler creates a new admin HTTP handler.
func NewAdminHandler(reconcile ReconcileFunc, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		reconcile: reconcile,
		logger:    logger,
	}
}

// Reconcile handles POST /admin/reconcile. The pass runs synchronously and
// the report is returned whether or not it succeeded.
func (h *AdminHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	report, err := h.reconcile(r.Context())
	switch {
	case errors.Is(err, domain.ErrReconcileInProgress):
		httputil.WriteError(w, r, apperrors.Conflict("a reconciliation pass is already running"), h.logger)
	case err != nil && report != nil:
		httputil.WriteJSON(w, http.StatusBadGateway, report)
	case err != nil:
		httputil.WriteError(w, r, apperrors.BadGateway("reconciliation failed", err), h.logger)
	default:
		httputil.WriteJSON(w, http.StatusOK, report)
	}
}
