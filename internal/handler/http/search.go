package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/utafrali/termsearch/internal/engine/breaker"
	"github.com/utafrali/termsearch/internal/service"
	apperrors "github.com/utafrali/termsearch/pkg/errors"
	"github.com/utafrali/termsearch/pkg/httputil"
	"github.com/utafrali/termsearch/pkg/logger"
	"github.com/utafrali/termsearch/pkg/validator"
)

// maxBodyBytes bounds search and suggest request bodies.
const maxBodyBytes = 64 << 10

// SearchHandler handles HTTP requests for search endpoints.
type SearchHandler struct {
	service *service.SearchService
	logger  *slog.Logger
}

// NewSearchHandler creates a new search HTTP handler.
func NewSearchHandler(svc *service.SearchService, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// SearchRequest is the JSON request body of POST /search.
type SearchRequest struct {
	Term     string `json:"term" validate:"max=256"`
	Type     string `json:"type" validate:"omitempty,printascii,max=64"`
	Language string `json:"language" validate:"langtag"`
}

// SuggestRequest is the JSON request body of POST /suggest.
type SuggestRequest struct {
	PartialTerm string `json:"partialTerm" validate:"max=256"`
	Type        string `json:"type" validate:"omitempty,printascii,max=64"`
	Language    string `json:"language" validate:"langtag"`
}

// --- Handlers ---

// Search handles POST /search
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := httputil.DecodeJSON(w, r, &req, maxBodyBytes); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	out, err := h.service.Search(r.Context(), service.SearchInput{
		Term:     req.Term,
		Type:     req.Type,
		Language: req.Language,
	})
	if err != nil {
		h.writeQueryError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, out)
}

// Suggest handles POST /suggest
func (h *SearchHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	var req SuggestRequest
	if err := httputil.DecodeJSON(w, r, &req, maxBodyBytes); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	out, err := h.service.Suggest(r.Context(), service.SuggestInput{
		PartialTerm: req.PartialTerm,
		Type:        req.Type,
		Language:    req.Language,
	})
	if err != nil {
		h.writeQueryError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, out)
}

// writeQueryError maps a failed query to a response. A request whose
// context ended has no one to answer; the timeout middleware covers deadlines.
func (h *SearchHandler) writeQueryError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		logger.FromContext(r.Context()).DebugContext(r.Context(), "query abandoned",
			slog.String("error", err.Error()),
		)
	case breaker.IsOpen(err):
		httputil.WriteError(w, r, apperrors.Unavailable("search backend unavailable", err), h.logger)
	default:
		httputil.WriteError(w, r, apperrors.Internal(err), h.logger)
	}
}
