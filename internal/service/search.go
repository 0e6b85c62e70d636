package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/utafrali/termsearch/internal/domain"
	"github.com/utafrali/termsearch/internal/engine"
	"github.com/utafrali/termsearch/internal/projector"
	"github.com/utafrali/termsearch/internal/query"
)

// SearchService implements the business logic for search and suggest.
type SearchService struct {
	composer *query.Composer
	engine   engine.SearchEngine
	logger   *slog.Logger
}

// NewSearchService creates a new search service.
func NewSearchService(composer *query.Composer, eng engine.SearchEngine, logger *slog.Logger) *SearchService {
	return &SearchService{
		composer: composer,
		engine:   eng,
		logger:   logger,
	}
}

// SearchInput holds the parameters of a full search.
type SearchInput struct {
	Term     string
	Type     string
	Language string
}

// SearchOutput echoes the normalized term so clients can discard stale responses.
type SearchOutput struct {
	Term    string                 `json:"term"`
	Results []projector.SearchItem `json:"results"`
}

// SuggestInput holds the parameters of a suggestion lookup.
type SuggestInput struct {
	PartialTerm string
	Type        string
	Language    string
}

// SuggestOutput echoes the normalized partial term with its suggestions.
type SuggestOutput struct {
	PartialTerm string   `json:"partialTerm"`
	Suggestions []string `json:"suggestions"`
}

// Search runs a fuzzy search and projects the hits.
func (s *SearchService) Search(ctx context.Context, in SearchInput) (*SearchOutput, error) {
	term := strings.TrimSpace(in.Term)
	spec := s.composer.BuildSearchQuery(term, in.Type, in.Language)

	result, err := s.engine.Search(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w: %w", term, domain.ErrQueryExecution, err)
	}

	s.logger.DebugContext(ctx, "search executed",
		slog.String("term", term),
		slog.String("type", in.Type),
		slog.String("language", in.Language),
		slog.Int("total", result.Total),
		slog.Int64("took_ms", result.TookMs),
	)

	return &SearchOutput{
		Term:    term,
		Results: projector.Search(result.Hits, in.Language),
	}, nil
}

// Suggest runs a prefix lookup and returns de-duplicated labels.
func (s *SearchService) Suggest(ctx context.Context, in SuggestInput) (*SuggestOutput, error) {
	partial := strings.TrimSpace(in.PartialTerm)
	spec := s.composer.BuildSuggestQuery(partial, in.Type, in.Language)

	result, err := s.engine.Search(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("suggest %q: %w: %w", partial, domain.ErrQueryExecution, err)
	}

	suggestions := projector.Suggestions(result.Hits, partial, in.Language)
	s.logger.DebugContext(ctx, "suggest executed",
		slog.String("partial_term", partial),
		slog.Int("hits", len(result.Hits)),
		slog.Int("suggestions", len(suggestions)),
	)

	return &SuggestOutput{
		PartialTerm: partial,
		Suggestions: suggestions,
	}, nil
}
