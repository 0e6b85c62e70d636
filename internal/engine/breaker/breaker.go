// Package breaker guards the read path of a search engine with a circuit
// breaker so query traffic fails fast while the store is down.
package breaker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker/v2"

	"github.com/utafrali/termsearch/internal/domain"
	"github.com/utafrali/termsearch/internal/engine"
)

// Config holds configuration for the circuit breaker.
type Config struct {
	// Name identifies this breaker in metrics and logs.
	Name string

	// MaxRequests is the number of trial requests allowed while half-open.
	MaxRequests uint32

	// Interval clears the failure counts while closed. 0 never clears them.
	Interval time.Duration

	// Timeout is how long the breaker stays open before going half-open.
	Timeout time.Duration

	// FailureRatio trips the breaker once MinRequests have been seen.
	FailureRatio float64
	MinRequests  uint32
}

// DefaultConfig returns the breaker settings used for the store read path.
func DefaultConfig(name string) Config {
	return Config{
		Name:         name,
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      15 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

var circuitBreakerState = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "circuit_breaker_state",
		Help: "Current state of the circuit breaker (0=closed, 1=half-open, 2=open)",
	},
	[]string{"name"},
)

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// IsOpen reports whether err was returned because the breaker rejected the call.
func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// Engine decorates a SearchEngine. Search and Count run through the breaker;
// writes, snapshots and index management pass straight through since only
// the reconciler uses them and it reports its own failures.
type Engine struct {
	engine.SearchEngine
	cb *gobreaker.CircuitBreaker[any]
}

// Wrap returns next guarded by a breaker configured with cfg.
func Wrap(next engine.SearchEngine, cfg Config, logger *slog.Logger) *Engine {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		// A caller abandoning its request says nothing about store health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				slog.String("name", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			circuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	}
	circuitBreakerState.WithLabelValues(cfg.Name).Set(0)

	return &Engine{
		SearchEngine: next,
		cb:           gobreaker.NewCircuitBreaker[any](settings),
	}
}

// Search runs the query through the breaker.
func (e *Engine) Search(ctx context.Context, spec domain.QuerySpec) (*domain.SearchResult, error) {
	out, err := e.cb.Execute(func() (any, error) {
		return e.SearchEngine.Search(ctx, spec)
	})
	if err != nil {
		return nil, err
	}
	return out.(*domain.SearchResult), nil
}

// Count runs the count through the breaker.
func (e *Engine) Count(ctx context.Context) (int64, error) {
	out, err := e.cb.Execute(func() (any, error) {
		return e.SearchEngine.Count(ctx)
	})
	if err != nil {
		return 0, err
	}
	return out.(int64), nil
}

// State returns the current breaker state.
func (e *Engine) State() gobreaker.State {
	return e.cb.State()
}
