package breaker

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/termsearch/internal/domain"
	"github.com/utafrali/termsearch/internal/engine/memory"
)

// flakyEngine fails Search and Count while down is set.
type flakyEngine struct {
	*memory.Engine
	down     bool
	err      error
	searches int
}

func (f *flakyEngine) Search(ctx context.Context, spec domain.QuerySpec) (*domain.SearchResult, error) {
	f.searches++
	if f.down {
		return nil, f.err
	}
	return f.Engine.Search(ctx, spec)
}

func (f *flakyEngine) Count(ctx context.Context) (int64, error) {
	if f.down {
		return 0, f.err
	}
	return f.Engine.Count(ctx)
}

func testConfig(name string) Config {
	return Config{
		Name:         name,
		MaxRequests:  1,
		Timeout:      50 * time.Millisecond,
		FailureRatio: 0.5,
		MinRequests:  3,
	}
}

func gaugeValue(t *testing.T, name string) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, circuitBreakerState.WithLabelValues(name).Write(&m))
	return m.GetGauge().GetValue()
}

func newFlaky() *flakyEngine {
	return &flakyEngine{Engine: memory.New(), err: errors.New("connection refused")}
}

func TestBreaker_ClosedPassesThrough(t *testing.T) {
	f := newFlaky()
	_, err := f.BulkUpsert(context.Background(), []domain.Document{{ID: "a"}}, domain.BulkOptions{})
	require.NoError(t, err)
	b := Wrap(f, testConfig("closed"), slog.New(slog.DiscardHandler))

	res, err := b.Search(context.Background(), domain.QuerySpec{Size: 10})
	require.NoError(t, err)
	assert.Len(t, res.Hits, 1)

	n, err := b.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestBreaker_OpensAfterRepeatedFailures(t *testing.T) {
	f := newFlaky()
	f.down = true
	b := Wrap(f, testConfig("trips"), slog.New(slog.DiscardHandler))

	for i := 0; i < 3; i++ {
		_, err := b.Search(context.Background(), domain.QuerySpec{})
		require.ErrorIs(t, err, f.err)
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())
	assert.Equal(t, float64(2), gaugeValue(t, "trips"))

	_, err := b.Search(context.Background(), domain.QuerySpec{})
	assert.True(t, IsOpen(err))
	assert.Equal(t, 3, f.searches, "open breaker must not reach the store")
}

func TestBreaker_RecoversThroughHalfOpen(t *testing.T) {
	f := newFlaky()
	f.down = true
	b := Wrap(f, testConfig("recovers"), slog.New(slog.DiscardHandler))
	for i := 0; i < 3; i++ {
		_, _ = b.Count(context.Background())
	}
	require.Equal(t, gobreaker.StateOpen, b.State())

	f.down = false
	time.Sleep(80 * time.Millisecond)

	_, err := b.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, gobreaker.StateClosed, b.State())
	assert.Equal(t, float64(0), gaugeValue(t, "recovers"))
}

func TestBreaker_CanceledRequestsDoNotTrip(t *testing.T) {
	f := newFlaky()
	f.down = true
	f.err = context.Canceled
	b := Wrap(f, testConfig("canceled"), slog.New(slog.DiscardHandler))

	for i := 0; i < 5; i++ {
		_, err := b.Search(context.Background(), domain.QuerySpec{})
		require.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestBreaker_WritesBypassBreaker(t *testing.T) {
	f := newFlaky()
	f.down = true
	b := Wrap(f, testConfig("bypass"), slog.New(slog.DiscardHandler))
	for i := 0; i < 3; i++ {
		_, _ = b.Search(context.Background(), domain.QuerySpec{})
	}
	require.Equal(t, gobreaker.StateOpen, b.State())

	res, err := b.BulkUpsert(context.Background(), []domain.Document{{ID: "x"}}, domain.BulkOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Succeeded)

	refs, err := b.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Len(t, refs, 1)
}

func TestIsOpen(t *testing.T) {
	assert.True(t, IsOpen(gobreaker.ErrOpenState))
	assert.True(t, IsOpen(gobreaker.ErrTooManyRequests))
	assert.False(t, IsOpen(errors.New("other")))
	assert.False(t, IsOpen(nil))
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("store")
	assert.Equal(t, "store", cfg.Name)
	assert.Equal(t, uint32(5), cfg.MinRequests)
	assert.InDelta(t, 0.5, cfg.FailureRatio, 0.0001)
}
