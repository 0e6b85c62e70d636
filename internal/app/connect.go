package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/utafrali/termsearch/internal/domain"
)

// RetryPolicy bounds how long startup waits for the document store.
type RetryPolicy struct {
	// MaxAttempts of 0 retries until the context is cancelled.
	MaxAttempts     uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func (p RetryPolicy) backOff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.InitialInterval
	bo.MaxInterval = p.MaxInterval
	bo.Multiplier = 2
	return bo
}

// waitForStore pings until the store answers, backing off exponentially
// between attempts. Running out of attempts is ErrStartupConnectivity.
func waitForStore(ctx context.Context, ping func(context.Context) error, policy RetryPolicy, logger *slog.Logger) error {
	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		return struct{}{}, ping(ctx)
	},
		backoff.WithBackOff(policy.backOff()),
		backoff.WithMaxTries(policy.MaxAttempts),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.WarnContext(ctx, "document store not ready, retrying",
				slog.Int("attempt", attempt),
				slog.Uint64("max_attempts", uint64(policy.MaxAttempts)),
				slog.Duration("next_retry", next),
				slog.String("error", err.Error()),
			)
		}),
	)
	if err != nil {
		return fmt.Errorf("%w after %d attempts: %w", domain.ErrStartupConnectivity, attempt, err)
	}
	logger.InfoContext(ctx, "document store reachable", slog.Int("attempts", attempt))
	return nil
}
