package backend

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryConfig bounds the retries of the challenge and exchange calls.
type RetryConfig struct {
	// MaxAttempts is the total number of tries, including the first (default: 3).
	MaxAttempts int

	// InitialInterval is the first backoff delay (default: 250ms).
	InitialInterval time.Duration

	// MaxInterval caps any single backoff delay (default: 2s).
	MaxInterval time.Duration
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.InitialInterval <= 0 {
		c.InitialInterval = 250 * time.Millisecond
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = 2 * time.Second
	}
	return c
}

// retry runs op until it succeeds, fails permanently, exhausts the attempt
// bound, or ctx is done. Transient errors (see IsTransient) are retried with
// jittered exponential backoff; everything else stops immediately.
func retry[T any](ctx context.Context, cfg RetryConfig, step string, logger *slog.Logger, op func(context.Context) (T, error)) (T, error) {
	cfg = cfg.withDefaults()

	b := &backoff.ExponentialBackOff{
		InitialInterval:     cfg.InitialInterval,
		RandomizationFactor: 0.5,
		Multiplier:          2,
		MaxInterval:         cfg.MaxInterval,
	}

	attempt := 0
	operation := func() (T, error) {
		attempt++
		res, err := op(ctx)
		if err == nil {
			return res, nil
		}
		if ctx.Err() != nil || !IsTransient(err) {
			return res, backoff.Permanent(err)
		}
		return res, err
	}

	notify := func(err error, next time.Duration) {
		logger.WarnContext(ctx, "backend call failed, retrying",
			"step", step,
			"attempt", attempt,
			"max_attempts", cfg.MaxAttempts,
			"backoff", next,
			"error", err,
		)
	}

	res, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(cfg.MaxAttempts)),
		backoff.WithNotify(notify),
	)

	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Err
	}
	return res, err
}
