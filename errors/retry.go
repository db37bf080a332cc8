package errors

import (
	"context"
	stderrors "errors"
	"time"
)

// RetryConfig configures the bounded exponential backoff executor.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryConfig returns the retry policy used for external I/O unless a
// caller needs something tighter.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:  5,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}

// RetryAfterHint is implemented by errors that carry an explicit server-side
// wait, such as HTTP 429 responses with a Retry-After header. The executor
// never waits less than the hint.
type RetryAfterHint interface {
	RetryAfter() time.Duration
}

// RetryFunc is an operation the executor may run more than once.
type RetryFunc func() error

// RetryWithConfig runs fn until it succeeds, returns a non-retryable error,
// the context is cancelled, or attempts are exhausted. Delays grow by
// Multiplier up to MaxDelay.
func RetryWithConfig(ctx context.Context, fn RetryFunc, config *RetryConfig) error {
	if config == nil {
		config = DefaultRetryConfig()
	}

	var lastErr error
	delay := config.InitialDelay

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return err
		}
		if attempt == config.MaxAttempts {
			break
		}

		wait := delay
		var hint RetryAfterHint
		if stderrors.As(err, &hint) && hint.RetryAfter() > wait {
			wait = hint.RetryAfter()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		delay = time.Duration(float64(delay) * config.Multiplier)
		if delay > config.MaxDelay {
			delay = config.MaxDelay
		}
	}

	return Wrap(lastErr, CodeOf(lastErr), "maximum retry attempts exceeded").
		WithContext("attempts", config.MaxAttempts)
}

// Retry runs fn with the default policy.
func Retry(ctx context.Context, fn RetryFunc) error {
	return RetryWithConfig(ctx, fn, DefaultRetryConfig())
}
