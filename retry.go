package guardrail

import (
	"context"
	"errors"
	"time"
)

// retryConfig holds the optional configuration for retry behavior.
type retryConfig struct {
	maxDelay          time.Duration    // 0 means no cap
	perAttemptTimeout time.Duration    // 0 means no per-attempt timeout
	retryIf           func(error) bool // nil means the default classification
}

// RetryOption configures retry behavior.
type RetryOption func(*retryConfig)

// MaxDelay caps the backoff delay to a maximum value.
func MaxDelay(d time.Duration) RetryOption {
	return func(cfg *retryConfig) {
		cfg.maxDelay = d
	}
}

// PerAttemptTimeout sets a timeout for each individual retry attempt.
func PerAttemptTimeout(d time.Duration) RetryOption {
	return func(cfg *retryConfig) {
		cfg.perAttemptTimeout = d
	}
}

// RetryIf sets the predicate that decides whether a failure kind is
// retryable. When unset, any failure is retryable except those marked
// [Permanent], policy-layer rejections, and context cancellation.
func RetryIf(fn func(error) bool) RetryOption {
	return func(cfg *retryConfig) {
		cfg.retryIf = fn
	}
}

// Pattern: Retry with Backoff — masks transient failures with a
// configurable backoff strategy; respects Permanent error classification to
// stop early. Backoff waits hold no lock and respect context cancellation,
// so a waiting retry never blocks unrelated work.

// DoRetry executes fn up to maxAttempts times. On a retryable failure with
// attempts remaining it waits strategy.Delay(attempt), then retries. A
// non-retryable failure propagates immediately without consuming further
// attempts. When all attempts are exhausted, the final attempt's failure is
// propagated exactly as the operation raised it, not wrapped.
//
//nolint:ireturn // generic type parameter T, not an interface
func DoRetry[T any](
	ctx context.Context,
	args Args,
	maxAttempts int,
	strategy BackoffStrategy,
	fn Operation[T],
	hooks *Hooks,
	clock Clock,
	opts ...RetryOption,
) (T, error) {
	var cfg retryConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	// When maxAttempts is 0 or 1, execute exactly once.
	if maxAttempts <= 1 {
		maxAttempts = 1
	}

	var zero T

	var lastErr error

	for attempt := range maxAttempts {
		// Execute fn, optionally with per-attempt timeout.
		var (
			result T
			err    error
		)

		if cfg.perAttemptTimeout > 0 {
			attemptCtx, attemptCancel := context.WithTimeout(ctx, cfg.perAttemptTimeout)
			result, err = fn(attemptCtx, args)
			attemptCancel()
		} else {
			result, err = fn(ctx, args)
		}

		// Success at any attempt returns immediately.
		if err == nil {
			return result, nil
		}

		lastErr = err

		// Non-retryable failure kinds propagate immediately.
		if IsPermanent(err) {
			return zero, err
		}

		if cfg.retryIf != nil {
			if !cfg.retryIf(err) {
				return zero, err
			}
		} else if !defaultQualifies(err) {
			// A deadline hit by the per-attempt timeout is still worth
			// retrying as long as the caller's own context is live.
			attemptExpired := cfg.perAttemptTimeout > 0 &&
				errors.Is(err, context.DeadlineExceeded) &&
				ctx.Err() == nil
			if !attemptExpired {
				return zero, err
			}
		}

		// The final attempt's failure propagates without waiting.
		if attempt == maxAttempts-1 {
			break
		}

		// Emit OnRetry hook with 1-indexed attempt number.
		hooks.emitRetry(attempt+1, err)

		delay := strategy.Delay(attempt)
		if cfg.maxDelay > 0 && delay > cfg.maxDelay {
			delay = cfg.maxDelay
		}

		// Wait using Clock.NewTimer, respecting context cancellation.
		timer := clock.NewTimer(delay)
		select {
		case <-timer.C():
			// Timer fired, proceed to next attempt.
		case <-ctx.Done():
			timer.Stop()

			return zero, ctx.Err() //nolint:wrapcheck // preserving context error identity
		}
	}

	// Attempts exhausted: surface the last failure with its original kind
	// and payload intact.
	return zero, lastErr
}
