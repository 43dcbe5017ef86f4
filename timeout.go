package guardrail

import (
	"context"
	"time"
)

// Pattern: Timeout — wraps a call with a context deadline, returning
// ErrTimeout if the operation does not complete in time. Distinguishes
// between timeout-caused cancellation and parent context cancellation.

// DoTimeout executes fn with a timeout. If fn does not complete within
// timeout, the derived context is cancelled and ErrTimeout is returned.
//
//nolint:ireturn // generic type parameter T, not an interface
func DoTimeout[T any](
	ctx context.Context,
	args Args,
	timeout time.Duration,
	fn Operation[T],
	hooks *Hooks,
) (T, error) {
	var zero T

	// If the parent context is already done, return its error immediately.
	if ctx.Err() != nil {
		return zero, ctx.Err() //nolint:wrapcheck // preserving context error identity
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Run fn in a goroutine and collect the result via channel.
	type result struct {
		val T
		err error
	}

	ch := make(chan result, 1)

	go func() {
		v, err := fn(timeoutCtx, args)
		ch <- result{val: v, err: err}
	}()

	select {
	case r := <-ch:
		return r.val, r.err
	case <-timeoutCtx.Done():
		// If the parent context is done, the parent was cancelled
		// externally; otherwise the deadline was exceeded.
		if ctx.Err() != nil {
			return zero, ctx.Err() //nolint:wrapcheck // preserving context error identity
		}

		hooks.emitTimeout()

		return zero, ErrTimeout
	}
}
