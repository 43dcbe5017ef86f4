package guardrail

import (
	"math"
	"math/rand/v2"
	"time"
)

// BackoffStrategy determines the delay between retry attempts.
//
// Pattern: Strategy — swap backoff algorithms (constant, exponential,
// linear, jitter) without changing retry logic.
type BackoffStrategy interface {
	// Delay returns the duration to wait before the given retry attempt
	// (0-indexed: attempt 0 is the delay before the first retry).
	Delay(attempt int) time.Duration
}

// ---------------------------------------------------------------------------
// BackoffFunc — adapter for plain functions
// ---------------------------------------------------------------------------

// BackoffFunc adapts an ordinary function into a [BackoffStrategy].
// This allows callers to provide ad-hoc backoff logic without defining a
// type.
type BackoffFunc func(attempt int) time.Duration

// Delay calls the underlying function.
func (f BackoffFunc) Delay(attempt int) time.Duration { return f(attempt) }

// ---------------------------------------------------------------------------
// ConstantBackoff
// ---------------------------------------------------------------------------

// constantBackoff returns the same delay for every attempt.
type constantBackoff struct {
	d time.Duration
}

func (b *constantBackoff) Delay(_ int) time.Duration { return b.d }

// ConstantBackoff returns a [BackoffStrategy] that always returns a fixed
// delay d regardless of the attempt number.
func ConstantBackoff(d time.Duration) BackoffStrategy {
	return &constantBackoff{d: d}
}

// ---------------------------------------------------------------------------
// ExponentialBackoff
// ---------------------------------------------------------------------------

// exponentialBackoff returns initial * multiplier^attempt.
type exponentialBackoff struct {
	initial    time.Duration
	multiplier float64
}

func (b *exponentialBackoff) Delay(attempt int) time.Duration {
	return time.Duration(float64(b.initial) * math.Pow(b.multiplier, float64(attempt)))
}

// ExponentialBackoff returns a [BackoffStrategy] whose delay starts at
// initial and is multiplied by multiplier after each failed attempt:
// initial * multiplier^attempt.
func ExponentialBackoff(initial time.Duration, multiplier float64) BackoffStrategy {
	return &exponentialBackoff{initial: initial, multiplier: multiplier}
}

// ---------------------------------------------------------------------------
// LinearBackoff
// ---------------------------------------------------------------------------

// linearBackoff returns step * (attempt + 1).
type linearBackoff struct {
	step time.Duration
}

func (b *linearBackoff) Delay(attempt int) time.Duration {
	return b.step * time.Duration(attempt+1)
}

// LinearBackoff returns a [BackoffStrategy] whose delay increases linearly:
// step * (attempt + 1).
func LinearBackoff(step time.Duration) BackoffStrategy {
	return &linearBackoff{step: step}
}

// ---------------------------------------------------------------------------
// ExponentialJitterBackoff
// ---------------------------------------------------------------------------

// exponentialJitterBackoff returns a random duration in
// [0, initial * multiplier^attempt].
type exponentialJitterBackoff struct {
	initial    time.Duration
	multiplier float64
}

func (b *exponentialJitterBackoff) Delay(attempt int) time.Duration {
	ceil := int64(float64(b.initial) * math.Pow(b.multiplier, float64(attempt)))
	if ceil <= 0 {
		return 0
	}

	return time.Duration(rand.Int64N(ceil + 1))
}

// ExponentialJitterBackoff returns a [BackoffStrategy] whose delay is a
// random duration uniformly distributed in [0, initial * multiplier^attempt].
// This prevents thundering-herd problems by spreading retries across time.
func ExponentialJitterBackoff(initial time.Duration, multiplier float64) BackoffStrategy {
	return &exponentialJitterBackoff{initial: initial, multiplier: multiplier}
}
