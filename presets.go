package guardrail

import "time"

// Pattern: Factory Function — each preset produces a ready-made option
// bundle for a common use case, avoiding boilerplate configuration.

// CachedLookup returns options suitable for an idempotent read path:
// instrumentation plus argument-keyed memoization with the given TTL.
func CachedLookup(ttl time.Duration) []any {
	return []any{
		WithInstrumentation(),
		WithCache(ttl),
	}
}

// GuardedEndpoint returns options for a request handler that must shed
// load before it melts down: a sliding-window rate limit, a circuit breaker
// with a 5-failure threshold and 30s recovery, and a 5s timeout.
func GuardedEndpoint(maxCalls int, period time.Duration) []any {
	return []any{
		WithTimeout(5 * time.Second),
		WithRateLimit(maxCalls, period),
		WithCircuitBreaker(
			FailureThreshold(5),
			RecoveryTimeout(30*time.Second),
		),
	}
}

// FlakyDependency returns options for calling an unreliable downstream:
// retry 3 times with 100ms exponential backoff (doubling), and a circuit
// breaker with a 5-failure threshold and 30s recovery.
func FlakyDependency() []any {
	return []any{
		WithRetry(3, ExponentialBackoff(100*time.Millisecond, 2)),
		WithCircuitBreaker(
			FailureThreshold(5),
			RecoveryTimeout(30*time.Second),
		),
	}
}
