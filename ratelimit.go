package guardrail

import (
	"sync"
	"time"
)

// Pattern: Rate Limiter — sliding time window bounds the number of admitted
// calls. The call history is pruned to the window and appended under one
// mutex so concurrent callers can never over-admit; rejected callers wait
// (if they choose to) outside the lock.

// RateLimiter enforces a maximum call count within a sliding time window.
// Each RateLimiter owns its own call history: state is scoped to the policy
// instance that created it, never shared across operations.
type RateLimiter struct {
	clock    Clock
	hooks    *Hooks
	period   time.Duration
	maxCalls int

	mu      sync.Mutex
	history []time.Time // timestamps of admitted calls, oldest first
}

// NewRateLimiter creates a limiter admitting at most maxCalls within any
// sliding window of length period.
func NewRateLimiter(
	maxCalls int,
	period time.Duration,
	clock Clock,
	hooks *Hooks,
) *RateLimiter {
	return &RateLimiter{
		maxCalls: maxCalls,
		period:   period,
		clock:    clock,
		hooks:    hooks,
	}
}

// Allow admits the call if fewer than maxCalls were admitted within the
// window ending now, recording the call's timestamp. Otherwise it returns a
// [RateLimitError] whose RetryAfter is the time remaining until the oldest
// counted call leaves the window.
func (rl *RateLimiter) Allow() error {
	now := rl.clock.Now()

	rl.mu.Lock()
	rl.pruneLocked(now)

	if len(rl.history) >= rl.maxCalls {
		retryAfter := rl.period - now.Sub(rl.history[0])
		rl.mu.Unlock()

		rl.hooks.emitRateLimited(retryAfter)

		return &RateLimitError{RetryAfter: retryAfter}
	}

	rl.history = append(rl.history, now)
	rl.mu.Unlock()

	return nil
}

// pruneLocked drops history entries that have left the window [now-period,
// now]. Callers must hold rl.mu.
func (rl *RateLimiter) pruneLocked(now time.Time) {
	kept := rl.history[:0]

	for _, t := range rl.history {
		if now.Sub(t) < rl.period {
			kept = append(kept, t)
		}
	}

	rl.history = kept
}

// Saturated returns true if the window is at capacity (the next call would
// be rejected).
func (rl *RateLimiter) Saturated() bool {
	now := rl.clock.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.pruneLocked(now)

	return len(rl.history) >= rl.maxCalls
}
