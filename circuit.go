package guardrail

import (
	"sync/atomic"
	"time"
)

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------.

type (
	circuitBreakerConfig struct {
		qualifies         func(error) bool
		failureThreshold  int
		recoveryTimeout   time.Duration
		halfOpenSuccesses int
	}

	// CircuitBreakerOption configures a circuit breaker.
	CircuitBreakerOption func(*circuitBreakerConfig)

	// CircuitBreaker tracks consecutive qualifying failures of an operation
	// and fails fast when it is down. Each CircuitBreaker owns its own
	// state: it is scoped to the policy instance that created it, never
	// shared across operations.
	//
	// Pattern: Circuit Breaker — fast-fails calls to an unhealthy
	// downstream; auto-recovers via half-open probes after a recovery
	// timeout. Lock-free via atomic CAS.
	CircuitBreaker struct {
		clock Clock
		hooks *Hooks
		cfg   circuitBreakerConfig

		state             atomic.Uint32 // stateClosed | stateOpen | stateHalfOpen
		failureCount      atomic.Int64
		lastFailureNano   atomic.Int64 // unix nano of last qualifying failure
		halfOpenSuccesses atomic.Int64
	}
)

// Circuit breaker states (stored in atomic.Uint32).
const (
	stateClosed   uint32 = 0
	stateOpen     uint32 = 1
	stateHalfOpen uint32 = 2
)

func defaultCircuitBreakerConfig() circuitBreakerConfig {
	return circuitBreakerConfig{
		failureThreshold:  5,
		recoveryTimeout:   30 * time.Second,
		halfOpenSuccesses: 2,
		qualifies:         defaultQualifies,
	}
}

// FailureThreshold sets the number of consecutive qualifying failures before
// opening.
func FailureThreshold(n int) CircuitBreakerOption {
	return func(cfg *circuitBreakerConfig) {
		cfg.failureThreshold = n
	}
}

// RecoveryTimeout sets how long the breaker stays open before probing
// recovery in the half-open state.
func RecoveryTimeout(d time.Duration) CircuitBreakerOption {
	return func(cfg *circuitBreakerConfig) {
		cfg.recoveryTimeout = d
	}
}

// HalfOpenSuccesses sets the number of consecutive successful probes needed
// to close from half-open. Defaults to 2.
func HalfOpenSuccesses(n int) CircuitBreakerOption {
	return func(cfg *circuitBreakerConfig) {
		cfg.halfOpenSuccesses = n
	}
}

// QualifyIf sets the predicate deciding which failure kinds count toward
// breaker accounting. Failures for which the predicate returns false
// propagate without affecting state. When unset, any operation failure
// qualifies except policy-layer rejections and context cancellation — in
// particular, the breaker's own [CircuitOpenError] never counts.
func QualifyIf(fn func(error) bool) CircuitBreakerOption {
	return func(cfg *circuitBreakerConfig) {
		cfg.qualifies = fn
	}
}

// NewCircuitBreaker creates a circuit breaker with the given options.
// The breaker starts closed.
func NewCircuitBreaker(
	clock Clock,
	hooks *Hooks,
	opts ...CircuitBreakerOption,
) *CircuitBreaker {
	cfg := defaultCircuitBreakerConfig()
	for _, o := range opts {
		o(&cfg)
	}

	if cfg.qualifies == nil {
		cfg.qualifies = defaultQualifies
	}

	return &CircuitBreaker{
		clock: clock,
		hooks: hooks,
		cfg:   cfg,
	}
}

// Allow checks if a call should be allowed. Returns nil if the breaker is
// closed or half-open. Returns a [CircuitOpenError] carrying the remaining
// wait time if the breaker is open and the recovery timeout hasn't elapsed;
// once it has, the breaker transitions to half-open and the call proceeds.
func (cb *CircuitBreaker) Allow() error {
	s := cb.state.Load()

	if s == stateOpen {
		lastTime := time.Unix(0, cb.lastFailureNano.Load())

		elapsed := cb.clock.Since(lastTime)
		if elapsed >= cb.cfg.recoveryTimeout {
			// Attempt CAS from open to half-open.
			if cb.state.CompareAndSwap(stateOpen, stateHalfOpen) {
				cb.halfOpenSuccesses.Store(0)
				cb.hooks.emitCircuitHalfOpen()
			}
			// Even if CAS failed (another goroutine already transitioned),
			// the state is now half-open, so allow the call.
			return nil
		}

		return &CircuitOpenError{RetryAfter: cb.cfg.recoveryTimeout - elapsed}
	}

	// stateClosed or stateHalfOpen: allow the call.
	return nil
}

// Record classifies the outcome of an allowed call: nil counts as a
// success, a qualifying failure counts toward breaker accounting, and any
// other failure leaves the breaker's state untouched.
func (cb *CircuitBreaker) Record(err error) {
	switch {
	case err == nil:
		cb.RecordSuccess()
	case cb.cfg.qualifies(err):
		cb.RecordFailure()
	default:
		// Non-qualifying failure: propagates without affecting state.
	}
}

// RecordSuccess records a successful call.
func (cb *CircuitBreaker) RecordSuccess() {
	s := cb.state.Load()

	switch s {
	case stateClosed:
		// Reset failure count on success.
		cb.failureCount.Store(0)

	case stateHalfOpen:
		newCount := cb.halfOpenSuccesses.Add(1)
		if newCount < int64(cb.cfg.halfOpenSuccesses) {
			break
		}

		if !cb.state.CompareAndSwap(stateHalfOpen, stateClosed) {
			break
		}

		cb.failureCount.Store(0)
		cb.halfOpenSuccesses.Store(0)
		cb.hooks.emitCircuitClose()

	default:
		// stateOpen — no action on success
	}
}

// RecordFailure records a qualifying failure.
func (cb *CircuitBreaker) RecordFailure() {
	// Record the failure time.
	cb.lastFailureNano.Store(cb.clock.Now().UnixNano())

	s := cb.state.Load()

	switch s {
	case stateClosed:
		newCount := cb.failureCount.Add(1)
		if newCount < int64(cb.cfg.failureThreshold) {
			break
		}

		if !cb.state.CompareAndSwap(stateClosed, stateOpen) {
			break
		}

		cb.hooks.emitCircuitOpen()

	case stateHalfOpen:
		// Any qualifying failure in half-open goes back to open.
		if cb.state.CompareAndSwap(stateHalfOpen, stateOpen) {
			cb.halfOpenSuccesses.Store(0)
			cb.hooks.emitCircuitOpen()
		}

	default:
		// stateOpen — already open, no state change needed
	}
}

// State returns the current state as a string: "closed", "open", or
// "half_open".
func (cb *CircuitBreaker) State() string {
	switch cb.state.Load() {
	case stateOpen:
		return "open"
	case stateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}
