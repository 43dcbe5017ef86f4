package guardrail

import "time"

// Hooks holds optional callback functions for policy lifecycle events. All
// fields are nil by default; callers set only the hooks they care about.
// Once constructed, a Hooks value must not be mutated — emit methods read
// the function fields without synchronisation, which is safe as long as the
// struct is read-only after initialisation.
//
// Pattern: Observer — decouples policy event emission from consumers
// (logging, metrics, alerting) without policies knowing about observers.
type Hooks struct {
	OnRetry            func(attempt int, err error)
	OnCircuitOpen      func()
	OnCircuitClose     func()
	OnCircuitHalfOpen  func()
	OnRateLimited      func(retryAfter time.Duration)
	OnCacheHit         func(key string)
	OnCacheMiss        func(key string)
	OnValidationFailed func(param string, value any)
	OnTimeout          func()
}

func (h *Hooks) emitRetry(attempt int, err error) {
	if h.OnRetry != nil {
		h.OnRetry(attempt, err)
	}
}

func (h *Hooks) emitCircuitOpen() {
	if h.OnCircuitOpen != nil {
		h.OnCircuitOpen()
	}
}

func (h *Hooks) emitCircuitClose() {
	if h.OnCircuitClose != nil {
		h.OnCircuitClose()
	}
}

func (h *Hooks) emitCircuitHalfOpen() {
	if h.OnCircuitHalfOpen != nil {
		h.OnCircuitHalfOpen()
	}
}

func (h *Hooks) emitRateLimited(retryAfter time.Duration) {
	if h.OnRateLimited != nil {
		h.OnRateLimited(retryAfter)
	}
}

func (h *Hooks) emitCacheHit(key string) {
	if h.OnCacheHit != nil {
		h.OnCacheHit(key)
	}
}

func (h *Hooks) emitCacheMiss(key string) {
	if h.OnCacheMiss != nil {
		h.OnCacheMiss(key)
	}
}

func (h *Hooks) emitValidationFailed(param string, value any) {
	if h.OnValidationFailed != nil {
		h.OnValidationFailed(param, value)
	}
}

func (h *Hooks) emitTimeout() {
	if h.OnTimeout != nil {
		h.OnTimeout()
	}
}
