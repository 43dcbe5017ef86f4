package guardrail

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func failN(cb *CircuitBreaker, n int) {
	for range n {
		cb.RecordFailure()
	}
}

func TestCircuitBreakerDefaultsToClosed(t *testing.T) {
	clk := newTestClock()
	cb := NewCircuitBreaker(clk, &Hooks{})

	if err := cb.Allow(); err != nil {
		t.Fatalf("Allow() on fresh breaker = %v, want nil", err)
	}

	if got := cb.State(); got != "closed" {
		t.Fatalf("State() = %q, want %q", got, "closed")
	}
}

func TestCircuitBreakerOpensAtThreshold(t *testing.T) {
	clk := newTestClock()
	cb := NewCircuitBreaker(clk, &Hooks{}, FailureThreshold(3))

	failN(cb, 2)

	if err := cb.Allow(); err != nil {
		t.Fatalf("Allow() below threshold = %v, want nil", err)
	}

	cb.RecordFailure()

	if err := cb.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("Allow() at threshold = %v, want ErrCircuitOpen", err)
	}

	if got := cb.State(); got != "open" {
		t.Fatalf("State() = %q, want %q", got, "open")
	}
}

func TestCircuitBreakerSuccessResetsFailureCount(t *testing.T) {
	clk := newTestClock()
	cb := NewCircuitBreaker(clk, &Hooks{}, FailureThreshold(3))

	failN(cb, 2)
	cb.RecordSuccess()
	failN(cb, 2)

	// Failures were not consecutive, so the breaker stays closed.
	if err := cb.Allow(); err != nil {
		t.Fatalf("Allow() = %v, want nil (failure count reset by success)", err)
	}
}

func TestCircuitBreakerRejectionCarriesWaitTime(t *testing.T) {
	clk := newTestClock()
	cb := NewCircuitBreaker(clk, &Hooks{},
		FailureThreshold(1),
		RecoveryTimeout(10*time.Second),
	)

	cb.RecordFailure()
	clk.advance(4 * time.Second)

	err := cb.Allow()

	var coe *CircuitOpenError
	if !errors.As(err, &coe) {
		t.Fatalf("Allow() = %v, want *CircuitOpenError", err)
	}

	// recoveryTimeout - (now - lastFailureTime) = 10s - 4s = 6s.
	if coe.RetryAfter != 6*time.Second {
		t.Fatalf("RetryAfter = %v, want 6s", coe.RetryAfter)
	}
}

func TestCircuitBreakerRecoversViaHalfOpen(t *testing.T) {
	clk := newTestClock()
	cb := NewCircuitBreaker(clk, &Hooks{},
		FailureThreshold(2),
		RecoveryTimeout(30*time.Second),
	)

	failN(cb, 2)

	if err := cb.Allow(); err == nil {
		t.Fatal("Allow() on open breaker = nil, want rejection")
	}

	// Elapsed time of exactly recoveryTimeout is enough to probe.
	clk.advance(30 * time.Second)

	if err := cb.Allow(); err != nil {
		t.Fatalf("Allow() after recovery timeout = %v, want nil (half-open probe)", err)
	}

	if got := cb.State(); got != "half_open" {
		t.Fatalf("State() = %q, want %q", got, "half_open")
	}

	// Default probe threshold is 2 consecutive successes.
	cb.RecordSuccess()

	if got := cb.State(); got != "half_open" {
		t.Fatalf("State() after 1 success = %q, want %q", got, "half_open")
	}

	cb.RecordSuccess()

	if got := cb.State(); got != "closed" {
		t.Fatalf("State() after 2 successes = %q, want %q", got, "closed")
	}
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	clk := newTestClock()
	cb := NewCircuitBreaker(clk, &Hooks{},
		FailureThreshold(1),
		RecoveryTimeout(time.Second),
	)

	cb.RecordFailure()
	clk.advance(time.Second)

	if err := cb.Allow(); err != nil {
		t.Fatalf("Allow() = %v, want nil (half-open)", err)
	}

	cb.RecordFailure()

	if got := cb.State(); got != "open" {
		t.Fatalf("State() after half-open failure = %q, want %q", got, "open")
	}

	// The failed probe restarts the recovery clock.
	if err := cb.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("Allow() = %v, want ErrCircuitOpen", err)
	}
}

func TestCircuitBreakerHalfOpenSuccessCountResetsOnReentry(t *testing.T) {
	clk := newTestClock()
	cb := NewCircuitBreaker(clk, &Hooks{},
		FailureThreshold(1),
		RecoveryTimeout(time.Second),
	)

	// First trip: one probe success, then a probe failure.
	cb.RecordFailure()
	clk.advance(time.Second)
	_ = cb.Allow()
	cb.RecordSuccess()
	cb.RecordFailure()

	// Second recovery: the earlier probe success must not carry over.
	clk.advance(time.Second)
	_ = cb.Allow()
	cb.RecordSuccess()

	if got := cb.State(); got != "half_open" {
		t.Fatalf("State() = %q, want %q (success count was reset)", got, "half_open")
	}
}

func TestCircuitBreakerCustomHalfOpenSuccesses(t *testing.T) {
	clk := newTestClock()
	cb := NewCircuitBreaker(clk, &Hooks{},
		FailureThreshold(1),
		RecoveryTimeout(time.Second),
		HalfOpenSuccesses(3),
	)

	cb.RecordFailure()
	clk.advance(time.Second)
	_ = cb.Allow()

	cb.RecordSuccess()
	cb.RecordSuccess()

	if got := cb.State(); got != "half_open" {
		t.Fatalf("State() after 2 of 3 successes = %q, want %q", got, "half_open")
	}

	cb.RecordSuccess()

	if got := cb.State(); got != "closed" {
		t.Fatalf("State() after 3 successes = %q, want %q", got, "closed")
	}
}

func TestCircuitBreakerRecordClassifiesOutcomes(t *testing.T) {
	clk := newTestClock()
	cb := NewCircuitBreaker(clk, &Hooks{}, FailureThreshold(2))

	// Policy-layer rejections and cancellation never count.
	cb.Record(&ValidationError{Param: "x", Value: 0})
	cb.Record(&RateLimitError{RetryAfter: time.Second})
	cb.Record(&CircuitOpenError{RetryAfter: time.Second})
	cb.Record(context.Canceled)

	if err := cb.Allow(); err != nil {
		t.Fatalf("Allow() = %v, want nil (no qualifying failures recorded)", err)
	}

	cb.Record(errors.New("boom"))
	cb.Record(Transient(errors.New("boom again")))

	if got := cb.State(); got != "open" {
		t.Fatalf("State() = %q, want %q (two qualifying failures)", got, "open")
	}
}

func TestCircuitBreakerQualifyIfPredicate(t *testing.T) {
	clk := newTestClock()

	qualifying := errors.New("connection refused")

	cb := NewCircuitBreaker(clk, &Hooks{},
		FailureThreshold(1),
		QualifyIf(func(err error) bool { return errors.Is(err, qualifying) }),
	)

	cb.Record(errors.New("some other failure"))

	if got := cb.State(); got != "closed" {
		t.Fatalf("State() = %q, want %q (failure kind not in qualifying set)", got, "closed")
	}

	cb.Record(qualifying)

	if got := cb.State(); got != "open" {
		t.Fatalf("State() = %q, want %q", got, "open")
	}
}

func TestCircuitBreakerEmitsTransitionHooks(t *testing.T) {
	clk := newTestClock()

	var opened, halfOpened, closed int

	hooks := Hooks{
		OnCircuitOpen:     func() { opened++ },
		OnCircuitHalfOpen: func() { halfOpened++ },
		OnCircuitClose:    func() { closed++ },
	}
	cb := NewCircuitBreaker(clk, &hooks,
		FailureThreshold(1),
		RecoveryTimeout(time.Second),
	)

	cb.RecordFailure()
	clk.advance(time.Second)
	_ = cb.Allow()
	cb.RecordSuccess()
	cb.RecordSuccess()

	if opened != 1 || halfOpened != 1 || closed != 1 {
		t.Fatalf("hooks = open:%d half:%d close:%d, want 1 each", opened, halfOpened, closed)
	}
}

func TestCircuitBreakerConcurrentTransitions(t *testing.T) {
	clk := newTestClock()
	cb := NewCircuitBreaker(clk, &Hooks{},
		FailureThreshold(5),
		RecoveryTimeout(time.Second),
	)

	var wg sync.WaitGroup

	for range 50 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			if cb.Allow() == nil {
				cb.RecordFailure()
			}
		}()
	}

	wg.Wait()

	if got := cb.State(); got != "open" {
		t.Fatalf("State() = %q, want %q", got, "open")
	}

	// Concurrent recovery probes must settle on a single half-open
	// transition.
	clk.advance(time.Second)

	for range 50 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_ = cb.Allow()
		}()
	}

	wg.Wait()

	if got := cb.State(); got != "half_open" {
		t.Fatalf("State() = %q, want %q", got, "half_open")
	}
}
