package guardrail

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ---------------------------------------------------------------------------
// Policy-layer error identification
// ---------------------------------------------------------------------------

type (
	// PolicyError identifies errors produced by the policy layer itself
	// (rate limit rejections, open circuits, validation failures), as
	// opposed to errors from the wrapped operation. Policy errors are never
	// retried and never count toward circuit breaker accounting by default.
	PolicyError interface {
		error
		// IsPolicy reports whether this error originates from the policy
		// layer.
		IsPolicy() bool
	}

	// transientError marks a wrapped error as transient (retriable).
	transientError struct {
		err error
	}

	// permanentError marks a wrapped error as permanent (non-retriable).
	permanentError struct {
		err error
	}

	// policyError is the concrete type backing all sentinel errors.
	policyError string
)

// Sentinel policy errors. The structured error types below match these via
// errors.Is, so callers can classify rejections without unpacking them.
var (
	// ErrRateLimited is returned when a call is rejected by a rate limiter.
	ErrRateLimited error = policyError("rate limit exceeded")
	// ErrCircuitOpen is returned when the circuit breaker is in the open
	// state.
	ErrCircuitOpen error = policyError("circuit breaker is open")
	// ErrValidation is returned when an argument fails its predicate.
	ErrValidation error = policyError("argument validation failed")
	// ErrTimeout is returned when an operation exceeds its deadline.
	ErrTimeout error = policyError("timeout")
)

func (e policyError) Error() string { return string(e) }

// IsPolicy reports whether the error is a policy infrastructure error.
func (policyError) IsPolicy() bool { return true }

// isPolicyErr reports whether err (or anything it wraps) originates from the
// policy layer.
func isPolicyErr(err error) bool {
	var pe PolicyError

	return errors.As(err, &pe) && pe.IsPolicy()
}

// ---------------------------------------------------------------------------
// Structured rejections
// ---------------------------------------------------------------------------

// RateLimitError is returned when a rate limiter rejects a call. RetryAfter
// is the time remaining until the oldest counted call leaves the window and
// capacity is replenished.
type RateLimitError struct {
	// RetryAfter is how long the caller should wait before retrying.
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %v", e.RetryAfter)
}

// Is matches [ErrRateLimited].
func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimited }

// IsPolicy reports that the error originates from the policy layer.
func (*RateLimitError) IsPolicy() bool { return true }

// CircuitOpenError is returned when a circuit breaker rejects a call.
// RetryAfter is the time remaining until the breaker will probe recovery.
type CircuitOpenError struct {
	// RetryAfter is how long until the breaker transitions to half-open.
	RetryAfter time.Duration
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit breaker is open, retry after %v", e.RetryAfter)
}

// Is matches [ErrCircuitOpen].
func (e *CircuitOpenError) Is(target error) bool { return target == ErrCircuitOpen }

// IsPolicy reports that the error originates from the policy layer.
func (*CircuitOpenError) IsPolicy() bool { return true }

// ValidationError is returned when an argument fails its registered
// predicate. The wrapped operation is never invoked.
type ValidationError struct {
	// Value is the offending argument value.
	Value any
	// Param is the name of the parameter that failed validation.
	Param string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for parameter %q with value: %v", e.Param, e.Value)
}

// Is matches [ErrValidation].
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// IsPolicy reports that the error originates from the policy layer.
func (*ValidationError) IsPolicy() bool { return true }

// ---------------------------------------------------------------------------
// Transient / Permanent classification
// ---------------------------------------------------------------------------

func (e *transientError) Error() string { return "transient: " + e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func (e *permanentError) Error() string { return "permanent: " + e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Transient wraps err to mark it as a transient (retriable) error.
// Returns nil if err is nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}

	return &transientError{err: err}
}

// Permanent wraps err to mark it as a permanent (non-retriable) error.
// Returns nil if err is nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}

	return &permanentError{err: err}
}

// IsTransient reports whether err is transient. Unclassified (unwrapped)
// errors are treated as transient. Returns false for nil.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var pe *permanentError

	return !errors.As(err, &pe)
}

// IsPermanent reports whether err was explicitly marked as permanent.
// Returns false for nil and for unclassified errors.
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}

	var pe *permanentError

	return errors.As(err, &pe)
}

// defaultQualifies is the failure predicate used by the retrier and the
// circuit breaker when no custom predicate is configured. It accepts any
// operation failure but excludes policy-layer errors (so a breaker never
// counts its own rejection) and context cancellation (which must propagate
// transparently).
func defaultQualifies(err error) bool {
	if err == nil {
		return false
	}

	if isPolicyErr(err) {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	return true
}
