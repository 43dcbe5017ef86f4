package guardrail

import (
	"context"
	"errors"
	"time"
)

// ---------------------------------------------------------------------------
// Policy[T] — the central integration type
// ---------------------------------------------------------------------------

// Policy composes multiple call-wrapping policies (instrumentation,
// validation, cache, timeout, circuit breaker, rate limiter, retry) behind
// a single [Policy.Do] method. Use [NewPolicy] with functional options to
// configure it.
//
// Every stateful policy (cache entries, rate-limit call history, circuit
// state) is owned by the Policy instance that declared it. Two policies
// wrapping the same underlying function never share state.
//
// Pattern: Functional Options — configures Policy[T] via composable option
// functions; generic options use any to work around Go's generic type
// constraint on function signatures.
type Policy[T any] struct {
	name  string
	hooks Hooks
	clock Clock
	log   Logger
	chain Middleware[T]

	// References to stateful policies (needed later for health reporting).
	entries []PatternEntry[T]
	breaker *CircuitBreaker
	limiter *RateLimiter

	// Hierarchical health dependencies.
	deps []HealthReporter

	// Registry this policy is registered with (nil if anonymous or opted
	// out).
	registry *Registry
}

// Name returns the policy's name.
func (p *Policy[T]) Name() string { return p.name }

// Do executes fn with the given named arguments through the composed
// middleware chain. The operation's call contract is preserved: apart from
// the failure kinds the policies themselves introduce, the outermost caller
// sees exactly what fn returned.
func (p *Policy[T]) Do(ctx context.Context, args Args, fn Operation[T]) (T, error) {
	wrapped := p.chain(fn)

	return wrapped(ctx, args)
}

// ---------------------------------------------------------------------------
// Non-generic option descriptors — stored as any, interpreted by NewPolicy[T]
// ---------------------------------------------------------------------------

// policyOptionFunc is a non-generic option that modifies policySetup.
type policyOptionFunc func(*policySetup)

// policySetup holds non-generic configuration collected during NewPolicy.
type policySetup struct {
	clock    Clock
	hooks    Hooks
	log      Logger
	registry *Registry
}

// instrumentDesc requests timing/logging instrumentation.
type instrumentDesc struct{}

// validateDesc holds deferred validator configuration.
type validateDesc struct {
	rules map[string]Predicate
	opts  []ValidatorOption
}

// cacheDesc holds deferred cache configuration.
type cacheDesc struct {
	ttl time.Duration
}

// cacheStoreDesc holds deferred cache configuration with a type-erased
// backing store.
type cacheStoreDesc struct {
	store any // Store[T] stored as any
	ttl   time.Duration
}

// rateLimitDesc holds deferred rate limiter configuration.
type rateLimitDesc struct {
	maxCalls int
	period   time.Duration
}

// retryDesc holds deferred retry configuration.
type retryDesc struct {
	strategy    BackoffStrategy
	opts        []RetryOption
	maxAttempts int
}

// circuitBreakerDesc holds deferred circuit breaker configuration.
type circuitBreakerDesc struct {
	opts []CircuitBreakerOption
}

// timeoutDesc holds deferred timeout configuration.
type timeoutDesc struct {
	d time.Duration
}

// dependsOnDesc holds health reporters that this policy depends on.
type dependsOnDesc struct {
	reporters []HealthReporter
}

// ---------------------------------------------------------------------------
// With* functions — all return any
// ---------------------------------------------------------------------------

// WithClock sets the clock used by all policies within this Policy.
func WithClock(c Clock) any {
	return policyOptionFunc(func(s *policySetup) {
		s.clock = c
	})
}

// WithHooks sets the lifecycle hooks for all policies within this Policy.
func WithHooks(h Hooks) any {
	return policyOptionFunc(func(s *policySetup) {
		s.hooks = h
	})
}

// WithLogger sets the structured logger used by instrumentation and the
// stateful policies. Defaults to [NopLogger].
func WithLogger(log Logger) any {
	return policyOptionFunc(func(s *policySetup) {
		s.log = log
	})
}

// WithRegistry sets an explicit registry for the policy to register with.
// If not provided, named policies auto-register with DefaultRegistry.
func WithRegistry(reg *Registry) any {
	return policyOptionFunc(func(s *policySetup) {
		s.registry = reg
	})
}

// WithInstrumentation adds timing and input/output logging around every
// call. Purely observational: results and errors pass through unchanged.
func WithInstrumentation() any {
	return instrumentDesc{}
}

// WithValidation adds argument validation with the given mapping of
// parameter name to predicate. Invalid calls fail with a [ValidationError]
// before the wrapped operation is invoked.
func WithValidation(rules map[string]Predicate, opts ...ValidatorOption) any {
	return validateDesc{rules: rules, opts: opts}
}

// WithCache adds argument-keyed memoization with the given TTL. A ttl <= 0
// means entries are never fresh (every call recomputes).
func WithCache(ttl time.Duration) any {
	return cacheDesc{ttl: ttl}
}

// WithCacheStore adds argument-keyed memoization backed by an explicit
// store. The store's value type must match the Policy's type parameter T.
func WithCacheStore[T any](ttl time.Duration, store Store[T]) any {
	return cacheStoreDesc{ttl: ttl, store: store}
}

// WithRateLimit adds a sliding-window rate limiter admitting at most
// maxCalls within any window of length period.
func WithRateLimit(maxCalls int, period time.Duration) any {
	return rateLimitDesc{maxCalls: maxCalls, period: period}
}

// WithRetry adds retry logic with the given maximum attempts, backoff
// strategy, and optional retry configuration.
func WithRetry(maxAttempts int, strategy BackoffStrategy, opts ...RetryOption) any {
	return retryDesc{maxAttempts: maxAttempts, strategy: strategy, opts: opts}
}

// WithCircuitBreaker adds a circuit breaker that fast-fails when the
// downstream is unhealthy.
func WithCircuitBreaker(opts ...CircuitBreakerOption) any {
	return circuitBreakerDesc{opts: opts}
}

// WithTimeout adds a timeout that cancels slow calls after d.
func WithTimeout(d time.Duration) any {
	return timeoutDesc{d: d}
}

// DependsOn declares hierarchical health dependencies. If any dependency
// reports CriticalityCritical and is unhealthy, this policy's health
// status will be degraded.
func DependsOn(reporters ...HealthReporter) any {
	return dependsOnDesc{reporters: reporters}
}

// ---------------------------------------------------------------------------
// NewPolicy[T] — construct and wire up the policy
// ---------------------------------------------------------------------------

// NewPolicy creates a new [Policy] with the given name and options.
// Options are processed in two phases: first, non-generic options (clock,
// hooks, logger) are collected; then, policy descriptors build their
// middleware using the resolved clock, hooks, and logger. Policies are
// auto-sorted by priority via [SortPatterns] before chaining.
func NewPolicy[T any](name string, opts ...any) *Policy[T] {
	var setup policySetup

	// Phase 1: Collect non-generic options to resolve clock, hooks, and
	// logger first.
	for _, opt := range opts {
		if pof, ok := opt.(policyOptionFunc); ok {
			pof(&setup)
		}
	}

	if setup.clock == nil {
		setup.clock = RealClock{}
	}

	if setup.log == nil {
		setup.log = NopLogger{}
	}

	hooks := setup.hooks
	clock := setup.clock
	log := setup.log

	// Phase 2: Build middleware entries from policy descriptors.
	var (
		entries []PatternEntry[T]
		breaker *CircuitBreaker
		limiter *RateLimiter
		deps    []HealthReporter
	)

	for _, opt := range opts {
		switch desc := opt.(type) {
		case policyOptionFunc:
			// Already processed in phase 1.

		case instrumentDesc:
			entries = append(entries, PatternEntry[T]{
				Priority: priorityInstrument,
				Name:     "instrument",
				MW: func(next Operation[T]) Operation[T] {
					return func(ctx context.Context, args Args) (T, error) {
						return DoTimed[T](ctx, name, args, next, log, clock)
					}
				},
			})

		case validateDesc:
			val := NewValidator(desc.rules, desc.opts...)
			entries = append(entries, PatternEntry[T]{
				Priority: priorityValidate,
				Name:     "validate",
				MW: func(next Operation[T]) Operation[T] {
					return func(ctx context.Context, args Args) (T, error) {
						if err := val.Validate(args); err != nil {
							var verr *ValidationError
							if errors.As(err, &verr) {
								hooks.emitValidationFailed(verr.Param, verr.Value)
							}

							var zero T

							return zero, err
						}

						return next(ctx, args)
					}
				},
			})

		case cacheDesc:
			memo := NewMemo[T](desc.ttl, clock, &hooks, MemoLogger[T](log))
			entries = append(entries, memoEntry[T](memo))

		case cacheStoreDesc:
			store := desc.store.(Store[T])
			memo := NewMemo[T](
				desc.ttl,
				clock,
				&hooks,
				MemoStore[T](store),
				MemoLogger[T](log),
			)
			entries = append(entries, memoEntry[T](memo))

		case rateLimitDesc:
			limiter = NewRateLimiter(desc.maxCalls, desc.period, clock, &hooks)
			rlRef := limiter
			entries = append(entries, PatternEntry[T]{
				Priority: priorityRateLimiter,
				Name:     "rate_limiter",
				MW: func(next Operation[T]) Operation[T] {
					return func(ctx context.Context, args Args) (T, error) {
						if err := rlRef.Allow(); err != nil {
							var zero T

							return zero, err
						}

						return next(ctx, args)
					}
				},
			})

		case retryDesc:
			maxAttempts := desc.maxAttempts
			strategy := desc.strategy
			retryOpts := desc.opts
			entries = append(entries, PatternEntry[T]{
				Priority: priorityRetry,
				Name:     "retry",
				MW: func(next Operation[T]) Operation[T] {
					return func(ctx context.Context, args Args) (T, error) {
						return DoRetry[T](ctx, args, maxAttempts, strategy, next, &hooks, clock, retryOpts...)
					}
				},
			})

		case circuitBreakerDesc:
			breaker = NewCircuitBreaker(clock, &hooks, desc.opts...)
			cbRef := breaker
			entries = append(entries, PatternEntry[T]{
				Priority: priorityCircuitBreaker,
				Name:     "circuit_breaker",
				MW: func(next Operation[T]) Operation[T] {
					return func(ctx context.Context, args Args) (T, error) {
						if err := cbRef.Allow(); err != nil {
							var zero T

							return zero, err
						}

						val, err := next(ctx, args)
						cbRef.Record(err)

						return val, err
					}
				},
			})

		case timeoutDesc:
			d := desc.d
			entries = append(entries, PatternEntry[T]{
				Priority: priorityTimeout,
				Name:     "timeout",
				MW: func(next Operation[T]) Operation[T] {
					return func(ctx context.Context, args Args) (T, error) {
						return DoTimeout[T](ctx, args, d, next, &hooks)
					}
				},
			})

		case dependsOnDesc:
			deps = append(deps, desc.reporters...)
		}
	}

	// Sort by priority and chain.
	sorted := SortPatterns[T](entries)
	chain := Chain[T](sorted...)

	// Auto-register if policy has a name.
	var reg *Registry
	if name != "" {
		reg = setup.registry
		if reg == nil {
			reg = DefaultRegistry()
		}
	}

	p := &Policy[T]{
		name:     name,
		hooks:    hooks,
		clock:    clock,
		log:      log,
		chain:    chain,
		entries:  entries,
		breaker:  breaker,
		limiter:  limiter,
		deps:     deps,
		registry: reg,
	}

	if reg != nil && name != "" {
		reg.Register(p)
	}

	return p
}

// memoEntry wraps a Memo as a cache pattern entry.
func memoEntry[T any](memo *Memo[T]) PatternEntry[T] {
	return PatternEntry[T]{
		Priority: priorityCache,
		Name:     "cache",
		MW: func(next Operation[T]) Operation[T] {
			return func(ctx context.Context, args Args) (T, error) {
				return memo.Do(ctx, args, next)
			}
		},
	}
}
