package guardrail

import (
	"context"
	"fmt"
	"time"
)

// Pattern: Memoization — caches operation results keyed by the call's named
// arguments, with a per-entry time-to-live. Expired entries are evicted
// lazily at access time; there is no background sweep. A failed computation
// is never stored, and concurrent misses on the same key may each compute
// independently (last write wins).

type (
	// Memo memoizes an operation's results. Each Memo owns its own entry
	// set: state is scoped to the policy instance that created it, never
	// shared across operations.
	Memo[T any] struct {
		store Store[T]
		keyer Keyer
		clock Clock
		hooks *Hooks
		log   Logger
		ttl   time.Duration
	}

	// MemoOption configures a [Memo].
	MemoOption[T any] func(*Memo[T])
)

// MemoStore sets the backing store. Defaults to an unbounded [MapStore].
func MemoStore[T any](s Store[T]) MemoOption[T] {
	return func(m *Memo[T]) {
		m.store = s
	}
}

// MemoKeyer sets the key derivation strategy. Defaults to [CanonicalKeyer].
func MemoKeyer[T any](k Keyer) MemoOption[T] {
	return func(m *Memo[T]) {
		m.keyer = k
	}
}

// MemoLogger sets the logger used for hit/miss records. Defaults to
// [NopLogger].
func MemoLogger[T any](log Logger) MemoOption[T] {
	return func(m *Memo[T]) {
		m.log = log
	}
}

// NewMemo creates a memoizing wrapper whose entries stay fresh for ttl
// after being stored. A ttl <= 0 means entries are never fresh: every call
// recomputes (and overwrites the stored entry).
func NewMemo[T any](
	ttl time.Duration,
	clock Clock,
	hooks *Hooks,
	opts ...MemoOption[T],
) *Memo[T] {
	m := &Memo[T]{
		ttl:   ttl,
		clock: clock,
		hooks: hooks,
		log:   NopLogger{},
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.store == nil {
		m.store = NewMapStore[T]()
	}

	if m.keyer == nil {
		m.keyer = CanonicalKeyer{}
	}

	return m
}

// Do returns the cached result for args if one was stored within the TTL;
// otherwise it invokes fn, stores the result, and returns it. Failures from
// fn propagate uncached.
//
//nolint:ireturn // generic type parameter T, not an interface
func (m *Memo[T]) Do(ctx context.Context, args Args, fn Operation[T]) (T, error) {
	var zero T

	key, err := m.keyer.Key(args)
	if err != nil {
		return zero, fmt.Errorf("guardrail: cache key: %w", err)
	}

	if e, ok := m.store.Get(key); ok {
		if m.ttl > 0 && m.clock.Since(e.StoredAt) < m.ttl {
			m.hooks.emitCacheHit(key)
			m.log.Debug("cache hit", Fields{"key": key})

			return e.Value, nil
		}

		// Stale entry: evict lazily before recomputing.
		m.store.Delete(key)
	}

	m.hooks.emitCacheMiss(key)

	result, err := fn(ctx, args)
	if err != nil {
		return zero, err
	}

	m.store.Set(key, Entry[T]{Value: result, StoredAt: m.clock.Now()}, m.ttl)
	m.log.Debug("cache miss, result stored", Fields{"key": key})

	return result, nil
}
