package guardrail

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestMemoHitWithinTTLInvokesOnce(t *testing.T) {
	clk := newTestClock()
	memo := NewMemo[int](30*time.Second, clk, &Hooks{})

	var calls atomic.Int32

	fn := func(context.Context, Args) (int, error) {
		calls.Add(1)
		return 42, nil
	}

	got1, err := memo.Do(context.Background(), Args{"n": 5}, fn)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}

	clk.advance(1 * time.Second)

	got2, err := memo.Do(context.Background(), Args{"n": 5}, fn)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}

	if got1 != 42 || got2 != 42 {
		t.Fatalf("Do() = %d, %d; want 42, 42", got1, got2)
	}

	if c := calls.Load(); c != 1 {
		t.Fatalf("inner operation invoked %d times, want 1", c)
	}
}

func TestMemoRecomputesAfterExpiry(t *testing.T) {
	clk := newTestClock()
	memo := NewMemo[int](30*time.Second, clk, &Hooks{})

	var calls atomic.Int32

	fn := func(context.Context, Args) (int, error) {
		return int(calls.Add(1)), nil
	}

	got1, _ := memo.Do(context.Background(), Args{"n": 5}, fn)

	clk.advance(31 * time.Second)

	got2, _ := memo.Do(context.Background(), Args{"n": 5}, fn)

	if got1 != 1 || got2 != 2 {
		t.Fatalf("Do() = %d, %d; want recomputation after ttl", got1, got2)
	}

	if c := calls.Load(); c != 2 {
		t.Fatalf("inner operation invoked %d times, want 2", c)
	}
}

func TestMemoExpiryIsStrict(t *testing.T) {
	// An entry is fresh while now - storedAt < ttl; at exactly ttl it is
	// stale.
	clk := newTestClock()
	memo := NewMemo[int](10*time.Second, clk, &Hooks{})

	var calls atomic.Int32

	fn := func(context.Context, Args) (int, error) {
		calls.Add(1)
		return 1, nil
	}

	_, _ = memo.Do(context.Background(), nil, fn)

	clk.advance(10 * time.Second)

	_, _ = memo.Do(context.Background(), nil, fn)

	if c := calls.Load(); c != 2 {
		t.Fatalf("inner operation invoked %d times, want 2 (entry stale at exactly ttl)", c)
	}
}

func TestMemoArgumentPermutationHitsSameEntry(t *testing.T) {
	clk := newTestClock()
	memo := NewMemo[string](time.Minute, clk, &Hooks{})

	var calls atomic.Int32

	fn := func(context.Context, Args) (string, error) {
		calls.Add(1)
		return "result", nil
	}

	a := Args{}
	a["x"] = 1
	a["y"] = 2

	b := Args{}
	b["y"] = 2
	b["x"] = 1

	_, _ = memo.Do(context.Background(), a, fn)
	_, _ = memo.Do(context.Background(), b, fn)

	if c := calls.Load(); c != 1 {
		t.Fatalf("inner operation invoked %d times, want 1 (keyword-equivalent calls)", c)
	}
}

func TestMemoDistinctArgsDistinctEntries(t *testing.T) {
	clk := newTestClock()
	memo := NewMemo[int](time.Minute, clk, &Hooks{})

	fn := func(_ context.Context, args Args) (int, error) {
		n, _ := args["n"].(int)
		return n * 2, nil
	}

	got5, _ := memo.Do(context.Background(), Args{"n": 5}, fn)
	got6, _ := memo.Do(context.Background(), Args{"n": 6}, fn)

	if got5 != 10 || got6 != 12 {
		t.Fatalf("Do() = %d, %d; want 10, 12", got5, got6)
	}
}

func TestMemoZeroTTLAlwaysRecomputes(t *testing.T) {
	clk := newTestClock()
	memo := NewMemo[int](0, clk, &Hooks{})

	var calls atomic.Int32

	fn := func(context.Context, Args) (int, error) {
		calls.Add(1)
		return 7, nil
	}

	_, _ = memo.Do(context.Background(), nil, fn)
	_, _ = memo.Do(context.Background(), nil, fn)
	_, _ = memo.Do(context.Background(), nil, fn)

	if c := calls.Load(); c != 3 {
		t.Fatalf("inner operation invoked %d times, want 3 (ttl <= 0 is never fresh)", c)
	}
}

func TestMemoNegativeTTLAlwaysRecomputes(t *testing.T) {
	clk := newTestClock()
	memo := NewMemo[int](-time.Second, clk, &Hooks{})

	var calls atomic.Int32

	fn := func(context.Context, Args) (int, error) {
		calls.Add(1)
		return 7, nil
	}

	_, _ = memo.Do(context.Background(), nil, fn)
	_, _ = memo.Do(context.Background(), nil, fn)

	if c := calls.Load(); c != 2 {
		t.Fatalf("inner operation invoked %d times, want 2", c)
	}
}

func TestMemoFailureNeverStored(t *testing.T) {
	clk := newTestClock()
	memo := NewMemo[int](time.Minute, clk, &Hooks{})

	boom := errors.New("boom")
	fail := true

	var calls atomic.Int32

	fn := func(context.Context, Args) (int, error) {
		calls.Add(1)

		if fail {
			return 0, boom
		}

		return 9, nil
	}

	_, err := memo.Do(context.Background(), nil, fn)
	if !errors.Is(err, boom) {
		t.Fatalf("Do() error = %v, want the operation's error", err)
	}

	// The failure must not have been cached: the next call recomputes.
	fail = false

	got, err := memo.Do(context.Background(), nil, fn)
	if err != nil || got != 9 {
		t.Fatalf("Do() = %d, %v; want 9, nil", got, err)
	}

	if c := calls.Load(); c != 2 {
		t.Fatalf("inner operation invoked %d times, want 2", c)
	}
}

func TestMemoLazyEviction(t *testing.T) {
	clk := newTestClock()
	store := NewMapStore[int]()
	memo := NewMemo[int](time.Second, clk, &Hooks{}, MemoStore[int](store))

	fn := func(context.Context, Args) (int, error) { return 1, nil }

	_, _ = memo.Do(context.Background(), nil, fn)

	if store.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", store.Len())
	}

	// Expired entries linger until the next access; there is no sweeper.
	clk.advance(time.Minute)

	if store.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (no background sweep)", store.Len())
	}

	// The next access evicts the stale entry and stores a fresh one.
	_, _ = memo.Do(context.Background(), nil, fn)

	if store.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 after lazy eviction and re-store", store.Len())
	}
}

func TestMemoHitAndMissHooks(t *testing.T) {
	clk := newTestClock()

	var hits, misses atomic.Int32

	hooks := Hooks{
		OnCacheHit:  func(string) { hits.Add(1) },
		OnCacheMiss: func(string) { misses.Add(1) },
	}
	memo := NewMemo[int](time.Minute, clk, &hooks)

	fn := func(context.Context, Args) (int, error) { return 1, nil }

	_, _ = memo.Do(context.Background(), nil, fn)
	_, _ = memo.Do(context.Background(), nil, fn)

	if misses.Load() != 1 || hits.Load() != 1 {
		t.Fatalf("hooks: misses = %d, hits = %d; want 1, 1", misses.Load(), hits.Load())
	}
}

func TestMemoKeyDerivationFailure(t *testing.T) {
	clk := newTestClock()
	memo := NewMemo[int](time.Minute, clk, &Hooks{})

	var calls atomic.Int32

	_, err := memo.Do(
		context.Background(),
		Args{"ch": make(chan int)},
		func(context.Context, Args) (int, error) {
			calls.Add(1)
			return 0, nil
		},
	)
	if err == nil {
		t.Fatal("Do() error = nil, want key derivation failure")
	}

	if calls.Load() != 0 {
		t.Fatal("inner operation invoked despite key derivation failure")
	}
}

func TestMemoConcurrentMissesLastWriteWins(t *testing.T) {
	// A thundering herd of concurrent misses may each compute
	// independently; the memo must stay consistent and subsequent calls
	// must hit.
	clk := newTestClock()
	memo := NewMemo[int](time.Minute, clk, &Hooks{})

	var calls atomic.Int32

	fn := func(context.Context, Args) (int, error) {
		calls.Add(1)
		return 5, nil
	}

	var wg sync.WaitGroup

	for range 20 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			got, err := memo.Do(context.Background(), Args{"n": 1}, fn)
			if err != nil || got != 5 {
				t.Errorf("Do() = %d, %v; want 5, nil", got, err)
			}
		}()
	}

	wg.Wait()

	before := calls.Load()

	// Now that an entry is stored, further calls must not recompute.
	_, _ = memo.Do(context.Background(), Args{"n": 1}, fn)

	if calls.Load() != before {
		t.Fatal("call after the herd recomputed despite a fresh entry")
	}
}
