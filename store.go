package guardrail

import (
	"sync"
	"time"
)

type (
	// Entry is a stored cache value together with the time it was stored.
	// Freshness is always judged by [Memo] against its TTL at access time;
	// a backing store may additionally expire entries on its own.
	Entry[T any] struct {
		StoredAt time.Time
		Value    T
	}

	// Store is the interface that cache backends must implement. The ttl
	// passed to Set is advisory: backends that support native expiration
	// (e.g. ristretto) may use it to bound entry lifetime, while simple
	// backends may ignore it and rely on [Memo]'s lazy eviction.
	Store[T any] interface {
		// Get retrieves a stored entry by key. Returns the entry and true
		// if present.
		Get(key string) (Entry[T], bool)
		// Set stores an entry, overwriting any previous entry for key.
		Set(key string, e Entry[T], ttl time.Duration)
		// Delete removes a stored entry by key.
		Delete(key string)
	}
)

// MapStore is the default in-memory [Store]: a mutex-guarded map with no
// size bound. Expired entries are evicted lazily by [Memo] on access.
type MapStore[T any] struct {
	mu      sync.RWMutex
	entries map[string]Entry[T]
}

// NewMapStore creates an empty MapStore.
func NewMapStore[T any]() *MapStore[T] {
	return &MapStore[T]{
		entries: make(map[string]Entry[T]),
	}
}

// Get retrieves a stored entry by key.
func (s *MapStore[T]) Get(key string) (Entry[T], bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]

	return e, ok
}

// Set stores an entry, overwriting any previous entry for key. The ttl is
// ignored; freshness is judged by the caller.
func (s *MapStore[T]) Set(key string, e Entry[T], _ time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = e
}

// Delete removes a stored entry by key.
func (s *MapStore[T]) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
}

// Len returns the number of stored entries, including stale ones that have
// not yet been lazily evicted.
func (s *MapStore[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entries)
}

var _ Store[any] = (*MapStore[any])(nil)
