// Package ristretto provides an adapter for the Ristretto cache library,
// implementing the guardrail.Store interface for use with guardrail.Memo
// and guardrail.WithCacheStore.
package ristretto

import (
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/venntor/guardrail"
)

// store wraps a ristretto.Cache to implement guardrail.Store.
type store[V any] struct {
	cache *ristretto.Cache[string, guardrail.Entry[V]]
}

// MustNew creates a guardrail.Store backed by a Ristretto cache bounded to
// maxEntries. Ristretto expires entries natively using the TTL passed to
// Set, in addition to the freshness check guardrail.Memo performs itself.
// Ristretto recommends NumCounters = 10 * max size for good performance.
// It panics if the underlying Ristretto cache cannot be built.
//
//nolint:ireturn // returns the Store interface by design
func MustNew[V any](maxEntries int64) guardrail.Store[V] {
	//nolint:mnd // Ristretto recommends 10x max size for num counters and
	// 64 buffer items.
	cache, err := ristretto.NewCache(&ristretto.Config[string, guardrail.Entry[V]]{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		panic("guardrail/ristretto: failed to build cache: " + err.Error())
	}

	return &store[V]{cache: cache}
}

// Get retrieves a stored entry by key.
func (s *store[V]) Get(key string) (guardrail.Entry[V], bool) {
	return s.cache.Get(key)
}

// Set stores an entry, overwriting any previous entry for key. A ttl <= 0
// stores the entry without native expiry; Memo treats such entries as never
// fresh anyway. Set waits for the write buffer to drain so the entry is
// visible to an immediately following Get.
func (s *store[V]) Set(key string, e guardrail.Entry[V], ttl time.Duration) {
	if ttl > 0 {
		s.cache.SetWithTTL(key, e, 1, ttl)
	} else {
		s.cache.Set(key, e, 1)
	}

	s.cache.Wait()
}

// Delete removes a stored entry by key.
func (s *store[V]) Delete(key string) {
	s.cache.Del(key)
}
