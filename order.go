package guardrail

import "sort"

// PatternEntry holds a middleware with its priority for auto-ordering.
type PatternEntry[T any] struct {
	MW       Middleware[T]
	Name     string
	Priority int
}

// Priority constants define the execution order for policies assembled via
// [NewPolicy]. Lower priority = outermost middleware (executed first).
// Instrumentation sits outermost so it observes policy rejections as well as
// operation outcomes; validation rejects bad calls before they consume cache
// or rate-limit capacity; a cache hit short-circuits everything below it;
// retry wraps the breaker and limiter so every attempt re-consults them, and
// an open breaker cuts a retry sequence short instead of being retried.
const (
	priorityInstrument     = 0 // outermost, observes everything
	priorityValidate       = 1
	priorityCache          = 2
	priorityTimeout        = 3
	priorityRetry          = 4
	priorityCircuitBreaker = 5
	priorityRateLimiter    = 6 // innermost, closest to user function
)

// SortPatterns sorts pattern entries by priority (lowest first = outermost).
// Stable sort to preserve order of patterns with same priority.
func SortPatterns[T any](entries []PatternEntry[T]) []Middleware[T] {
	if len(entries) == 0 {
		return nil
	}

	// Copy to avoid mutating the caller's slice.
	sorted := make([]PatternEntry[T], 0, len(entries))
	sorted = append(sorted, entries...)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})

	mws := make([]Middleware[T], 0, len(sorted))
	for _, e := range sorted {
		mws = append(mws, e.MW)
	}

	return mws
}
