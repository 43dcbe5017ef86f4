// Package guardrail provides composable call-wrapping policies for Go
// applications.
//
// The central type is Policy[T], which wraps operations — functions taking
// a named-argument set and returning a value or an error — with policies
// like timing instrumentation, memoized caching with TTL, sliding-window
// rate limiting, retry with backoff, circuit breaking, and argument
// validation. Policies compose by nesting and automatically report health
// status for readiness probes.
package guardrail
