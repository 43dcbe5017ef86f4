package guardrail

import "context"

// Do is a convenience function that wraps a single call with policies
// without creating a named [Policy]. It creates an anonymous policy
// internally and calls [Policy.Do]. The policy is not registered with any
// [Registry].
func Do[T any](ctx context.Context, args Args, fn Operation[T], opts ...any) (T, error) {
	p := NewPolicy[T]("", opts...)

	return p.Do(ctx, args, fn)
}
