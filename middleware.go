package guardrail

import "context"

// Pattern: Decorator — each policy wraps the next, forming a composable
// chain where order determines execution semantics.

// Args is the named-argument set of a call. Arguments are bound by name so
// that policies which key on them (caching) or inspect them (validation)
// treat semantically identical calls identically regardless of how the call
// site assembled them.
type Args map[string]any

// Operation is the wrapped unit of work: it receives a context and the
// call's named arguments and produces a value or fails.
type Operation[T any] func(ctx context.Context, args Args) (T, error)

// Middleware wraps an operation with additional behavior. Each middleware
// receives the next operation in the chain and returns a wrapped version
// exposing the same call contract.
type Middleware[T any] func(next Operation[T]) Operation[T]

// Chain composes multiple middlewares into a single middleware.
// Middlewares are applied in order: the first middleware is the outermost
// wrapper.
//
// Chain(a, b, c) produces a(b(c(next))) — a is outermost, c is innermost.
// Chain() with zero middlewares returns an identity middleware that passes
// through to next.
func Chain[T any](middlewares ...Middleware[T]) Middleware[T] {
	return func(next Operation[T]) Operation[T] {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}

		return next
	}
}
