package guardrail

import "context"

// Pattern: Instrumentation — measures call latency and logs arguments and
// outcomes without altering them. Purely observational: the wrapped
// operation's result and error pass through untouched.

// DoTimed executes fn, logging the call's arguments, elapsed time, and
// outcome through log. Elapsed time spans from call initiation to the
// operation's return, so it is accurate for operations that suspend on the
// context (channel waits, downstream I/O) as well as plain blocking calls.
//
//nolint:ireturn // generic type parameter T, not an interface
func DoTimed[T any](
	ctx context.Context,
	name string,
	args Args,
	fn Operation[T],
	log Logger,
	clock Clock,
) (T, error) {
	log.Debug("call started", Fields{
		"operation": name,
		"args":      args,
	})

	start := clock.Now()
	result, err := fn(ctx, args)
	elapsed := clock.Since(start)

	if err != nil {
		log.Error("call failed", Fields{
			"operation": name,
			"elapsed":   elapsed,
			"error":     err.Error(),
		})

		return result, err
	}

	log.Info("call completed", Fields{
		"operation": name,
		"elapsed":   elapsed,
		"result":    result,
	})

	return result, nil
}
