package guardrail

import (
	"context"
	"testing"
)

// tagMW appends tag to the shared trace on the way in, before calling next.
func tagMW(trace *[]string, tag string) Middleware[int] {
	return func(next Operation[int]) Operation[int] {
		return func(ctx context.Context, args Args) (int, error) {
			*trace = append(*trace, tag)

			return next(ctx, args)
		}
	}
}

func TestChainOrder(t *testing.T) {
	var trace []string

	chained := Chain(
		tagMW(&trace, "a"),
		tagMW(&trace, "b"),
		tagMW(&trace, "c"),
	)

	op := chained(func(_ context.Context, _ Args) (int, error) {
		trace = append(trace, "fn")

		return 42, nil
	})

	got, err := op(context.Background(), nil)
	if err != nil {
		t.Fatalf("op() error = %v", err)
	}

	if got != 42 {
		t.Fatalf("op() = %d, want 42", got)
	}

	want := []string{"a", "b", "c", "fn"}
	for i, tag := range want {
		if trace[i] != tag {
			t.Fatalf("trace = %v, want %v", trace, want)
		}
	}
}

func TestChainEmptyIsIdentity(t *testing.T) {
	op := Chain[string]()(func(_ context.Context, _ Args) (string, error) {
		return "untouched", nil
	})

	got, err := op(context.Background(), nil)
	if err != nil {
		t.Fatalf("op() error = %v", err)
	}

	if got != "untouched" {
		t.Fatalf("op() = %q, want %q", got, "untouched")
	}
}

func TestChainShortCircuit(t *testing.T) {
	calls := 0

	block := func(Operation[int]) Operation[int] {
		return func(_ context.Context, _ Args) (int, error) {
			return -1, ErrRateLimited
		}
	}

	op := Chain[int](block)(func(_ context.Context, _ Args) (int, error) {
		calls++

		return 0, nil
	})

	if _, err := op(context.Background(), nil); err != ErrRateLimited { //nolint:errorlint
		t.Fatalf("op() error = %v, want ErrRateLimited", err)
	}

	if calls != 0 {
		t.Fatalf("inner fn called %d times, want 0", calls)
	}
}

func TestChainArgsFlowThrough(t *testing.T) {
	enrich := func(next Operation[int]) Operation[int] {
		return func(ctx context.Context, args Args) (int, error) {
			copied := make(Args, len(args)+1)
			for k, v := range args {
				copied[k] = v
			}

			copied["region"] = "eu-west-1"

			return next(ctx, copied)
		}
	}

	op := Chain[int](enrich)(func(_ context.Context, args Args) (int, error) {
		if args["region"] != "eu-west-1" {
			return 0, ErrValidation
		}

		return len(args), nil
	})

	got, err := op(context.Background(), Args{"id": 7})
	if err != nil {
		t.Fatalf("op() error = %v", err)
	}

	if got != 2 {
		t.Fatalf("op() = %d, want 2 args visible to inner fn", got)
	}
}
