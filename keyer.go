package guardrail

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	json "github.com/goccy/go-json"
)

// Keyer derives deterministic cache keys from a call's named arguments.
//
// Contract:
//   - Determinism: the same argument set must produce the same key
//     regardless of map iteration order or call-site argument ordering.
//   - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	// Key derives a cache key from args.
	Key(args Args) (string, error)
}

// CanonicalKeyer derives SHA-256 based cache keys from a canonical JSON
// serialization of the arguments, sorted by parameter name. Semantically
// identical calls collide on the same key no matter how the call site
// ordered the arguments.
type CanonicalKeyer struct{}

// Key derives a deterministic cache key: the first 8 bytes (16 hex
// characters) of SHA-256 over the canonical JSON form of args.
func (CanonicalKeyer) Key(args Args) (string, error) {
	canonical, err := canonicalize(args)
	if err != nil {
		return "", fmt.Errorf("guardrail: canonicalize args: %w", err)
	}

	sum := sha256.Sum256(canonical)

	return hex.EncodeToString(sum[:8]), nil
}

// canonicalize produces a deterministic JSON representation of v. Maps are
// serialized with keys in sorted order; everything else uses standard JSON
// encoding.
func canonicalize(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return []byte("null"), nil
	case Args:
		return canonicalizeMap(map[string]any(val))
	case map[string]any:
		return canonicalizeMap(val)
	case []any:
		return canonicalizeSlice(val)
	default:
		return json.Marshal(v) //nolint:wrapcheck // wrapped by the caller
	}
}

func canonicalizeMap(m map[string]any) ([]byte, error) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}

	sort.Strings(names)

	out := []byte("{")

	for i, name := range names {
		if i > 0 {
			out = append(out, ',')
		}

		nameBytes, err := json.Marshal(name)
		if err != nil {
			return nil, err //nolint:wrapcheck // wrapped by the caller
		}

		out = append(out, nameBytes...)
		out = append(out, ':')

		valBytes, err := canonicalize(m[name])
		if err != nil {
			return nil, err
		}

		out = append(out, valBytes...)
	}

	return append(out, '}'), nil
}

func canonicalizeSlice(s []any) ([]byte, error) {
	out := []byte("[")

	for i, v := range s {
		if i > 0 {
			out = append(out, ',')
		}

		valBytes, err := canonicalize(v)
		if err != nil {
			return nil, err
		}

		out = append(out, valBytes...)
	}

	return append(out, ']'), nil
}

var _ Keyer = CanonicalKeyer{}
