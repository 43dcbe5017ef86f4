package guardrail

import (
	"fmt"
	"os"
	"time"

	json "github.com/goccy/go-json"
)

type (
	// configFile is the top-level JSON structure.
	configFile struct {
		Policies map[string]PolicyConfig `json:"policies"`
	}

	// PolicyConfig holds the decoded configuration for a single policy.
	// Export it to embed in your own app config structs for JSON or YAML
	// unmarshaling, then call [BuildOptions] to obtain functional options
	// for [NewPolicy]. Validation predicates are code, not configuration,
	// so they are always added via [WithValidation].
	PolicyConfig struct {
		// Cache configures argument-keyed memoization.
		// Optional. Example: {"ttl": "30s"}.
		Cache *CacheConfig `json:"cache,omitempty" yaml:"cache,omitempty"`
		// RateLimit configures the sliding-window rate limiter.
		// Optional. Example: {"max_calls": 5, "period": "60s"}.
		RateLimit *RateLimitConfig `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"`
		// Retry configures the retry policy.
		// Optional. Example: {"max_attempts": 3, "backoff": "exponential"}.
		Retry *RetryConfig `json:"retry,omitempty" yaml:"retry,omitempty"`
		// CircuitBreaker configures the circuit breaker policy.
		// Optional. Example: {"failure_threshold": 5}.
		CircuitBreaker *CircuitBreakerConfig `json:"circuit_breaker,omitempty" yaml:"circuit_breaker,omitempty"`
		// Timeout is the maximum duration for a single call.
		// Optional. Parsed via time.ParseDuration. Example: "2s".
		Timeout *string `json:"timeout,omitempty" yaml:"timeout,omitempty"`
		// Instrument enables timing/logging instrumentation.
		// Optional. Example: true.
		Instrument *bool `json:"instrument,omitempty" yaml:"instrument,omitempty"`
	}

	// CacheConfig holds cache configuration values.
	CacheConfig struct {
		// TTL is the time entries stay fresh after being stored.
		// Required. Parsed via time.ParseDuration. Example: "30s".
		TTL *string `json:"ttl,omitempty" yaml:"ttl,omitempty"`
	}

	// RateLimitConfig holds rate limiter configuration values.
	RateLimitConfig struct {
		// MaxCalls is the number of calls admitted per window.
		// Required. Example: 5.
		MaxCalls *int `json:"max_calls,omitempty" yaml:"max_calls,omitempty"`
		// Period is the sliding window length.
		// Required. Parsed via time.ParseDuration. Example: "60s".
		Period *string `json:"period,omitempty" yaml:"period,omitempty"`
	}

	// RetryConfig holds retry configuration values.
	RetryConfig struct {
		// Backoff is the backoff strategy name.
		// Required. One of: "constant", "exponential", "linear",
		// "exponential_jitter".
		Backoff *string `json:"backoff,omitempty" yaml:"backoff,omitempty"`
		// InitialDelay is the delay before the first retry.
		// Required. Parsed via time.ParseDuration. Example: "100ms".
		InitialDelay *string `json:"initial_delay,omitempty" yaml:"initial_delay,omitempty"`
		// Multiplier scales the delay after each failed attempt for the
		// exponential strategies. Optional, defaults to 2. Example: 1.5.
		Multiplier *float64 `json:"multiplier,omitempty" yaml:"multiplier,omitempty"`
		// MaxDelay caps the backoff delay.
		// Optional. Parsed via time.ParseDuration. Example: "30s".
		MaxDelay *string `json:"max_delay,omitempty" yaml:"max_delay,omitempty"`
		// MaxAttempts is the maximum number of attempts.
		// Required. Example: 3.
		MaxAttempts *int `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`
	}

	// CircuitBreakerConfig holds circuit breaker configuration values.
	CircuitBreakerConfig struct {
		// RecoveryTimeout is the duration the breaker stays open.
		// Optional. Parsed via time.ParseDuration. Example: "30s".
		RecoveryTimeout *string `json:"recovery_timeout,omitempty" yaml:"recovery_timeout,omitempty"`
		// FailureThreshold is the number of failures before opening.
		// Optional. Example: 5.
		FailureThreshold *int `json:"failure_threshold,omitempty" yaml:"failure_threshold,omitempty"`
		// HalfOpenSuccesses is the number of successful probes needed to
		// close from half-open. Optional. Example: 2.
		HalfOpenSuccesses *int `json:"half_open_successes,omitempty" yaml:"half_open_successes,omitempty"`
	}
)

// LoadConfig reads a JSON configuration file and stores the policy
// configurations in a [Registry]. Actual [Policy] instances are not created
// until [GetPolicy] is called, allowing the caller to provide type
// parameters and additional code-level options (hooks, loggers, validation
// predicates).
//
// Duration values (timeout, ttl, period, recovery_timeout, initial_delay,
// max_delay) are parsed using [time.ParseDuration].
//
// Supported backoff strategies: "constant", "exponential", "linear",
// "exponential_jitter".
func LoadConfig(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("guardrail: read config: %w", err)
	}

	var cfg configFile
	if err = json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("guardrail: parse config: %w", err)
	}

	// Validate all policies eagerly so errors surface at load time.
	for name, pc := range cfg.Policies {
		if _, buildErr := BuildOptions(&pc); buildErr != nil {
			return nil, fmt.Errorf("guardrail: policy %q: %w", name, buildErr)
		}
	}

	reg := NewRegistry()
	reg.mu.Lock()
	reg.configs = cfg.Policies
	reg.mu.Unlock()

	return reg, nil
}

// BuildOptions converts a [PolicyConfig] into a slice of functional option
// values suitable for [NewPolicy]. Use this when you embed [PolicyConfig]
// in your own config struct and want to build a policy without going
// through [LoadConfig].
func BuildOptions(pc *PolicyConfig) ([]any, error) {
	var opts []any

	if pc.Instrument != nil && *pc.Instrument {
		opts = append(opts, WithInstrumentation())
	}

	if pc.Cache != nil {
		if pc.Cache.TTL == nil {
			return nil, fmt.Errorf("cache.ttl is required")
		}

		ttl, err := time.ParseDuration(*pc.Cache.TTL)
		if err != nil {
			return nil, fmt.Errorf("cache.ttl: %w", err)
		}

		opts = append(opts, WithCache(ttl))
	}

	if pc.RateLimit != nil {
		if pc.RateLimit.MaxCalls == nil || pc.RateLimit.Period == nil {
			return nil, fmt.Errorf("rate_limit.max_calls and rate_limit.period are required")
		}

		period, err := time.ParseDuration(*pc.RateLimit.Period)
		if err != nil {
			return nil, fmt.Errorf("rate_limit.period: %w", err)
		}

		opts = append(opts, WithRateLimit(*pc.RateLimit.MaxCalls, period))
	}

	if pc.Retry != nil {
		retryOpts, maxAttempts, strategy, err := buildRetry(pc.Retry)
		if err != nil {
			return nil, fmt.Errorf("retry: %w", err)
		}

		opts = append(opts, WithRetry(maxAttempts, strategy, retryOpts...))
	}

	if pc.CircuitBreaker != nil {
		cbOpts, err := buildCircuitBreaker(pc.CircuitBreaker)
		if err != nil {
			return nil, fmt.Errorf("circuit_breaker: %w", err)
		}

		opts = append(opts, WithCircuitBreaker(cbOpts...))
	}

	if pc.Timeout != nil {
		d, err := time.ParseDuration(*pc.Timeout)
		if err != nil {
			return nil, fmt.Errorf("timeout: %w", err)
		}

		opts = append(opts, WithTimeout(d))
	}

	return opts, nil
}

func buildRetry(rc *RetryConfig) ([]RetryOption, int, BackoffStrategy, error) {
	strategy, err := parseBackoffStrategy(rc.Backoff, rc.InitialDelay, rc.Multiplier)
	if err != nil {
		return nil, 0, nil, err
	}

	var retryOpts []RetryOption

	if rc.MaxDelay != nil {
		maxDel, maxDelErr := time.ParseDuration(*rc.MaxDelay)
		if maxDelErr != nil {
			return nil, 0, nil, fmt.Errorf("max_delay: %w", maxDelErr)
		}

		retryOpts = append(retryOpts, MaxDelay(maxDel))
	}

	// MaxAttempts defaults to 0 (execute once) if not set.
	maxAttempts := 0
	if rc.MaxAttempts != nil {
		maxAttempts = *rc.MaxAttempts
	}

	return retryOpts, maxAttempts, strategy, nil
}

func buildCircuitBreaker(cc *CircuitBreakerConfig) ([]CircuitBreakerOption, error) {
	var cbOpts []CircuitBreakerOption

	if cc.FailureThreshold != nil {
		cbOpts = append(cbOpts, FailureThreshold(*cc.FailureThreshold))
	}

	if cc.RecoveryTimeout != nil {
		recoveryDur, err := time.ParseDuration(*cc.RecoveryTimeout)
		if err != nil {
			return nil, fmt.Errorf("recovery_timeout: %w", err)
		}

		cbOpts = append(cbOpts, RecoveryTimeout(recoveryDur))
	}

	if cc.HalfOpenSuccesses != nil {
		cbOpts = append(cbOpts, HalfOpenSuccesses(*cc.HalfOpenSuccesses))
	}

	return cbOpts, nil
}

// parseBackoffStrategy maps a backoff name, initial delay, and multiplier
// to a BackoffStrategy. Name and initial delay are required; the multiplier
// defaults to 2 and applies to the exponential strategies.
//
//nolint:ireturn // returns interface by design for strategy pattern
func parseBackoffStrategy(
	name, initialDelayStr *string,
	multiplier *float64,
) (BackoffStrategy, error) {
	if name == nil {
		return nil, fmt.Errorf("backoff is required")
	}

	if initialDelayStr == nil {
		return nil, fmt.Errorf("initial_delay is required")
	}

	initial, err := time.ParseDuration(*initialDelayStr)
	if err != nil {
		return nil, fmt.Errorf("initial_delay: %w", err)
	}

	mult := 2.0
	if multiplier != nil {
		mult = *multiplier
	}

	switch *name {
	case "constant":
		return ConstantBackoff(initial), nil
	case "exponential":
		return ExponentialBackoff(initial, mult), nil
	case "linear":
		return LinearBackoff(initial), nil
	case "exponential_jitter":
		return ExponentialJitterBackoff(initial, mult), nil
	default:
		return nil, fmt.Errorf("unknown backoff strategy: %q", *name)
	}
}

// GetPolicy retrieves a named policy configuration from a config-loaded
// [Registry] and returns a typed [Policy] ready for use with [Policy.Do].
// If the name is not found in the stored configs, a bare policy is created
// with only the provided opts.
//
// Additional options can be provided to augment or override the
// config-loaded settings (e.g., adding hooks, a logger, or validation
// predicates). User-provided options are applied after config options, so
// they take precedence.
func GetPolicy[T any](reg *Registry, name string, opts ...any) *Policy[T] {
	reg.mu.Lock()
	pc, ok := reg.configs[name]
	reg.mu.Unlock()

	var allOpts []any

	allOpts = append(allOpts, WithRegistry(reg))

	if ok {
		configOpts, err := BuildOptions(&pc)
		if err == nil {
			allOpts = append(allOpts, configOpts...)
		}
	}

	// User opts come last so they can override config values.
	allOpts = append(allOpts, opts...)

	return NewPolicy[T](name, allOpts...)
}
