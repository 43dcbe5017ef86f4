package guardrail

import "sort"

// Pattern: Validation — checks declared argument predicates before the
// operation is invoked. Stateless: a Validator holds only its rules and
// declared defaults.

type (
	// Predicate reports whether an argument value is acceptable.
	Predicate func(value any) bool

	// Validator checks named predicates against a call's bound arguments.
	// Parameters without a registered predicate are unchecked, and a
	// predicate whose parameter is absent from the bound arguments is
	// skipped.
	Validator struct {
		rules    map[string]Predicate
		defaults Args
	}

	// ValidatorOption configures a [Validator].
	ValidatorOption func(*Validator)
)

// WithDefaults declares default argument values which are bound before
// predicates run, mirroring declared parameter defaults at the call site.
func WithDefaults(defaults Args) ValidatorOption {
	return func(v *Validator) {
		v.defaults = defaults
	}
}

// NewValidator creates a validator from a mapping of parameter name to
// predicate.
func NewValidator(rules map[string]Predicate, opts ...ValidatorOption) *Validator {
	v := &Validator{rules: rules}

	for _, opt := range opts {
		opt(v)
	}

	return v
}

// Validate binds args over the declared defaults and checks each registered
// predicate against its bound argument. The first failing parameter (in
// lexical order, so the reported failure is deterministic) produces a
// [ValidationError] naming the parameter and offending value.
func (v *Validator) Validate(args Args) error {
	bound := v.bind(args)

	names := make([]string, 0, len(v.rules))
	for name := range v.rules {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		value, ok := bound[name]
		if !ok {
			continue
		}

		if !v.rules[name](value) {
			return &ValidationError{Param: name, Value: value}
		}
	}

	return nil
}

// bind overlays the call's actual arguments on the declared defaults.
func (v *Validator) bind(args Args) Args {
	if len(v.defaults) == 0 {
		return args
	}

	bound := make(Args, len(v.defaults)+len(args))

	for name, value := range v.defaults {
		bound[name] = value
	}

	for name, value := range args {
		bound[name] = value
	}

	return bound
}
