// Package httpx provides a policy-wrapped HTTP client adapter for the
// guardrail library.
//
// Client wraps a standard http.Client with a guardrail policy and a
// user-provided status code classifier that maps HTTP response codes to
// transient or permanent errors.
package httpx
