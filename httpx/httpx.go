package httpx

import (
	"context"
	"net/http"
	"strconv"

	"github.com/venntor/guardrail"
)

// ErrorClass tells the policy layer how to treat an HTTP status code.
type ErrorClass int

const (
	// Success means the request succeeded (e.g. 2xx).
	Success ErrorClass = iota
	// Transient means the error is retriable (e.g. 429, 503).
	Transient
	// Permanent means the error is non-retriable (e.g. 400).
	Permanent
)

// Classifier maps an HTTP status code to an ErrorClass.
//
// Pattern: Strategy — caller injects classification logic without modifying
// the adapter.
type Classifier func(statusCode int) ErrorClass

// DefaultClassifier treats 2xx as success, 408/429/5xx as transient, and
// everything else as permanent.
func DefaultClassifier(statusCode int) ErrorClass {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return Success
	case statusCode == http.StatusRequestTimeout,
		statusCode == http.StatusTooManyRequests,
		statusCode >= 500:
		return Transient
	default:
		return Permanent
	}
}

// StatusError is returned when the Classifier marks a status code as
// Transient or Permanent. The original response remains accessible for
// header/body inspection.
type StatusError struct {
	// Response is the original HTTP response that triggered the error.
	// The body has not been read or closed.
	Response   *http.Response
	StatusCode int
}

// Error returns a human-readable description of the status error.
func (e *StatusError) Error() string {
	return "http status " + strconv.Itoa(e.StatusCode)
}

// Client wraps an http.Client with a guardrail policy and HTTP status code
// classification. Requests are executed through the policy with the method
// and URL as the call's named arguments, so caching and validation key on
// them.
//
// Pattern: Adapter — bridges net/http and guardrail's policy chain by
// translating HTTP status codes into error classification.
type Client struct {
	hc *http.Client
	p  *guardrail.Policy[*http.Response]
	cl Classifier
}

// NewClient creates a Client that executes HTTP requests through the given
// guardrail policy options. The classifier determines how HTTP status codes
// map to transient or permanent errors for retry decisions; nil selects
// [DefaultClassifier].
func NewClient(
	name string,
	hc *http.Client,
	cl Classifier,
	opts ...any,
) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}

	if cl == nil {
		cl = DefaultClassifier
	}

	return &Client{
		hc: hc,
		p:  guardrail.NewPolicy[*http.Response](name, opts...),
		cl: cl,
	}
}

// Do executes req through the policy chain. Retrying policies re-send the
// request, so req must have a replayable body (or none, as with GET).
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	args := guardrail.Args{
		"method": req.Method,
		"url":    req.URL.String(),
	}

	return c.p.Do(ctx, args, func(ctx context.Context, _ guardrail.Args) (*http.Response, error) {
		resp, err := c.hc.Do(req.WithContext(ctx))
		if err != nil {
			// Network-level failures are worth retrying.
			return nil, guardrail.Transient(err)
		}

		serr := &StatusError{Response: resp, StatusCode: resp.StatusCode}

		switch c.cl(resp.StatusCode) {
		case Success:
			return resp, nil
		case Transient:
			return nil, guardrail.Transient(serr)
		default:
			return nil, guardrail.Permanent(serr)
		}
	})
}

// Get issues a GET request to url through the policy chain.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err //nolint:wrapcheck // caller's request error returned as-is
	}

	return c.Do(ctx, req)
}
