// Package provider defines the error tags shared by every vendor adapter.
//
// Adapters under pkg/provider/... report failures as either a [StatusError]
// (the vendor answered with a non-2xx status) or a [TransportError] (the
// request never produced a status). The resilience layer's retry predicate is
// a pure function of these tags; adapters never decide retryability
// themselves.
package provider

import "fmt"

// StatusError reports a non-2xx vendor response.
type StatusError struct {
	// Target is the logical vendor name (e.g. "tts", "avatar").
	Target string

	// Code is the HTTP status code the vendor answered with.
	Code int

	// Body is a truncated copy of the response body, for logs only.
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Target, e.Code)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Target, e.Code, e.Body)
}

// TransportError reports a request that failed before any HTTP status was
// received: dial failures, resets, request-build errors.
type TransportError struct {
	Target string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport failure: %v", e.Target, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
