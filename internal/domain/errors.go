package domain

import (
	"errors"
	"fmt"
)

// ErrInternal covers unclassified failures. Handlers must not leak details
// past it; specifics go to the log.
var ErrInternal = errors.New("internal error")

// NotFoundError reports a missing entity. Ownership violations surface as
// the same error so callers cannot enumerate foreign ids.
type NotFoundError struct {
	Entity string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Entity)
}

// IllegalStateError reports an action that requires a lifecycle state the
// interview is not in.
type IllegalStateError struct {
	From Status
	To   Status
}

func (e *IllegalStateError) Error() string {
	return fmt.Sprintf("illegal state transition %s -> %s", e.From, e.To)
}

// DuplicateError reports a violated uniqueness invariant, e.g. a second
// Response for the same question.
type DuplicateError struct {
	Entity string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s already exists", e.Entity)
}

// ValidationError reports malformed input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// FailureKind classifies how an external call ultimately failed.
type FailureKind string

const (
	// FailureExhausted means every retry attempt failed on a retryable error.
	FailureExhausted FailureKind = "EXHAUSTED"

	// FailureOpen means the circuit breaker rejected the call without
	// dialing the vendor.
	FailureOpen FailureKind = "OPEN"

	// FailureNonRetryable means the first non-retryable error stopped the
	// attempt loop.
	FailureNonRetryable FailureKind = "NON_RETRYABLE"
)

// ExternalServiceError reports a vendor call that failed past the resilience
// layer.
type ExternalServiceError struct {
	Target string
	Kind   FailureKind
	Err    error
}

func (e *ExternalServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("external service %s failed (%s): %v", e.Target, e.Kind, e.Err)
	}
	return fmt.Sprintf("external service %s failed (%s)", e.Target, e.Kind)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// BlobStoreError reports a failed blob-store operation (PUT/GET/HEAD/presign).
// Deletes are best-effort and never produce one.
type BlobStoreError struct {
	Op  string
	Err error
}

func (e *BlobStoreError) Error() string {
	return fmt.Sprintf("blob store %s failed: %v", e.Op, e.Err)
}

func (e *BlobStoreError) Unwrap() error { return e.Err }

// UploadNotFoundError reports an upload confirmation for a key whose PUT has
// not landed yet.
type UploadNotFoundError struct {
	Key string
}

func (e *UploadNotFoundError) Error() string {
	return fmt.Sprintf("no uploaded object at key %q", e.Key)
}

// TimeoutError reports an asynchronous job that missed its deadline.
type TimeoutError struct {
	Stage string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s did not complete within its deadline", e.Stage)
}
