package adapter

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies the taxonomy of adapter-side failures from spec §7.
// Kind 5 (store failure) is not listed here: it lives in pkg/engine
// (StoreFailureError), since it isn't something an Adapter.Apply call
// itself returns.
type Kind string

const (
	// KindTransient is a timeout, 5xx, or connection reset: retry with
	// exponential backoff; the diff stays in-flight.
	KindTransient Kind = "transient"
	// KindRateLimited is a 429/RATE_LIMITED response: respect RetryAfter,
	// re-enqueue the merged diff at the head of the queue.
	KindRateLimited Kind = "rate_limited"
	// KindValidation is a non-retryable 4xx: dead-letter, don't update
	// the store.
	KindValidation Kind = "validation"
	// KindAuth is a 401/403: fatal for the owning adapter until restart.
	KindAuth Kind = "auth"
	// KindIdempotencyCollision is "create returned already exists": the
	// adapter recovers the existing handle and the create is success.
	KindIdempotencyCollision Kind = "idempotency_collision"
)

// Error wraps an adapter failure with its taxonomy Kind so the consumer
// (pkg/engine) can dispatch retry/dead-letter/fatal behavior without
// string-matching HTTP status codes.
type Error struct {
	Kind       Kind
	System     string
	RetryAfter time.Duration // only meaningful for KindRateLimited
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s adapter: %s: %v", e.System, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err as an adapter.Error of the given kind.
func NewError(system string, kind Kind, err error) *Error {
	return &Error{System: system, Kind: kind, Err: err}
}

// NewRateLimited wraps err as a KindRateLimited error carrying the
// Retry-After duration the engine should wait before re-enqueuing.
func NewRateLimited(system string, retryAfter time.Duration, err error) *Error {
	return &Error{System: system, Kind: KindRateLimited, RetryAfter: retryAfter, Err: err}
}

// KindOf extracts the Kind from err if it (or something it wraps) is an
// *Error, defaulting to KindTransient — an unclassified failure from an
// adapter is treated as retryable rather than silently dropped or
// escalated to fatal.
func KindOf(err error) Kind {
	var aerr *Error
	if errors.As(err, &aerr) {
		return aerr.Kind
	}
	return KindTransient
}
