package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/arlyon/linear-motion/pkg/adapter"
)

// retryBackOff builds the exponential backoff policy from spec §7 kind 1:
// "base 1s, factor 2, cap 60s, max 6 attempts". Continues the teacher's
// own cenkalti/backoff/v4 usage (pkg/diff/diff.go's defaultBackOff).
func retryBackOff(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.Multiplier = 2
	b.MaxInterval = 60 * time.Second
	b.MaxElapsedTime = 0 // bounded by WithMaxRetries below, not elapsed wall time
	// 5 retries after the first try: 6 attempts in all.
	return backoff.WithContext(backoff.WithMaxRetries(b, 5), ctx)
}

// AuthFailure marks an adapter as fatally broken until process restart
// (spec §7 kind 4: "fatal for the owning adapter; all subsequent diffs
// for that adapter fail fast until restart").
type AuthFailure struct {
	System string
	Err    error
}

func (e *AuthFailure) Error() string {
	return fmt.Sprintf("%s adapter: auth failure, fatal until restart: %v", e.System, e.Err)
}

func (e *AuthFailure) Unwrap() error { return e.Err }

// StoreFailureError marks a state-store write failure, fatal for the
// whole process (spec §7 kind 5): "abort the process. Crash-safety is
// preserved because the previous canonical state is still on disk."
type StoreFailureError struct {
	Err error
}

func (e *StoreFailureError) Error() string {
	return fmt.Sprintf("store failure (fatal): %v", e.Err)
}

func (e *StoreFailureError) Unwrap() error { return e.Err }

// rateLimitedRetry is returned internally by classifyAndRetry to signal the
// caller should re-enqueue the merged diff at the head of the queue and
// move on to the next entity (spec §7 kind 2), rather than blocking the
// whole consumer loop on Retry-After.
type rateLimitedRetry struct {
	retryAfter time.Duration
}

func (e *rateLimitedRetry) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.retryAfter)
}

// classifyAndRetry wraps an adapter call with the retry policy of spec
// §7: transient errors retry with backoff; rate-limited errors surface as
// *rateLimitedRetry for the caller to re-enqueue; validation errors
// surface unwrapped for dead-lettering; auth errors become *AuthFailure.
func classifyAndRetry(ctx context.Context, system string, call func() (string, error)) (string, error) {
	var lastKind adapter.Kind
	var handle string

	op := func() error {
		h, err := call()
		if err == nil {
			handle = h
			return nil
		}
		lastKind = adapter.KindOf(err)
		switch lastKind {
		case adapter.KindTransient:
			return err // retryable
		case adapter.KindRateLimited:
			var aerr *adapter.Error
			retryAfter := time.Second
			if errors.As(err, &aerr) {
				retryAfter = aerr.RetryAfter
			}
			return backoff.Permanent(&rateLimitedRetry{retryAfter: retryAfter})
		case adapter.KindAuth:
			return backoff.Permanent(&AuthFailure{System: system, Err: err})
		case adapter.KindIdempotencyCollision:
			// Treated as success by the caller's adapter implementation
			// recovering the existing handle (spec §7 kind 6); if it
			// still surfaced here as an error, it's non-retryable.
			return backoff.Permanent(err)
		default: // validation and anything unclassified
			return backoff.Permanent(err)
		}
	}

	err := backoff.Retry(op, retryBackOff(ctx))
	return handle, err
}
