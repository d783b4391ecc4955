// Package ratelimit provides per-adapter token-bucket limiters matching
// the remote APIs' published rate limits (spec §5: "each adapter owns a
// token-bucket limiter... apply awaits a token before issuing the call").
// Grounded on evalgo-org-eve's direct golang.org/x/time dependency; no
// example repo hand-rolls a limiter worth imitating, so this wires the
// ecosystem's standard token bucket rather than reinventing one.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter wraps golang.org/x/time/rate.Limiter with the vocabulary this
// repo's call sites use.
type Limiter struct {
	rl *rate.Limiter
}

// New builds a limiter allowing ratePerSecond sustained events with the
// given burst capacity.
func New(ratePerSecond float64, burst int) *Limiter {
	return &Limiter{rl: rate.NewLimiter(rate.Limit(ratePerSecond), burst)}
}

// NewFromHourlyBudget builds a limiter from an hourly sustained rate and
// a per-minute burst (spec §5: "Upstream: 1000/hr burst 100/min").
func NewFromHourlyBudget(perHour float64, burstPerMinute int) *Limiter {
	return New(perHour/3600, burstPerMinute)
}

// NewFromPerMinuteBudget builds a limiter from a per-minute sustained
// rate (spec §5: "Downstream: 12-120/min depending on tier").
func NewFromPerMinuteBudget(perMinute float64) *Limiter {
	burst := int(perMinute)
	if burst < 1 {
		burst = 1
	}
	return New(perMinute/60, burst)
}

// Wait blocks until a token is available or ctx is cancelled, per every
// adapter Apply call (spec §5).
func (l *Limiter) Wait(ctx context.Context) error {
	return l.rl.Wait(ctx)
}
