// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ratelimit gates outbound API calls to a fixed request rate.
// A single Limiter is shared by every worker talking to the same API so
// the process as a whole never exceeds the granted rate.
package ratelimit

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Limiter admits callers at most once per 1/rate seconds. Burst is
// pinned to 1: consecutive requests are spaced evenly rather than
// allowed in clumps, which matches how NCBI measures the limit.
type Limiter struct {
	lim *rate.Limiter
	rps float64
}

// New creates a Limiter admitting requestsPerSecond calls per second.
// The rate is fixed for the lifetime of the limiter; a different key
// tier means constructing a new one.
func New(requestsPerSecond float64) (*Limiter, error) {
	if requestsPerSecond <= 0 {
		return nil, fmt.Errorf("rate limit must be positive, got %g", requestsPerSecond)
	}
	return &Limiter{
		lim: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		rps: requestsPerSecond,
	}, nil
}

// Acquire blocks until the caller may proceed or ctx is done. Waiters
// are admitted in approximately the order they arrive; no caller is
// starved. There is no error path besides context cancellation.
func (l *Limiter) Acquire(ctx context.Context) error {
	return l.lim.Wait(ctx)
}

// Rate returns the configured requests-per-second ceiling.
func (l *Limiter) Rate() float64 { return l.rps }
