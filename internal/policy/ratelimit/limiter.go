// Package ratelimit implements the process-wide token bucket that gates every
// outbound page request.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/JakeFAU/catalogue-titles/internal/crawler"
	"github.com/JakeFAU/catalogue-titles/internal/metrics"
)

// Limiter is a single global token bucket shared by all page tasks.
type Limiter struct {
	bucket *rate.Limiter
	clock  crawler.Clock
}

// Config holds rate limiter configuration.
type Config struct {
	RequestsPerSecond float64
	Burst             int
}

// New creates a new Limiter. A non-positive rate disables limiting. Burst is
// the bucket capacity and defaults to 1.
func New(cfg Config, clock crawler.Clock) *Limiter {
	r := rate.Limit(cfg.RequestsPerSecond)
	if cfg.RequestsPerSecond <= 0 {
		r = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		bucket: rate.NewLimiter(r, burst),
		clock:  clock,
	}
}

// Acquire blocks until a token is available and consumes it. The reservation
// is taken atomically, so concurrent callers never share a token; waiting
// happens outside any lock. A canceled context returns the token.
func (l *Limiter) Acquire(ctx context.Context) error {
	now := l.clock.Now()
	res := l.bucket.ReserveN(now, 1)
	if !res.OK() {
		return fmt.Errorf("rate limit: burst %d cannot admit a request", l.bucket.Burst())
	}
	delay := res.DelayFrom(now)
	if delay <= 0 {
		return nil
	}

	select {
	case <-l.clock.After(delay):
		if delay > time.Millisecond {
			metrics.ObserveRateLimitDelay(delay)
		}
		return nil
	case <-ctx.Done():
		res.CancelAt(l.clock.Now())
		return fmt.Errorf("rate limit wait: %w", ctx.Err())
	}
}
