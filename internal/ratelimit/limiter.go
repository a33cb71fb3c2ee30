// Package ratelimit paces outbound requests to the remote site.
package ratelimit

import (
	"context"
	"math"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is an accumulating permit source shared by all crawl units. It
// starts empty and accrues permits at the configured per-minute rate with no
// burst cap, so idle periods bank permits that can be spent immediately once
// work resumes. The limiter bounds sustained rate, not burst size.
type Limiter struct {
	lim *rate.Limiter
}

// maxBurst is effectively "unbounded" for any realistic crawl.
const maxBurst = math.MaxInt32

// New builds a limiter allowing perMinute requests per minute.
func New(perMinute float64) *Limiter {
	lim := rate.NewLimiter(rate.Limit(perMinute/60), maxBurst)
	// drain the initially full bucket so accumulation starts at zero
	lim.AllowN(time.Now(), maxBurst)
	return &Limiter{lim: lim}
}

// Wait removes one permit, suspending the caller until one is available or
// the context ends.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.lim.Wait(ctx)
}
