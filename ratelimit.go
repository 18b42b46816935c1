package graphweave

import (
	"context"
	"sync"
	"time"
)

// RateLimiter enforces a minimum interval between permits across all
// goroutines sharing it. Callers block in Wait until their turn; permits
// are granted strictly in arrival order because the interval accounting
// happens under one mutex.
type RateLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
}

// NewRateLimiter builds a limiter allowing qps permits per second.
// A qps of zero or less disables limiting.
func NewRateLimiter(qps float64) *RateLimiter {
	r := &RateLimiter{}
	if qps > 0 {
		r.interval = time.Duration(float64(time.Second) / qps)
	}
	return r
}

// Wait blocks until the caller may proceed or the context is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if r == nil || r.interval <= 0 {
		return ctx.Err()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	next := r.last.Add(r.interval)
	if now.Before(next) {
		timer := time.NewTimer(next.Sub(now))
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r.last = time.Now()
	return nil
}
