package rateLimit

import (
	"context"
	"time"

	"github.com/robertarktes/travel-bookings/internal/observability"
)

type Counter interface {
	IncrWindow(ctx context.Context, key string, period time.Duration) (int64, error)
}

type RateLimiter struct {
	counter Counter
	rate    int
	period  time.Duration
}

func NewRateLimiter(counter Counter, rate int, period time.Duration) *RateLimiter {
	return &RateLimiter{counter: counter, rate: rate, period: period}
}

// Allow reports whether key is still within its window. Counter failures are
// returned alongside true so callers can log and let the request through.
func (rl *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	n, err := rl.counter.IncrWindow(ctx, key, rl.period)
	if err != nil {
		return true, err
	}
	if n > int64(rl.rate) {
		observability.RateLimitExceeded.Inc()
		return false, nil
	}
	return true, nil
}
