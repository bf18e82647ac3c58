package fetch

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// hostLimiter spaces requests to the same host. One is created per Fetch
// call so no politeness state outlives a query.
type hostLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	interval time.Duration
}

func newHostLimiter(interval time.Duration) *hostLimiter {
	return &hostLimiter{
		limiters: make(map[string]*rate.Limiter),
		interval: interval,
	}
}

// wait blocks until a request to host may proceed. A nil limiter never blocks.
func (h *hostLimiter) wait(ctx context.Context, host string) error {
	if h == nil {
		return nil
	}
	h.mu.Lock()
	limiter, ok := h.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(h.interval), 1)
		h.limiters[host] = limiter
	}
	h.mu.Unlock()
	return limiter.Wait(ctx)
}
