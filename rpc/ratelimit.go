package rpc

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	requestsPerMinute = 600
	limiterBurst      = 30
	limiterIdleTTL    = 15 * time.Minute
)

// rateLimiter throttles requests per client address.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newRateLimiter() *rateLimiter {
	return &rateLimiter{visitors: make(map[string]*visitor)}
}

func (r *rateLimiter) allow(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	entry, ok := r.visitors[id]
	if !ok {
		entry = &visitor{limiter: rate.NewLimiter(rate.Limit(requestsPerMinute)/60.0, limiterBurst)}
		r.visitors[id] = entry
	}
	entry.lastSeen = now
	// Opportunistic cleanup keeps the map from growing unbounded.
	if len(r.visitors) > 1024 {
		for key, v := range r.visitors {
			if now.Sub(v.lastSeen) > limiterIdleTTL {
				delete(r.visitors, key)
			}
		}
	}
	return entry.limiter.Allow()
}
