package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per client IP. Idle buckets are
// dropped on the first request after idleTTL has elapsed since the last sweep.
type RateLimiter struct {
	rps   rate.Limit
	burst int

	mu        sync.Mutex
	limiters  map[string]*entry
	lastSweep time.Time
	idleTTL   time.Duration
	now       func() time.Time
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		limiters: make(map[string]*entry),
		idleTTL:  5 * time.Minute,
		now:      time.Now,
	}
}

// Allow reports whether ip may make a request now.
func (r *RateLimiter) Allow(ip string) bool {
	r.mu.Lock()
	now := r.now()
	if now.Sub(r.lastSweep) > r.idleTTL {
		for k, e := range r.limiters {
			if now.Sub(e.lastSeen) > r.idleTTL {
				delete(r.limiters, k)
			}
		}
		r.lastSweep = now
	}
	e, ok := r.limiters[ip]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(r.rps, r.burst)}
		r.limiters[ip] = e
	}
	e.lastSeen = now
	r.mu.Unlock()

	return e.limiter.AllowN(now, 1)
}

// Middleware rejects over-limit clients with 429.
func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !r.Allow(c.ClientIP()) {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			return
		}
		c.Next()
	}
}
