package middleware

import (
	"sync"
	"time"

	"github.com/wowjjang83/ai-style-synthesis/internal/apperr"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// IPRateLimiter keeps one token bucket per key (client IP).
type IPRateLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     rate.Limit
	burst     int
	idle      time.Duration
	lastSweep time.Time
}

type visitor struct {
	lim  *rate.Limiter
	seen time.Time
}

// NewIPRateLimiter allows perMinute requests per key with a burst of the same
// size. perMinute <= 0 disables limiting.
func NewIPRateLimiter(perMinute int) *IPRateLimiter {
	r := &IPRateLimiter{visitors: make(map[string]*visitor), idle: 10 * time.Minute, lastSweep: time.Now()}
	if perMinute > 0 {
		r.limit = rate.Every(time.Minute / time.Duration(perMinute))
		r.burst = perMinute
	}
	return r
}

func (r *IPRateLimiter) Allow(key string) bool {
	if r.burst == 0 {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	if now.Sub(r.lastSweep) > r.idle {
		for k, v := range r.visitors {
			if now.Sub(v.seen) > r.idle {
				delete(r.visitors, k)
			}
		}
		r.lastSweep = now
	}
	v, ok := r.visitors[key]
	if !ok {
		v = &visitor{lim: rate.NewLimiter(r.limit, r.burst)}
		r.visitors[key] = v
	}
	v.seen = now
	return v.lim.AllowN(now, 1)
}

// RateLimit returns a middleware that limits by client IP.
func RateLimit(limiter *IPRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			AbortError(c, apperr.New(apperr.KindQuotaExceeded, "rate_limited", "too many requests, slow down", nil))
			return
		}
		c.Next()
	}
}
