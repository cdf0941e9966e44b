// README: Per-identity token-bucket rate limiting for the assistant endpoints.
package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// maxLimiters bounds the limiter table; idle buckets are dropped past it.
const maxLimiters = 10000

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keys on the caller id, falling back to the client IP.
type RateLimiter struct {
	mu     sync.Mutex
	limits map[string]*limiterEntry
	every  rate.Limit
	burst  int
	now    func() time.Time
}

// NewRateLimiter allows perMinute requests per key with the given burst.
// perMinute <= 0 returns nil, which RateLimit treats as disabled.
func NewRateLimiter(perMinute, burst int) *RateLimiter {
	if perMinute <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limits: make(map[string]*limiterEntry),
		every:  rate.Every(time.Minute / time.Duration(perMinute)),
		burst:  burst,
		now:    time.Now,
	}
}

func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	now := rl.now()
	e, ok := rl.limits[key]
	if !ok {
		if len(rl.limits) >= maxLimiters {
			rl.pruneLocked(now)
		}
		e = &limiterEntry{limiter: rate.NewLimiter(rl.every, rl.burst)}
		rl.limits[key] = e
	}
	e.lastSeen = now
	rl.mu.Unlock()
	return e.limiter.AllowN(now, 1)
}

// pruneLocked drops buckets idle long enough to have refilled completely.
func (rl *RateLimiter) pruneLocked(now time.Time) {
	full := time.Duration(float64(rl.burst) / float64(rl.every) * float64(time.Second))
	for k, e := range rl.limits {
		if now.Sub(e.lastSeen) > full {
			delete(rl.limits, k)
		}
	}
}

// RateLimit must run after Auth so the caller id is known.
func RateLimit(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl == nil {
			c.Next()
			return
		}
		key := CallerUID(c)
		if key == "" {
			key = "ip:" + c.ClientIP()
		}
		if !rl.Allow(key) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
