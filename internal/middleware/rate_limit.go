// internal/middleware/rate_limit.go
package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/javajoker/license-registry/internal/config"
	"github.com/javajoker/license-registry/internal/utils"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type RateLimiter struct {
	visitors map[string]*visitor
	mtx      sync.Mutex
	rate     rate.Limit
	burst    int
	done     chan struct{}
	exited   chan struct{}
	stopOnce sync.Once
}

func NewRateLimiter(r rate.Limit, b int) *RateLimiter {
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		rate:     r,
		burst:    b,
		done:     make(chan struct{}),
		exited:   make(chan struct{}),
	}

	// Clean up old visitors every minute
	go rl.cleanupVisitors(time.Minute)

	return rl
}

// NewRateLimiterFromConfig returns a per-client limiter. A non-positive rate
// disables limiting.
func NewRateLimiterFromConfig(cfg config.RateLimitConfig) *RateLimiter {
	r := rate.Limit(cfg.RequestsPerSecond)
	if cfg.RequestsPerSecond <= 0 {
		r = rate.Inf
	}
	return NewRateLimiter(r, cfg.Burst)
}

// Stop ends the cleanup loop and waits for it to return. Later calls are
// no-ops.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.done) })
	<-rl.exited
}

func (rl *RateLimiter) cleanupVisitors(every time.Duration) {
	defer close(rl.exited)
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
		}

		rl.mtx.Lock()
		for ip, v := range rl.visitors {
			if time.Since(v.lastSeen) > 3*time.Minute {
				delete(rl.visitors, ip)
			}
		}
		rl.mtx.Unlock()
	}
}

func (rl *RateLimiter) getVisitor(ip string) *rate.Limiter {
	rl.mtx.Lock()
	defer rl.mtx.Unlock()

	v, exists := rl.visitors[ip]
	if !exists {
		limiter := rate.NewLimiter(rl.rate, rl.burst)
		rl.visitors[ip] = &visitor{limiter, time.Now()}
		return limiter
	}

	v.lastSeen = time.Now()
	return v.limiter
}

func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		limiter := rl.getVisitor(ip)

		if !limiter.Allow() {
			c.Header("Retry-After", "1")
			utils.TooManyRequestsResponse(c)
			c.Abort()
			return
		}

		c.Next()
	}
}
