package echoapi

import (
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/quizly/backend/core"
	"github.com/quizly/backend/services/metrics"
)

const (
	limiterIdleTTL      = 10 * time.Minute
	limiterCleanupEvery = time.Minute
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter throttles anonymous traffic per client IP. A non positive RPS disables it.
type rateLimiter struct {
	limit    rate.Limit
	burst    int
	mu       sync.Mutex
	visitors map[string]*visitor
	stopCh   chan struct{}
	stopOnce sync.Once
}

func newRateLimiter(conf core.RateLimitConfig) *rateLimiter {
	rl := &rateLimiter{
		limit:    rate.Limit(conf.RPS),
		burst:    conf.Burst,
		visitors: make(map[string]*visitor),
		stopCh:   make(chan struct{}),
	}
	if rl.burst < 1 {
		rl.burst = 1
	}
	if rl.enabled() {
		go rl.cleanup()
	}
	return rl
}

func (rl *rateLimiter) enabled() bool { return rl.limit > 0 }

func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	return v.limiter.Allow()
}

func (rl *rateLimiter) cleanup() {
	ticker := time.NewTicker(limiterCleanupEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			for ip, v := range rl.visitors {
				if time.Since(v.lastSeen) > limiterIdleTTL {
					delete(rl.visitors, ip)
				}
			}
			rl.mu.Unlock()
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

func (rl *rateLimiter) middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if rl.enabled() && !rl.allow(ctx.RealIP()) {
				metrics.RateLimited.Inc()
				return errTooMany
			}
			return next(ctx)
		}
	}
}
