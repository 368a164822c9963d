package api

import (
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/growwiz/growwiz-core/internal/infrastructure/config"
)

// Idle per-client limiters are dropped after limiterIdleTTL.
const (
	limiterIdleTTL       = 10 * time.Minute
	limiterSweepInterval = time.Minute
)

// rateLimiter keeps one token bucket per client key. A nil rateLimiter
// allows everything.
type rateLimiter struct {
	limit    rate.Limit
	burst    int
	limiters *cache.Cache
}

func newRateLimiter(cfg config.RateLimitConfig) *rateLimiter {
	if !cfg.Enabled || cfg.RequestsPerMinute <= 0 {
		return nil
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &rateLimiter{
		limit:    rate.Limit(float64(cfg.RequestsPerMinute) / 60),
		burst:    burst,
		limiters: cache.New(limiterIdleTTL, limiterSweepInterval),
	}
}

// allow consumes one token for key.
func (l *rateLimiter) allow(key string) bool {
	if l == nil {
		return true
	}
	return l.get(key).Allow()
}

func (l *rateLimiter) get(key string) *rate.Limiter {
	if v, ok := l.limiters.Get(key); ok {
		l.limiters.SetDefault(key, v)
		return v.(*rate.Limiter) //nolint:forcetypeassert // only limiters are stored
	}
	lim := rate.NewLimiter(l.limit, l.burst)
	if err := l.limiters.Add(key, lim, cache.DefaultExpiration); err != nil {
		// Another request created it first.
		if v, ok := l.limiters.Get(key); ok {
			return v.(*rate.Limiter) //nolint:forcetypeassert // only limiters are stored
		}
	}
	return lim
}
