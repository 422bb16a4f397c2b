package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"github.com/platinummonkey/docvault/pkg/httputil"
	"github.com/platinummonkey/docvault/pkg/observability"
)

// RateLimitConfig defines rate limiting configuration
type RateLimitConfig struct {
	// RequestsPerWindow is the max requests allowed in the time window
	RequestsPerWindow int
	// WindowDuration is the time window for rate limiting
	WindowDuration time.Duration
	// BurstSize allows temporary bursts above the rate
	BurstSize int
}

// LoginRateLimitConfig returns the per-IP limit for sign-in and registration.
func LoginRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerWindow: 10,
		WindowDuration:    time.Minute,
		BurstSize:         5,
	}
}

// KeySubmissionRateLimitConfig returns the per-user limit for storing API keys.
func KeySubmissionRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerWindow: 20,
		WindowDuration:    time.Hour,
	}
}

const maxTrackedKeys = 10000

// RateLimiter keeps one token bucket per key in process memory. Idle
// buckets expire after two windows.
type RateLimiter struct {
	config   *RateLimitConfig
	limit    rate.Limit
	burst    int
	limiters *expirable.LRU[string, *rate.Limiter]
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(config *RateLimitConfig) *RateLimiter {
	if config == nil {
		config = LoginRateLimitConfig()
	}
	burst := config.BurstSize
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		config:   config,
		limit:    rate.Limit(float64(config.RequestsPerWindow) / config.WindowDuration.Seconds()),
		burst:    burst,
		limiters: expirable.NewLRU[string, *rate.Limiter](maxTrackedKeys, nil, 2*config.WindowDuration),
	}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	if l, ok := rl.limiters.Get(key); ok {
		return l
	}
	l := rate.NewLimiter(rl.limit, rl.burst)
	rl.limiters.Add(key, l)
	return l
}

// Allow checks if a request is allowed for the given key
func (rl *RateLimiter) Allow(key string) bool {
	return rl.limiter(key).Allow()
}

// Remaining returns the whole tokens currently available for a key.
func (rl *RateLimiter) Remaining(key string) int {
	l, ok := rl.limiters.Peek(key)
	if !ok {
		return rl.burst
	}
	return max(int(l.Tokens()), 0)
}

// KeyFunc derives the rate limit key for a request.
type KeyFunc func(r *http.Request) string

// ByClientIP keys requests by the address the request id middleware recorded.
func ByClientIP(r *http.Request) string {
	return "ip:" + httputil.ClientIP(r)
}

// ByUser keys authenticated requests by user id and falls back to the client IP.
func ByUser(r *http.Request) string {
	if ac := GetAuthContext(r); ac != nil {
		return "user:" + ac.User.ID
	}
	return ByClientIP(r)
}

// RateLimitMiddleware rejects requests over the limit with 429.
func RateLimitMiddleware(limiter *RateLimiter, keyFn KeyFunc, name string, metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFn(r)
			if !limiter.Allow(key) {
				if metrics != nil {
					metrics.RateLimitRejections.WithLabelValues(name).Inc()
				}
				rateLimitExceeded(w, limiter.config, limiter.config.WindowDuration)
				return
			}

			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", limiter.config.RequestsPerWindow))
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", limiter.Remaining(key)))
			next.ServeHTTP(w, r)
		})
	}
}

func rateLimitExceeded(w http.ResponseWriter, config *RateLimitConfig, retry time.Duration) {
	retryAfter := retry.Seconds()
	w.Header().Set("Retry-After", fmt.Sprintf("%.0f", retryAfter))
	w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", config.RequestsPerWindow))
	w.Header().Set("X-RateLimit-Remaining", "0")
	w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", time.Now().Add(retry).Unix()))
	httputil.WriteJSON(w, http.StatusTooManyRequests, map[string]interface{}{
		"error":       "rate limit exceeded",
		"retry_after": int(retryAfter),
	})
}
