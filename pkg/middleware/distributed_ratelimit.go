package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/platinummonkey/docvault/pkg/httputil"
	"github.com/platinummonkey/docvault/pkg/observability"
)

// windowScript increments a fixed window counter and starts its expiry on
// the first hit. It returns the count and the remaining window in ms.
var windowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {count, redis.call("PTTL", KEYS[1])}
`)

// DistributedRateLimiter implements rate limiting using Redis
// This allows rate limits to be shared across multiple instances
type DistributedRateLimiter struct {
	redis  *redis.Client
	config *RateLimitConfig
	prefix string
}

// NewDistributedRateLimiter creates a new Redis-backed rate limiter
func NewDistributedRateLimiter(redisClient *redis.Client, config *RateLimitConfig, prefix string) *DistributedRateLimiter {
	if config == nil {
		config = KeySubmissionRateLimitConfig()
	}
	if prefix == "" {
		prefix = "docvault:ratelimit"
	}

	return &DistributedRateLimiter{
		redis:  redisClient,
		config: config,
		prefix: prefix,
	}
}

// Window is the state of one key after a hit.
type Window struct {
	Allowed   bool
	Remaining int
	Reset     time.Duration
}

// Allow records a hit for key. A Redis error is returned to the caller,
// which must treat it as a rejection.
func (rl *DistributedRateLimiter) Allow(ctx context.Context, key string) (Window, error) {
	res, err := windowScript.Run(ctx, rl.redis,
		[]string{rl.redisKey(key)},
		rl.config.WindowDuration.Milliseconds(),
	).Slice()
	if err != nil {
		return Window{}, fmt.Errorf("redis error: %w", err)
	}
	if len(res) != 2 {
		return Window{}, fmt.Errorf("unexpected rate limit reply: %v", res)
	}

	count, _ := res[0].(int64)
	ttl, _ := res[1].(int64)
	limit := int64(rl.config.RequestsPerWindow)

	w := Window{Allowed: count <= limit, Reset: time.Duration(ttl) * time.Millisecond}
	if w.Reset <= 0 {
		w.Reset = rl.config.WindowDuration
	}
	if remaining := limit - count; remaining > 0 {
		w.Remaining = int(remaining)
	}
	return w, nil
}

// Reset clears the rate limit for a key (for testing or admin purposes)
func (rl *DistributedRateLimiter) Reset(ctx context.Context, key string) error {
	return rl.redis.Del(ctx, rl.redisKey(key)).Err()
}

func (rl *DistributedRateLimiter) redisKey(key string) string {
	return fmt.Sprintf("%s:%s", rl.prefix, key)
}

// DistributedRateLimitMiddleware limits a sensitive operation across all
// instances. It fails closed: if Redis cannot be reached the request is
// rejected with 503.
func DistributedRateLimitMiddleware(limiter *DistributedRateLimiter, keyFn KeyFunc, name string, metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			window, err := limiter.Allow(r.Context(), keyFn(r))
			if err != nil {
				observability.FromContext(r.Context()).
					WithError(err).
					WithField("limiter", name).
					Error("rate limiter unavailable, rejecting request")
				if metrics != nil {
					metrics.RateLimitRejections.WithLabelValues(name + "_unavailable").Inc()
				}
				httputil.WriteServiceUnavailable(w, "service temporarily unavailable")
				return
			}

			if !window.Allowed {
				if metrics != nil {
					metrics.RateLimitRejections.WithLabelValues(name).Inc()
				}
				rateLimitExceeded(w, limiter.config, window.Reset)
				return
			}

			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", limiter.config.RequestsPerWindow))
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", window.Remaining))
			w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", time.Now().Add(window.Reset).Unix()))
			next.ServeHTTP(w, r)
		})
	}
}
