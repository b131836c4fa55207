package security

import (
	"fmt"
	"net/http"
	"time"

	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"
)

type RateLimiter struct {
	redis *redis.Client
}

func NewRateLimiter(redisClient *redis.Client) *RateLimiter {
	return &RateLimiter{redis: redisClient}
}

// Limit returns route middleware enforcing a fixed-window request budget
// per caller per minute, keyed by user id when authenticated and client IP
// otherwise. Redis trouble fails open: booking availability beats limiting.
func (r *RateLimiter) Limit(scope string, perMinute int) func(e *core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		caller := e.RealIP()
		if e.Auth != nil {
			caller = "user:" + e.Auth.Id
		}
		key := fmt.Sprintf("ratelimit:%s:%s", scope, caller)

		ctx := e.Request.Context()
		count, err := r.redis.Incr(ctx, key).Result()
		if err == nil {
			if count == 1 {
				r.redis.Expire(ctx, key, time.Minute)
			}
			if count > int64(perMinute) {
				return e.JSON(http.StatusTooManyRequests, map[string]string{
					"error": "Rate limit exceeded. Please try again later.",
				})
			}
		}

		return e.Next()
	}
}
