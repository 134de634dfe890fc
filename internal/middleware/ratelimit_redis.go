// ratelimit_redis.go provides the Redis-backed variant of the rate limiter for
// multi-replica deployments, where per-instance token buckets would multiply
// the effective limit by the replica count.
package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
)

// RedisRateLimiter enforces a shared requests-per-minute limit across all
// replicas using the GCRA limiter from redis_rate.
type RedisRateLimiter struct {
	limiter *redis_rate.Limiter
	limit   redis_rate.Limit
	rpm     int
}

// NewRedisRateLimiter creates a rate limiter backed by the given Redis
// instance. requestsPerMinute is the sustained rate; burst allows short
// spikes above it.
func NewRedisRateLimiter(addr, password string, requestsPerMinute, burst int) *RedisRateLimiter {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})

	return &RedisRateLimiter{
		limiter: redis_rate.NewLimiter(client),
		limit: redis_rate.Limit{
			Rate:   requestsPerMinute,
			Period: time.Minute,
			Burst:  burst,
		},
		rpm: requestsPerMinute,
	}
}

// RedisRateLimitMiddleware creates a Gin middleware enforcing the shared
// limit. Redis outages fail open: a request is allowed when the limiter
// cannot be consulted, because dropping all traffic on a Redis blip is worse
// than briefly losing rate enforcement.
func RedisRateLimitMiddleware(limiter *RedisRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := rateLimitKey(c)

		res, err := limiter.limiter.Allow(c.Request.Context(), key, limiter.limit)
		if err != nil {
			slog.Warn("redis rate limiter unavailable, allowing request", "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.rpm))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))

		if res.Allowed == 0 {
			retryAfter := int(res.RetryAfter.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"retry_after": retryAfter,
			})
			return
		}

		c.Next()
	}
}
