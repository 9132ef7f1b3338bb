package middlewares

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RedisRateLimiter is a fixed-window limiter shared across processes.
// Auth endpoints use it so brute-force counters survive restarts and
// apply cluster-wide. Fails open on redis errors.
type RedisRateLimiter struct {
	rdb    *redis.Client
	prefix string
	limit  int
	window time.Duration
}

func NewRedisRateLimiter(rdb *redis.Client, prefix string, limit int, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{
		rdb:    rdb,
		prefix: prefix,
		limit:  limit,
		window: window,
	}
}

func (rl *RedisRateLimiter) RateLimiterMiddleware(keyFn func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFn(c)

		if key == "" {
			key = clientIP(c)
		}

		key = rl.prefix + ":" + key

		ctx := c.Request.Context()

		pipe := rl.rdb.TxPipeline()
		incr := pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, rl.window)

		if _, err := pipe.Exec(ctx); err != nil {
			// redis down must not take the API with it
			slog.Default().WarnContext(ctx, "rate limiter unavailable", "error", err)
			c.Next()
			return
		}

		if incr.Val() > int64(rl.limit) {
			ttl, err := rl.rdb.TTL(ctx, key).Result()

			retryAfter := int(rl.window.Seconds())

			if err == nil && ttl > 0 {
				retryAfter = int(ttl.Seconds())
			}

			tooManyRequests(c, retryAfter)
			return
		}

		c.Next()
	}
}
