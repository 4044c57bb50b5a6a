package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const rateLimitKeyPrefix = "feedback:ratelimit:"

// RateLimiter counts submissions per client in fixed windows stored in Redis.
type RateLimiter struct {
	client redis.Cmdable
	limit  int
	window time.Duration
	logger *zap.Logger
}

// NewRateLimiter allows limit requests per window for each key.
func NewRateLimiter(client redis.Cmdable, limit int, window time.Duration, log *zap.Logger) *RateLimiter {
	if log == nil {
		log = zap.NewNop()
	}
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: window,
		logger: log.Named("ratelimit"),
	}
}

// Allow records a hit for key. It returns whether the hit is within the
// limit, how many hits remain, and how long until the window resets.
func (l *RateLimiter) Allow(ctx context.Context, key string) (bool, int, time.Duration, error) {
	redisKey := rateLimitKeyPrefix + key

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	ttlCmd := pipe.TTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, 0, fmt.Errorf("rate limit increment: %w", err)
	}

	count := incr.Val()
	ttl := ttlCmd.Val()

	// A counter without an expiry is either a new window or one whose
	// EXPIRE was lost; both get the full window.
	if ttl < 0 {
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return false, 0, 0, fmt.Errorf("rate limit expire: %w", err)
		}
		ttl = l.window
	}

	if count > int64(l.limit) {
		return false, 0, ttl, nil
	}
	return true, l.limit - int(count), ttl, nil
}

// Middleware rejects clients that exceed the limit with 429. Redis failures
// let the request through; feedback should not be lost because Redis is down.
func (l *RateLimiter) Middleware(onLimited func()) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, remaining, reset, err := l.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			l.logger.Warn("rate limit check failed, allowing request",
				zap.String("request_id", GetRequestID(c)), zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(l.limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			if onLimited != nil {
				onLimited()
			}
			c.Header("Retry-After", strconv.Itoa(int(reset.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "RateLimited",
				"description": "Too many submissions. Please try again later.",
			})
			return
		}

		c.Next()
	}
}
