package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/launchsignal/api/pkg/response"
)

type RateLimiter struct {
	redis *redis.Client
}

func NewRateLimiter(redisClient *redis.Client) *RateLimiter {
	return &RateLimiter{redis: redisClient}
}

// Limit creates a rate limiting middleware. Counters are per tenant so
// one noisy user cannot consume a whole workspace's quota unnoticed.
func (rl *RateLimiter) Limit(keyPrefix string, maxRequests int, window time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tenantID := GetTenantID(c)
		if tenantID == "" {
			return c.Next() // auth middleware rejects unauthenticated calls
		}

		key := fmt.Sprintf("ratelimit:%s:%s", keyPrefix, tenantID)
		ctx := context.Background()

		// Increment counter
		count, err := rl.redis.Incr(ctx, key).Result()
		if err != nil {
			// If Redis fails, allow the request
			return c.Next()
		}

		// Set expiration on first request
		if count == 1 {
			rl.redis.Expire(ctx, key, window)
		}

		if count > int64(maxRequests) {
			ttl, _ := rl.redis.TTL(ctx, key).Result()
			c.Set("Retry-After", fmt.Sprintf("%d", int(ttl.Seconds())))
			return response.RateLimited(c)
		}

		c.Set("X-RateLimit-Limit", fmt.Sprintf("%d", maxRequests))
		c.Set("X-RateLimit-Remaining", fmt.Sprintf("%d", maxRequests-int(count)))

		return c.Next()
	}
}

// ScrapeLimit returns a rate limiter for scrape-triggering endpoints
func (rl *RateLimiter) ScrapeLimit(maxPerHour int) fiber.Handler {
	return rl.Limit("scrape", maxPerHour, time.Hour)
}

// AnalyzeLimit returns a rate limiter for analysis endpoints
func (rl *RateLimiter) AnalyzeLimit(maxPerHour int) fiber.Handler {
	return rl.Limit("analyze", maxPerHour, time.Hour)
}

// EmailLimit returns a rate limiter for email generation and sending
func (rl *RateLimiter) EmailLimit(maxPerHour int) fiber.Handler {
	return rl.Limit("email", maxPerHour, time.Hour)
}
