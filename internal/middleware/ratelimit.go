package middleware

import (
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/videogen/api/internal/logging"
	"github.com/videogen/api/pkg/response"
)

// RateLimiter enforces per-user budgets per route group. Redis fixed-window
// counters are used when a client is set; otherwise each user gets an
// in-process token bucket.
type RateLimiter struct {
	redis *redis.Client

	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

func NewRateLimiter(redisClient *redis.Client) *RateLimiter {
	return &RateLimiter{
		redis:   redisClient,
		buckets: make(map[string]*rate.Limiter),
	}
}

// Limit creates a rate limiting middleware
func (rl *RateLimiter) Limit(keyPrefix string, maxRequests int, window time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := GetUserID(c)
		if userID == "" || maxRequests <= 0 {
			return c.Next()
		}

		key := fmt.Sprintf("ratelimit:%s:%s", keyPrefix, userID)
		if rl.redis == nil {
			return rl.limitLocal(c, key, maxRequests, window)
		}

		ctx := c.UserContext()
		count, err := rl.redis.Incr(ctx, key).Result()
		if err != nil {
			logging.FromContext(ctx).WithError(err).Warn("rate limit counter unavailable")
			return c.Next()
		}
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

func (rl *RateLimiter) limitLocal(c *fiber.Ctx, key string, maxRequests int, window time.Duration) error {
	rl.mu.Lock()
	limiter, ok := rl.buckets[key]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(window/time.Duration(maxRequests)), maxRequests)
		rl.buckets[key] = limiter
	}
	rl.mu.Unlock()

	reservation := limiter.Reserve()
	if delay := reservation.Delay(); delay > 0 {
		reservation.Cancel()
		c.Set("Retry-After", fmt.Sprintf("%d", int(delay.Seconds()+1)))
		return response.RateLimited(c)
	}

	c.Set("X-RateLimit-Limit", fmt.Sprintf("%d", maxRequests))
	c.Set("X-RateLimit-Remaining", fmt.Sprintf("%d", int(limiter.Tokens())))
	return c.Next()
}

func (rl *RateLimiter) ScriptLimit(maxPerMin int) fiber.Handler {
	return rl.Limit("script", maxPerMin, time.Minute)
}

func (rl *RateLimiter) AudioLimit(maxPerHour int) fiber.Handler {
	return rl.Limit("audio", maxPerHour, time.Hour)
}

func (rl *RateLimiter) ImagesLimit(maxPerHour int) fiber.Handler {
	return rl.Limit("images", maxPerHour, time.Hour)
}

func (rl *RateLimiter) VideoLimit(maxPerHour int) fiber.Handler {
	return rl.Limit("video", maxPerHour, time.Hour)
}

func (rl *RateLimiter) PipelineLimit(maxPerHour int) fiber.Handler {
	return rl.Limit("pipeline", maxPerHour, time.Hour)
}
