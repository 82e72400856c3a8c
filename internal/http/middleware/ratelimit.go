package middleware

import (
	"github.com/gofiber/fiber/v2"

	"marketapi/internal/resilience"
)

// RateLimit applies a token bucket per authenticated user, falling back to the client IP.
func RateLimit(l *resilience.KeyedLimiter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := UserID(c)
		if key == "" {
			key = "ip:" + c.IP()
		}
		if !l.Allow(key) {
			c.Set(fiber.HeaderRetryAfter, "1")
			return fiber.NewError(fiber.StatusTooManyRequests, "rate limit exceeded")
		}
		return c.Next()
	}
}
