package middleware

import "github.com/gofiber/fiber/v2"

// NoStore marks responses as private and uncacheable. User-scoped API responses go
// through it so shared proxies never keep one user's data.
func NoStore() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderCacheControl, "no-store")
		c.Set(fiber.HeaderVary, fiber.HeaderAuthorization)
		return c.Next()
	}
}
