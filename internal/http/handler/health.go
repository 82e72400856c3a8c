package handler

import (
	"github.com/gofiber/fiber/v2"

	"marketapi/internal/service"
)

// HealthCheck godoc
// @Summary Dependency health
// @Description Pings the database and the cache. Returns 503 when any dependency fails.
// @Tags Health
// @Produce json
// @Success 200 {object} service.HealthReport
// @Failure 503 {object} service.HealthReport
// @Router /health [get]
func HealthCheck(svc service.HealthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		report, ok := svc.Check(c.UserContext())
		if !ok {
			return c.Status(fiber.StatusServiceUnavailable).JSON(report)
		}
		return c.JSON(report)
	}
}

// LivenessProbe godoc
// @Summary Liveness probe
// @Tags Health
// @Success 200
// @Router /healthz [get]
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}
