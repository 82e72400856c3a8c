package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"marketapi/internal/service"
)

type setRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=user admin"`
}

type ticketStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=open in_progress resolved closed"`
}

// SetUserRole godoc
// @Summary Assign a platform role
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "user id"
// @Param request body setRoleRequest true "role"
// @Success 200 {object} model.UserRole
// @Failure 403 {object} errorPayload
// @Failure 422 {object} errorPayload
// @Router /api/v1/admin/users/{id}/role [put]
func SetUserRole(svc service.AdminService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := currentUser(c)
		if !ok {
			return unauthorized(c)
		}
		var req setRoleRequest
		if err := bind(c, &req); err != nil {
			return respondError(c, err)
		}
		r, err := svc.SetRole(c.UserContext(), actor, c.Params("id"), req.Role)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(r)
	}
}

// GetUserRole godoc
// @Summary Read a user's platform role
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "user id"
// @Success 200 {object} model.UserRole
// @Router /api/v1/admin/users/{id}/role [get]
func GetUserRole(svc service.AdminService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		r, err := svc.GetRole(c.UserContext(), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(r)
	}
}

// UpdateTicketStatus godoc
// @Summary Move a support ticket through its workflow
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ticket id"
// @Param request body ticketStatusRequest true "status"
// @Success 200 {object} model.SupportTicket
// @Failure 404 {object} errorPayload
// @Router /api/v1/admin/tickets/{id}/status [patch]
func UpdateTicketStatus(svc service.SupportService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := uuidParam(c)
		if !ok {
			return invalidID(c)
		}
		var req ticketStatusRequest
		if err := bind(c, &req); err != nil {
			return respondError(c, err)
		}
		t, err := svc.UpdateStatus(c.UserContext(), id, req.Status)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(t)
	}
}

// UsageSummary godoc
// @Summary Provider usage across all users
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param window query string false "look-back window as a Go duration, e.g. 24h" default(720h)
// @Success 200 {object} object{data=[]model.ProviderUsage}
// @Failure 400 {object} errorPayload
// @Router /api/v1/admin/usage [get]
func UsageSummary(svc service.MetricService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var window time.Duration
		if raw := c.Query("window"); raw != "" {
			d, err := time.ParseDuration(raw)
			if err != nil || d <= 0 {
				return writeError(c, fiber.StatusBadRequest, "INVALID_WINDOW", "window must be a positive duration")
			}
			window = d
		}
		usage, err := svc.UsageSummary(c.UserContext(), window)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"data": usage})
	}
}

// ProviderHealth godoc
// @Summary Check every server-configured provider key
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{data=[]service.ProviderHealth}
// @Router /api/v1/admin/providers/health [get]
func ProviderHealth(svc service.AdminService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		h, err := svc.ProviderHealth(c.UserContext())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"data": h})
	}
}
