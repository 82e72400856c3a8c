package handler

import (
	"github.com/gofiber/fiber/v2"

	"marketapi/internal/service"
)

// GetPreferences godoc
// @Summary Caller preferences, defaults filled in
// @Tags Account
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.UserPreferences
// @Router /api/v1/preferences [get]
func GetPreferences(svc service.PreferenceService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		uid, ok := currentUser(c)
		if !ok {
			return unauthorized(c)
		}
		p, err := svc.Get(c.UserContext(), uid)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(p)
	}
}

// UpdatePreferences godoc
// @Summary Merge a patch into the caller preferences
// @Description Keys set to null are removed.
// @Tags Account
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body map[string]any true "preferences patch"
// @Success 200 {object} model.UserPreferences
// @Failure 400 {object} errorPayload
// @Failure 422 {object} errorPayload
// @Router /api/v1/preferences [put]
func UpdatePreferences(svc service.PreferenceService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		uid, ok := currentUser(c)
		if !ok {
			return unauthorized(c)
		}
		var patch map[string]any
		if len(c.Body()) == 0 || c.BodyParser(&patch) != nil {
			return respondError(c, errInvalidBody)
		}
		p, err := svc.Update(c.UserContext(), uid, patch)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(p)
	}
}

// ListBilling godoc
// @Summary Caller billing records
// @Tags Account
// @Produce json
// @Security BearerAuth
// @Param limit query int false "page size (max 100)" default(10)
// @Param offset query int false "offset" default(0)
// @Success 200 {object} service.ListResult[model.BillingRecord]
// @Router /api/v1/billing [get]
func ListBilling(svc service.BillingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		uid, ok := currentUser(c)
		if !ok {
			return unauthorized(c)
		}
		limit, offset, err := pageParams(c)
		if err != nil {
			return respondError(c, err)
		}
		res, err := svc.List(c.UserContext(), uid, limit, offset)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(res)
	}
}

type createTicketRequest struct {
	Subject  string   `json:"subject" validate:"required,max=200"`
	Body     string   `json:"body" validate:"required,max=10000"`
	Priority string   `json:"priority" validate:"omitempty,oneof=low normal high urgent"`
	Tags     []string `json:"tags" validate:"max=10,dive,max=40"`
}

// CreateTicket godoc
// @Summary Open a support ticket
// @Tags Support
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body createTicketRequest true "ticket"
// @Success 201 {object} model.SupportTicket
// @Failure 422 {object} errorPayload
// @Router /api/v1/tickets [post]
func CreateTicket(svc service.SupportService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		uid, ok := currentUser(c)
		if !ok {
			return unauthorized(c)
		}
		var req createTicketRequest
		if err := bind(c, &req); err != nil {
			return respondError(c, err)
		}
		t, err := svc.Create(c.UserContext(), uid, service.CreateTicketInput{
			Subject:  req.Subject,
			Body:     req.Body,
			Priority: req.Priority,
			Tags:     req.Tags,
		})
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(t)
	}
}

// ListTickets godoc
// @Summary Caller support tickets
// @Tags Support
// @Produce json
// @Security BearerAuth
// @Param limit query int false "page size (max 100)" default(10)
// @Param offset query int false "offset" default(0)
// @Success 200 {object} service.ListResult[model.SupportTicket]
// @Router /api/v1/tickets [get]
func ListTickets(svc service.SupportService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		uid, ok := currentUser(c)
		if !ok {
			return unauthorized(c)
		}
		limit, offset, err := pageParams(c)
		if err != nil {
			return respondError(c, err)
		}
		res, err := svc.List(c.UserContext(), uid, limit, offset)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(res)
	}
}

type recordMetricRequest struct {
	Name  string            `json:"name" validate:"required,max=100"`
	Value *float64          `json:"value" validate:"required"`
	Tags  map[string]string `json:"tags" validate:"max=20"`
}

// RecordMetric godoc
// @Summary Record a client metric event
// @Tags Metrics
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body recordMetricRequest true "metric"
// @Success 201 {object} model.MetricEvent
// @Failure 422 {object} errorPayload
// @Router /api/v1/metrics/events [post]
func RecordMetric(svc service.MetricService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		uid, ok := currentUser(c)
		if !ok {
			return unauthorized(c)
		}
		var req recordMetricRequest
		if err := bind(c, &req); err != nil {
			return respondError(c, err)
		}
		ev, err := svc.Record(c.UserContext(), uid, service.RecordMetricInput{
			Name:  req.Name,
			Value: *req.Value,
			Tags:  req.Tags,
		})
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(ev)
	}
}

// Dashboard godoc
// @Summary Landing page summary
// @Tags Account
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.DashboardSummary
// @Router /api/v1/dashboard [get]
func Dashboard(svc service.DashboardService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		uid, ok := currentUser(c)
		if !ok {
			return unauthorized(c)
		}
		s, err := svc.Summary(c.UserContext(), uid)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(s)
	}
}
