package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"marketapi/internal/service"
)

type runAnalysisRequest struct {
	Competitors []string `json:"competitors" validate:"required,min=1,max=10,dive,required,max=200"`
	Industry    string   `json:"industry" validate:"max=200"`
	Focus       string   `json:"focus" validate:"max=1000"`
	Providers   []string `json:"providers" validate:"max=8,dive,required,max=40"`
}

// RunAnalysis godoc
// @Summary Run a competitor analysis
// @Description Asks every selected provider about every competitor. Partial failures still return 201 with status "partial".
// @Tags Analyses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body runAnalysisRequest true "analysis input"
// @Success 201 {object} model.Analysis
// @Failure 400 {object} errorPayload
// @Failure 422 {object} errorPayload
// @Failure 502 {object} errorPayload "every provider call failed"
// @Failure 503 {object} errorPayload "providers rate limited or circuit open"
// @Router /api/v1/analyses [post]
func RunAnalysis(svc service.AnalysisService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		uid, ok := currentUser(c)
		if !ok {
			return unauthorized(c)
		}
		var req runAnalysisRequest
		if err := bind(c, &req); err != nil {
			return respondError(c, err)
		}

		a, err := svc.Run(c.UserContext(), uid, service.RunAnalysisInput{
			Competitors: req.Competitors,
			Industry:    req.Industry,
			Focus:       req.Focus,
			Providers:   req.Providers,
		})
		if err != nil {
			if a != nil && errors.Is(err, service.ErrAnalysisFailed) {
				c.Set(fiber.HeaderLocation, "/api/v1/analyses/"+a.ID)
			}
			return respondError(c, err)
		}
		c.Set(fiber.HeaderLocation, "/api/v1/analyses/"+a.ID)
		return c.Status(fiber.StatusCreated).JSON(a)
	}
}

// ListAnalyses godoc
// @Summary List analyses
// @Tags Analyses
// @Produce json
// @Security BearerAuth
// @Param limit query int false "page size (max 100)" default(10)
// @Param offset query int false "offset" default(0)
// @Success 200 {object} service.ListResult[model.Analysis]
// @Failure 400 {object} errorPayload
// @Router /api/v1/analyses [get]
func ListAnalyses(svc service.AnalysisService) fiber.Handler {
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

// GetAnalysis godoc
// @Summary Get an analysis with its provider results
// @Tags Analyses
// @Produce json
// @Security BearerAuth
// @Param id path string true "analysis id"
// @Success 200 {object} model.Analysis
// @Failure 404 {object} errorPayload
// @Router /api/v1/analyses/{id} [get]
func GetAnalysis(svc service.AnalysisService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		uid, ok := currentUser(c)
		if !ok {
			return unauthorized(c)
		}
		id, ok := uuidParam(c)
		if !ok {
			return invalidID(c)
		}
		a, err := svc.Get(c.UserContext(), uid, id)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(a)
	}
}

// DeleteAnalysis godoc
// @Summary Delete an analysis
// @Tags Analyses
// @Security BearerAuth
// @Param id path string true "analysis id"
// @Success 204
// @Failure 404 {object} errorPayload
// @Router /api/v1/analyses/{id} [delete]
func DeleteAnalysis(svc service.AnalysisService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		uid, ok := currentUser(c)
		if !ok {
			return unauthorized(c)
		}
		id, ok := uuidParam(c)
		if !ok {
			return invalidID(c)
		}
		if err := svc.Delete(c.UserContext(), uid, id); err != nil {
			return respondError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
