package handler

import (
	"github.com/gofiber/fiber/v2"

	"marketapi/internal/service"
)

type saveAPIKeyRequest struct {
	Provider string `json:"provider" validate:"required,max=40"`
	Key      string `json:"key" validate:"required,min=8,max=512"`
}

// SaveAPIKey godoc
// @Summary Store a provider API key
// @Description Replaces any key the caller already stored for the provider. The key is sealed at rest and only a masked form is returned.
// @Tags API keys
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body saveAPIKeyRequest true "provider and key"
// @Success 201 {object} model.APIKey
// @Failure 422 {object} errorPayload
// @Router /api/v1/api-keys [post]
func SaveAPIKey(svc service.APIKeyService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		uid, ok := currentUser(c)
		if !ok {
			return unauthorized(c)
		}
		var req saveAPIKeyRequest
		if err := bind(c, &req); err != nil {
			return respondError(c, err)
		}
		k, err := svc.Save(c.UserContext(), uid, req.Provider, req.Key)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(k)
	}
}

// ListAPIKeys godoc
// @Summary List stored API keys (masked)
// @Tags API keys
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{data=[]model.APIKey}
// @Router /api/v1/api-keys [get]
func ListAPIKeys(svc service.APIKeyService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		uid, ok := currentUser(c)
		if !ok {
			return unauthorized(c)
		}
		keys, err := svc.List(c.UserContext(), uid)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"data": keys})
	}
}

// DeleteAPIKey godoc
// @Summary Delete an API key
// @Tags API keys
// @Security BearerAuth
// @Param id path string true "key id"
// @Success 204
// @Failure 404 {object} errorPayload
// @Router /api/v1/api-keys/{id} [delete]
func DeleteAPIKey(svc service.APIKeyService) fiber.Handler {
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

// ValidateAPIKey godoc
// @Summary Check a stored key against its provider
// @Description A rejected key is marked invalid and still returns 200. Provider outages return 502/503 and leave the status unchanged.
// @Tags API keys
// @Produce json
// @Security BearerAuth
// @Param id path string true "key id"
// @Success 200 {object} model.APIKey
// @Failure 404 {object} errorPayload
// @Failure 502 {object} errorPayload
// @Router /api/v1/api-keys/{id}/validate [post]
func ValidateAPIKey(svc service.APIKeyService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		uid, ok := currentUser(c)
		if !ok {
			return unauthorized(c)
		}
		id, ok := uuidParam(c)
		if !ok {
			return invalidID(c)
		}
		k, err := svc.Validate(c.UserContext(), uid, id)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(k)
	}
}

// ListProviders godoc
// @Summary Registered providers and how the caller can reach them
// @Tags API keys
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{data=[]service.ProviderInfo}
// @Router /api/v1/providers [get]
func ListProviders(svc service.APIKeyService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		uid, ok := currentUser(c)
		if !ok {
			return unauthorized(c)
		}
		p, err := svc.Providers(c.UserContext(), uid)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"data": p})
	}
}
