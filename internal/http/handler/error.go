package handler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"marketapi/internal/http/middleware"
	"marketapi/internal/provider"
	"marketapi/internal/service"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// requestIDFromCtx extracts request_id previously stored by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if v := c.Locals(middleware.RequestIDLocalKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// writeError writes a standardized JSON error response without leaking internal errors.
//
// Parameters:
// - status: HTTP status code to return
// - code: machine-readable short error code (e.g., "INVALID_ID", "NOT_FOUND", "INTERNAL_ERROR")
// - message: human-readable safe message (no internal details)
func writeError(c *fiber.Ctx, status int, code, message string) error {
	res := errorPayload{
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	}
	return c.Status(status).JSON(res)
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusUnauthorized:
			return writeError(c, status, "UNAUTHORIZED", "authentication required")
		case fiber.StatusForbidden:
			return writeError(c, status, "FORBIDDEN", "insufficient permissions")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "PAYLOAD_TOO_LARGE", "request body too large")
		case fiber.StatusTooManyRequests:
			return writeError(c, status, "RATE_LIMITED", "too many requests")
		}
		if status >= fiber.StatusBadRequest && status < fiber.StatusInternalServerError {
			return writeError(c, status, statusCode(status), strings.ToLower(utils.StatusMessage(status)))
		}
		if status < fiber.StatusInternalServerError {
			status = fiber.StatusInternalServerError
		}
		return writeError(c, status, "INTERNAL_ERROR", "internal server error")
	}
}

// statusCode turns a reason phrase into an error code, e.g. 415 -> UNSUPPORTED_MEDIA_TYPE.
func statusCode(status int) string {
	msg := strings.ToUpper(utils.StatusMessage(status))
	if msg == "" {
		return "BAD_REQUEST"
	}
	return strings.NewReplacer(" ", "_", "-", "_", "'", "").Replace(msg)
}

// respondError translates a service error into the error envelope. Unknown errors
// become INTERNAL_ERROR and are handed to the request logger.
func respondError(c *fiber.Ctx, err error) error {
	var (
		verrs validator.ValidationErrors
		perr  *provider.Error
	)
	switch {
	case errors.As(err, &verrs):
		return writeError(c, fiber.StatusUnprocessableEntity, "VALIDATION_FAILED", validationMessage(verrs))
	case errors.Is(err, errInvalidLimit):
		return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
	case errors.Is(err, errInvalidOffset):
		return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
	case errors.Is(err, errInvalidBody):
		return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
	case errors.Is(err, service.ErrIDRequired):
		return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "id is required")
	case errors.Is(err, service.ErrNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "resource not found")
	case errors.Is(err, service.ErrInvalidInput):
		return writeError(c, fiber.StatusUnprocessableEntity, "VALIDATION_FAILED", inputMessage(err))
	case errors.Is(err, service.ErrNoProviders),
		errors.Is(err, provider.ErrUnknownProvider),
		errors.Is(err, provider.ErrMissingKey):
		return writeError(c, fiber.StatusUnprocessableEntity, "VALIDATION_FAILED", rootMessage(err))
	case errors.Is(err, service.ErrProvidersUnavailable), provider.IsUnavailable(err):
		c.Set(fiber.HeaderRetryAfter, "30")
		return writeError(c, fiber.StatusServiceUnavailable, "PROVIDER_UNAVAILABLE", "provider temporarily unavailable")
	case errors.Is(err, service.ErrAnalysisFailed):
		return writeError(c, fiber.StatusBadGateway, "PROVIDER_ERROR", "every provider call failed")
	case errors.As(err, &perr):
		return writeError(c, fiber.StatusBadGateway, "PROVIDER_ERROR", perr.Error())
	default:
		c.Locals(middleware.ErrorLocalKey, err)
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

// inputMessage returns the detail after "invalid input: ", which services write for clients.
func inputMessage(err error) string {
	msg := err.Error()
	marker := service.ErrInvalidInput.Error() + ": "
	if i := strings.LastIndex(msg, marker); i >= 0 {
		return msg[i+len(marker):]
	}
	return service.ErrInvalidInput.Error()
}

func rootMessage(err error) string {
	for _, target := range []error{service.ErrNoProviders, provider.ErrUnknownProvider, provider.ErrMissingKey} {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return "invalid input"
}

// validationMessage renders validator errors as one readable sentence per field.
func validationMessage(errs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("field %s is required", err.Field()))
		case "min":
			msgs = append(msgs, fmt.Sprintf("field %s must have at least %s items or characters", err.Field(), err.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("field %s must have at most %s items or characters", err.Field(), err.Param()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("field %s must be one of [%s]", err.Field(), err.Param()))
		case "uuid":
			msgs = append(msgs, fmt.Sprintf("field %s must be a uuid", err.Field()))
		default:
			msgs = append(msgs, fmt.Sprintf("field %s is not valid", err.Field()))
		}
	}
	return strings.Join(msgs, ", ")
}
