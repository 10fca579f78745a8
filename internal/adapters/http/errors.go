package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/halfway/internal/core/domain"
	"github.com/samirrijal/halfway/internal/pkg/logging"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // bad_request, not_found, provider_error, internal_error
	Message   string `json:"message"` // Human-readable message
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusBadRequest, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusNotFound, "not_found", msg)
}

// errProvider returns a 502 error for upstream failures.
func errProvider(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusBadGateway, "provider_error", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusInternalServerError, "internal_error", msg)
}

// writeError maps a domain error onto the APIError envelope.
func writeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrResolution):
		return errBadRequest(c, err.Error())
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrNoResults):
		return errNotFound(c, err.Error())
	case errors.Is(err, domain.ErrProvider), errors.Is(err, domain.ErrTransientFetch):
		logging.FromContext(c.UserContext()).Warn("provider failure", "error", err)
		return errProvider(c, err.Error())
	default:
		logging.FromContext(c.UserContext()).Error("request failed", "error", err)
		return errInternal(c, err.Error())
	}
}
