package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"chatpage/internal/http/middleware"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// writeError writes a standardized JSON error response. detail is only
// filled in debug mode and must be empty otherwise.
func writeError(c *fiber.Ctx, status int, code, message, detail string) error {
	res := errorPayload{
		RequestID: middleware.RequestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
			Detail:  detail,
		},
	}
	return c.Status(status).JSON(res)
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
// With verbose set, the underlying error text is included as detail. Failures
// are logged by middleware.Logger, not here.
func ErrorHandler(verbose bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}

		detail := ""
		if verbose {
			detail = err.Error()
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request", detail)
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found", detail)
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed", detail)
		default:
			return writeError(c, status, "INTERNAL_ERROR", "internal server error", detail)
		}
	}
}
