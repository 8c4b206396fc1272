package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"doccustody/internal/http/middleware"
	"doccustody/internal/service"
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
	if s, ok := c.Locals(middleware.RequestIDLocalKey).(string); ok {
		return s
	}
	return ""
}

// writeError writes a standardized JSON error response. message must be safe to show to callers.
func writeError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(errorPayload{
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	})
}

// writeServiceError maps service errors onto the envelope. Unknown errors become a generic 500.
func writeServiceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
	case errors.Is(err, service.ErrDuplicateContent):
		return writeError(c, fiber.StatusConflict, "DUPLICATE_CONTENT", "a document with identical content already exists")
	case errors.Is(err, service.ErrIDRequired):
		return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "id is required")
	case errors.Is(err, service.ErrOwnerRequired):
		return writeError(c, fiber.StatusBadRequest, "OWNER_REQUIRED", "owner_ref is required")
	case errors.Is(err, service.ErrBlobMissing):
		return writeError(c, fiber.StatusInternalServerError, "CONTENT_MISSING", "document content is missing")
	default:
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusUnauthorized:
			return writeError(c, status, "UNAUTHORIZED", fe.Message)
		case fiber.StatusForbidden:
			return writeError(c, status, "FORBIDDEN", "access denied")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "PAYLOAD_TOO_LARGE", "request body too large")
		default:
			return writeError(c, status, "INTERNAL_ERROR", "internal server error")
		}
	}
}
