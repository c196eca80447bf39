package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/SaintNick1214/cortex/pkg/memory"
)

// ErrorResponse is the JSON body returned for all error outcomes.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// respondError maps a service error to an HTTP status using its memory.Error
// code. Unknown errors become 500 without leaking internals.
func respondError(c *fiber.Ctx, err error) error {
	var memErr *memory.Error
	if !errors.As(err, &memErr) {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error: "internal error",
		})
	}

	return c.Status(statusFor(memErr.Code)).JSON(ErrorResponse{
		Error: memErr.Message,
		Code:  string(memErr.Code),
	})
}

func statusFor(code memory.Code) int {
	switch code {
	case memory.CodeValidation:
		return fiber.StatusBadRequest
	case memory.CodeFactNotFound,
		memory.CodeMemoryNotFound,
		memory.CodeContextNotFound,
		memory.CodeParentNotFound,
		memory.CodeConversationNotFound:
		return fiber.StatusNotFound
	case memory.CodePermissionDenied:
		return fiber.StatusForbidden
	case memory.CodeConflict, memory.CodeHasChildren:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}
