// Package response writes the JSON envelope shared by every endpoint:
// {"message", "success", "status", "code", "data"}.
package response

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"to-dogether/internal/apperr"
	"to-dogether/pkg/logger"
)

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.NotFound:
		return fiber.StatusNotFound
	case apperr.InvalidCredentials, apperr.SessionExpired, apperr.SessionInvalid:
		return fiber.StatusUnauthorized
	case apperr.NoAccess:
		return fiber.StatusForbidden
	case apperr.UsernameTaken:
		return fiber.StatusConflict
	case apperr.InvalidInviteToken, apperr.CoupleFull, apperr.NotPaired, apperr.InvalidFormat:
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}

func Success(c *fiber.Ctx, status int, message string, data any) error {
	body := fiber.Map{
		"message": message,
		"success": true,
		"status":  status,
	}
	if data != nil {
		body["data"] = data
	}
	return c.Status(status).JSON(body)
}

// Error writes err as an error envelope. Internal errors never leak their
// cause to the client and are logged to the error channel.
func Error(c *fiber.Ctx, log *logger.Loggers, err error) error {
	kind := apperr.KindOf(err)
	status := StatusFor(kind)
	message := apperr.MessageOf(err)
	if status == fiber.StatusInternalServerError {
		log.Error.Error("Unhandled error", logger.Fields(c.UserContext(),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)...)
		kind = apperr.Internal
		message = "internal server error"
	}
	return c.Status(status).JSON(fiber.Map{
		"message": message,
		"success": false,
		"status":  status,
		"code":    string(kind),
	})
}
