package middleware

import (
	"fmt"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"to-dogether/internal/apperr"
	"to-dogether/pkg/logger"
)

const requestIDLocal = "requestid"

// RequestID assigns every request an X-Request-ID (keeping one sent by the
// client) and copies it into the user context for logger.Fields.
func RequestID() fiber.Handler {
	return requestid.New(requestid.Config{
		Generator:  uuid.NewString,
		ContextKey: requestIDLocal,
	})
}

// RequestContext must run after RequestID.
func RequestContext() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if id, ok := c.Locals(requestIDLocal).(string); ok && id != "" {
			c.SetUserContext(logger.WithRequestID(c.UserContext(), id))
		}
		return c.Next()
	}
}

// ErrorHandler recovers panics into a 500 envelope and writes one request
// log line per request. Errors returned by later handlers are rendered by
// the app's error handler before the line is written.
func ErrorHandler(log *logger.Loggers) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				log.Error.Error(fmt.Sprintf("Recovered from panic: %v", r), logger.Fields(c.UserContext(),
					zap.String("stack", string(debug.Stack())),
				)...)
				err = c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"message": "internal server error",
					"success": false,
					"status":  fiber.StatusInternalServerError,
					"code":    string(apperr.Internal),
				})
			}
			log.Request.Info("Request handled", logger.Fields(c.UserContext(),
				zap.String("method", c.Method()),
				zap.String("url", c.OriginalURL()),
				zap.Int("status", c.Response().StatusCode()),
				zap.Duration("latency", time.Since(start)),
			)...)
		}()
		if nextErr := c.Next(); nextErr != nil {
			return c.App().Config().ErrorHandler(c, nextErr)
		}
		return nil
	}
}
