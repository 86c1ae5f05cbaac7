package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"to-dogether/internal/api/response"
	"to-dogether/internal/apperr"
	"to-dogether/internal/auth"
	"to-dogether/pkg/logger"
)

const userIDLocal = "userID"

// UseToken requires a valid "Bearer <access token>" header and stores the
// caller's id in the request locals and user context.
func UseToken(provider *auth.Provider, log *logger.Loggers) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return response.Error(c, log, apperr.New(apperr.SessionInvalid, "no token provided"))
		}
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return response.Error(c, log, apperr.New(apperr.SessionInvalid, "invalid token format"))
		}

		claims, err := provider.ParseAccessToken(parts[1])
		if err != nil {
			log.Security.Warn("Rejected access token", logger.Fields(c.UserContext(),
				zap.String("ip", c.IP()),
				zap.String("path", c.Path()),
				zap.Error(err),
			)...)
			return response.Error(c, log, err)
		}

		c.Locals(userIDLocal, claims.UserID)
		c.SetUserContext(logger.WithUserID(c.UserContext(), claims.UserID))
		return c.Next()
	}
}

// UserID returns the id stored by UseToken.
func UserID(c *fiber.Ctx) (int, bool) {
	id, ok := c.Locals(userIDLocal).(int)
	return id, ok
}
