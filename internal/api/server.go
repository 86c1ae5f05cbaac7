// Package api assembles the Fiber application: global middleware plus the
// versioned routes.
package api

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"to-dogether/internal/api/response"
	v1 "to-dogether/internal/api/v1"
	"to-dogether/internal/apperr"
	"to-dogether/internal/config"
	"to-dogether/internal/middleware"
)

func NewApp(deps *config.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "to-dogether",
		ErrorHandler: errorHandler(deps),
	})

	app.Use(middleware.ErrorHandler(deps.Log))
	app.Use(middleware.RequestID())
	app.Use(middleware.RequestContext())
	app.Use(cors.New(cors.Config{
		AllowOrigins: deps.Config.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	if deps.Config.RateLimitMax > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        deps.Config.RateLimitMax,
			Expiration: 1 * time.Minute,
			LimitReached: func(c *fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
					"message": "too many requests",
					"success": false,
					"status":  fiber.StatusTooManyRequests,
				})
			},
		}))
	}

	v1.RegisterRoutes(app, deps)
	return app
}

// errorHandler renders errors that escape the handlers, such as unknown
// routes, in the same envelope.
func errorHandler(deps *config.Dependencies) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code := apperr.Internal
			if fe.Code == fiber.StatusNotFound {
				code = apperr.NotFound
			} else if fe.Code < fiber.StatusInternalServerError {
				code = apperr.InvalidFormat
			}
			return c.Status(fe.Code).JSON(fiber.Map{
				"message": fe.Message,
				"success": false,
				"status":  fe.Code,
				"code":    string(code),
			})
		}
		return response.Error(c, deps.Log, err)
	}
}
