package handlers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"to-dogether/internal/account"
	"to-dogether/internal/api/response"
	"to-dogether/internal/apperr"
	"to-dogether/internal/config"
	"to-dogether/internal/middleware"
	"to-dogether/internal/repository"
	"to-dogether/internal/todo"
	"to-dogether/internal/views"
	"to-dogether/pkg/logger"
)

// Handler serves the v1 endpoints on top of the domain services.
type Handler struct {
	store    repository.Store
	accounts *account.Service
	todos    *todo.Service
	views    *views.Service
	validate *validator.Validate
	log      *logger.Loggers
}

func New(deps *config.Dependencies) *Handler {
	return &Handler{
		store:    deps.Store,
		accounts: deps.Accounts,
		todos:    deps.Todos,
		views:    deps.Views,
		validate: deps.Validate,
		log:      deps.Log,
	}
}

// bind parses the JSON body into req and validates it.
func (h *Handler) bind(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		h.log.Audit.Warn("Bad request body", logger.Fields(c.UserContext(),
			zap.String("path", c.Path()),
			zap.Error(err),
		)...)
		return apperr.Wrap(apperr.InvalidFormat, "invalid request body", err)
	}
	if err := h.validate.Struct(req); err != nil {
		h.log.Audit.Warn("Validation error", logger.Fields(c.UserContext(),
			zap.String("path", c.Path()),
			zap.Error(err),
		)...)
		return apperr.Wrap(apperr.InvalidFormat, validationMessage(err), err)
	}
	return nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "validation error"
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
	}
	return "validation error: " + strings.Join(msgs, ", ")
}

// paramID reads a positive integer route parameter.
func paramID(c *fiber.Ctx, name string) (int, error) {
	id, err := c.ParamsInt(name)
	if err != nil || id <= 0 {
		return 0, apperr.New(apperr.InvalidFormat, "invalid "+name)
	}
	return id, nil
}

// caller returns the authenticated user id. Routes that use it are always
// behind middleware.UseToken.
func caller(c *fiber.Ctx) (int, error) {
	id, ok := middleware.UserID(c)
	if !ok {
		return 0, apperr.ErrSessionInvalid
	}
	return id, nil
}

func (h *Handler) fail(c *fiber.Ctx, err error) error {
	return response.Error(c, h.log, err)
}
