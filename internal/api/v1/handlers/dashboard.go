package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"to-dogether/internal/api/response"
	"to-dogether/internal/views"
	"to-dogether/pkg/logger"
)

func (h *Handler) PartnerOverview(c *fiber.Ctx) error {
	userID, err := caller(c)
	if err != nil {
		return h.fail(c, err)
	}
	overview, err := h.views.PartnerOverview(c.UserContext(), userID)
	if err != nil {
		return h.fail(c, err)
	}
	return response.Success(c, fiber.StatusOK, "Partner overview retrieved successfully", overview)
}

func (h *Handler) DashboardStats(c *fiber.Ctx) error {
	userID, err := caller(c)
	if err != nil {
		return h.fail(c, err)
	}
	stats, err := h.views.DashboardStats(c.UserContext(), userID)
	if err != nil {
		return h.fail(c, err)
	}
	return response.Success(c, fiber.StatusOK, "Dashboard stats retrieved successfully", stats)
}

func (h *Handler) RecentActivities(c *fiber.Ctx) error {
	userID, err := caller(c)
	if err != nil {
		return h.fail(c, err)
	}
	limit := c.QueryInt("limit", views.DefaultActivityLimit)
	res, err := h.views.RecentActivities(c.UserContext(), userID, limit)
	if err != nil {
		return h.fail(c, err)
	}
	return response.Success(c, fiber.StatusOK, "Recent activities retrieved successfully", res)
}

// Health reports whether the store answers within two seconds.
func (h *Handler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.log.Error.Error("Health check failed", logger.Fields(ctx, zap.Error(err))...)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"message": "store unavailable",
			"success": false,
			"status":  fiber.StatusServiceUnavailable,
		})
	}
	return response.Success(c, fiber.StatusOK, "ok", nil)
}
