package handlers

import (
	"github.com/gofiber/fiber/v2"

	"to-dogether/internal/api/response"
)

type profileRequest struct {
	Username  string `json:"username" validate:"required,max=50"`
	ColorCode string `json:"color_code" validate:"required,colorcode"`
}

func (h *Handler) Me(c *fiber.Ctx) error {
	userID, err := caller(c)
	if err != nil {
		return h.fail(c, err)
	}

	user, err := h.accounts.Me(c.UserContext(), userID)
	if err != nil {
		return h.fail(c, err)
	}
	return response.Success(c, fiber.StatusOK, "User retrieved successfully", user)
}

func (h *Handler) UpdateProfile(c *fiber.Ctx) error {
	userID, err := caller(c)
	if err != nil {
		return h.fail(c, err)
	}
	var req profileRequest
	if err := h.bind(c, &req); err != nil {
		return h.fail(c, err)
	}

	user, err := h.accounts.UpdateProfile(c.UserContext(), userID, req.Username, req.ColorCode)
	if err != nil {
		return h.fail(c, err)
	}
	return response.Success(c, fiber.StatusOK, "Profile updated successfully", user)
}
