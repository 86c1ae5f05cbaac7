package handlers

import (
	"github.com/gofiber/fiber/v2"

	"to-dogether/internal/account"
	"to-dogether/internal/api/response"
	"to-dogether/internal/auth"
	"to-dogether/internal/models"
)

type registerRequest struct {
	Username    string `json:"username" validate:"required,max=50"`
	Password    string `json:"password" validate:"required,min=6,max=72"`
	ColorCode   string `json:"color_code" validate:"omitempty,colorcode"`
	InviteToken string `json:"invite_token" validate:"omitempty,max=64"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// authPayload is the body of every response that opens a session.
type authPayload struct {
	User *models.User `json:"user"`
	*auth.Session
	// InviteToken is only present right after registration created a couple.
	InviteToken string `json:"invite_token,omitempty"`
}

func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := h.bind(c, &req); err != nil {
		return h.fail(c, err)
	}

	res, err := h.accounts.Register(c.UserContext(), account.RegisterInput{
		Username:    req.Username,
		Password:    req.Password,
		ColorCode:   req.ColorCode,
		InviteToken: req.InviteToken,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return response.Success(c, fiber.StatusCreated, "User registered successfully", authPayload{
		User:        res.User,
		Session:     res.Session,
		InviteToken: res.InviteToken,
	})
}

func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := h.bind(c, &req); err != nil {
		return h.fail(c, err)
	}

	user, session, err := h.accounts.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return h.fail(c, err)
	}
	return response.Success(c, fiber.StatusOK, "Login successful", authPayload{User: user, Session: session})
}

func (h *Handler) Refresh(c *fiber.Ctx) error {
	var req refreshRequest
	if err := h.bind(c, &req); err != nil {
		return h.fail(c, err)
	}

	session, err := h.accounts.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return h.fail(c, err)
	}
	return response.Success(c, fiber.StatusOK, "Session refreshed", session)
}

func (h *Handler) Logout(c *fiber.Ctx) error {
	var req refreshRequest
	if err := h.bind(c, &req); err != nil {
		return h.fail(c, err)
	}

	if err := h.accounts.Logout(c.UserContext(), req.RefreshToken); err != nil {
		return h.fail(c, err)
	}
	return response.Success(c, fiber.StatusOK, "Logged out", nil)
}
