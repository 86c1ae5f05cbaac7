package handlers

import (
	"github.com/gofiber/fiber/v2"

	"to-dogether/internal/api/response"
	"to-dogether/internal/apperr"
	"to-dogether/internal/models"
	"to-dogether/internal/todo"
)

type listRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=1000"`
	IsShared    bool   `json:"is_shared"`
	ColorCode   string `json:"color_code" validate:"omitempty,colorcode"`
}

func (r listRequest) input() todo.ListInput {
	return todo.ListInput{
		Title:       r.Title,
		Description: r.Description,
		IsShared:    r.IsShared,
		ColorCode:   r.ColorCode,
	}
}

type createItemRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=1000"`
	Severity    string `json:"severity" validate:"omitempty,oneof=Low Medium High"`
}

type updateItemRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=1000"`
	Status      string `json:"status" validate:"required,oneof=Pending Done"`
	Severity    string `json:"severity" validate:"required,oneof=Low Medium High"`
	Order       int    `json:"order" validate:"min=0"`
}

func (h *Handler) ListMyLists(c *fiber.Ctx) error {
	userID, err := caller(c)
	if err != nil {
		return h.fail(c, err)
	}
	lists, err := h.todos.ListMine(c.UserContext(), userID)
	if err != nil {
		return h.fail(c, err)
	}
	return response.Success(c, fiber.StatusOK, "Lists retrieved successfully", lists)
}

func (h *Handler) ListPartnerLists(c *fiber.Ctx) error {
	userID, err := caller(c)
	if err != nil {
		return h.fail(c, err)
	}
	lists, err := h.todos.ListPartner(c.UserContext(), userID)
	if err != nil {
		return h.fail(c, err)
	}
	return response.Success(c, fiber.StatusOK, "Partner lists retrieved successfully", lists)
}

func (h *Handler) CreateList(c *fiber.Ctx) error {
	userID, err := caller(c)
	if err != nil {
		return h.fail(c, err)
	}
	var req listRequest
	if err := h.bind(c, &req); err != nil {
		return h.fail(c, err)
	}

	l, err := h.todos.CreateList(c.UserContext(), userID, req.input())
	if err != nil {
		return h.fail(c, err)
	}
	return response.Success(c, fiber.StatusCreated, "List created successfully", l)
}

func (h *Handler) UpdateList(c *fiber.Ctx) error {
	userID, err := caller(c)
	if err != nil {
		return h.fail(c, err)
	}
	listID, err := paramID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	var req listRequest
	if err := h.bind(c, &req); err != nil {
		return h.fail(c, err)
	}

	l, err := h.todos.UpdateList(c.UserContext(), userID, listID, req.input())
	if err != nil {
		return h.fail(c, err)
	}
	return response.Success(c, fiber.StatusOK, "List updated successfully", l)
}

func (h *Handler) DeleteList(c *fiber.Ctx) error {
	userID, err := caller(c)
	if err != nil {
		return h.fail(c, err)
	}
	listID, err := paramID(c, "id")
	if err != nil {
		return h.fail(c, err)
	}

	if err := h.todos.DeleteList(c.UserContext(), userID, listID); err != nil {
		return h.fail(c, err)
	}
	return response.Success(c, fiber.StatusOK, "List deleted successfully", nil)
}

func (h *Handler) ListItems(c *fiber.Ctx) error {
	userID, err := caller(c)
	if err != nil {
		return h.fail(c, err)
	}
	listID, err := paramID(c, "listId")
	if err != nil {
		return h.fail(c, err)
	}

	items, err := h.todos.ListItems(c.UserContext(), userID, listID)
	if err != nil {
		return h.fail(c, err)
	}
	return response.Success(c, fiber.StatusOK, "Items retrieved successfully", items)
}

func (h *Handler) CreateItem(c *fiber.Ctx) error {
	userID, err := caller(c)
	if err != nil {
		return h.fail(c, err)
	}
	listID, err := paramID(c, "listId")
	if err != nil {
		return h.fail(c, err)
	}
	var req createItemRequest
	if err := h.bind(c, &req); err != nil {
		return h.fail(c, err)
	}

	in := todo.ItemInput{Title: req.Title, Description: req.Description}
	if req.Severity != "" {
		sev, err := models.ParseSeverity(req.Severity)
		if err != nil {
			return h.fail(c, apperr.Wrap(apperr.InvalidFormat, "invalid severity", err))
		}
		in.Severity = &sev
	}

	item, err := h.todos.CreateItem(c.UserContext(), userID, listID, in)
	if err != nil {
		return h.fail(c, err)
	}
	return response.Success(c, fiber.StatusCreated, "Item created successfully", item)
}

func (h *Handler) UpdateItem(c *fiber.Ctx) error {
	userID, err := caller(c)
	if err != nil {
		return h.fail(c, err)
	}
	listID, err := paramID(c, "listId")
	if err != nil {
		return h.fail(c, err)
	}
	itemID, err := paramID(c, "itemId")
	if err != nil {
		return h.fail(c, err)
	}
	var req updateItemRequest
	if err := h.bind(c, &req); err != nil {
		return h.fail(c, err)
	}

	status, err := models.ParseStatus(req.Status)
	if err != nil {
		return h.fail(c, apperr.Wrap(apperr.InvalidFormat, "invalid status", err))
	}
	severity, err := models.ParseSeverity(req.Severity)
	if err != nil {
		return h.fail(c, apperr.Wrap(apperr.InvalidFormat, "invalid severity", err))
	}

	item, err := h.todos.UpdateItem(c.UserContext(), userID, listID, itemID, todo.ItemUpdate{
		Title:       req.Title,
		Description: req.Description,
		Status:      status,
		Severity:    severity,
		Order:       req.Order,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return response.Success(c, fiber.StatusOK, "Item updated successfully", item)
}

func (h *Handler) DeleteItem(c *fiber.Ctx) error {
	userID, err := caller(c)
	if err != nil {
		return h.fail(c, err)
	}
	listID, err := paramID(c, "listId")
	if err != nil {
		return h.fail(c, err)
	}
	itemID, err := paramID(c, "itemId")
	if err != nil {
		return h.fail(c, err)
	}

	if err := h.todos.DeleteItem(c.UserContext(), userID, listID, itemID); err != nil {
		return h.fail(c, err)
	}
	return response.Success(c, fiber.StatusOK, "Item deleted successfully", nil)
}
