package v1

import (
	"github.com/gofiber/fiber/v2"

	"to-dogether/internal/api/v1/handlers"
	"to-dogether/internal/config"
	"to-dogether/internal/middleware"
)

func RegisterRoutes(app *fiber.App, deps *config.Dependencies) {
	h := handlers.New(deps)
	useToken := middleware.UseToken(deps.Auth, deps.Log)

	api := app.Group("/api/v1")
	api.Get("/health", h.Health)

	// Auth
	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", h.Register)
	authRoutes.Post("/login", h.Login)
	authRoutes.Post("/refresh", h.Refresh)
	authRoutes.Post("/logout", h.Logout)

	// User
	userRoutes := api.Group("/users", useToken)
	userRoutes.Get("/me", h.Me)
	userRoutes.Put("/profile", h.UpdateProfile)

	// Todo lists and their items
	listRoutes := api.Group("/todolists", useToken)
	listRoutes.Get("/", h.ListMyLists)
	listRoutes.Get("/partner", h.ListPartnerLists)
	listRoutes.Post("/", h.CreateList)
	listRoutes.Put("/:id", h.UpdateList)
	listRoutes.Delete("/:id", h.DeleteList)
	listRoutes.Get("/:listId/items", h.ListItems)
	listRoutes.Post("/:listId/items", h.CreateItem)
	listRoutes.Put("/:listId/items/:itemId", h.UpdateItem)
	listRoutes.Delete("/:listId/items/:itemId", h.DeleteItem)

	// Couple views
	api.Get("/partner/overview", useToken, h.PartnerOverview)
	api.Get("/dashboard/stats", useToken, h.DashboardStats)
	api.Get("/activities/recent", useToken, h.RecentActivities)
}
