package userRoutes

import (
	"github.com/gofiber/fiber/v2"

	"prolific/controllers/userControllers"
	"prolific/validators/userValidator"
)

func SetupUserRoutes(app *fiber.App, h *userControllers.Controller, gate fiber.Handler) {
	userGroup := app.Group("/user", gate)

	userGroup.Get("/preferences", h.GetPreferences)
	userGroup.Put("/preferences", userValidator.UpdatePreferences(), h.UpdatePreferences)
}
