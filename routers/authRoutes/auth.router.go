package authRoutes

import (
	"github.com/gofiber/fiber/v2"

	authController "prolific/controllers/auth"
	authValidator "prolific/validators/auth"
)

// SetupAuthRoutes mounts the auth endpoints. Signup, login and login
// history are only served for local accounts.
func SetupAuthRoutes(app *fiber.App, h *authController.Controller, gate fiber.Handler, local bool) {
	authGroup := app.Group("/auth")

	if local {
		authGroup.Post("/signup", authValidator.Signup(), h.Signup)
		authGroup.Post("/login", authValidator.Login(), h.Login)
		authGroup.Get("/login/history", gate, authValidator.LoginHistoryList(), h.LoginHistoryList)
	}
	authGroup.Post("/logout", gate, h.Logout)
}
