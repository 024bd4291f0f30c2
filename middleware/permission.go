package middleware

import (
	"github.com/gofiber/fiber/v2"
)

// Roles carried in local tokens.
const (
	RoleLearner = "LEARNER"
	RoleAuthor  = "AUTHOR"
)

// RequireRole returns a middleware that lets through only callers whose
// token carries one of roles. Mount after AuthGate.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, ok := c.Locals("role").(string)
		if !ok || UserID(c) == "" {
			return JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized: User ID not found", nil)
		}
		for _, r := range roles {
			if r == role {
				return c.Next()
			}
		}
		return JsonResponse(c, fiber.StatusForbidden, false, "You do not have permission to access this resource!", nil)
	}
}
