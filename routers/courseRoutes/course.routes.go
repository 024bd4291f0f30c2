package courseRoutes

import (
	"github.com/gofiber/fiber/v2"

	courseController "prolific/controllers/course"
	exerciseController "prolific/controllers/exercise"
	"prolific/middleware"
	"prolific/validators"
	exerciseValidator "prolific/validators/exercise"
)

// SetupCourseRoutes mounts catalog browsing, course progress and the
// exercise session endpoints. Every route requires a signed-in learner.
func SetupCourseRoutes(app *fiber.App, courses *courseController.Controller, exercises *exerciseController.Controller, gate fiber.Handler) {
	topicGroup := app.Group("/topics", gate)
	topicGroup.Get("/", courses.ListTopics)
	topicGroup.Get("/:topic_id/courses", validators.PathIDs("topic_id"), courses.ListCourses)

	courseGroup := app.Group("/course", gate)
	courseGroup.Get("/:course_id/progress", validators.PathIDs("course_id"), courses.CourseProgress)

	exerciseGroup := app.Group("/exercise", gate)
	exerciseGroup.Get("/:exercise_id/steps", validators.PathIDs("exercise_id"), exercises.Steps)
	exerciseGroup.Post("/:exercise_id/start", validators.PathIDs("exercise_id"), exercises.Start)
	exerciseGroup.Post("/:exercise_id/answer", validators.PathIDs("exercise_id"), exerciseValidator.Answer(), exercises.Answer)
	exerciseGroup.Post("/:exercise_id/continue", validators.PathIDs("exercise_id"), exercises.Continue)
	exerciseGroup.Post("/:exercise_id/complete", validators.PathIDs("exercise_id"), exerciseValidator.Complete(), exercises.Complete)
}

// SetupAdminCourseRoutes mounts the author-only catalog import.
func SetupAdminCourseRoutes(app *fiber.App, h *courseController.AdminController, gate fiber.Handler) {
	adminGroup := app.Group("/admin/content", gate, middleware.RequireRole(middleware.RoleAuthor))
	adminGroup.Post("/import", h.ImportCatalog)
}
