package userValidator

import (
	"github.com/gofiber/fiber/v2"

	"prolific/middleware"
	"prolific/validators"
)

// PreferencesRequest replaces the learner's preferences; omitted fields
// keep their stored value.
type PreferencesRequest struct {
	DailyGoal        *int  `json:"daily_goal" validate:"omitempty,gte=1,lte=20"`
	RemindersEnabled *bool `json:"reminders_enabled"`
	ReminderHour     *int  `json:"reminder_hour" validate:"omitempty,gte=0,lte=23"`
	SoundEnabled     *bool `json:"sound_enabled"`
}

func UpdatePreferences() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(PreferencesRequest)
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}
		if errors := validators.Struct(reqData); errors != nil {
			return middleware.ValidationErrorResponse(c, errors)
		}
		c.Locals("validatedPreferences", reqData)
		return c.Next()
	}
}
