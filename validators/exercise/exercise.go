package exerciseValidator

import (
	"github.com/gofiber/fiber/v2"

	"prolific/middleware"
	"prolific/validators"
)

// AnswerRequest is compared with the correct answer as typed; surrounding
// whitespace is kept.
type AnswerRequest struct {
	Answer string `json:"answer" validate:"required,max=500"`
}

type CompleteRequest struct {
	Score *int `json:"score" validate:"required,gte=0,lte=100"`
}

func Answer() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(AnswerRequest)
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}
		if errors := validators.Struct(reqData); errors != nil {
			return middleware.ValidationErrorResponse(c, errors)
		}
		c.Locals("validatedAnswer", reqData)
		return c.Next()
	}
}

func Complete() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(CompleteRequest)
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}
		if errors := validators.Struct(reqData); errors != nil {
			return middleware.ValidationErrorResponse(c, errors)
		}
		c.Locals("validatedCompletion", reqData)
		return c.Next()
	}
}
