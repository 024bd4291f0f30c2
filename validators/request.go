// Package validators holds the shared request checking used by the
// per-route validator middlewares.
package validators

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New()
	// report fields by their json names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Struct validates v by its `validate` tags and returns one message per
// failing field, or nil.
func Struct(v interface{}) map[string]string {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"request": err.Error()}
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = message(fe)
	}
	return out
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required!"
	case "email":
		return "Invalid email!"
	case "min":
		return field + " must be at least " + fe.Param() + " characters long!"
	case "max":
		return field + " must be at most " + fe.Param() + " characters long!"
	case "gte":
		return field + " must be at least " + fe.Param() + "!"
	case "lte":
		return field + " must be at most " + fe.Param() + "!"
	}
	return field + " is invalid!"
}

// PathIDs checks that each named route parameter is present and stores it
// in c.Locals under the same name.
func PathIDs(names ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		errs := map[string]string{}
		for _, name := range names {
			v := strings.TrimSpace(c.Params(name))
			if v == "" || len(v) > 64 {
				errs[name] = name + " is invalid!"
				continue
			}
			// params point into the request buffer
			c.Locals(name, utils.CopyString(v))
		}
		if len(errs) > 0 {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"status":  false,
				"message": "Validation failed!",
				"data":    errs,
			})
		}
		return c.Next()
	}
}
