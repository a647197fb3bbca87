package web

import (
	"github.com/go-playground/validator/v10"
	"github.com/ryxhub/flowengine/pkg/schedule"
)

// NewValidator returns the request validator with the "schedule" tag registered.
func NewValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())

	err := validate.RegisterValidation("schedule", func(fl validator.FieldLevel) bool {
		return schedule.Validate(fl.Field().String()) == nil
	})
	if err != nil {
		panic(err)
	}

	return validate
}
