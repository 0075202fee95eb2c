package service

import (
	"errors"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var emailPattern = regexp.MustCompile(`^[^@]+@[^@]+\.[^@]+`)

// fieldMessages maps "Field.tag" of a failed rule to the message returned to the client.
type fieldMessages map[string]string

var (
	signupMessages = fieldMessages{
		"Name.required":     "Name cannot be left blank",
		"Email.required":    "Email is not valid",
		"Email.basicemail":  "Email is not valid",
		"Password.required": "Password cannot be left blank",
	}

	loginMessages = fieldMessages{
		"Email.required":    "Email is not valid",
		"Email.basicemail":  "Email is not valid",
		"Password.required": "Password cannot be left blank",
	}

	contactMessages = fieldMessages{
		"Name.required":  "Name is required",
		"Phone.required": "Phone is required",
	}
)

func newValidator() *validator.Validate {
	validate := validator.New()
	_ = validate.RegisterValidation("basicemail", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})

	return validate
}

// validateRequest runs the struct rules and turns the first failure
// (in field declaration order) into a validation error.
func (s *Service) validateRequest(request any, messages fieldMessages) error {
	err := s.validate.Struct(request)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) || len(validationErrors) == 0 {
		return err
	}

	first := validationErrors[0]
	if message, ok := messages[first.Field()+"."+first.Tag()]; ok {
		return validationError(message)
	}
	if first.Tag() == "max" {
		return validationError(first.Field() + " is too long")
	}

	return validationError(first.Field() + " is not valid")
}
