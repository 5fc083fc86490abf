// Package validator adapts go-playground/validator to echo and to the domain error model.
package validator

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	domainerrors "lavra/internal/domain/errors"
	"lavra/internal/errors"

	playground "github.com/go-playground/validator/v10"
)

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Validator checks resolver inputs against their validate tags.
type Validator struct {
	validate *playground.Validate
}

// New creates a validator that reports fields by their json name.
func New() *Validator {
	validate := playground.New(playground.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}

		return name
	})
	// bcrypt only reads the first 72 bytes, and max counts runes.
	_ = validate.RegisterValidation("maxbytes", maxBytes)

	return &Validator{validate: validate}
}

func maxBytes(fl playground.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}

	return len(fl.Field().String()) <= limit
}

// Validate checks a struct and returns ErrValidationFailed with per-field details.
func (v *Validator) Validate(i any) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	var validationErrs playground.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return errors.Wrap(err, "validation failed")
	}

	fields := FieldErrors(validationErrs)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f.Message)
	}

	return domainerrors.ErrValidationFailed.WithDetails(strings.Join(parts, "; "))
}

// FieldErrors converts validator errors into FieldErrors.
func FieldErrors(errs playground.ValidationErrors) []FieldError {
	fields := make([]FieldError, 0, len(errs))
	for _, fe := range errs {
		fields = append(fields, FieldError{
			Field:   fe.Field(),
			Rule:    fe.Tag(),
			Message: message(fe),
		})
	}

	return fields
}

func message(fe playground.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "maxbytes":
		return fmt.Sprintf("%s must be at most %s bytes", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}
