package middleware

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"rcslicense/internal/document"
)

// Validator validates request DTOs using struct tags.
type Validator struct {
	validator *validator.Validate
}

// NewValidator creates a validator that reports fields by their JSON names
// and knows the license-specific tags:
//
//	licversion  dotted-numeric license version, e.g. 9.6
//	isodate     YYYY-MM-DD calendar date
func NewValidator() *Validator {
	v := validator.New()

	v.RegisterValidation("licversion", isLicenseVersion)
	v.RegisterValidation("isodate", isISODate)

	// Use JSON tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{validator: v}
}

// ValidateStruct validates s and returns a message per invalid field, or
// nil when s is valid.
func (m *Validator) ValidateStruct(s any) (map[string]string, error) {
	err := m.validator.Struct(s)
	if err == nil {
		return nil, nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, err
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = formatValidationError(fe)
	}
	return fields, nil
}

// formatValidationError formats validation error messages
func formatValidationError(err validator.FieldError) string {
	field := err.Field()
	param := err.Param()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "licversion":
		return fmt.Sprintf("%s must be a dotted numeric version such as 9.6", field)
	case "isodate":
		return fmt.Sprintf("%s must be a date in YYYY-MM-DD format", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}

func isLicenseVersion(fl validator.FieldLevel) bool {
	_, err := document.ParseVersion(fl.Field().String())
	return err == nil
}

func isISODate(fl validator.FieldLevel) bool {
	_, err := time.Parse("2006-01-02", fl.Field().String())
	return err == nil
}
