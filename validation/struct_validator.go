package validation

import (
	"net/url"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/kbukum/rtdbkit/errors"
)

var (
	validate *validator.Validate
	once     sync.Once
)

// FieldError represents a validation error for a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// getValidator returns the singleton validator instance.
func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// Use mapstructure tag names so messages match config keys
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
			if name == "-" || name == "" {
				return toSnakeCase(fld.Name)
			}
			return name
		})
		_ = validate.RegisterValidation("endpoint", func(fl validator.FieldLevel) bool {
			return checkEndpoint(fl.Field().String()) == ""
		})
	})
	return validate
}

// Validate validates a struct using struct tags.
func Validate(s any) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.Validation("validation failed").WithCause(err)
	}

	fieldErrors := make([]FieldError, 0, len(validationErrors))
	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		fieldName := e.Field()
		message := formatValidationError(e)
		fieldErrors = append(fieldErrors, FieldError{Field: fieldName, Message: message})
		messages = append(messages, fieldName+": "+message)
	}

	return errors.Validation(strings.Join(messages, "; ")).WithDetail("fields", fieldErrors)
}

// Endpoint checks that raw is an absolute http(s) URL with a host.
func Endpoint(field, raw string) error {
	if strings.TrimSpace(raw) == "" {
		return errors.MissingField(field)
	}
	if reason := checkEndpoint(raw); reason != "" {
		return errors.InvalidInput(field, reason).WithDetail("value", raw)
	}
	return nil
}

func checkEndpoint(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "malformed URL: " + err.Error()
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "scheme must be http or https"
	}
	if u.Host == "" {
		return "URL must include a host"
	}
	return ""
}

// formatValidationError creates a human-readable error message.
func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "endpoint":
		return "must be an absolute http or https URL"
	case "url":
		return "must be a valid URL"
	case "gte":
		return "must be at least " + e.Param()
	case "lte":
		return "must be at most " + e.Param()
	case "oneof":
		return "must be one of: " + e.Param()
	default:
		return "is invalid"
	}
}

// toSnakeCase converts a field name to snake_case.
func toSnakeCase(s string) string {
	var result strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			result.WriteRune('_')
		}
		if r >= 'A' && r <= 'Z' {
			result.WriteRune(r + 32)
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}
