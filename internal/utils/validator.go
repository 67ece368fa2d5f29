// internal/utils/validator.go
package utils

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

var accountEmailPattern = regexp.MustCompile(`^[A-Za-z0-9+_.-]+@(.+)$`)

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	validate.RegisterValidation("account_email", validateAccountEmail)
	validate.RegisterValidation("no_blank", validateNoBlank)
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

// IsAccountEmail reports whether s has the local-part@domain shape accepted
// for user keys.
func IsAccountEmail(s string) bool {
	return accountEmailPattern.MatchString(s)
}

func validateAccountEmail(fl validator.FieldLevel) bool {
	return IsAccountEmail(fl.Field().String())
}

func validateNoBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// Validation tags for common fields
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

func GetValidationErrors(err error) []ValidationError {
	var validationErrors []ValidationError

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		for _, e := range validationErrs {
			validationErrors = append(validationErrors, ValidationError{
				Field:   strings.ToLower(e.Field()),
				Tag:     e.Tag(),
				Message: getValidationMessage(e),
			})
		}
	}

	return validationErrors
}

func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return e.Field() + " is required"
	case "account_email":
		return "Invalid email format"
	case "min":
		if e.Kind() == reflect.Slice {
			return e.Field() + " must contain at least " + e.Param() + " item(s)"
		}
		return e.Field() + " must be at least " + e.Param()
	case "max":
		if e.Kind() == reflect.String {
			return e.Field() + " must be at most " + e.Param() + " characters"
		}
		return e.Field() + " must be at most " + e.Param()
	case "gte":
		return e.Field() + " must be at least " + e.Param()
	case "lte":
		return e.Field() + " must be at most " + e.Param()
	case "no_blank":
		return e.Field() + " must not be blank"
	default:
		return e.Field() + " is invalid"
	}
}
