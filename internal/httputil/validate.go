package httputil

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator checks request DTOs against their `validate` struct tags and
// reports fields by their JSON names
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{validate: validate}
}

// Validate returns nil or an error listing every failed field
func (v *Validator) Validate(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	msgs := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		msgs = append(msgs, fieldMessage(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	case "uuid":
		return fmt.Sprintf("%s must be a valid UUID", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

// DecodeAndValidate decodes the request body into out and validates it.
// On failure it writes a 400 response and returns false.
func (v *Validator) DecodeAndValidate(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := DecodeJSON(w, r, out); err != nil {
		RespondErrorWithCode(w, "invalid request body", CodeInvalidRequestBody, http.StatusBadRequest)
		return false
	}
	if err := v.Validate(out); err != nil {
		RespondErrorWithCode(w, err.Error(), CodeValidationFailed, http.StatusBadRequest)
		return false
	}
	return true
}
