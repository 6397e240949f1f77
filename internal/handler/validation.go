package handler

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apierrors "github.com/keyfold/keyfold/internal/pkg/errors"
)

// newValidator builds a validator that reports fields by their json names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationError converts validator failures into the API error shape.
func validationError(err error) *apierrors.APIError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = failureMessage(fe)
		}
		return apierrors.NewValidationErrors(fields)
	}
	return apierrors.ErrBadRequest
}

func failureMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "max":
		return "must not exceed " + fe.Param() + " characters"
	case "uuid":
		return "invalid UUID format"
	default:
		return "failed " + fe.Tag() + " validation"
	}
}
