package handlers

import (
	"errors"
	"reflect"

	"github.com/go-playground/validator/v10"
)

// FieldErrors is the field-keyed error shape the auth endpoints return,
// e.g. {"email": ["This field is required."]}.
type FieldErrors map[string][]string

func (fe FieldErrors) Add(field, message string) {
	fe[field] = append(fe[field], message)
}

// FieldErrorsFrom converts a bind/validation error into the field-keyed
// map. Returns nil when the error carries no per-field detail, in which
// case callers fall back to a generic body.
func FieldErrorsFrom(err error, out interface{}) FieldErrors {
	var verrs validator.ValidationErrors

	if !errors.As(err, &verrs) {
		return nil
	}

	rootType := baseStructType(out)
	fe := make(FieldErrors, len(verrs))

	for _, v := range verrs {
		fe.Add(jsonFieldName(rootType, v.StructField()), fieldMessage(v))
	}

	return fe
}

func fieldMessage(v validator.FieldError) string {
	switch v.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "min":
		if v.Kind() == reflect.String {
			return "Ensure this field has at least " + v.Param() + " characters."
		}
		return "Ensure this value is at least " + v.Param() + "."
	case "max":
		if v.Kind() == reflect.String {
			return "Ensure this field has no more than " + v.Param() + " characters."
		}
		return "Ensure this value is at most " + v.Param() + "."
	case "len":
		return "Ensure this field has exactly " + v.Param() + " characters."
	case "numeric":
		return "Enter a number."
	default:
		return "This value is invalid."
	}
}
