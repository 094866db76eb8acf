package lib

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report json names so clients can map errors onto their form fields
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate runs struct validation outside of request decoding, e.g. for form posts
func Validate(v any) error {
	if err := validate.Struct(v); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			return mapValidationErrors(ve)
		}
		return err
	}
	return nil
}

var (
	ErrEmptyBody     = errors.New("request body is empty")
	ErrMalformedBody = errors.New("malformed request body")
)

// FieldError represents a clean validation error for APIs
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is a structured validation error
type ValidationError struct {
	Errors []FieldError `json:"errors"`
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

// ExtractAndValidateBody extracts and validates the request body into the provided struct type T
func ExtractAndValidateBody[T any](r *http.Request) (*T, error) {
	defer r.Body.Close()

	var body T

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&body); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyBody
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}

	if err := Validate(body); err != nil {
		return nil, err
	}

	return &body, nil
}

var tagMessages = map[string]string{
	"required": "is required",
	"email":    "must be a valid email address",
	"url":      "must be a valid URL",
	"uuid4":    "must be a valid UUID",
	"numeric":  "must contain only digits",
	"gte":      "must be greater than or equal to %s",
	"lte":      "must be less than or equal to %s",
	"oneof":    "must be one of: %s",
}

// messageFor phrases a failed tag for clients. Length tags read as a
// character count on strings and as a bound on numbers.
func messageFor(e validator.FieldError) string {
	switch e.Tag() {
	case "min", "max", "len":
		bound := map[string]string{"min": "at least", "max": "at most", "len": "exactly"}[e.Tag()]
		switch e.Kind() {
		case reflect.String:
			return fmt.Sprintf("must be %s %s characters", bound, e.Param())
		case reflect.Slice, reflect.Map, reflect.Array:
			return fmt.Sprintf("must contain %s %s items", bound, e.Param())
		default:
			return fmt.Sprintf("must be %s %s", bound, e.Param())
		}
	}
	if msg, ok := tagMessages[e.Tag()]; ok {
		if strings.Contains(msg, "%s") {
			return fmt.Sprintf(msg, e.Param())
		}
		return msg
	}
	return "is invalid"
}

func mapValidationErrors(errs validator.ValidationErrors) *ValidationError {
	out := &ValidationError{Errors: make([]FieldError, 0, len(errs))}
	for _, e := range errs {
		out.Errors = append(out.Errors, FieldError{Field: e.Field(), Message: messageFor(e)})
	}
	return out
}
