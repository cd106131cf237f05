package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is safe for concurrent use and caches struct metadata, so a
// single package-level instance is the recommended setup.
var validate = validator.New()

// SignupInput is the validation schema for the signup flow.
type SignupInput struct {
	Username string `validate:"required,alphanum,min=3,max=20"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6,max=20"`
}

// LoginInput is the validation schema for the login flow. Only the email
// shape is checked; the password is verified against the stored digest,
// never against a shape rule.
type LoginInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// FieldError describes one failing field.
type FieldError struct {
	Field   string
	Message string
}

// FieldErrors aggregates every failing field of a schema check.
type FieldErrors []FieldError

func (e FieldErrors) Error() string {
	return strings.Join(e.Messages(), ", ")
}

// Messages returns the per-field messages in declaration order.
func (e FieldErrors) Messages() []string {
	out := make([]string, 0, len(e))
	for _, fe := range e {
		out = append(out, fe.Message)
	}
	return out
}

// ValidateStruct runs the schema tags on v and converts failures into
// FieldErrors. It returns nil when every field passes. Validation is pure
// and must run before any storage access.
func ValidateStruct(v interface{}) FieldErrors {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return FieldErrors{{Field: "", Message: "invalid input"}}
	}
	out := make(FieldErrors, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		out = append(out, FieldError{Field: field, Message: fieldMessage(field, fe)})
	}
	return out
}

func fieldMessage(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "alphanum":
		return field + " must contain only letters and numbers"
	case "email":
		return field + " must be a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	default:
		return field + " is invalid"
	}
}

// ErrNotScalar marks input that arrived as something other than a single
// plain string, e.g. a repeated query parameter standing in for a
// structural operator.
var ErrNotScalar = errors.New("value is not a plain string")

// ValidateLookup checks a raw query value before it may be used in a
// store lookup. The value must be exactly one plain string of sane
// length; anything else is rejected here so it never reaches a query.
func ValidateLookup(values []string) (string, error) {
	if len(values) != 1 {
		return "", ErrNotScalar
	}
	v := values[0]
	if err := validate.Var(v, "required,max=20"); err != nil {
		return "", fmt.Errorf("lookup value out of policy: %w", err)
	}
	return v, nil
}
