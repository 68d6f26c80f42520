// Package domain holds what the entity packages share: caller-side
// validation errors and the set of controllers a service refreshes after a
// successful mutation.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError reports a request rejected before any network call.
type ValidationError struct {
	Field string
	Msg   string
	Err   error
}

func (e ValidationError) Error() string {
	if e.Msg != "" && e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Field != "" {
		return fmt.Sprintf("invalid %s", e.Field)
	}
	return "validation error"
}

func (e ValidationError) Unwrap() error { return e.Err }

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}

// Field pairs a JSON field name with its value for Require.
type Field struct {
	Name  string
	Value string
}

// Require returns a ValidationError naming the first blank field, in order.
func Require(fields ...Field) error {
	for _, f := range fields {
		if strings.TrimSpace(f.Value) == "" {
			return ValidationError{Field: f.Name, Msg: "is required"}
		}
	}
	return nil
}

// OneOf rejects a non-empty value outside allowed. Empty values pass; pair
// with Require when the field is mandatory.
func OneOf(name, value string, allowed ...string) error {
	if value == "" {
		return nil
	}
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return ValidationError{
		Field: name,
		Msg:   fmt.Sprintf("must be one of %s", strings.Join(allowed, ", ")),
	}
}
