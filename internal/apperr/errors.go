// Package apperr defines the error taxonomy shared by the store and its surfaces.
package apperr

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by the HTTP and MCP surfaces when a recipe id is absent.
var ErrNotFound = errors.New("not found")

// Kind names a class of malformed user input.
type Kind string

// Validation kinds.
const (
	KindEmptyName     Kind = "empty-name"
	KindNoIngredients Kind = "no-ingredients"
	KindMissingFields Kind = "missing-fields"
	KindInvalidAmount Kind = "invalid-amount"
)

// ValidationError reports malformed input on a mutating operation.
// The operation that returned it left the store untouched.
type ValidationError struct {
	Kind   Kind
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("validation: %s", e.Kind)
	}
	return fmt.Sprintf("validation: %s: %s", e.Kind, e.Detail)
}

// Invalid builds a ValidationError of the given kind.
func Invalid(kind Kind, detail string) error {
	return &ValidationError{Kind: kind, Detail: detail}
}

// IsValidation reports whether err is a ValidationError of the given kind.
// An empty kind matches any ValidationError.
func IsValidation(err error, kind Kind) bool {
	var ve *ValidationError
	if !errors.As(err, &ve) {
		return false
	}
	return kind == "" || ve.Kind == kind
}
