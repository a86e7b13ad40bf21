// Package service implements the business rules behind the API: the
// session rotation state machine and the review conflict handler.
// Services depend on small store interfaces rather than concrete
// repositories so the rules are testable without a live database.
package service

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a referenced user, product, category or
// review does not exist (or is soft-deleted).
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when the review write could not be reconciled
// after the bounded retry.
var ErrConflict = errors.New("conflict")

// ErrForbidden is returned when the caller is not allowed to touch the
// resource (e.g. another seller's product).
var ErrForbidden = errors.New("forbidden")

// ErrInvalidCredentials is returned on login with a wrong email/password
// or against a deactivated account.  The two cases are deliberately not
// distinguishable to the caller.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ValidationError reports malformed input on a single field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s %s", e.Field, e.Message)
}
