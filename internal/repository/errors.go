// Package repository implements raw-SQL data access for the store's
// tables.  Sentinel errors defined here let services and handlers branch
// on failure kinds without inspecting driver errors: duplicate-key
// violations in particular are mapped to typed errors so callers can
// recover them (the review path turns one into an update instead of a
// failure).
package repository

import (
	"errors"
	"strings"
)

// ErrDuplicateEmail is returned when a user insert collides with the
// unique index on users.email.
var ErrDuplicateEmail = errors.New("email already exists")

// ErrDuplicateReview is returned when a review insert collides with the
// unique index on (user_id, product_id).  It is the signal the review
// conflict handler converts into an update-in-place.
var ErrDuplicateReview = errors.New("review already exists")

// isDuplicate reports whether err is a MySQL duplicate-entry error (1062).
func isDuplicate(err error) bool {
	return err != nil && strings.Contains(err.Error(), "1062")
}
