package store

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when a record does not exist or, for
	// conditional updates, when the predicate matched no row.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateUsername and ErrDuplicateEmail are returned when a write
	// violates the case-insensitive unique indexes on users.
	ErrDuplicateUsername = errors.New("duplicate username")
	ErrDuplicateEmail    = errors.New("duplicate email")
)

const uniqueViolation = "23505"

// translateUserWriteErr maps unique violations on users to sentinel errors.
func translateUserWriteErr(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
		return err
	}
	switch pqErr.Constraint {
	case "users_username_lower_key":
		return ErrDuplicateUsername
	case "users_email_lower_key":
		return ErrDuplicateEmail
	default:
		return err
	}
}
