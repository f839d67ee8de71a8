package types

import "time"

// User represents an account in the system.
// It contains identity, capability, and audit metadata.
type User struct {
	// ID is the unique identifier of the user (UUIDv4).
	ID string `json:"id" db:"id"`

	// Username is the unique login name chosen by the user.
	// Uniqueness is case-insensitive; it is stored lowercased.
	Username string `json:"username" db:"username"`

	// Email is the user's email address, unique under case-insensitive comparison.
	Email string `json:"email" db:"email"`

	// PasswordHash stores the hashed representation of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password"`

	// Features is the set of capabilities the user holds, e.g. "edit:user".
	Features []string `json:"features" db:"features"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// HasFeature reports whether the user holds the given feature.
func (u User) HasFeature(feature string) bool {
	for _, f := range u.Features {
		if f == feature {
			return true
		}
	}
	return false
}

// UserPatch carries the fields of a partial profile update.
// Nil fields are left untouched.
type UserPatch struct {
	Username *string `json:"username,omitempty"`
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
}
