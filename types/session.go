package types

import "time"

// Session is a bearer credential issued on login.
// Sessions are never deleted; logging out moves ExpiresAt into the past.
type Session struct {
	// ID is the unique identifier of the session (UUIDv4).
	ID string `json:"id" db:"id"`

	// Token is the opaque, high-entropy value presented by the client
	// in the session_id cookie.
	Token string `json:"token" db:"token"`

	// UserID references the owning user.
	UserID string `json:"user_id" db:"user_id"`

	// ExpiresAt is the instant after which the session is no longer valid.
	// A session expiring exactly now is already invalid.
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
