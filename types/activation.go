package types

import "time"

// ActivationToken is a one-time credential mailed to a user at signup.
// Its ID is the value embedded in the activation link.
type ActivationToken struct {
	ID     string `json:"id" db:"id"`
	UserID string `json:"user_id" db:"user_id"`

	// UsedAt is set exactly once, when the token is consumed.
	UsedAt *time.Time `json:"used_at" db:"used_at"`

	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsValid reports whether the token can still be consumed at now.
func (t ActivationToken) IsValid(now time.Time) bool {
	return t.UsedAt == nil && t.ExpiresAt.After(now)
}
