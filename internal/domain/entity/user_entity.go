package entity

import (
	"time"
)

// User is the aggregate root for the identity domain.
// Password holds the bcrypt hash, never the plaintext.
// ResetPasswordCode holds a sha256 hex of the recovery code; it and
// ResetPasswordExpiresAt are either both nil or both set.
type User struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
	Password  string
	Role      Role
	IsActive  bool

	Bio        string
	Occupation string
	PhotoURL   string
	Instagram  string
	LinkedIn   string
	GitHub     string
	Facebook   string

	ResetPasswordCode      *string
	ResetPasswordExpiresAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasPendingReset reports whether a recovery code is stored and not yet expired at now.
func (u *User) HasPendingReset(now time.Time) bool {
	return u.ResetPasswordCode != nil && u.ResetPasswordExpiresAt != nil && now.Before(*u.ResetPasswordExpiresAt)
}
