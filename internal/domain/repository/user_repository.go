package repository

import (
	"context"
	"errors"
	"time"

	"github.com/techblog/backend/internal/domain/entity"
)

// ErrNotFound is returned by lookups when no row matches; absence is a
// distinct outcome, never a panic or a generic failure.
var ErrNotFound = errors.New("not found")

// ErrDuplicateEmail is returned by Create when the email is already taken.
var ErrDuplicateEmail = errors.New("email already exists")

// ListFilter narrows and pages the admin account listing.
type ListFilter struct {
	Search string
	Page   int
	Limit  int
}

// UserRepository defines the persistence operations for accounts.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	Update(ctx context.Context, u *entity.User) error
	Delete(ctx context.Context, id string) error

	// List returns a page of accounts plus the total match count.
	List(ctx context.Context, f ListFilter) ([]*entity.User, int, error)

	// CountPrivileged counts accounts whose role is admin or superadmin.
	CountPrivileged(ctx context.Context) (int, error)

	// SetResetCode stores the hashed recovery code and its expiry on the account.
	SetResetCode(ctx context.Context, id, codeHash string, expiresAt time.Time) error

	// ConsumeResetCode atomically replaces the password hash and clears both
	// reset fields, but only if the stored code hash still matches and has not
	// expired at now. Returns false when the guard did not hold, so concurrent
	// resets against the same pending code cannot both succeed.
	ConsumeResetCode(ctx context.Context, id, codeHash, newPasswordHash string, now time.Time) (bool, error)
}

// ContentRepository is the collaborator that owns blog posts and comments.
// The identity core only needs it for cascading account deletion.
type ContentRepository interface {
	DeleteByAuthor(ctx context.Context, userID string) error
}
