package repository

import (
	"context"
	"time"

	"storefront/backend/internal/user/domain"
)

// Repository defines persistence for users. Emails are stored normalised and are unique.
type Repository interface {
	// GetByID returns the user for id, or nil if not found.
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// GetByEmail returns the user with the given normalised email, or nil if not found.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// List returns users newest first.
	List(ctx context.Context, limit, offset int32) ([]*domain.User, error)
	// Create persists u. A taken email is errs.ErrDuplicate.
	Create(ctx context.Context, u *domain.User) error
	// Update overwrites the mutable fields of u. A missing user is errs.ErrNotFound.
	Update(ctx context.Context, u *domain.User) error
	// SetLastLogin records a successful login.
	SetLastLogin(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error
}
