package repository

import (
	"context"
	"time"

	"storefront/backend/internal/currency/domain"
)

// Repository persists currencies and keeps at most one base currency. Codes are unique:
// a second currency with the same code is errs.ErrDuplicate. Get methods return nil without error when
// nothing matches; Update and Delete return errs.ErrNotFound for a missing id.
type Repository interface {
	List(ctx context.Context) ([]*domain.Currency, error)
	GetByID(ctx context.Context, id string) (*domain.Currency, error)
	GetByCode(ctx context.Context, code string) (*domain.Currency, error)
	GetBase(ctx context.Context) (*domain.Currency, error)
	// Create stores c and returns the ids whose base flag was cleared.
	Create(ctx context.Context, c *domain.Currency) ([]string, error)
	// Update applies patch at time at, validating the result.
	Update(ctx context.Context, id string, patch domain.Patch, at time.Time) (*domain.Currency, []string, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}
