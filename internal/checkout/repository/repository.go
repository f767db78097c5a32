package repository

import (
	"context"
	"time"

	"storefront/backend/internal/checkout/domain"
)

// AddressRepository persists addresses and keeps at most one default per user and overlapping type.
// Get methods return nil without error when nothing matches. Update and Delete return
// errs.ErrNotFound for a missing id. Create and Update return the ids whose default flag was cleared.
type AddressRepository interface {
	ListByUser(ctx context.Context, userID string) ([]*domain.Address, error)
	GetByID(ctx context.Context, id string) (*domain.Address, error)
	// GetDefault returns the user's default address usable as t. AddressBoth matches any default.
	GetDefault(ctx context.Context, userID string, t domain.AddressType) (*domain.Address, error)
	Create(ctx context.Context, a *domain.Address) ([]string, error)
	// Update applies patch at time at. The patched record is validated before it is committed.
	Update(ctx context.Context, id string, patch domain.AddressPatch, at time.Time) (*domain.Address, []string, error)
	Delete(ctx context.Context, id string) error
}

// PaymentMethodRepository persists payment methods and keeps at most one default per user.
// Same conventions as AddressRepository.
type PaymentMethodRepository interface {
	ListByUser(ctx context.Context, userID string) ([]*domain.PaymentMethod, error)
	GetByID(ctx context.Context, id string) (*domain.PaymentMethod, error)
	GetDefault(ctx context.Context, userID string) (*domain.PaymentMethod, error)
	Create(ctx context.Context, p *domain.PaymentMethod) ([]string, error)
	Update(ctx context.Context, id string, patch domain.PaymentMethodPatch, at time.Time) (*domain.PaymentMethod, []string, error)
	Delete(ctx context.Context, id string) error
}
