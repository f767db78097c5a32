package repository

import (
	"context"
	"time"

	"storefront/backend/internal/order/domain"
)

// OrderRepository persists orders with their lines.
// GetByID returns nil without error when the order does not exist.
type OrderRepository interface {
	Create(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	// ListByUser returns the user's orders, newest first.
	ListByUser(ctx context.Context, userID string) ([]*domain.Order, error)
	// List returns every order in status, newest first. An empty status lists all orders.
	List(ctx context.Context, status domain.Status) ([]*domain.Order, error)
	// UpdateStatus moves the order to change.Status at time at, returning the updated order and the
	// status it left. A move the lifecycle forbids fails with an errs.ErrConflict error and a missing
	// id with errs.ErrNotFound.
	UpdateStatus(ctx context.Context, id string, change domain.StatusChange, at time.Time) (*domain.Order, domain.Status, error)
}

// CartRepository persists one cart per user. Get returns an empty cart when the user has none.
type CartRepository interface {
	Get(ctx context.Context, userID string) (*domain.Cart, error)
	Save(ctx context.Context, c *domain.Cart) error
	Delete(ctx context.Context, userID string) error
}
