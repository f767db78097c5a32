package repository

import (
	"context"
	"time"

	"storefront/backend/internal/catalog/domain"
)

// ProductRepository persists products and their stock movements.
// GetByID returns nil without error when the product does not exist. Update, Delete and AdjustStock
// return errs.ErrNotFound for a missing id.
type ProductRepository interface {
	// List returns every product, newest first.
	List(ctx context.Context) ([]*domain.Product, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	Create(ctx context.Context, p *domain.Product) error
	// Update applies patch at time at. The patched record is validated before it is committed.
	Update(ctx context.Context, id string, patch domain.ProductPatch, at time.Time) (*domain.Product, error)
	Delete(ctx context.Context, id string) error
	// AdjustStock adds entry.Change to the product's stock and records entry in the same write.
	// A change that would leave the stock negative fails with domain.ErrInsufficientStock.
	// entry.ProductName is filled from the product.
	AdjustStock(ctx context.Context, entry *domain.InventoryLog) (*domain.Product, error)
	// ListLogs returns stock movements, newest first. An empty productID lists all products.
	ListLogs(ctx context.Context, productID string) ([]*domain.InventoryLog, error)
}
