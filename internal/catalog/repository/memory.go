package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"storefront/backend/internal/catalog/domain"
	"storefront/backend/internal/platform/errs"
)

// MemoryProductRepository is a ProductRepository held in memory.
type MemoryProductRepository struct {
	mu       sync.RWMutex
	products map[string]domain.Product
	logs     []domain.InventoryLog
}

// NewMemoryProductRepository returns an empty in-memory product repository.
func NewMemoryProductRepository() *MemoryProductRepository {
	return &MemoryProductRepository{products: make(map[string]domain.Product)}
}

func clone(p domain.Product) *domain.Product {
	p.ImageURIs = append([]string(nil), p.ImageURIs...)
	if p.AvailableDate != nil {
		d := *p.AvailableDate
		p.AvailableDate = &d
	}
	return &p
}

func (r *MemoryProductRepository) List(ctx context.Context) ([]*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Product, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, clone(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.products[id]
	if !ok {
		return nil, nil
	}
	return clone(p), nil
}

func (r *MemoryProductRepository) Create(ctx context.Context, p *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[p.ID]; ok {
		return errs.ErrDuplicate
	}
	r.products[p.ID] = *clone(*p)
	return nil
}

func (r *MemoryProductRepository) Update(ctx context.Context, id string, patch domain.ProductPatch, at time.Time) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.products[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	updated := patch.Apply(*clone(current), at)
	if err := updated.Validate(); err != nil {
		return nil, err
	}
	r.products[id] = updated
	return clone(updated), nil
}

func (r *MemoryProductRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[id]; !ok {
		return errs.ErrNotFound
	}
	delete(r.products, id)
	return nil
}

func (r *MemoryProductRepository) AdjustStock(ctx context.Context, entry *domain.InventoryLog) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[entry.ProductID]
	if !ok {
		return nil, errs.ErrNotFound
	}
	if p.StockQuantity+entry.Change < 0 {
		return nil, domain.ErrInsufficientStock
	}
	p.StockQuantity += entry.Change
	p.UpdatedAt = entry.CreatedAt
	r.products[p.ID] = p
	entry.ProductName = p.Name
	r.logs = append(r.logs, *entry)
	return clone(p), nil
}

func (r *MemoryProductRepository) ListLogs(ctx context.Context, productID string) ([]*domain.InventoryLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.InventoryLog
	for i := len(r.logs) - 1; i >= 0; i-- {
		if productID == "" || r.logs[i].ProductID == productID {
			l := r.logs[i]
			out = append(out, &l)
		}
	}
	return out, nil
}
