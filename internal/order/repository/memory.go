package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"storefront/backend/internal/order/domain"
	"storefront/backend/internal/platform/errs"
)

// MemoryOrderRepository is an OrderRepository held in memory.
type MemoryOrderRepository struct {
	mu     sync.RWMutex
	orders map[string]domain.Order
}

// NewMemoryOrderRepository returns an empty in-memory order repository.
func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{orders: make(map[string]domain.Order)}
}

func cloneOrder(o domain.Order) *domain.Order {
	o.Items = append([]domain.Item(nil), o.Items...)
	return &o
}

func (r *MemoryOrderRepository) Create(ctx context.Context, o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[o.ID]; ok {
		return errs.ErrDuplicate
	}
	r.orders[o.ID] = *cloneOrder(*o)
	return nil
}

func (r *MemoryOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, nil
	}
	return cloneOrder(o), nil
}

func (r *MemoryOrderRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Order, error) {
	return r.filter(func(o *domain.Order) bool { return o.UserID == userID }), nil
}

func (r *MemoryOrderRepository) List(ctx context.Context, status domain.Status) ([]*domain.Order, error) {
	return r.filter(func(o *domain.Order) bool { return status == "" || o.Status == status }), nil
}

func (r *MemoryOrderRepository) filter(keep func(*domain.Order) bool) []*domain.Order {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.Order
	for _, o := range r.orders {
		if keep(&o) {
			out = append(out, cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (r *MemoryOrderRepository) UpdateStatus(ctx context.Context, id string, change domain.StatusChange, at time.Time) (*domain.Order, domain.Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, "", errs.ErrNotFound
	}
	prev := o.Status
	if !prev.CanBecome(change.Status) {
		return nil, "", domain.ErrTransition(prev, change.Status)
	}
	applyChange(&o, change, at)
	r.orders[id] = o
	return cloneOrder(o), prev, nil
}

func applyChange(o *domain.Order, change domain.StatusChange, at time.Time) {
	o.Status = change.Status
	if change.TrackingNumber != "" {
		o.TrackingNumber = change.TrackingNumber
	}
	if change.PaymentStatus != "" {
		o.PaymentStatus = change.PaymentStatus
	}
	o.UpdatedAt = at
}
