package repository

import (
	"context"
	"time"

	"storefront/backend/internal/checkout/domain"
	"storefront/backend/internal/defaults"
)

var addressPolicy = defaults.Policy[domain.Address]{
	ID:         func(a domain.Address) string { return a.ID },
	IsDefault:  func(a domain.Address) bool { return a.IsDefault },
	SetDefault: func(a domain.Address, v bool) domain.Address { a.IsDefault = v; return a },
	Conflicts:  func(a, b domain.Address) bool { return a.ConflictsWith(&b) },
}

var paymentPolicy = defaults.Policy[domain.PaymentMethod]{
	ID:         func(p domain.PaymentMethod) string { return p.ID },
	IsDefault:  func(p domain.PaymentMethod) bool { return p.IsDefault },
	SetDefault: func(p domain.PaymentMethod, v bool) domain.PaymentMethod { p.IsDefault = v; return p },
	Conflicts:  func(a, b domain.PaymentMethod) bool { return a.ConflictsWith(&b) },
}

// MemoryAddressRepository is an AddressRepository over a defaults.MemoryStore. Each instance owns its records.
type MemoryAddressRepository struct {
	store *defaults.MemoryStore[domain.Address]
}

// NewMemoryAddressRepository returns an empty in-memory address repository.
func NewMemoryAddressRepository() *MemoryAddressRepository {
	return &MemoryAddressRepository{store: defaults.NewMemoryStore(addressPolicy)}
}

func (r *MemoryAddressRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Address, error) {
	list := r.store.List(func(a domain.Address) bool { return a.UserID == userID })
	out := make([]*domain.Address, len(list))
	for i := range list {
		out[i] = &list[i]
	}
	return out, nil
}

func (r *MemoryAddressRepository) GetByID(ctx context.Context, id string) (*domain.Address, error) {
	a, ok := r.store.Get(id)
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (r *MemoryAddressRepository) GetDefault(ctx context.Context, userID string, t domain.AddressType) (*domain.Address, error) {
	a, ok := r.store.Find(func(a domain.Address) bool {
		return a.UserID == userID && a.IsDefault && a.Type.Overlaps(t)
	})
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (r *MemoryAddressRepository) Create(ctx context.Context, a *domain.Address) ([]string, error) {
	return r.store.Insert(*a), nil
}

func (r *MemoryAddressRepository) Update(ctx context.Context, id string, patch domain.AddressPatch, at time.Time) (*domain.Address, []string, error) {
	updated, cleared, err := r.store.Update(id, func(a domain.Address) (domain.Address, error) {
		a = patch.Apply(a, at)
		return a, a.Validate()
	})
	if err != nil {
		return nil, nil, err
	}
	return &updated, cleared, nil
}

func (r *MemoryAddressRepository) Delete(ctx context.Context, id string) error {
	return r.store.Delete(id)
}

// MemoryPaymentMethodRepository is a PaymentMethodRepository over a defaults.MemoryStore.
type MemoryPaymentMethodRepository struct {
	store *defaults.MemoryStore[domain.PaymentMethod]
}

// NewMemoryPaymentMethodRepository returns an empty in-memory payment method repository.
func NewMemoryPaymentMethodRepository() *MemoryPaymentMethodRepository {
	return &MemoryPaymentMethodRepository{store: defaults.NewMemoryStore(paymentPolicy)}
}

func (r *MemoryPaymentMethodRepository) ListByUser(ctx context.Context, userID string) ([]*domain.PaymentMethod, error) {
	list := r.store.List(func(p domain.PaymentMethod) bool { return p.UserID == userID })
	out := make([]*domain.PaymentMethod, len(list))
	for i := range list {
		out[i] = &list[i]
	}
	return out, nil
}

func (r *MemoryPaymentMethodRepository) GetByID(ctx context.Context, id string) (*domain.PaymentMethod, error) {
	p, ok := r.store.Get(id)
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *MemoryPaymentMethodRepository) GetDefault(ctx context.Context, userID string) (*domain.PaymentMethod, error) {
	p, ok := r.store.Find(func(p domain.PaymentMethod) bool { return p.UserID == userID && p.IsDefault })
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *MemoryPaymentMethodRepository) Create(ctx context.Context, p *domain.PaymentMethod) ([]string, error) {
	return r.store.Insert(*p), nil
}

func (r *MemoryPaymentMethodRepository) Update(ctx context.Context, id string, patch domain.PaymentMethodPatch, at time.Time) (*domain.PaymentMethod, []string, error) {
	updated, cleared, err := r.store.Update(id, func(p domain.PaymentMethod) (domain.PaymentMethod, error) {
		p = patch.Apply(p, at)
		return p, p.Validate()
	})
	if err != nil {
		return nil, nil, err
	}
	return &updated, cleared, nil
}

func (r *MemoryPaymentMethodRepository) Delete(ctx context.Context, id string) error {
	return r.store.Delete(id)
}
