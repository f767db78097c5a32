package repository

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"storefront/backend/internal/currency/domain"
	"storefront/backend/internal/defaults"
	"storefront/backend/internal/platform/errs"
)

var basePolicy = defaults.Policy[domain.Currency]{
	ID:         func(c domain.Currency) string { return c.ID },
	IsDefault:  func(c domain.Currency) bool { return c.IsBase },
	SetDefault: func(c domain.Currency, v bool) domain.Currency { c.IsBase = v; return c },
	Conflicts:  func(a, b domain.Currency) bool { return true },
}

// Memory is a Repository over a defaults.MemoryStore with a single global base partition. List is
// ordered by code.
type Memory struct {
	// writes serialises the code uniqueness check with the write that follows it.
	writes sync.Mutex
	store  *defaults.MemoryStore[domain.Currency]
}

// NewMemory returns an empty in-memory currency repository.
func NewMemory() *Memory {
	return &Memory{store: defaults.NewMemoryStore(basePolicy)}
}

func (r *Memory) List(ctx context.Context) ([]*domain.Currency, error) {
	list := r.store.List(nil)
	slices.SortFunc(list, func(a, b domain.Currency) int { return strings.Compare(a.Code, b.Code) })
	out := make([]*domain.Currency, len(list))
	for i := range list {
		out[i] = &list[i]
	}
	return out, nil
}

func (r *Memory) GetByID(ctx context.Context, id string) (*domain.Currency, error) {
	c, ok := r.store.Get(id)
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *Memory) GetByCode(ctx context.Context, code string) (*domain.Currency, error) {
	code = domain.NormalizeCode(code)
	c, ok := r.store.Find(func(c domain.Currency) bool { return c.Code == code })
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *Memory) GetBase(ctx context.Context) (*domain.Currency, error) {
	c, ok := r.store.Find(func(c domain.Currency) bool { return c.IsBase })
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *Memory) Create(ctx context.Context, c *domain.Currency) ([]string, error) {
	r.writes.Lock()
	defer r.writes.Unlock()
	if _, taken := r.store.Find(func(o domain.Currency) bool { return o.Code == c.Code }); taken {
		return nil, errs.ErrDuplicate
	}
	return r.store.Insert(*c), nil
}

func (r *Memory) Update(ctx context.Context, id string, patch domain.Patch, at time.Time) (*domain.Currency, []string, error) {
	r.writes.Lock()
	defer r.writes.Unlock()
	if patch.Code != nil {
		code := domain.NormalizeCode(*patch.Code)
		if _, taken := r.store.Find(func(o domain.Currency) bool { return o.Code == code && o.ID != id }); taken {
			return nil, nil, errs.ErrDuplicate
		}
	}
	updated, cleared, err := r.store.Update(id, func(c domain.Currency) (domain.Currency, error) {
		c = patch.Apply(c, at)
		return c, c.Validate()
	})
	if err != nil {
		return nil, nil, err
	}
	return &updated, cleared, nil
}

func (r *Memory) Delete(ctx context.Context, id string) error {
	return r.store.Delete(id)
}

func (r *Memory) Count(ctx context.Context) (int, error) {
	return r.store.Len(), nil
}
