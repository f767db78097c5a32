package repository

import (
	"context"
	"errors"
	"log"

	"storefront/backend/internal/kvstore"
	"storefront/backend/internal/order/domain"
)

// KVCartRepository keeps each cart as a JSON blob in the key-value store under cart_<userID>.
type KVCartRepository struct {
	store *kvstore.Store
}

// NewKVCartRepository returns a cart repository over store.
func NewKVCartRepository(store *kvstore.Store) *KVCartRepository {
	return &KVCartRepository{store: store}
}

// Get returns the user's cart. A blob that no longer decodes reads as an empty cart.
func (r *KVCartRepository) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	c := &domain.Cart{}
	ok, err := r.store.GetJSON(ctx, kvstore.KeyCartPrefix+userID, c)
	if errors.Is(err, kvstore.ErrCorrupt) {
		log.Printf("order: discarding unreadable cart of %s: %v", userID, err)
		ok, err = false, nil
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		c = &domain.Cart{}
	}
	c.UserID = userID
	return c, nil
}

func (r *KVCartRepository) Save(ctx context.Context, c *domain.Cart) error {
	return r.store.SetJSON(ctx, kvstore.KeyCartPrefix+c.UserID, c)
}

func (r *KVCartRepository) Delete(ctx context.Context, userID string) error {
	return r.store.Delete(ctx, kvstore.KeyCartPrefix+userID)
}
