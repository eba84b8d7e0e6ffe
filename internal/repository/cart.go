package repository

import (
	"context"
	"encoding/json"

	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/docstore"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/models"
)

// CartRepository stores the whole cart as one document. Values are handed
// out raw because remote writers may leave it as a sparse array or a keyed
// object; callers normalize.
type CartRepository interface {
	Load(ctx context.Context, uid string) (json.RawMessage, int64, error)
	Save(ctx context.Context, uid string, entries []models.CartEntry, expected int64) (int64, error)
	Watch(uid string, fn func(raw json.RawMessage, version int64)) (cancel func(), err error)
}

type cartRepoImpl struct {
	store docstore.Store
}

func NewCartRepository(store docstore.Store) CartRepository {
	return &cartRepoImpl{store: store}
}

func (r *cartRepoImpl) Load(ctx context.Context, uid string) (json.RawMessage, int64, error) {
	snap, err := r.store.Get(ctx, cartPath(uid))
	if err != nil {
		return nil, 0, err
	}
	return snap.Value, snap.Version, nil
}

// Save overwrites the cart if it is still at the expected version. An empty
// cart is stored as [] so the version keeps increasing.
func (r *cartRepoImpl) Save(ctx context.Context, uid string, entries []models.CartEntry, expected int64) (int64, error) {
	if entries == nil {
		entries = []models.CartEntry{}
	}
	return r.store.CompareAndSet(ctx, cartPath(uid), expected, entries)
}

func (r *cartRepoImpl) Watch(uid string, fn func(raw json.RawMessage, version int64)) (func(), error) {
	return r.store.Subscribe(cartPath(uid), func(snap docstore.Snapshot) {
		fn(snap.Value, snap.Version)
	})
}
