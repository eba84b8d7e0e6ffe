package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/docstore"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/models"
)

var ErrNoPaymentIntent = errors.New("no pending payment")

type PaymentIntentRepository interface {
	Save(ctx context.Context, uid string, intent models.PaymentIntent) error
	Load(ctx context.Context, uid string) (*models.PaymentIntent, error)
	Delete(ctx context.Context, uid string) error
}

type paymentIntentRepoImpl struct {
	store docstore.Store
}

func NewPaymentIntentRepository(store docstore.Store) PaymentIntentRepository {
	return &paymentIntentRepoImpl{store: store}
}

func (r *paymentIntentRepoImpl) Save(ctx context.Context, uid string, intent models.PaymentIntent) error {
	return r.store.Set(ctx, pendingPaymentPath(uid), intent)
}

func (r *paymentIntentRepoImpl) Load(ctx context.Context, uid string) (*models.PaymentIntent, error) {
	snap, err := r.store.Get(ctx, pendingPaymentPath(uid))
	if err != nil {
		return nil, err
	}
	var intent models.PaymentIntent
	if err := snap.Decode(&intent); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrNoPaymentIntent
		}
		return nil, fmt.Errorf("decode payment intent: %w", err)
	}
	return &intent, nil
}

func (r *paymentIntentRepoImpl) Delete(ctx context.Context, uid string) error {
	return r.store.Remove(ctx, pendingPaymentPath(uid))
}
