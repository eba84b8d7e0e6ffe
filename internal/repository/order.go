package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/docstore"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/models"
)

var ErrOrderNotFound = errors.New("order not found")

// OwnedOrder is an order together with the user namespace it lives in.
// Profile is nil for orders without a customer profile.
type OwnedOrder struct {
	UID     string
	Profile *models.Profile
	Order   models.Order
}

type OrderRepository interface {
	Append(ctx context.Context, uid string, order *models.Order) (string, error)
	Get(ctx context.Context, uid, key string) (*models.Order, error)
	ListForUser(ctx context.Context, uid string) ([]models.Order, error)
	ListAll(ctx context.Context) ([]OwnedOrder, error)
	Update(ctx context.Context, uid, key string, fields map[string]any) error
	SetShipment(ctx context.Context, uid, key string, shipment models.Shipment) error
	Remove(ctx context.Context, uid, key string) error
	SaveLastOrder(ctx context.Context, uid string, order models.Order) error
	LastOrder(ctx context.Context, uid string) (*models.Order, error)
}

type orderRepoImpl struct {
	store docstore.Store
}

func NewOrderRepository(store docstore.Store) OrderRepository {
	return &orderRepoImpl{store: store}
}

// Append pushes the order under the user's orders and sets order.Key.
func (r *orderRepoImpl) Append(ctx context.Context, uid string, order *models.Order) (string, error) {
	record := *order
	record.Key = ""
	key, err := r.store.Push(ctx, ordersPath(uid), record)
	if err != nil {
		return "", err
	}
	order.Key = key
	return key, nil
}

func (r *orderRepoImpl) Get(ctx context.Context, uid, key string) (*models.Order, error) {
	snap, err := r.store.Get(ctx, orderPath(uid, key))
	if err != nil {
		return nil, err
	}
	var o models.Order
	if err := snap.Decode(&o); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("decode order: %w", err)
	}
	o.Key = key
	return &o, nil
}

func (r *orderRepoImpl) ListForUser(ctx context.Context, uid string) ([]models.Order, error) {
	snap, err := r.store.Get(ctx, ordersPath(uid))
	if err != nil {
		return nil, err
	}
	if !snap.Exists() {
		return []models.Order{}, nil
	}
	var raw map[string]json.RawMessage
	if err := snap.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	orders := decodeOrders(uid, raw)
	sortNewestFirst(orders, func(i int) models.Order { return orders[i] })
	return orders, nil
}

type userNode struct {
	models.Profile
	Orders map[string]json.RawMessage `json:"orders"`
}

// ListAll walks every user namespace. It reads the whole users tree.
func (r *orderRepoImpl) ListAll(ctx context.Context) ([]OwnedOrder, error) {
	snap, err := r.store.Get(ctx, usersRoot)
	if err != nil {
		return nil, err
	}
	out := []OwnedOrder{}
	if !snap.Exists() {
		return out, nil
	}
	var users map[string]json.RawMessage
	if err := snap.Decode(&users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}

	for uid, rawUser := range users {
		var node userNode
		if err := json.Unmarshal(rawUser, &node); err != nil {
			slog.Warn("skipping malformed user node", "user_id", uid, "error", err)
			continue
		}
		var profile *models.Profile
		if node.Profile.UID != "" || node.Profile.Email != "" {
			p := node.Profile
			profile = &p
		}
		for _, o := range decodeOrders(uid, node.Orders) {
			out = append(out, OwnedOrder{UID: uid, Profile: profile, Order: o})
		}
	}
	sortNewestFirst(out, func(i int) models.Order { return out[i].Order })
	return out, nil
}

func decodeOrders(uid string, raw map[string]json.RawMessage) []models.Order {
	orders := make([]models.Order, 0, len(raw))
	for key, v := range raw {
		var o models.Order
		if err := json.Unmarshal(v, &o); err != nil {
			slog.Warn("skipping malformed order", "user_id", uid, "order_key", key, "error", err)
			continue
		}
		o.Key = key
		orders = append(orders, o)
	}
	return orders
}

func sortNewestFirst[T any](items []T, order func(i int) models.Order) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := order(i), order(j)
		if !a.OrderDate.Equal(b.OrderDate) {
			return a.OrderDate.After(b.OrderDate)
		}
		return a.Key > b.Key
	})
}

func (r *orderRepoImpl) Update(ctx context.Context, uid, key string, fields map[string]any) error {
	return r.store.Update(ctx, orderPath(uid, key), fields)
}

func (r *orderRepoImpl) SetShipment(ctx context.Context, uid, key string, shipment models.Shipment) error {
	return r.store.Set(ctx, shipmentPath(uid, key), shipment)
}

func (r *orderRepoImpl) Remove(ctx context.Context, uid, key string) error {
	return r.store.Remove(ctx, orderPath(uid, key))
}

func (r *orderRepoImpl) SaveLastOrder(ctx context.Context, uid string, order models.Order) error {
	return r.store.Set(ctx, lastOrderPath(uid), order)
}

func (r *orderRepoImpl) LastOrder(ctx context.Context, uid string) (*models.Order, error) {
	snap, err := r.store.Get(ctx, lastOrderPath(uid))
	if err != nil {
		return nil, err
	}
	var o models.Order
	if err := snap.Decode(&o); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("decode last order: %w", err)
	}
	return &o, nil
}
