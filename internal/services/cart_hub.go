package services

import (
	"context"
	"sync"

	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/catalog"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/repository"
)

// CartProvider hands out the synchronizer attached to a user's cart.
type CartProvider interface {
	ForUser(ctx context.Context, uid string) (*CartSync, error)
}

// CartHub keeps one attached CartSync per signed-in user.
type CartHub struct {
	repo repository.CartRepository

	mu    sync.Mutex
	carts map[string]*CartSync
}

func NewCartHub(repo repository.CartRepository) *CartHub {
	return &CartHub{repo: repo, carts: make(map[string]*CartSync)}
}

func (h *CartHub) ForUser(ctx context.Context, uid string) (*CartSync, error) {
	return h.attach(ctx, uid, nil)
}

// SignIn attaches the user's cart and replays an add the shopper made while
// signed out. The add is applied exactly once, after the stored cart loads.
func (h *CartHub) SignIn(ctx context.Context, uid string, product catalog.Product, size string) (*CartSync, error) {
	return h.attach(ctx, uid, func(c *CartSync) error {
		return c.AddItem(ctx, product, size)
	})
}

func (h *CartHub) attach(ctx context.Context, uid string, queue func(*CartSync) error) (*CartSync, error) {
	if uid == "" {
		return nil, ErrAuthRequired
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.carts[uid]; ok {
		if queue != nil {
			return c, queue(c)
		}
		return c, nil
	}
	c := NewCartSync(h.repo)
	if queue != nil {
		// Not attached yet, so this only queues.
		queue(c)
	}
	if err := c.SetUser(ctx, uid); err != nil {
		c.Close()
		return nil, err
	}
	h.carts[uid] = c
	return c, nil
}

// Release detaches a user's cart, e.g. on logout.
func (h *CartHub) Release(uid string) {
	h.mu.Lock()
	c, ok := h.carts[uid]
	delete(h.carts, uid)
	h.mu.Unlock()
	if ok {
		c.Close()
	}
}

func (h *CartHub) Close() {
	h.mu.Lock()
	carts := h.carts
	h.carts = make(map[string]*CartSync)
	h.mu.Unlock()
	for _, c := range carts {
		c.Close()
	}
}
