package handlers

import (
	"errors"

	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/catalog"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/repository"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

// StoreHandler serves the catalog, the signed-in user's cart and their
// order history.
type StoreHandler struct {
	catalog *catalog.Catalog
	carts   *services.CartHub
	orders  repository.OrderRepository
}

func NewStoreHandler(products *catalog.Catalog, carts *services.CartHub, orders repository.OrderRepository) *StoreHandler {
	return &StoreHandler{catalog: products, carts: carts, orders: orders}
}

func (h *StoreHandler) ListProducts(c *fiber.Ctx) error {
	return c.JSON(h.catalog.All())
}

func (h *StoreHandler) GetProduct(c *fiber.Ctx) error {
	p, err := h.catalog.Get(c.Params("id"))
	if err != nil {
		return errorJSON(c, fiber.StatusNotFound, "Product not found")
	}
	return c.JSON(p)
}

func (h *StoreHandler) cart(c *fiber.Ctx) (*services.CartSync, error) {
	uid, ok := userID(c)
	if !ok {
		return nil, nil
	}
	return h.carts.ForUser(c.UserContext(), uid)
}

func cartResponse(cart *services.CartSync) dto.CartResponse {
	items := cart.Items()
	t := services.PriceCart(items)
	count := 0
	for _, e := range items {
		count += e.Quantity
	}
	return dto.CartResponse{
		Items:    items,
		Subtotal: t.Subtotal,
		Shipping: t.Shipping,
		Tax:      t.Tax,
		Total:    t.AmountDue,
		Count:    count,
	}
}

func (h *StoreHandler) GetCart(c *fiber.Ctx) error {
	cart, err := h.cart(c)
	if cart == nil {
		return err
	}
	return c.JSON(cartResponse(cart))
}

func (h *StoreHandler) AddToCart(c *fiber.Ctx) error {
	cart, err := h.cart(c)
	if cart == nil {
		return err
	}
	var req dto.AddToCartRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	product, err := h.catalog.Get(req.ProductID)
	if err != nil {
		return errorJSON(c, fiber.StatusNotFound, "Product not found")
	}
	if !product.HasSize(req.Size) {
		return errorJSON(c, fiber.StatusBadRequest, "Please select a valid size")
	}
	if err := cart.AddItem(c.UserContext(), product, req.Size); err != nil {
		if errors.Is(err, services.ErrAuthRequired) {
			return errorJSON(c, fiber.StatusUnauthorized, "Please sign in to add items to your cart")
		}
		return err
	}
	return c.JSON(cartResponse(cart))
}

func (h *StoreHandler) UpdateCartItem(c *fiber.Ctx) error {
	cart, err := h.cart(c)
	if cart == nil {
		return err
	}
	var req dto.UpdateCartItemRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	if req.Quantity < 1 {
		return errorJSON(c, fiber.StatusBadRequest, "Quantity must be at least 1")
	}

	cart.UpdateQuantity(c.UserContext(), c.Params("productId"), c.Params("size"), req.Quantity)
	return c.JSON(cartResponse(cart))
}

func (h *StoreHandler) RemoveCartItem(c *fiber.Ctx) error {
	cart, err := h.cart(c)
	if cart == nil {
		return err
	}
	cart.RemoveItem(c.UserContext(), c.Params("productId"), c.Params("size"))
	return c.JSON(cartResponse(cart))
}

func (h *StoreHandler) ClearCart(c *fiber.Ctx) error {
	cart, err := h.cart(c)
	if cart == nil {
		return err
	}
	cart.Clear(c.UserContext())
	return c.JSON(cartResponse(cart))
}

func (h *StoreHandler) ListOrders(c *fiber.Ctx) error {
	uid, ok := userID(c)
	if !ok {
		return nil
	}
	orders, err := h.orders.ListForUser(c.UserContext(), uid)
	if err != nil {
		return err
	}
	return c.JSON(orders)
}

// LastOrder returns the backup copy written after the most recent checkout.
func (h *StoreHandler) LastOrder(c *fiber.Ctx) error {
	uid, ok := userID(c)
	if !ok {
		return nil
	}
	o, err := h.orders.LastOrder(c.UserContext(), uid)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return errorJSON(c, fiber.StatusNotFound, "No recent order")
		}
		return err
	}
	return c.JSON(o)
}
