package handlers

import (
	"errors"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/catalog"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/repository"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	authService *services.AuthService
	carts       *services.CartHub
	catalog     *catalog.Catalog
}

func NewAuthHandler(authService *services.AuthService, carts *services.CartHub, products *catalog.Catalog) *AuthHandler {
	return &AuthHandler{authService: authService, carts: carts, catalog: products}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	resp, err := h.authService.Register(c.UserContext(), &req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmailTaken):
			return errorJSON(c, fiber.StatusConflict, err.Error())
		case errors.Is(err, services.ErrWeakPassword):
			return errorJSON(c, fiber.StatusBadRequest, err.Error())
		}
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(resp)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	resp, err := h.authService.Login(c.UserContext(), &req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			return errorJSON(c, fiber.StatusUnauthorized, err.Error())
		}
		return err
	}

	if req.PendingAdd != nil {
		h.replayPendingAdd(c, resp, req.PendingAdd)
	}
	return c.JSON(resp)
}

// replayPendingAdd applies a signed-out add-to-cart once the session exists.
// A stale product or size never fails the login; the add is just dropped.
func (h *AuthHandler) replayPendingAdd(c *fiber.Ctx, resp *dto.AuthResponse, add *dto.PendingAdd) {
	uid := resp.User.ID
	product, err := h.catalog.Get(add.ProductID)
	if err != nil || !product.HasSize(add.Size) {
		slog.Warn("dropping pending cart add", "user_id", uid, "product_id", add.ProductID, "size", add.Size)
		return
	}
	cart, err := h.carts.SignIn(c.UserContext(), uid, product, add.Size)
	if err != nil {
		slog.Warn("pending cart add failed", "user_id", uid, "error", err)
		return
	}
	out := cartResponse(cart)
	resp.Cart = &out
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	resp, err := h.authService.Refresh(c.UserContext(), &req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidToken) {
			return errorJSON(c, fiber.StatusUnauthorized, err.Error())
		}
		return err
	}

	return c.JSON(resp)
}

// Logout revokes the refresh token and detaches the user's cart.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	uid, ok := userID(c)
	if !ok {
		return nil
	}
	var req dto.LogoutRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	if err := h.authService.Logout(c.UserContext(), &req); err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "Failed to logout")
	}
	h.carts.Release(uid)

	return c.JSON(fiber.Map{"message": "Logged out successfully"})
}

func (h *AuthHandler) Profile(c *fiber.Ctx) error {
	uid, ok := userID(c)
	if !ok {
		return nil
	}
	p, err := h.authService.Profile(c.UserContext(), uid)
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return errorJSON(c, fiber.StatusNotFound, "Profile not found")
		}
		return err
	}
	return c.JSON(p)
}

func (h *AuthHandler) UpdateProfile(c *fiber.Ctx) error {
	uid, ok := userID(c)
	if !ok {
		return nil
	}
	var req dto.ProfileUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	p, err := h.authService.UpdateProfile(c.UserContext(), uid, &req)
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return errorJSON(c, fiber.StatusNotFound, "Profile not found")
		}
		return err
	}
	return c.JSON(p)
}
