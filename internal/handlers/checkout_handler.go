package handlers

import (
	"errors"

	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/repository"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/services"
	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
)

// Checkout failures other than validation show one generic message.
const checkoutFailedMessage = "We couldn't place your order. Please try again."

type CheckoutHandler struct {
	checkout *services.CheckoutService
}

func NewCheckoutHandler(checkout *services.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout}
}

// PlaceOrder runs a cash-on-delivery checkout.
func (h *CheckoutHandler) PlaceOrder(c *fiber.Ctx) error {
	uid, ok := userID(c)
	if !ok {
		return nil
	}
	var req dto.CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	res, err := h.checkout.PlaceOrder(c.UserContext(), uid, req.ShippingAddress)
	if err != nil {
		return checkoutError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(checkoutResponse(res))
}

func (h *CheckoutHandler) BeginOnlinePayment(c *fiber.Ctx) error {
	uid, ok := userID(c)
	if !ok {
		return nil
	}
	var req dto.CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	session, err := h.checkout.BeginOnlinePayment(c.UserContext(), uid, req.ShippingAddress)
	if err != nil {
		return checkoutError(c, err)
	}
	return c.JSON(session)
}

func (h *CheckoutHandler) ConfirmOnlinePayment(c *fiber.Ctx) error {
	uid, ok := userID(c)
	if !ok {
		return nil
	}
	var req services.PaymentConfirmation
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	res, err := h.checkout.ConfirmOnlinePayment(c.UserContext(), uid, req)
	if err != nil {
		return checkoutError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(checkoutResponse(res))
}

func checkoutResponse(res *services.CheckoutResult) fiber.Map {
	return fiber.Map{
		"order":    res.Order,
		"state":    res.State,
		"degraded": res.Degraded(),
	}
}

func checkoutError(c *fiber.Ctx, err error) error {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ValidationErrorResponse{
			Error:   true,
			Message: "Please correct the highlighted fields",
			Fields:  verr.Fields,
		})
	case errors.Is(err, services.ErrAuthRequired):
		return errorJSON(c, fiber.StatusUnauthorized, "Please sign in to place an order")
	case errors.Is(err, services.ErrEmptyCart):
		return errorJSON(c, fiber.StatusBadRequest, "Your cart is empty")
	case errors.Is(err, repository.ErrNoPaymentIntent):
		return errorJSON(c, fiber.StatusNotFound, "No payment in progress")
	case errors.Is(err, services.ErrPaymentVerification),
		errors.Is(err, services.ErrPaymentAmountMismatch):
		return errorJSON(c, fiber.StatusBadRequest, "Payment could not be verified")
	case errors.Is(err, services.ErrPaymentNotCaptured):
		return errorJSON(c, fiber.StatusPaymentRequired, "Payment was not completed")
	case errors.Is(err, services.ErrPaymentUnavailable):
		captureFatal(c, err)
		return errorJSON(c, fiber.StatusBadGateway, "Payment service is unavailable. Please try again.")
	}
	captureFatal(c, err)
	return errorJSON(c, fiber.StatusInternalServerError, checkoutFailedMessage)
}

func captureFatal(c *fiber.Ctx, err error) {
	if hub := sentryfiber.GetHubFromContext(c); hub != nil {
		hub.WithScope(func(scope *sentry.Scope) {
			scope.SetTag("component", "checkout")
			hub.CaptureException(err)
		})
	}
}
