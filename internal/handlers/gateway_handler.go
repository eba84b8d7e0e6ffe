package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/clients"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

// Vendor operations exposed as thin JSON proxies.
type (
	Tracker interface {
		Track(ctx context.Context, awb string) (json.RawMessage, error)
	}

	ShipmentCreator interface {
		CreateShipment(ctx context.Context, order *models.Order) (*clients.ShipmentResult, error)
	}

	PaymentProvider interface {
		CreateOrder(ctx context.Context, amountPaise int64, currency, receipt string) (*clients.RazorpayOrder, error)
		CapturePayment(ctx context.Context, paymentID string, amountPaise int64, currency string) (*clients.RazorpayPayment, error)
	}
)

type GatewayHandler struct {
	tracker   Tracker
	shipments ShipmentCreator
	notifier  services.OrderNotifier
	payments  PaymentProvider
	currency  string
}

func NewGatewayHandler(tracker Tracker, shipments ShipmentCreator, notifier services.OrderNotifier, payments PaymentProvider, currency string) *GatewayHandler {
	return &GatewayHandler{
		tracker:   tracker,
		shipments: shipments,
		notifier:  notifier,
		payments:  payments,
		currency:  currency,
	}
}

func gatewayError(c *fiber.Ctx, message string, err error) error {
	return c.Status(fiber.StatusInternalServerError).JSON(dto.GatewayErrorResponse{
		Error:   message,
		Details: err.Error(),
	})
}

// Track proxies an AWB lookup.
func (h *GatewayHandler) Track(c *fiber.Ctx) error {
	var req dto.TrackRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	awb := strings.TrimSpace(req.AWB)
	if awb == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "AWB number required"})
	}

	raw, err := h.tracker.Track(c.UserContext(), awb)
	if err != nil {
		slog.Warn("tracking lookup failed", "awb", awb, "gateway", "shiprocket", "error", err)
		return gatewayError(c, "Tracking failed", err)
	}
	return sendRaw(c, raw)
}

func (h *GatewayHandler) CreateShipment(c *fiber.Ctx) error {
	var req dto.CreateShipmentRequest
	if err := c.BodyParser(&req); err != nil || req.Order == nil {
		return badBody(c)
	}

	res, err := h.shipments.CreateShipment(c.UserContext(), req.Order)
	if err != nil {
		slog.Warn("shipment proxy failed", "order_id", req.Order.OrderID, "gateway", "shiprocket", "error", err)
		resp := dto.GatewayErrorResponse{Error: "Shipment creation failed", Details: err.Error()}
		var apiErr *clients.APIError
		if errors.As(err, &apiErr) && len(apiErr.Body) > 0 {
			resp.ShiprocketError = apiErr.Body
		}
		return c.Status(fiber.StatusInternalServerError).JSON(resp)
	}
	return sendRaw(c, res.Raw)
}

func (h *GatewayHandler) SendOrderConfirmation(c *fiber.Ctx) error {
	var req dto.OrderEmailRequest
	if err := c.BodyParser(&req); err != nil || req.Order == nil {
		return badBody(c)
	}
	if err := h.notifier.SendOrderConfirmation(c.UserContext(), *req.Order); err != nil {
		slog.Warn("order confirmation email failed", "order_id", req.Order.OrderID, "gateway", "mail", "error", err)
		return gatewayError(c, "Failed to send order confirmation", err)
	}
	return c.JSON(dto.SuccessResponse{Success: true})
}

func (h *GatewayHandler) SendSellerNotification(c *fiber.Ctx) error {
	var req dto.OrderEmailRequest
	if err := c.BodyParser(&req); err != nil || req.Order == nil {
		return badBody(c)
	}
	if err := h.notifier.SendSellerNotification(c.UserContext(), *req.Order, req.CustomerEmail); err != nil {
		slog.Warn("seller notification email failed", "order_id", req.Order.OrderID, "gateway", "mail", "error", err)
		return gatewayError(c, "Failed to send seller notification", err)
	}
	return c.JSON(dto.SuccessResponse{Success: true})
}

// CreatePaymentOrder takes the amount in rupees.
func (h *GatewayHandler) CreatePaymentOrder(c *fiber.Ctx) error {
	var req dto.CreatePaymentOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	if req.Amount <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Amount must be greater than zero"})
	}

	currency := orDefault(req.Currency, h.currency)
	order, err := h.payments.CreateOrder(c.UserContext(), services.ToPaise(req.Amount), currency, req.Receipt)
	if err != nil {
		slog.Warn("payment order proxy failed", "gateway", "razorpay", "error", err)
		return gatewayError(c, "Failed to create Razorpay order", err)
	}
	return sendRaw(c, order.Raw)
}

func (h *GatewayHandler) CapturePayment(c *fiber.Ctx) error {
	var req dto.CapturePaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	if strings.TrimSpace(req.PaymentID) == "" || req.Amount <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "paymentId and amount are required"})
	}

	currency := orDefault(req.Currency, h.currency)
	payment, err := h.payments.CapturePayment(c.UserContext(), req.PaymentID, services.ToPaise(req.Amount), currency)
	if err != nil {
		slog.Warn("payment capture proxy failed", "gateway", "razorpay", "error", err)
		return gatewayError(c, "Failed to capture payment", err)
	}
	return sendRaw(c, payment.Raw)
}

func sendRaw(c *fiber.Ctx, raw json.RawMessage) error {
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(raw)
}

func orDefault(v, fallback string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return fallback
}
