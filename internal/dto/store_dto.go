package dto

import "github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/models"

type AddToCartRequest struct {
	ProductID string `json:"productId"`
	Size      string `json:"size"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

type CartResponse struct {
	Items    []models.CartEntry `json:"items"`
	Subtotal float64            `json:"subtotal"`
	Shipping float64            `json:"shipping"`
	Tax      float64            `json:"tax"`
	Total    float64            `json:"total"`
	Count    int                `json:"count"`
}

type CheckoutRequest struct {
	ShippingAddress models.Address `json:"shippingAddress"`
}

// ValidationErrorResponse lists field-specific messages for a rejected form.
type ValidationErrorResponse struct {
	Error   bool              `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields"`
}

type UpdateStatusRequest struct {
	Status models.OrderStatus `json:"status"`
}

type CancelOrderRequest struct {
	Reason string `json:"reason"`
}

// GatewayErrorResponse is the body of a failed vendor proxy call.
type GatewayErrorResponse struct {
	Error           string `json:"error"`
	Details         string `json:"details"`
	ShiprocketError any    `json:"shiprocketError,omitempty"`
}

type TrackRequest struct {
	AWB string `json:"awb"`
}

type CreateShipmentRequest struct {
	Order *models.Order `json:"order"`
}

type OrderEmailRequest struct {
	Order         *models.Order `json:"order"`
	CustomerEmail string        `json:"customerEmail"`
}

type CreatePaymentOrderRequest struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Receipt  string  `json:"receipt"`
}

type CapturePaymentRequest struct {
	PaymentID string  `json:"paymentId"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}
