package models

import "time"

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

var OrderStatuses = []OrderStatus{
	OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled,
}

func (s OrderStatus) Valid() bool {
	for _, v := range OrderStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Label is the customer-facing wording used in emails and exports.
func (s OrderStatus) Label() string {
	switch s {
	case OrderPending:
		return "Order Pending"
	case OrderProcessing:
		return "Processing Order"
	case OrderShipped:
		return "Order Shipped"
	case OrderDelivered:
		return "Order Delivered"
	case OrderCancelled:
		return "Order Cancelled"
	default:
		return "Unknown Status"
	}
}

type PaymentMethod string

const (
	PaymentCOD    PaymentMethod = "cod"
	PaymentOnline PaymentMethod = "online"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentCOD || m == PaymentOnline
}

type OrderItem struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Price        float64 `json:"price"`
	SelectedSize string  `json:"selectedSize"`
	Quantity     int     `json:"quantity"`
	Image        string  `json:"image"`
}

type UserInfo struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

type Address struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Email     string `json:"email" validate:"required,loose_email"`
	Phone     string `json:"phone" validate:"required,phone10"`
	Address   string `json:"address" validate:"required"`
	City      string `json:"city" validate:"required"`
	State     string `json:"state" validate:"required"`
	ZipCode   string `json:"zipCode" validate:"required"`
	Country   string `json:"country"`
}

func (a Address) FullName() string {
	if a.LastName == "" {
		return a.FirstName
	}
	return a.FirstName + " " + a.LastName
}

// Order is stored at users/{uid}/orders/{key}. Total is the item subtotal;
// AmountDue adds shipping and tax.
type Order struct {
	// Key is the store-generated key. It is filled on read and never stored.
	Key string `json:"id,omitempty"`

	OrderID           string        `json:"orderId"`
	Items             []OrderItem   `json:"items"`
	Total             float64       `json:"total"`
	Shipping          float64       `json:"shipping"`
	Tax               float64       `json:"tax"`
	AmountDue         float64       `json:"amountDue"`
	Status            OrderStatus   `json:"status"`
	UserInfo          UserInfo      `json:"userInfo"`
	ShippingAddress   Address       `json:"shippingAddress"`
	OrderDate         time.Time     `json:"orderDate"`
	EstimatedDelivery time.Time     `json:"estimatedDelivery"`
	PaymentMethod     PaymentMethod `json:"paymentMethod,omitempty"`

	Payment      *PaymentRecord `json:"payment,omitempty"`
	Shipment     *Shipment      `json:"shipment,omitempty"`
	Cancellation *Cancellation  `json:"cancellation,omitempty"`
}

func (o Order) ItemCount() int {
	n := 0
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}

type PaymentRecord struct {
	Provider       string    `json:"provider"`
	GatewayOrderID string    `json:"gatewayOrderId"`
	PaymentID      string    `json:"paymentId"`
	AmountPaise    int64     `json:"amountPaise"`
	Currency       string    `json:"currency"`
	Status         string    `json:"status"`
	CapturedAt     time.Time `json:"capturedAt"`
}

type Cancellation struct {
	Reason      string    `json:"reason"`
	CancelledAt time.Time `json:"cancelledAt"`
}
