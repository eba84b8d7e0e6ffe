package models

import "time"

// PaymentIntent is stored at users/{uid}/pendingPayment between creating a
// gateway order and confirming the customer's payment. Items and address
// are frozen when the intent is created.
type PaymentIntent struct {
	// OrderID is reserved for the order created once payment is confirmed.
	OrderID        string      `json:"orderId"`
	GatewayOrderID string      `json:"gatewayOrderId"`
	AmountPaise    int64       `json:"amountPaise"`
	Currency       string      `json:"currency"`
	Items          []CartEntry `json:"items"`
	Address        Address     `json:"address"`
	CreatedAt      time.Time   `json:"createdAt"`
}
