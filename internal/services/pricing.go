package services

import (
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/models"
	"github.com/shopspring/decimal"
)

var (
	freeShippingOver = decimal.NewFromInt(999)
	flatShippingFee  = decimal.NewFromInt(79)
	hundred          = decimal.NewFromInt(100)
)

// Totals are in rupees. INR prices are tax-inclusive, so Tax is always 0.
type Totals struct {
	Subtotal  float64 `json:"subtotal"`
	Shipping  float64 `json:"shipping"`
	Tax       float64 `json:"tax"`
	AmountDue float64 `json:"total"`
}

func ItemsSubtotal(items []models.OrderItem) float64 {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return sum.InexactFloat64()
}

func cartSubtotal(entries []models.CartEntry) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range entries {
		sum = sum.Add(decimal.NewFromFloat(e.Price).Mul(decimal.NewFromInt(int64(e.Quantity))))
	}
	return sum
}

// PriceCart applies the shipping rule: free above ₹999, otherwise ₹79.
// An empty cart costs nothing.
func PriceCart(entries []models.CartEntry) Totals {
	subtotal := cartSubtotal(entries)
	shipping := decimal.Zero
	if len(entries) > 0 && !subtotal.GreaterThan(freeShippingOver) {
		shipping = flatShippingFee
	}
	tax := decimal.Zero
	return Totals{
		Subtotal:  subtotal.InexactFloat64(),
		Shipping:  shipping.InexactFloat64(),
		Tax:       tax.InexactFloat64(),
		AmountDue: subtotal.Add(shipping).Add(tax).InexactFloat64(),
	}
}

// ToPaise converts rupees to the gateway's minor unit, rounding half away from zero.
func ToPaise(rupees float64) int64 {
	return decimal.NewFromFloat(rupees).Mul(hundred).Round(0).IntPart()
}

func FromPaise(paise int64) float64 {
	return decimal.NewFromInt(paise).Div(hundred).InexactFloat64()
}

// applyTotals copies shipping and tax onto an order built from the same cart.
func applyTotals(o *models.Order, t Totals) {
	o.Shipping = t.Shipping
	o.Tax = t.Tax
	o.AmountDue = decimal.NewFromFloat(o.Total).
		Add(decimal.NewFromFloat(t.Shipping)).
		Add(decimal.NewFromFloat(t.Tax)).
		InexactFloat64()
}
