package services

import (
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/models"
)

const (
	defaultCountry    = "India"
	estimatedDelivery = 7 * 24 * time.Hour
	orderIDAlphabet   = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// NewOrderID returns "ORD-<unix millis>-<9 base36 chars>". Uniqueness
// assumes low write concurrency: two orders in the same millisecond collide
// with probability 36^-9.
func NewOrderID(now time.Time) string {
	var b strings.Builder
	b.WriteString("ORD-")
	b.WriteString(strconv.FormatInt(now.UnixMilli(), 10))
	b.WriteByte('-')
	for i := 0; i < 9; i++ {
		b.WriteByte(orderIDAlphabet[rand.Intn(len(orderIDAlphabet))])
	}
	return b.String()
}

// BuildOrder snapshots a cart into a pending order. Only fulfilment fields
// are copied from each entry. Missing address fields fall back to the
// profile, then to the empty string; the country falls back to India.
func BuildOrder(cart []models.CartEntry, profile *models.Profile, address models.Address, now time.Time) models.Order {
	var user models.UserInfo
	if profile != nil {
		user = models.UserInfo{
			FirstName: profile.FirstName,
			LastName:  profile.LastName,
			Email:     profile.Email,
			Phone:     profile.Phone,
		}
	}

	addr := models.Address{
		FirstName: orDefault(address.FirstName, user.FirstName),
		LastName:  orDefault(address.LastName, user.LastName),
		Email:     orDefault(address.Email, user.Email),
		Phone:     orDefault(address.Phone, user.Phone),
		Address:   address.Address,
		City:      address.City,
		State:     address.State,
		ZipCode:   address.ZipCode,
		Country:   orDefault(address.Country, defaultCountry),
	}

	items := make([]models.OrderItem, 0, len(cart))
	for _, e := range cart {
		price := e.Price
		if price < 0 || math.IsNaN(price) || math.IsInf(price, 0) {
			price = 0
		}
		qty := e.Quantity
		if qty <= 0 {
			qty = 1
		}
		items = append(items, models.OrderItem{
			ID:           e.ID,
			Name:         e.Name,
			Price:        price,
			SelectedSize: e.SelectedSize,
			Quantity:     qty,
			Image:        e.Image,
		})
	}

	total := ItemsSubtotal(items)
	return models.Order{
		OrderID:           NewOrderID(now),
		Items:             items,
		Total:             total,
		AmountDue:         total,
		Status:            models.OrderPending,
		UserInfo:          user,
		ShippingAddress:   addr,
		OrderDate:         now.UTC(),
		EstimatedDelivery: now.Add(estimatedDelivery).UTC(),
	}
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
