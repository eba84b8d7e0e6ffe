package services

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"

	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/clients"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/models"
	"github.com/shopspring/decimal"
)

//go:embed templates/*.html
var templateFS embed.FS

var (
	ErrNoRecipient        = errors.New("no recipient email")
	ErrSellerUnconfigured = errors.New("seller email not configured")
)

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"money": func(v float64) string {
		return decimal.NewFromFloat(v).StringFixed(2)
	},
	"lineTotal": func(it models.OrderItem) float64 {
		return decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(int64(it.Quantity))).InexactFloat64()
	},
	"paymentLabel": func(m models.PaymentMethod) string {
		if m == models.PaymentOnline {
			return "Paid online"
		}
		return "Cash on delivery"
	},
}).ParseFS(templateFS, "templates/*.html"))

// NotificationService renders order emails and hands them to a Mailer.
type NotificationService struct {
	mailer clients.Mailer
	cfg    config.Mail
}

func NewNotificationService(mailer clients.Mailer, cfg config.Mail) *NotificationService {
	return &NotificationService{mailer: mailer, cfg: cfg}
}

// SendOrderConfirmation emails the customer at the order's shipping address.
func (s *NotificationService) SendOrderConfirmation(ctx context.Context, order models.Order) error {
	to := order.ShippingAddress.Email
	if to == "" {
		to = order.UserInfo.Email
	}
	if to == "" {
		return ErrNoRecipient
	}

	body, err := render("order_confirmation.html", map[string]any{
		"StoreName": s.cfg.StoreName,
		"Order":     order,
	})
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("%s: order %s confirmed", s.cfg.StoreName, order.OrderID)
	return s.mailer.Send(ctx, []string{to}, subject, body)
}

// SendSellerNotification tells the seller about a new order.
func (s *NotificationService) SendSellerNotification(ctx context.Context, order models.Order, customerEmail string) error {
	if s.cfg.SellerEmail == "" {
		return ErrSellerUnconfigured
	}
	if customerEmail == "" {
		customerEmail = order.ShippingAddress.Email
	}

	body, err := render("seller_notification.html", map[string]any{
		"Order":         order,
		"CustomerEmail": customerEmail,
		"ItemCount":     order.ItemCount(),
	})
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("New order %s (₹%s)", order.OrderID, decimal.NewFromFloat(order.AmountDue).StringFixed(2))
	return s.mailer.Send(ctx, []string{s.cfg.SellerEmail}, subject, body)
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
