package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/models"
)

type sentMail struct {
	to      []string
	subject string
	html    string
}

type recordingMailer struct {
	sent []sentMail
}

func (m *recordingMailer) Send(_ context.Context, to []string, subject, html string) error {
	m.sent = append(m.sent, sentMail{to: to, subject: subject, html: html})
	return nil
}

func sampleOrder() models.Order {
	o := BuildOrder([]models.CartEntry{{ID: "1", Name: "Classic <Tee>", Price: 749, SelectedSize: "M", Quantity: 2}},
		nil, validAddress(), time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC))
	applyTotals(&o, PriceCart([]models.CartEntry{{Price: 749, Quantity: 2}}))
	o.PaymentMethod = models.PaymentCOD
	return o
}

func TestSendOrderConfirmation(t *testing.T) {
	mailer := &recordingMailer{}
	svc := NewNotificationService(mailer, config.Mail{StoreName: "LH STYLEHUB"})

	o := sampleOrder()
	if err := svc.SendOrderConfirmation(context.Background(), o); err != nil {
		t.Fatalf("SendOrderConfirmation: %v", err)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("sent %d mails", len(mailer.sent))
	}
	m := mailer.sent[0]
	if m.to[0] != "asha@example.com" || !strings.Contains(m.subject, o.OrderID) {
		t.Errorf("mail = %v / %q", m.to, m.subject)
	}
	for _, want := range []string{"₹1498.00", "Free", "Cash on delivery", "Classic &lt;Tee&gt;", "Bengaluru"} {
		if !strings.Contains(m.html, want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestSendOrderConfirmationNeedsRecipient(t *testing.T) {
	svc := NewNotificationService(&recordingMailer{}, config.Mail{})
	o := sampleOrder()
	o.ShippingAddress.Email = ""
	if err := svc.SendOrderConfirmation(context.Background(), o); !errors.Is(err, ErrNoRecipient) {
		t.Errorf("err = %v", err)
	}
}

func TestSendSellerNotification(t *testing.T) {
	mailer := &recordingMailer{}
	svc := NewNotificationService(mailer, config.Mail{SellerEmail: "seller@lhstylehub.com"})
	o := sampleOrder()

	if err := svc.SendSellerNotification(context.Background(), o, "buyer@example.com"); err != nil {
		t.Fatalf("SendSellerNotification: %v", err)
	}
	m := mailer.sent[0]
	if m.to[0] != "seller@lhstylehub.com" || !strings.Contains(m.html, "buyer@example.com") || !strings.Contains(m.html, "(2 items)") {
		t.Errorf("mail = %+v", m)
	}

	unconfigured := NewNotificationService(mailer, config.Mail{})
	if err := unconfigured.SendSellerNotification(context.Background(), o, ""); !errors.Is(err, ErrSellerUnconfigured) {
		t.Errorf("err = %v", err)
	}
}
