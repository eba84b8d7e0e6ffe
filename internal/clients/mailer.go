package clients

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/metrics"
	"github.com/wneessen/go-mail"
)

const gatewayMail = "mail"

// Mailer delivers one HTML message.
type Mailer interface {
	Send(ctx context.Context, to []string, subject, html string) error
}

type SMTPMailer struct {
	cfg     config.Mail
	timeout time.Duration
}

func NewSMTPMailer(cfg config.Mail, timeout time.Duration) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, timeout: timeout}
}

func (m *SMTPMailer) Send(ctx context.Context, to []string, subject, html string) error {
	start := time.Now()
	err := m.send(ctx, to, subject, html)
	metrics.ObserveGateway(gatewayMail, "send", start, err)
	return err
}

func (m *SMTPMailer) send(ctx context.Context, to []string, subject, html string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(to...); err != nil {
		return fmt.Errorf("invalid recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, html)

	opts := []mail.Option{
		mail.WithPort(m.cfg.SMTPPort),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(m.timeout),
	}
	if m.cfg.SMTPUsername != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.SMTPUsername),
			mail.WithPassword(m.cfg.SMTPPassword),
		)
	}
	client, err := mail.NewClient(m.cfg.SMTPHost, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// LogMailer only logs messages. It is used when no SMTP host is configured.
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, to []string, subject, html string) error {
	slog.Info("mail delivery disabled, message dropped", "gateway", gatewayMail, "to", to, "subject", subject, "bytes", len(html))
	return nil
}

// NewMailer picks SMTP delivery when a host is configured.
func NewMailer(cfg config.Mail, timeout time.Duration) Mailer {
	if cfg.SMTPEnabled() {
		return NewSMTPMailer(cfg, timeout)
	}
	return LogMailer{}
}
