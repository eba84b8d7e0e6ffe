package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "5000" {
		t.Errorf("Port = %q, want 5000", cfg.Port)
	}
	if cfg.Shiprocket.PickupLocation != "Primary" {
		t.Errorf("PickupLocation = %q, want Primary", cfg.Shiprocket.PickupLocation)
	}
	if cfg.GatewayTimeout != 15*time.Second {
		t.Errorf("GatewayTimeout = %v", cfg.GatewayTimeout)
	}
	if cfg.JWT.Secret != "secret" {
		t.Errorf("JWT.Secret = %q", cfg.JWT.Secret)
	}
}

func TestLoadPrefixedGroups(t *testing.T) {
	t.Setenv("ADMIN_EMAILS", "a@x.com,b@x.com")
	t.Setenv("RAZORPAY_KEY_ID", "rzp_test_1")
	t.Setenv("SHIPROCKET_CHANNEL_ID", "42")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SMTP_HOST", "smtp.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Admin.Emails) != 2 || cfg.Admin.Emails[1] != "b@x.com" {
		t.Errorf("Admin.Emails = %v", cfg.Admin.Emails)
	}
	if cfg.Razorpay.KeyID != "rzp_test_1" {
		t.Errorf("Razorpay.KeyID = %q", cfg.Razorpay.KeyID)
	}
	if cfg.Shiprocket.ChannelID != "42" {
		t.Errorf("Shiprocket.ChannelID = %q", cfg.Shiprocket.ChannelID)
	}
	if cfg.DB.Driver != "sqlite" {
		t.Errorf("DB.Driver = %q", cfg.DB.Driver)
	}
	if !cfg.Mail.SMTPEnabled() {
		t.Error("SMTPEnabled = false, want true")
	}
}

func TestDSNPrefersURL(t *testing.T) {
	d := Database{URL: "postgres://u:p@h/db", Host: "ignored"}
	if d.DSN() != "postgres://u:p@h/db" {
		t.Errorf("DSN = %q", d.DSN())
	}

	d = Database{Host: "db", User: "u", Password: "p", Name: "n", Port: "5432", SSLMode: "disable"}
	want := "host=db user=u password=p dbname=n port=5432 sslmode=disable TimeZone=UTC"
	if d.DSN() != want {
		t.Errorf("DSN = %q, want %q", d.DSN(), want)
	}
}
