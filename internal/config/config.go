package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv      string `env:"APP_ENV" envDefault:"development"`
	Port        string `env:"PORT" envDefault:"5000"`
	CORSOrigins string `env:"CORS_ORIGINS" envDefault:"*"`
	SentryDSN   string `env:"SENTRY_DSN"`

	LogLevel     string        `env:"LOG_LEVEL" envDefault:"info"`
	LogRetention time.Duration `env:"LOG_RETENTION" envDefault:"720h"`

	// Upper bound for every vendor call made during checkout and admin actions.
	GatewayTimeout time.Duration `env:"GATEWAY_TIMEOUT" envDefault:"15s"`

	// Optional JSON file replacing the embedded product catalog.
	CatalogPath string `env:"CATALOG_PATH"`

	DB         Database   `envPrefix:"DB_"`
	JWT        JWT        `envPrefix:"JWT_"`
	Admin      Admin      `envPrefix:"ADMIN_"`
	Shiprocket Shiprocket `envPrefix:"SHIPROCKET_"`
	Razorpay   Razorpay   `envPrefix:"RAZORPAY_"`
	Mail       Mail
	NATS       NATS `envPrefix:"NATS_"`
}

type Database struct {
	Driver   string `env:"DRIVER" envDefault:"postgres"`
	URL      string `env:"URL"`
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     string `env:"PORT" envDefault:"5432"`
	User     string `env:"USER" envDefault:"postgres"`
	Password string `env:"PASSWORD"`
	Name     string `env:"NAME" envDefault:"stylehub"`
	SSLMode  string `env:"SSLMODE" envDefault:"disable"`

	// Used when Driver is sqlite.
	SQLitePath string `env:"SQLITE_PATH" envDefault:"stylehub.db"`
}

type JWT struct {
	Secret        string        `env:"SECRET"`
	AccessExpiry  time.Duration `env:"ACCESS_EXPIRY" envDefault:"15m"`
	RefreshExpiry time.Duration `env:"REFRESH_EXPIRY" envDefault:"168h"`
}

type Admin struct {
	Emails  []string `env:"EMAILS" envSeparator:","`
	UserIDs []string `env:"USER_IDS" envSeparator:","`
	Token   string   `env:"TOKEN"`
}

type Shiprocket struct {
	BaseURL        string        `env:"BASE_URL" envDefault:"https://apiv2.shiprocket.in/v1/external"`
	Email          string        `env:"EMAIL"`
	Password       string        `env:"PASSWORD"`
	PickupLocation string        `env:"PICKUP_LOCATION" envDefault:"Primary"`
	ChannelID      string        `env:"CHANNEL_ID"`
	TokenTTL       time.Duration `env:"TOKEN_TTL" envDefault:"216h"`
}

type Razorpay struct {
	BaseURL   string `env:"BASE_URL" envDefault:"https://api.razorpay.com/v1"`
	KeyID     string `env:"KEY_ID"`
	KeySecret string `env:"KEY_SECRET"`
	Currency  string `env:"CURRENCY" envDefault:"INR"`
}

type Mail struct {
	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	From         string `env:"MAIL_FROM" envDefault:"LH STYLEHUB <orders@lhstylehub.com>"`
	SellerEmail  string `env:"SELLER_EMAIL"`
	StoreName    string `env:"STORE_NAME" envDefault:"LH STYLEHUB"`
}

type NATS struct {
	URL     string `env:"URL"`
	Subject string `env:"SUBJECT" envDefault:"stylehub.docstore.changes"`
}

// Load reads .env (if present) into the process environment and parses it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func (d Database) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return "host=" + d.Host +
		" user=" + d.User +
		" password=" + d.Password +
		" dbname=" + d.Name +
		" port=" + d.Port +
		" sslmode=" + d.SSLMode +
		" TimeZone=UTC"
}

func (m Mail) SMTPEnabled() bool {
	return m.SMTPHost != ""
}
