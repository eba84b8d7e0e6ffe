package main

import (
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"

	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/catalog"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/clients"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/docstore"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/logging"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/repository"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/routes"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/nats-io/nats.go"
)

func main() {
	logging.Setup("info")

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel)

	if cfg.JWT.Secret == "" {
		slog.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}

	// Database
	if err := database.Connect(cfg.DB); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	// System log sink (WARN+ async batch) and retention
	dbLogHandler := logging.NewDBHandler(database.DB, 5*time.Second)
	logging.Setup(cfg.LogLevel, dbLogHandler)
	cleanupDone := make(chan struct{})
	logging.StartCleanup(database.DB, cfg.LogRetention, cleanupDone)

	// Document store, with a NATS change feed when several instances share the DB
	var (
		feed    docstore.Feed
		natsCon *nats.Conn
	)
	if cfg.NATS.URL != "" {
		natsCon, err = docstore.ConnectNATS(cfg.NATS.URL)
		if err != nil {
			slog.Error("nats connection failed", "url", cfg.NATS.URL, "error", err)
			os.Exit(1)
		}
		nf, err := docstore.NewNATSFeed(natsCon, cfg.NATS.Subject)
		if err != nil {
			slog.Error("nats feed failed", "error", err)
			os.Exit(1)
		}
		feed = nf
		slog.Info("document change feed", "transport", "nats", "subject", cfg.NATS.Subject)
	}
	store := docstore.NewStore(database.DB, feed)

	products, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		slog.Error("failed to load catalog", "path", cfg.CatalogPath, "error", err)
		os.Exit(1)
	}

	// Repositories
	profileRepo := repository.NewProfileRepository(store)
	cartRepo := repository.NewCartRepository(store)
	orderRepo := repository.NewOrderRepository(store)
	intentRepo := repository.NewPaymentIntentRepository(store)

	// Vendor clients
	shiprocket := clients.NewShiprocketClient(cfg.Shiprocket, clients.NewTokenCache(cfg.Shiprocket.TokenTTL), cfg.GatewayTimeout)
	razorpay := clients.NewRazorpayClient(cfg.Razorpay, cfg.GatewayTimeout)
	mailer := clients.NewMailer(cfg.Mail, cfg.GatewayTimeout)

	// Services
	adminPolicy := services.NewAdminPolicy(cfg.Admin, profileRepo)
	authService := services.NewAuthService(database.DB, cfg, profileRepo, adminPolicy)
	cartHub := services.NewCartHub(cartRepo)
	notifier := services.NewNotificationService(mailer, cfg.Mail)
	checkoutService := services.NewCheckoutService(
		cartHub, profileRepo, orderRepo, intentRepo,
		shiprocket, razorpay, notifier,
		cfg.Razorpay.Currency, cfg.GatewayTimeout,
	)
	adminService := services.NewAdminService(orderRepo, shiprocket, cfg.GatewayTimeout)

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(middleware.SecurityHeaders())

	routes.Setup(app, cfg, adminPolicy, routes.Handlers{
		Health:   handlers.NewHealthHandler(database.Ping, products),
		Auth:     handlers.NewAuthHandler(authService, cartHub, products),
		Store:    handlers.NewStoreHandler(products, cartHub, orderRepo),
		Checkout: handlers.NewCheckoutHandler(checkoutService),
		Admin:    handlers.NewAdminHandler(adminService),
		Gateway:  handlers.NewGatewayHandler(shiprocket, shiprocket, notifier, razorpay, cfg.Razorpay.Currency),
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port, "env", cfg.AppEnv, "products", len(products.All()))
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	cartHub.Close()
	if err := store.Close(); err != nil {
		slog.Error("document store close error", "error", err)
	}
	if natsCon != nil {
		natsCon.Close()
	}
	close(cleanupDone)
	dbLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	if err := database.Close(); err != nil {
		slog.Error("database close error", "error", err)
	}

	slog.Info("server stopped")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error",
			"method", c.Method(), "path", c.Path(),
			"request_id", c.GetRespHeader(fiber.HeaderXRequestID), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
