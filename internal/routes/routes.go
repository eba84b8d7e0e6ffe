package routes

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	Health   *handlers.HealthHandler
	Auth     *handlers.AuthHandler
	Store    *handlers.StoreHandler
	Checkout *handlers.CheckoutHandler
	Admin    *handlers.AdminHandler
	Gateway  *handlers.GatewayHandler
}

func perIP(max int) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:               max,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	})
}

func Setup(app *fiber.App, cfg *config.Config, policy *services.AdminPolicy, h Handlers) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")

	// General API rate limiter: 120 req/min per IP
	api.Use(perIP(120))

	api.Get("/health", h.Health.Check)
	api.Get("/products", h.Store.ListProducts)
	api.Get("/products/:id", h.Store.GetProduct)

	// Auth-specific rate limit: 10 req/min per IP
	auth := api.Group("/auth", perIP(10))
	auth.Post("/signup", h.Auth.Register)
	auth.Post("/login", h.Auth.Login)
	auth.Post("/refresh", h.Auth.Refresh)

	jwt := middleware.JWTProtected(cfg)
	api.Post("/auth/logout", jwt, h.Auth.Logout)
	api.Get("/profile", jwt, h.Auth.Profile)
	api.Patch("/profile", jwt, h.Auth.UpdateProfile)

	cart := api.Group("/cart", jwt)
	cart.Get("/", h.Store.GetCart)
	cart.Post("/items", h.Store.AddToCart)
	cart.Patch("/items/:productId/:size", h.Store.UpdateCartItem)
	cart.Delete("/items/:productId/:size", h.Store.RemoveCartItem)
	cart.Delete("/", h.Store.ClearCart)

	checkout := api.Group("/checkout", jwt, perIP(20))
	checkout.Post("/", h.Checkout.PlaceOrder)
	checkout.Post("/online", h.Checkout.BeginOnlinePayment)
	checkout.Post("/online/confirm", h.Checkout.ConfirmOnlinePayment)

	api.Get("/orders", jwt, h.Store.ListOrders)
	api.Get("/orders/last", jwt, h.Store.LastOrder)

	// Vendor proxies. Tracking is public; the rest act on orders and money.
	api.Post("/track", perIP(30), h.Gateway.Track)
	// Middleware goes on each route: a group with an empty prefix would
	// guard every /api path registered after it.
	jwtOrToken := middleware.JWTProtected(cfg, middleware.HasAdminToken(policy))
	api.Post("/create-shipment", jwtOrToken, h.Gateway.CreateShipment)
	api.Post("/send-order-confirmation", jwtOrToken, h.Gateway.SendOrderConfirmation)
	api.Post("/send-seller-notification", jwtOrToken, h.Gateway.SendSellerNotification)
	api.Post("/create-razorpay-order", jwtOrToken, h.Gateway.CreatePaymentOrder)
	api.Post("/capture-razorpay-payment", jwtOrToken, h.Gateway.CapturePayment)

	admin := api.Group("/admin", jwtOrToken, middleware.AdminRequired(policy))
	admin.Get("/orders", h.Admin.ListOrders)
	admin.Post("/orders", h.Admin.CreateOrder)
	admin.Get("/orders/export", h.Admin.ExportOrders)
	admin.Post("/orders/refresh-tracking", h.Admin.RefreshAllTracking)
	admin.Patch("/orders/:uid/:key/status", h.Admin.UpdateStatus)
	admin.Post("/orders/:uid/:key/cancel", h.Admin.CancelOrder)
	admin.Delete("/orders/:uid/:key", h.Admin.DeleteOrder)
	admin.Put("/orders/:uid/:key/shipment", h.Admin.UpdateShipment)
	admin.Post("/orders/:uid/:key/tracking", h.Admin.RefreshTracking)
}
