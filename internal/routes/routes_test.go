package routes

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/catalog"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/clients"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/docstore"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/docstore/docstoretest"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/repository"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

// shipper fails shipment creation so checkout exercises the placeholder path.
type shipper struct{}

func (shipper) CreateShipment(context.Context, *models.Order) (*clients.ShipmentResult, error) {
	return nil, errors.New("shiprocket unavailable")
}

func (shipper) Track(context.Context, string) (json.RawMessage, error) {
	return json.RawMessage(`{"tracking_data":{}}`), nil
}

type noPayments struct{}

func (noPayments) KeyID() string { return "rzp_test" }
func (noPayments) CreateOrder(context.Context, int64, string, string) (*clients.RazorpayOrder, error) {
	return nil, errors.New("disabled")
}
func (noPayments) FetchPayment(context.Context, string) (*clients.RazorpayPayment, error) {
	return nil, errors.New("disabled")
}
func (noPayments) CapturePayment(context.Context, string, int64, string) (*clients.RazorpayPayment, error) {
	return nil, errors.New("disabled")
}
func (noPayments) VerifyPaymentSignature(string, string, string) bool { return false }

const adminToken = "admin-secret"

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	db := docstoretest.NewDB(t, &models.Account{}, &models.RefreshToken{})
	store := docstore.NewStore(db, nil)
	t.Cleanup(func() { store.Close() })

	products, err := catalog.Load("")
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}

	cfg := &config.Config{JWT: config.JWT{Secret: "routes-secret", AccessExpiry: time.Minute, RefreshExpiry: time.Hour}}
	profiles := repository.NewProfileRepository(store)
	orders := repository.NewOrderRepository(store)
	policy := services.NewAdminPolicy(config.Admin{Token: adminToken}, profiles)
	hub := services.NewCartHub(repository.NewCartRepository(store))
	t.Cleanup(hub.Close)
	notifier := services.NewNotificationService(clients.NewMailer(config.Mail{}, time.Second), config.Mail{StoreName: "LH STYLEHUB"})
	checkout := services.NewCheckoutService(hub, profiles, orders, repository.NewPaymentIntentRepository(store),
		shipper{}, noPayments{}, notifier, "INR", time.Second)

	app := fiber.New()
	Setup(app, cfg, policy, Handlers{
		Health:   handlers.NewHealthHandler(func() error { return nil }, products),
		Auth:     handlers.NewAuthHandler(services.NewAuthService(db, cfg, profiles, policy), hub, products),
		Store:    handlers.NewStoreHandler(products, hub, orders),
		Checkout: handlers.NewCheckoutHandler(checkout),
		Admin:    handlers.NewAdminHandler(services.NewAdminService(orders, shipper{}, time.Second)),
		Gateway:  handlers.NewGatewayHandler(shipper{}, shipper{}, notifier, noPayments{}, "INR"),
	})
	return app
}

type call struct {
	method, path, body string
	header             map[string]string
}

func do(t *testing.T, app *fiber.App, c call) (int, []byte) {
	t.Helper()
	var body io.Reader
	if c.body != "" {
		body = strings.NewReader(c.body)
	}
	req := httptest.NewRequest(c.method, c.path, body)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.header {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req, 5000)
	if err != nil {
		t.Fatalf("%s %s: %v", c.method, c.path, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, data
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func signup(t *testing.T, app *fiber.App) string {
	t.Helper()
	code, data := do(t, app, call{method: "POST", path: "/api/auth/signup",
		body: `{"email":"asha@example.com","password":"password1","firstName":"Asha","lastName":"Rao","phone":"9876543210"}`})
	if code != http.StatusCreated {
		t.Fatalf("signup: %d %s", code, data)
	}
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	json.Unmarshal(data, &resp)
	if resp.AccessToken == "" {
		t.Fatalf("no access token in %s", data)
	}
	return resp.AccessToken
}

const shippingForm = `{"shippingAddress":{"firstName":"Asha","lastName":"Rao","email":"asha@example.com",
"phone":"9876543210","address":"12 MG Road","city":"Bengaluru","state":"Karnataka","zipCode":"560001"}}`

func TestPublicEndpoints(t *testing.T) {
	app := newTestApp(t)

	code, data := do(t, app, call{method: "GET", path: "/api/health"})
	if code != http.StatusOK || !strings.Contains(string(data), `"product_count":3`) {
		t.Errorf("health: %d %s", code, data)
	}
	if code, _ := do(t, app, call{method: "GET", path: "/api/products/1"}); code != http.StatusOK {
		t.Errorf("product: %d", code)
	}
	if code, _ := do(t, app, call{method: "GET", path: "/api/products/nope"}); code != http.StatusNotFound {
		t.Errorf("missing product: %d", code)
	}
	if code, _ := do(t, app, call{method: "GET", path: "/metrics"}); code != http.StatusOK {
		t.Errorf("metrics: %d", code)
	}
	if code, _ := do(t, app, call{method: "POST", path: "/api/track", body: `{}`}); code != http.StatusBadRequest {
		t.Errorf("track without awb: %d", code)
	}
	if code, _ := do(t, app, call{method: "POST", path: "/api/create-razorpay-order", body: `{"amount":10}`}); code != http.StatusUnauthorized {
		t.Errorf("anonymous payment order: %d", code)
	}
}

func TestLoginReplaysPendingCartAdd(t *testing.T) {
	app := newTestApp(t)
	signup(t, app)

	code, data := do(t, app, call{method: "POST", path: "/api/auth/login",
		body: `{"email":"asha@example.com","password":"password1","pendingAdd":{"productId":"1","size":"M"}}`})
	var login struct {
		AccessToken string `json:"access_token"`
		Cart        *struct {
			Count int `json:"count"`
		} `json:"cart"`
	}
	json.Unmarshal(data, &login)
	if code != http.StatusOK || login.Cart == nil || login.Cart.Count != 1 {
		t.Fatalf("login: %d %s", code, data)
	}

	code, data = do(t, app, call{method: "GET", path: "/api/cart", header: bearer(login.AccessToken)})
	if code != http.StatusOK || !strings.Contains(string(data), `"count":1`) {
		t.Errorf("cart after login: %d %s", code, data)
	}

	code, data = do(t, app, call{method: "POST", path: "/api/auth/login",
		body: `{"email":"asha@example.com","password":"password1","pendingAdd":{"productId":"1","size":"XXS"}}`})
	if code != http.StatusOK || strings.Contains(string(data), `"cart"`) {
		t.Errorf("stale pending add: %d %s", code, data)
	}
}

func TestCartToCashOnDeliveryOrder(t *testing.T) {
	app := newTestApp(t)
	auth := bearer(signup(t, app))

	if code, _ := do(t, app, call{method: "GET", path: "/api/cart"}); code != http.StatusUnauthorized {
		t.Errorf("anonymous cart: %d", code)
	}
	if code, _ := do(t, app, call{method: "POST", path: "/api/cart/items", body: `{"productId":"1","size":"XXS"}`, header: auth}); code != http.StatusBadRequest {
		t.Errorf("bad size: %d", code)
	}
	do(t, app, call{method: "POST", path: "/api/cart/items", body: `{"productId":"1","size":"M"}`, header: auth})
	code, data := do(t, app, call{method: "POST", path: "/api/cart/items", body: `{"productId":"1","size":"M"}`, header: auth})
	var cart struct {
		Count int     `json:"count"`
		Total float64 `json:"total"`
	}
	json.Unmarshal(data, &cart)
	if code != http.StatusOK || cart.Count != 2 {
		t.Fatalf("add: %d %s", code, data)
	}

	code, data = do(t, app, call{method: "POST", path: "/api/checkout", body: `{"shippingAddress":{"firstName":"Asha"}}`, header: auth})
	if code != http.StatusBadRequest || !strings.Contains(string(data), `"fields"`) || !strings.Contains(string(data), `"zipCode"`) {
		t.Errorf("invalid form: %d %s", code, data)
	}

	code, data = do(t, app, call{method: "POST", path: "/api/checkout", body: shippingForm, header: auth})
	if code != http.StatusCreated {
		t.Fatalf("checkout: %d %s", code, data)
	}
	var placed struct {
		Order    models.Order `json:"order"`
		State    string       `json:"state"`
		Degraded bool         `json:"degraded"`
	}
	json.Unmarshal(data, &placed)
	if placed.State != "done" || !placed.Degraded || placed.Order.AmountDue != cart.Total {
		t.Errorf("placed = %+v", placed)
	}
	if placed.Order.Shipment == nil || placed.Order.Shipment.Trackable() {
		t.Errorf("expected placeholder shipment, got %+v", placed.Order.Shipment)
	}

	_, data = do(t, app, call{method: "GET", path: "/api/cart", header: auth})
	json.Unmarshal(data, &cart)
	if cart.Count != 0 {
		t.Errorf("cart not cleared: %s", data)
	}

	_, data = do(t, app, call{method: "GET", path: "/api/orders", header: auth})
	var mine []models.Order
	json.Unmarshal(data, &mine)
	if len(mine) != 1 || mine[0].OrderID != placed.Order.OrderID {
		t.Errorf("orders = %s", data)
	}
	if code, _ := do(t, app, call{method: "GET", path: "/api/orders/last", header: auth}); code != http.StatusOK {
		t.Errorf("last order: %d", code)
	}

	if code, _ := do(t, app, call{method: "POST", path: "/api/checkout", body: shippingForm, header: auth}); code != http.StatusBadRequest {
		t.Errorf("empty cart checkout: %d", code)
	}
}

func TestAdminConsoleAccess(t *testing.T) {
	app := newTestApp(t)
	customer := bearer(signup(t, app))
	admin := map[string]string{"X-Admin-Token": adminToken}

	if code, _ := do(t, app, call{method: "GET", path: "/api/admin/orders", header: customer}); code != http.StatusForbidden {
		t.Errorf("customer: %d", code)
	}

	code, data := do(t, app, call{method: "POST", path: "/api/admin/orders", header: admin, body: `{"items":[{"id":"2","name":"Hoodie","price":400,"selectedSize":"L","quantity":1}],` + strings.TrimPrefix(shippingForm, "{")})
	if code != http.StatusCreated {
		t.Fatalf("manual order: %d %s", code, data)
	}
	var created models.Order
	json.Unmarshal(data, &created)
	base := "/api/admin/orders/" + repository.AdminNamespace + "/" + created.Key

	if code, _ := do(t, app, call{method: "PATCH", path: base + "/status", header: admin, body: `{"status":"lost"}`}); code != http.StatusBadRequest {
		t.Errorf("bad status: %d", code)
	}
	if code, _ := do(t, app, call{method: "PATCH", path: base + "/status", header: admin, body: `{"status":"shipped"}`}); code != http.StatusOK {
		t.Errorf("status: %d", code)
	}
	if code, _ := do(t, app, call{method: "DELETE", path: base, header: admin}); code != http.StatusBadRequest {
		t.Errorf("unconfirmed delete: %d", code)
	}

	code, data = do(t, app, call{method: "GET", path: "/api/admin/orders", header: admin})
	var list []services.AdminOrder
	json.Unmarshal(data, &list)
	if code != http.StatusOK || len(list) != 1 || list[0].Status != models.OrderShipped {
		t.Errorf("list: %d %s", code, data)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/admin/orders/export", nil)
	req.Header.Set("X-Admin-Token", adminToken)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Errorf("export content type = %q", ct)
	}

	if code, _ := do(t, app, call{method: "DELETE", path: base + "?confirm=true", header: admin}); code != http.StatusOK {
		t.Errorf("confirmed delete: %d", code)
	}
	if code, _ := do(t, app, call{method: "PATCH", path: base + "/status", header: admin, body: `{"status":"shipped"}`}); code != http.StatusNotFound {
		t.Errorf("status on deleted order: %d", code)
	}
}
