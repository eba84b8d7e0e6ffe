package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/clients"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/models"
	"github.com/gofiber/fiber/v2"
)

type stubVendor struct {
	trackErr    error
	shipErr     error
	mailErr     error
	payErr      error
	lastPaise   int64
	lastCurr    string
	lastReceipt string
	mailed      []string
}

func (s *stubVendor) Track(_ context.Context, awb string) (json.RawMessage, error) {
	if s.trackErr != nil {
		return nil, s.trackErr
	}
	return json.RawMessage(`{"tracking_data":{"awb":"` + awb + `"}}`), nil
}

func (s *stubVendor) CreateShipment(_ context.Context, o *models.Order) (*clients.ShipmentResult, error) {
	if s.shipErr != nil {
		return nil, s.shipErr
	}
	return &clients.ShipmentResult{AWB: "AWB1", Raw: json.RawMessage(`{"shipment_id":7,"order":"` + o.OrderID + `"}`)}, nil
}

func (s *stubVendor) SendOrderConfirmation(_ context.Context, o models.Order) error {
	s.mailed = append(s.mailed, "customer:"+o.OrderID)
	return s.mailErr
}

func (s *stubVendor) SendSellerNotification(_ context.Context, o models.Order, email string) error {
	s.mailed = append(s.mailed, "seller:"+email)
	return s.mailErr
}

func (s *stubVendor) CreateOrder(_ context.Context, paise int64, currency, receipt string) (*clients.RazorpayOrder, error) {
	s.lastPaise, s.lastCurr, s.lastReceipt = paise, currency, receipt
	if s.payErr != nil {
		return nil, s.payErr
	}
	return &clients.RazorpayOrder{ID: "order_1", Raw: json.RawMessage(`{"id":"order_1"}`)}, nil
}

func (s *stubVendor) CapturePayment(_ context.Context, id string, paise int64, currency string) (*clients.RazorpayPayment, error) {
	s.lastPaise, s.lastCurr = paise, currency
	if s.payErr != nil {
		return nil, s.payErr
	}
	return &clients.RazorpayPayment{ID: id, Raw: json.RawMessage(`{"id":"` + id + `","status":"captured"}`)}, nil
}

func gatewayApp(v *stubVendor) *fiber.App {
	h := NewGatewayHandler(v, v, v, v, "INR")
	app := fiber.New()
	app.Post("/api/track", h.Track)
	app.Post("/api/create-shipment", h.CreateShipment)
	app.Post("/api/send-order-confirmation", h.SendOrderConfirmation)
	app.Post("/api/send-seller-notification", h.SendSellerNotification)
	app.Post("/api/create-razorpay-order", h.CreatePaymentOrder)
	app.Post("/api/capture-razorpay-payment", h.CapturePayment)
	return app
}

func post(t *testing.T, app *fiber.App, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("%s: %v", path, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	var out map[string]any
	json.Unmarshal(data, &out)
	return resp.StatusCode, out
}

func TestTrackProxy(t *testing.T) {
	v := &stubVendor{}
	app := gatewayApp(v)

	code, body := post(t, app, "/api/track", `{"awb":"  "}`)
	if code != http.StatusBadRequest || body["error"] != "AWB number required" {
		t.Errorf("missing awb: %d %v", code, body)
	}

	code, body = post(t, app, "/api/track", `{"awb":"AWB42"}`)
	if code != http.StatusOK || body["tracking_data"].(map[string]any)["awb"] != "AWB42" {
		t.Errorf("track: %d %v", code, body)
	}

	v.trackErr = errors.New("upstream down")
	code, body = post(t, app, "/api/track", `{"awb":"AWB42"}`)
	if code != http.StatusInternalServerError || body["error"] != "Tracking failed" || body["details"] != "upstream down" {
		t.Errorf("vendor failure: %d %v", code, body)
	}
}

func TestCreateShipmentProxyCarriesVendorError(t *testing.T) {
	v := &stubVendor{}
	app := gatewayApp(v)

	code, body := post(t, app, "/api/create-shipment", `{"order":{"orderId":"ORD-1"}}`)
	if code != http.StatusOK || body["order"] != "ORD-1" {
		t.Fatalf("create: %d %v", code, body)
	}

	v.shipErr = &clients.APIError{Gateway: "shiprocket", StatusCode: 422, Body: json.RawMessage(`{"message":"Invalid pincode"}`)}
	code, body = post(t, app, "/api/create-shipment", `{"order":{"orderId":"ORD-1"}}`)
	if code != http.StatusInternalServerError {
		t.Fatalf("status = %d", code)
	}
	vendor, _ := body["shiprocketError"].(map[string]any)
	if body["error"] != "Shipment creation failed" || vendor["message"] != "Invalid pincode" {
		t.Errorf("body = %v", body)
	}

	v.shipErr = errors.New("timeout")
	_, body = post(t, app, "/api/create-shipment", `{"order":{"orderId":"ORD-1"}}`)
	if _, ok := body["shiprocketError"]; ok {
		t.Errorf("plain error leaked shiprocketError: %v", body)
	}
}

func TestEmailProxies(t *testing.T) {
	v := &stubVendor{}
	app := gatewayApp(v)

	code, body := post(t, app, "/api/send-order-confirmation", `{"order":{"orderId":"ORD-1"}}`)
	if code != http.StatusOK || body["success"] != true {
		t.Errorf("confirmation: %d %v", code, body)
	}
	code, _ = post(t, app, "/api/send-seller-notification", `{"order":{"orderId":"ORD-1"},"customerEmail":"a@b.com"}`)
	if code != http.StatusOK || len(v.mailed) != 2 || v.mailed[1] != "seller:a@b.com" {
		t.Errorf("seller: %d %v", code, v.mailed)
	}

	v.mailErr = errors.New("smtp refused")
	if code, _ := post(t, app, "/api/send-order-confirmation", `{"order":{"orderId":"ORD-1"}}`); code != http.StatusInternalServerError {
		t.Errorf("failed send status = %d", code)
	}
	if code, _ := post(t, app, "/api/send-seller-notification", `{}`); code != http.StatusBadRequest {
		t.Errorf("missing order status = %d", code)
	}
}

func TestPaymentProxies(t *testing.T) {
	v := &stubVendor{}
	app := gatewayApp(v)

	for _, body := range []string{`{"amount":0}`, `{"amount":-5}`, `{}`} {
		if code, _ := post(t, app, "/api/create-razorpay-order", body); code != http.StatusBadRequest {
			t.Errorf("%s: status %d", body, code)
		}
	}

	code, body := post(t, app, "/api/create-razorpay-order", `{"amount":479,"receipt":"ORD-9"}`)
	if code != http.StatusOK || body["id"] != "order_1" {
		t.Fatalf("create: %d %v", code, body)
	}
	if v.lastPaise != 47900 || v.lastCurr != "INR" || v.lastReceipt != "ORD-9" {
		t.Errorf("forwarded %d %s %s", v.lastPaise, v.lastCurr, v.lastReceipt)
	}

	for _, body := range []string{`{"amount":479}`, `{"paymentId":"pay_1"}`} {
		if code, _ := post(t, app, "/api/capture-razorpay-payment", body); code != http.StatusBadRequest {
			t.Errorf("%s: status %d", body, code)
		}
	}
	code, body = post(t, app, "/api/capture-razorpay-payment", `{"paymentId":"pay_1","amount":19.99,"currency":"USD"}`)
	if code != http.StatusOK || body["status"] != "captured" || v.lastPaise != 1999 || v.lastCurr != "USD" {
		t.Errorf("capture: %d %v (%d %s)", code, body, v.lastPaise, v.lastCurr)
	}

	v.payErr = errors.New("bad key")
	if code, body := post(t, app, "/api/create-razorpay-order", `{"amount":10}`); code != http.StatusInternalServerError || body["details"] != "bad key" {
		t.Errorf("vendor failure: %d %v", code, body)
	}
}
