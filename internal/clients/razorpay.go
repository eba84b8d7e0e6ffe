package clients

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/metrics"
)

const gatewayRazorpay = "razorpay"

type RazorpayClient struct {
	httpClient *http.Client
	cfg        config.Razorpay
}

type RazorpayOrder struct {
	ID       string          `json:"id"`
	Amount   int64           `json:"amount"`
	Currency string          `json:"currency"`
	Receipt  string          `json:"receipt"`
	Status   string          `json:"status"`
	Raw      json.RawMessage `json:"-"`
}

type RazorpayPayment struct {
	ID       string          `json:"id"`
	OrderID  string          `json:"order_id"`
	Amount   int64           `json:"amount"`
	Currency string          `json:"currency"`
	Status   string          `json:"status"`
	Captured bool            `json:"captured"`
	Method   string          `json:"method"`
	Raw      json.RawMessage `json:"-"`
}

// Payment states reported by the gateway.
const (
	PaymentStatusAuthorized = "authorized"
	PaymentStatusCaptured   = "captured"
)

func NewRazorpayClient(cfg config.Razorpay, timeout time.Duration) *RazorpayClient {
	return &RazorpayClient{
		httpClient: &http.Client{Timeout: timeout},
		cfg:        cfg,
	}
}

// KeyID is the public key the storefront hands to the hosted checkout.
func (c *RazorpayClient) KeyID() string {
	return c.cfg.KeyID
}

// CreateOrder opens a gateway order for amount paise.
func (c *RazorpayClient) CreateOrder(ctx context.Context, amountPaise int64, currency, receipt string) (*RazorpayOrder, error) {
	if currency == "" {
		currency = c.cfg.Currency
	}
	body := map[string]any{
		"amount":   amountPaise,
		"currency": currency,
		"receipt":  receipt,
	}

	start := time.Now()
	raw, err := c.do(ctx, http.MethodPost, "/orders", body)
	metrics.ObserveGateway(gatewayRazorpay, "create_order", start, err)
	if err != nil {
		return nil, err
	}
	var order RazorpayOrder
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, fmt.Errorf("decode razorpay order: %w", err)
	}
	order.Raw = raw
	return &order, nil
}

func (c *RazorpayClient) FetchPayment(ctx context.Context, paymentID string) (*RazorpayPayment, error) {
	start := time.Now()
	raw, err := c.do(ctx, http.MethodGet, "/payments/"+url.PathEscape(paymentID), nil)
	metrics.ObserveGateway(gatewayRazorpay, "fetch_payment", start, err)
	if err != nil {
		return nil, err
	}
	return decodePayment(raw)
}

// CapturePayment captures an authorized payment. amountPaise must equal the
// authorized amount.
func (c *RazorpayClient) CapturePayment(ctx context.Context, paymentID string, amountPaise int64, currency string) (*RazorpayPayment, error) {
	if currency == "" {
		currency = c.cfg.Currency
	}
	body := map[string]any{"amount": amountPaise, "currency": currency}

	start := time.Now()
	raw, err := c.do(ctx, http.MethodPost, "/payments/"+url.PathEscape(paymentID)+"/capture", body)
	metrics.ObserveGateway(gatewayRazorpay, "capture_payment", start, err)
	if err != nil {
		return nil, err
	}
	return decodePayment(raw)
}

// VerifyPaymentSignature checks the checkout callback signature, an
// HMAC-SHA256 of "order_id|payment_id" keyed with the key secret.
func (c *RazorpayClient) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	expected := SignPayment(c.cfg.KeySecret, orderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// SignPayment computes the signature the gateway attaches to a successful payment.
func SignPayment(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func (c *RazorpayClient) do(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.SetBasicAuth(c.cfg.KeyID, c.cfg.KeySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("razorpay %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newAPIError(gatewayRazorpay, resp.StatusCode, data)
	}
	return json.RawMessage(data), nil
}

func decodePayment(raw json.RawMessage) (*RazorpayPayment, error) {
	var p RazorpayPayment
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode razorpay payment: %w", err)
	}
	p.Raw = raw
	return &p, nil
}
