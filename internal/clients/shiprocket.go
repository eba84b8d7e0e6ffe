package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/models"
)

const gatewayShiprocket = "shiprocket"

// Default parcel used for every apparel shipment.
const (
	parcelLengthCm = 10
	parcelBreadth  = 10
	parcelHeight   = 10
	parcelWeightKg = 0.5
	apparelHSN     = 61091000
)

type ShiprocketClient struct {
	httpClient *http.Client
	cfg        config.Shiprocket
	tokens     *TokenCache
}

// ShipmentResult is the part of a shipment-creation response the store
// keeps. Raw is the full vendor payload.
type ShipmentResult struct {
	AWB         string
	ShipmentID  string
	Courier     string
	TrackingURL string
	Raw         json.RawMessage
}

func NewShiprocketClient(cfg config.Shiprocket, tokens *TokenCache, timeout time.Duration) *ShiprocketClient {
	if tokens == nil {
		tokens = NewTokenCache(cfg.TokenTTL)
	}
	return &ShiprocketClient{
		httpClient: &http.Client{Timeout: timeout},
		cfg:        cfg,
		tokens:     tokens,
	}
}

// Authenticate exchanges the account credentials for a bearer token.
func (c *ShiprocketClient) Authenticate(ctx context.Context) (string, error) {
	start := time.Now()
	body := map[string]string{"email": c.cfg.Email, "password": c.cfg.Password}
	status, resp, err := c.send(ctx, http.MethodPost, "/auth/login", body, "")
	if err == nil && (status < 200 || status >= 300) {
		err = newAPIError(gatewayShiprocket, status, resp)
	}
	var token string
	if err == nil {
		var out struct {
			Token string `json:"token"`
		}
		if jerr := json.Unmarshal(resp, &out); jerr != nil {
			err = fmt.Errorf("decode login response: %w", jerr)
		} else if out.Token == "" {
			err = errors.New("shiprocket login returned no token")
		}
		token = out.Token
	}
	metrics.ObserveGateway(gatewayShiprocket, "authenticate", start, err)
	if err != nil {
		return "", fmt.Errorf("shiprocket authenticate: %w", err)
	}
	return token, nil
}

// CreateShipment registers the order with Shiprocket.
func (c *ShiprocketClient) CreateShipment(ctx context.Context, order *models.Order) (*ShipmentResult, error) {
	start := time.Now()
	raw, err := c.doAuthed(ctx, http.MethodPost, "/orders/create/adhoc", c.shipmentPayload(order))
	metrics.ObserveGateway(gatewayShiprocket, "create_shipment", start, err)
	if err != nil {
		return nil, err
	}
	return parseShipmentResult(raw)
}

// Track returns the vendor's tracking payload for awb unchanged.
func (c *ShiprocketClient) Track(ctx context.Context, awb string) (json.RawMessage, error) {
	start := time.Now()
	raw, err := c.doAuthed(ctx, http.MethodGet, "/courier/track/awb/"+url.PathEscape(awb), nil)
	metrics.ObserveGateway(gatewayShiprocket, "track", start, err)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// doAuthed sends an authenticated request. A 401 drops the cached token and
// the request is retried once with a fresh one.
func (c *ShiprocketClient) doAuthed(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	for attempt := 0; ; attempt++ {
		token, err := c.tokens.Get(ctx, c.Authenticate)
		if err != nil {
			return nil, err
		}
		status, resp, err := c.send(ctx, method, path, body, token)
		if err != nil {
			return nil, err
		}
		if status == http.StatusUnauthorized && attempt == 0 {
			c.tokens.Invalidate(token)
			continue
		}
		if status < 200 || status >= 300 {
			return nil, newAPIError(gatewayShiprocket, status, resp)
		}
		return json.RawMessage(resp), nil
	}
}

func (c *ShiprocketClient) send(ctx context.Context, method, path string, body any, token string) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("shiprocket %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, data, nil
}

type shipmentItem struct {
	Name         string  `json:"name"`
	SKU          string  `json:"sku"`
	Units        int     `json:"units"`
	SellingPrice float64 `json:"selling_price"`
	Discount     float64 `json:"discount"`
	Tax          float64 `json:"tax"`
	HSN          int     `json:"hsn"`
}

type shipmentRequest struct {
	OrderID              string         `json:"order_id"`
	OrderDate            string         `json:"order_date"`
	PickupLocation       string         `json:"pickup_location"`
	ChannelID            string         `json:"channel_id"`
	Comment              string         `json:"comment"`
	BillingCustomerName  string         `json:"billing_customer_name"`
	BillingLastName      string         `json:"billing_last_name"`
	BillingAddress       string         `json:"billing_address"`
	BillingAddress2      string         `json:"billing_address_2"`
	BillingCity          string         `json:"billing_city"`
	BillingPincode       string         `json:"billing_pincode"`
	BillingState         string         `json:"billing_state"`
	BillingCountry       string         `json:"billing_country"`
	BillingEmail         string         `json:"billing_email"`
	BillingPhone         string         `json:"billing_phone"`
	ShippingIsBilling    bool           `json:"shipping_is_billing"`
	ShippingCustomerName string         `json:"shipping_customer_name"`
	ShippingLastName     string         `json:"shipping_last_name"`
	ShippingAddress      string         `json:"shipping_address"`
	ShippingAddress2     string         `json:"shipping_address_2"`
	ShippingCity         string         `json:"shipping_city"`
	ShippingPincode      string         `json:"shipping_pincode"`
	ShippingCountry      string         `json:"shipping_country"`
	ShippingState        string         `json:"shipping_state"`
	ShippingEmail        string         `json:"shipping_email"`
	ShippingPhone        string         `json:"shipping_phone"`
	OrderItems           []shipmentItem `json:"order_items"`
	PaymentMethod        string         `json:"payment_method"`
	ShippingCharges      float64        `json:"shipping_charges"`
	GiftwrapCharges      float64        `json:"giftwrap_charges"`
	TransactionCharges   float64        `json:"transaction_charges"`
	TotalDiscount        float64        `json:"total_discount"`
	SubTotal             float64        `json:"sub_total"`
	Length               float64        `json:"length"`
	Breadth              float64        `json:"breadth"`
	Height               float64        `json:"height"`
	Weight               float64        `json:"weight"`
}

func (c *ShiprocketClient) shipmentPayload(o *models.Order) shipmentRequest {
	a := o.ShippingAddress
	items := make([]shipmentItem, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, shipmentItem{
			Name:         it.Name,
			SKU:          it.ID + "-" + it.SelectedSize,
			Units:        it.Quantity,
			SellingPrice: it.Price,
			HSN:          apparelHSN,
		})
	}
	paymentMethod := "COD"
	if o.PaymentMethod == models.PaymentOnline {
		paymentMethod = "Prepaid"
	}

	return shipmentRequest{
		OrderID:              o.OrderID,
		OrderDate:            o.OrderDate.Format("2006-01-02"),
		PickupLocation:       c.cfg.PickupLocation,
		ChannelID:            c.cfg.ChannelID,
		Comment:              "Auto-created shipment",
		BillingCustomerName:  a.FullName(),
		BillingLastName:      a.LastName,
		BillingAddress:       a.Address,
		BillingCity:          a.City,
		BillingPincode:       a.ZipCode,
		BillingState:         a.State,
		BillingCountry:       a.Country,
		BillingEmail:         a.Email,
		BillingPhone:         a.Phone,
		ShippingIsBilling:    true,
		ShippingCustomerName: a.FullName(),
		ShippingLastName:     a.LastName,
		ShippingAddress:      a.Address,
		ShippingCity:         a.City,
		ShippingPincode:      a.ZipCode,
		ShippingCountry:      a.Country,
		ShippingState:        a.State,
		ShippingEmail:        a.Email,
		ShippingPhone:        a.Phone,
		OrderItems:           items,
		PaymentMethod:        paymentMethod,
		ShippingCharges:      o.Shipping,
		SubTotal:             o.Total,
		Length:               parcelLengthCm,
		Breadth:              parcelBreadth,
		Height:               parcelHeight,
		Weight:               parcelWeightKg,
	}
}

func parseShipmentResult(raw json.RawMessage) (*ShipmentResult, error) {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode shipment response: %w", err)
	}
	res := &ShipmentResult{
		AWB:         firstString(fields, "awb_code", "awb"),
		ShipmentID:  firstString(fields, "shipment_id", "order_id"),
		Courier:     firstString(fields, "courier_name"),
		TrackingURL: firstString(fields, "track_url"),
		Raw:         raw,
	}
	if res.ShipmentID == "" {
		return nil, fmt.Errorf("shipment response has no shipment id: %s", truncate(string(raw), 300))
	}
	if res.Courier == "" {
		res.Courier = "Shiprocket"
	}
	if res.TrackingURL == "" && res.AWB != "" {
		res.TrackingURL = "https://shiprocket.co/tracking/" + res.AWB
	}
	return res, nil
}

// firstString returns the first non-empty value among keys, formatting
// numeric ids without a decimal point.
func firstString(fields map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := fields[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			if v != 0 {
				return fmt.Sprintf("%.0f", v)
			}
		}
	}
	return ""
}

// TrackingStatus extracts the latest human-readable status from a tracking
// payload, or "" when the payload carries none.
func TrackingStatus(raw json.RawMessage) string {
	var payload struct {
		TrackingData struct {
			ShipmentTrack []struct {
				CurrentStatus string `json:"current_status"`
			} `json:"shipment_track"`
			Activities []struct {
				Activity string `json:"activity"`
			} `json:"shipment_track_activities"`
		} `json:"tracking_data"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ""
	}
	for _, t := range payload.TrackingData.ShipmentTrack {
		if t.CurrentStatus != "" {
			return t.CurrentStatus
		}
	}
	for _, a := range payload.TrackingData.Activities {
		if a.Activity != "" {
			return a.Activity
		}
	}
	return ""
}
