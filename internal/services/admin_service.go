package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/clients"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/repository"
	"github.com/tealeg/xlsx"
	"golang.org/x/sync/errgroup"
)

var (
	ErrInvalidStatus        = errors.New("invalid order status")
	ErrConfirmationRequired = errors.New("deletion must be confirmed")
	ErrNoTrackingNumber     = errors.New("order has no tracking number")
	ErrAWBRequired          = errors.New("AWB number required")
)

const refreshConcurrency = 4

// ShipmentTracker looks up carrier tracking by AWB.
type ShipmentTracker interface {
	Track(ctx context.Context, awb string) (json.RawMessage, error)
}

// AdminOrder is an order flattened with the owner's profile fields.
type AdminOrder struct {
	models.Order
	UserID    string `json:"userId"`
	UserEmail string `json:"userEmail"`
	UserName  string `json:"userName"`
}

type ShipmentUpdate struct {
	AWB         string `json:"awb"`
	Courier     string `json:"courier"`
	TrackingURL string `json:"trackingUrl"`
	ShipmentID  string `json:"shipmentId"`
}

type ManualOrderInput struct {
	Items         []models.CartEntry   `json:"items"`
	Address       models.Address       `json:"shippingAddress"`
	PaymentMethod models.PaymentMethod `json:"paymentMethod"`
	Status        models.OrderStatus   `json:"status"`
}

type TrackingSummary struct {
	Checked int `json:"checked"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

type AdminService struct {
	orders  repository.OrderRepository
	tracker ShipmentTracker
	timeout time.Duration
	now     func() time.Time
}

func NewAdminService(orders repository.OrderRepository, tracker ShipmentTracker, timeout time.Duration) *AdminService {
	return &AdminService{orders: orders, tracker: tracker, timeout: timeout, now: time.Now}
}

// ListOrders returns every order across all users, newest first.
func (s *AdminService) ListOrders(ctx context.Context) ([]AdminOrder, error) {
	owned, err := s.orders.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	out := make([]AdminOrder, 0, len(owned))
	for _, o := range owned {
		row := AdminOrder{Order: o.Order, UserID: o.UID}
		if o.Profile != nil {
			row.UserEmail = o.Profile.Email
			row.UserName = o.Profile.Name()
		} else {
			row.UserEmail = o.Order.UserInfo.Email
			row.UserName = o.Order.ShippingAddress.FullName()
		}
		out = append(out, row)
	}
	return out, nil
}

// UpdateStatus sets any valid status regardless of the current one.
func (s *AdminService) UpdateStatus(ctx context.Context, uid, key string, status models.OrderStatus) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}
	if _, err := s.orders.Get(ctx, uid, key); err != nil {
		return err
	}
	if err := s.orders.Update(ctx, uid, key, map[string]any{"status": status}); err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	metrics.AdminActions.WithLabelValues("status").Inc()
	slog.Info("order status changed", "user_id", uid, "order_key", key, "status", status)
	return nil
}

func (s *AdminService) CancelOrder(ctx context.Context, uid, key, reason string) error {
	if _, err := s.orders.Get(ctx, uid, key); err != nil {
		return err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "Cancelled by seller"
	}
	err := s.orders.Update(ctx, uid, key, map[string]any{
		"status":       models.OrderCancelled,
		"cancellation": models.Cancellation{Reason: reason, CancelledAt: s.now().UTC()},
	})
	if err != nil {
		return fmt.Errorf("cancel order: %w", err)
	}
	metrics.AdminActions.WithLabelValues("cancel").Inc()
	slog.Info("order cancelled", "user_id", uid, "order_key", key, "reason", reason)
	return nil
}

// DeleteOrder physically removes the order. confirm must be set by the caller.
func (s *AdminService) DeleteOrder(ctx context.Context, uid, key string, confirm bool) error {
	if !confirm {
		return ErrConfirmationRequired
	}
	order, err := s.orders.Get(ctx, uid, key)
	if err != nil {
		return err
	}
	if err := s.orders.Remove(ctx, uid, key); err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	metrics.AdminActions.WithLabelValues("delete").Inc()
	slog.Warn("order deleted", "user_id", uid, "order_key", key, "order_id", order.OrderID)
	return nil
}

// UpdateShipment applies a manual AWB or courier override.
func (s *AdminService) UpdateShipment(ctx context.Context, uid, key string, in ShipmentUpdate) (*models.Shipment, error) {
	order, err := s.orders.Get(ctx, uid, key)
	if err != nil {
		return nil, err
	}
	in.AWB = strings.TrimSpace(in.AWB)
	if in.AWB == "" {
		return nil, ErrAWBRequired
	}

	now := s.now().UTC()
	shipment := models.Shipment{CreatedAt: now}
	if order.Shipment != nil {
		shipment = *order.Shipment
	}
	if in.AWB != shipment.AWB {
		shipment.LastStatus = ""
	}
	shipment.AWB = in.AWB
	courier := orDefault(strings.TrimSpace(in.Courier), shipment.Courier)
	if courier == "" || courier == models.ShipmentCourierUnassigned {
		courier = "Shiprocket"
	}
	shipment.Courier = courier
	shipment.ShipmentID = orDefault(strings.TrimSpace(in.ShipmentID), shipment.ShipmentID)
	if shipment.ShipmentID == models.ShipmentIDManual {
		shipment.ShipmentID = ""
	}
	shipment.TrackingURL = orDefault(strings.TrimSpace(in.TrackingURL), "https://shiprocket.co/tracking/"+in.AWB)
	shipment.Status = models.ShipmentStatusCreated
	shipment.UpdatedAt = &now

	if err := s.orders.SetShipment(ctx, uid, key, shipment); err != nil {
		return nil, fmt.Errorf("update shipment: %w", err)
	}
	metrics.AdminActions.WithLabelValues("shipment").Inc()
	slog.Info("shipment updated", "user_id", uid, "order_key", key, "awb", shipment.AWB, "courier", shipment.Courier)
	return &shipment, nil
}

// RefreshTracking fetches the carrier's tracking and stores its latest status.
func (s *AdminService) RefreshTracking(ctx context.Context, uid, key string) (json.RawMessage, *models.Shipment, error) {
	order, err := s.orders.Get(ctx, uid, key)
	if err != nil {
		return nil, nil, err
	}
	return s.refresh(ctx, uid, key, order.Shipment)
}

func (s *AdminService) refresh(ctx context.Context, uid, key string, shipment *models.Shipment) (json.RawMessage, *models.Shipment, error) {
	if !shipment.Trackable() {
		return nil, nil, ErrNoTrackingNumber
	}

	tctx, cancel := context.WithTimeout(ctx, s.timeout)
	raw, err := s.tracker.Track(tctx, shipment.AWB)
	cancel()
	if err != nil {
		return nil, nil, fmt.Errorf("track %s: %w", shipment.AWB, err)
	}

	updated := *shipment
	now := s.now().UTC()
	updated.UpdatedAt = &now
	if status := clients.TrackingStatus(raw); status != "" {
		updated.LastStatus = status
	}
	err = s.orders.Update(ctx, uid, key, map[string]any{
		"shipment/lastStatus": updated.LastStatus,
		"shipment/updatedAt":  now,
	})
	if err != nil {
		return raw, nil, fmt.Errorf("save tracking status: %w", err)
	}
	metrics.AdminActions.WithLabelValues("track").Inc()
	return raw, &updated, nil
}

// RefreshAllTracking refreshes every open order that has a carrier AWB.
// Individual failures are counted and logged.
func (s *AdminService) RefreshAllTracking(ctx context.Context) (TrackingSummary, error) {
	owned, err := s.orders.ListAll(ctx)
	if err != nil {
		return TrackingSummary{}, fmt.Errorf("list orders: %w", err)
	}

	var checked, updated, failed atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(refreshConcurrency)
	for _, o := range owned {
		if !o.Order.Shipment.Trackable() || o.Order.Status == models.OrderDelivered || o.Order.Status == models.OrderCancelled {
			continue
		}
		o := o
		g.Go(func() error {
			checked.Add(1)
			_, sh, err := s.refresh(gctx, o.UID, o.Order.Key, o.Order.Shipment)
			if err != nil {
				failed.Add(1)
				slog.Warn("tracking refresh failed", "user_id", o.UID, "order_id", o.Order.OrderID, "gateway", "shiprocket", "error", err)
				return nil
			}
			if sh.LastStatus != o.Order.Shipment.LastStatus {
				updated.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return TrackingSummary{}, err
	}
	return TrackingSummary{
		Checked: int(checked.Load()),
		Updated: int(updated.Load()),
		Failed:  int(failed.Load()),
	}, nil
}

// CreateManualOrder records an order taken outside the storefront under the
// admin namespace. It does not create a shipment.
func (s *AdminService) CreateManualOrder(ctx context.Context, in ManualOrderInput) (*models.Order, error) {
	if len(in.Items) == 0 {
		return nil, ErrEmptyCart
	}
	if err := ValidateItems(in.Items); err != nil {
		return nil, err
	}
	addr, err := ValidateAddress(in.Address)
	if err != nil {
		return nil, err
	}
	if in.PaymentMethod == "" {
		in.PaymentMethod = models.PaymentCOD
	}
	if !in.PaymentMethod.Valid() {
		return nil, fmt.Errorf("invalid payment method %q", in.PaymentMethod)
	}

	order := BuildOrder(in.Items, nil, addr, s.now())
	applyTotals(&order, PriceCart(in.Items))
	order.PaymentMethod = in.PaymentMethod
	if in.Status != "" {
		if !in.Status.Valid() {
			return nil, ErrInvalidStatus
		}
		order.Status = in.Status
	}

	if _, err := s.orders.Append(ctx, repository.AdminNamespace, &order); err != nil {
		return nil, fmt.Errorf("save manual order: %w", err)
	}
	metrics.AdminActions.WithLabelValues("create").Inc()
	slog.Info("manual order created", "order_id", order.OrderID, "order_key", order.Key)
	return &order, nil
}

var exportHeaders = []string{
	"Order ID", "Order Date", "Status", "Customer", "Email", "Phone",
	"Address", "City", "State", "PIN", "Items", "Subtotal", "Shipping",
	"Amount Due", "Payment", "AWB", "Courier", "Shipment Status",
}

// ExportOrders writes all orders as an xlsx workbook.
func (s *AdminService) ExportOrders(ctx context.Context, w io.Writer) error {
	orders, err := s.ListOrders(ctx)
	if err != nil {
		return err
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Orders")
	if err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}
	header := sheet.AddRow()
	for _, h := range exportHeaders {
		header.AddCell().SetValue(h)
	}

	for _, o := range orders {
		a := o.ShippingAddress
		items := make([]string, 0, len(o.Items))
		for _, it := range o.Items {
			items = append(items, fmt.Sprintf("%s (%s) x%d", it.Name, it.SelectedSize, it.Quantity))
		}
		var awb, courier, shipStatus string
		if o.Shipment != nil {
			awb, courier = o.Shipment.AWB, o.Shipment.Courier
			shipStatus = orDefault(o.Shipment.LastStatus, o.Shipment.Status)
		}

		row := sheet.AddRow()
		row.AddCell().SetValue(o.OrderID)
		row.AddCell().SetValue(o.OrderDate.Format("2006-01-02 15:04:05"))
		row.AddCell().SetValue(o.Status.Label())
		row.AddCell().SetValue(orDefault(a.FullName(), o.UserName))
		row.AddCell().SetValue(orDefault(a.Email, o.UserEmail))
		row.AddCell().SetValue(a.Phone)
		row.AddCell().SetValue(a.Address)
		row.AddCell().SetValue(a.City)
		row.AddCell().SetValue(a.State)
		row.AddCell().SetValue(a.ZipCode)
		row.AddCell().SetValue(strings.Join(items, "; "))
		row.AddCell().SetValue(o.Total)
		row.AddCell().SetValue(o.Shipping)
		row.AddCell().SetValue(o.AmountDue)
		row.AddCell().SetValue(string(o.PaymentMethod))
		row.AddCell().SetValue(awb)
		row.AddCell().SetValue(courier)
		row.AddCell().SetValue(shipStatus)
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	metrics.AdminActions.WithLabelValues("export").Inc()
	return nil
}
