package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/clients"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/stylehub-backend/internal/repository"
	"golang.org/x/sync/errgroup"
)

var (
	ErrEmptyCart             = errors.New("cart is empty")
	ErrOrderNotSaved         = errors.New("failed to place order")
	ErrPaymentUnavailable    = errors.New("payment gateway unavailable")
	ErrPaymentVerification   = errors.New("payment verification failed")
	ErrPaymentAmountMismatch = errors.New("payment amount does not match order")
	ErrPaymentNotCaptured    = errors.New("payment not completed")
)

// Ports used by the checkout pipeline.
type (
	OrderWriter interface {
		Append(ctx context.Context, uid string, order *models.Order) (string, error)
		SetShipment(ctx context.Context, uid, key string, shipment models.Shipment) error
		SaveLastOrder(ctx context.Context, uid string, order models.Order) error
	}

	ProfileReader interface {
		Get(ctx context.Context, uid string) (*models.Profile, error)
	}

	ShipmentGateway interface {
		CreateShipment(ctx context.Context, order *models.Order) (*clients.ShipmentResult, error)
	}

	PaymentGateway interface {
		KeyID() string
		CreateOrder(ctx context.Context, amountPaise int64, currency, receipt string) (*clients.RazorpayOrder, error)
		FetchPayment(ctx context.Context, paymentID string) (*clients.RazorpayPayment, error)
		CapturePayment(ctx context.Context, paymentID string, amountPaise int64, currency string) (*clients.RazorpayPayment, error)
		VerifyPaymentSignature(orderID, paymentID, signature string) bool
	}

	OrderNotifier interface {
		SendOrderConfirmation(ctx context.Context, order models.Order) error
		SendSellerNotification(ctx context.Context, order models.Order, customerEmail string) error
	}
)

type CheckoutState string

const (
	StateValidating      CheckoutState = "validating"
	StatePersisting      CheckoutState = "persisting"
	StateShipmentPending CheckoutState = "shipment_pending"
	StateNotifyPending   CheckoutState = "notify_pending"
	StateDone            CheckoutState = "done"
	StateFailed          CheckoutState = "failed"
)

// StepOutcome is the failure tier of one pipeline step. Only StepFatal
// stops the pipeline.
type StepOutcome int

const (
	StepOK StepOutcome = iota
	StepDegraded
	StepFatal
)

func (o StepOutcome) String() string {
	switch o {
	case StepOK:
		return "ok"
	case StepDegraded:
		return "degraded"
	case StepFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

type StepResult struct {
	Step    CheckoutState `json:"step"`
	Outcome StepOutcome   `json:"-"`
	Err     error         `json:"-"`
}

type CheckoutResult struct {
	Order models.Order  `json:"order"`
	State CheckoutState `json:"state"`
	Steps []StepResult  `json:"-"`
}

// Degraded reports whether any step fell back to its degraded behavior.
func (r *CheckoutResult) Degraded() bool {
	for _, s := range r.Steps {
		if s.Outcome == StepDegraded {
			return true
		}
	}
	return false
}

// PaymentSession is what the storefront needs to open the hosted payment UI.
type PaymentSession struct {
	KeyID          string  `json:"keyId"`
	GatewayOrderID string  `json:"gatewayOrderId"`
	OrderID        string  `json:"orderId"`
	AmountPaise    int64   `json:"amount"`
	Currency       string  `json:"currency"`
	Totals         Totals  `json:"totals"`
	Prefill        Prefill `json:"prefill"`
}

type Prefill struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Contact string `json:"contact"`
}

// PaymentConfirmation is the hosted checkout's success callback.
type PaymentConfirmation struct {
	GatewayOrderID string `json:"razorpay_order_id"`
	PaymentID      string `json:"razorpay_payment_id"`
	Signature      string `json:"razorpay_signature"`
}

type CheckoutService struct {
	carts     CartProvider
	profiles  ProfileReader
	orders    OrderWriter
	intents   repository.PaymentIntentRepository
	shipments ShipmentGateway
	payments  PaymentGateway
	notifier  OrderNotifier
	currency  string
	timeout   time.Duration
	now       func() time.Time
}

func NewCheckoutService(
	carts CartProvider,
	profiles ProfileReader,
	orders OrderWriter,
	intents repository.PaymentIntentRepository,
	shipments ShipmentGateway,
	payments PaymentGateway,
	notifier OrderNotifier,
	currency string,
	timeout time.Duration,
) *CheckoutService {
	if currency == "" {
		currency = "INR"
	}
	return &CheckoutService{
		carts:     carts,
		profiles:  profiles,
		orders:    orders,
		intents:   intents,
		shipments: shipments,
		payments:  payments,
		notifier:  notifier,
		currency:  currency,
		timeout:   timeout,
		now:       time.Now,
	}
}

// PlaceOrder runs a cash-on-delivery checkout for the user's current cart.
func (s *CheckoutService) PlaceOrder(ctx context.Context, uid string, address models.Address) (*CheckoutResult, error) {
	start := s.now()
	res := &CheckoutResult{State: StateValidating}

	cart, items, addr, err := s.validate(ctx, uid, address)
	if err != nil {
		return nil, s.abort(res, start, err)
	}
	res.record(StateValidating, StepOK, nil)

	order := BuildOrder(items, s.profile(ctx, uid), addr, start)
	applyTotals(&order, PriceCart(items))
	order.PaymentMethod = models.PaymentCOD

	return s.fulfil(ctx, uid, cart, order, res, start)
}

// BeginOnlinePayment prices the cart server-side, opens a gateway order for
// the amount due and freezes the cart and address in a pending intent.
func (s *CheckoutService) BeginOnlinePayment(ctx context.Context, uid string, address models.Address) (*PaymentSession, error) {
	start := s.now()
	res := &CheckoutResult{State: StateValidating}

	_, items, addr, err := s.validate(ctx, uid, address)
	if err != nil {
		return nil, s.abort(res, start, err)
	}

	totals := PriceCart(items)
	amount := ToPaise(totals.AmountDue)
	orderID := NewOrderID(start)

	pctx, cancel := context.WithTimeout(ctx, s.timeout)
	gwOrder, err := s.payments.CreateOrder(pctx, amount, s.currency, orderID)
	cancel()
	if err != nil {
		slog.Error("payment order creation failed", "user_id", uid, "order_id", orderID, "gateway", "razorpay", "error", err)
		return nil, s.abort(res, start, fmt.Errorf("%w: %v", ErrPaymentUnavailable, err))
	}

	intent := models.PaymentIntent{
		OrderID:        orderID,
		GatewayOrderID: gwOrder.ID,
		AmountPaise:    amount,
		Currency:       s.currency,
		Items:          items,
		Address:        addr,
		CreatedAt:      start.UTC(),
	}
	if err := s.intents.Save(ctx, uid, intent); err != nil {
		return nil, s.abort(res, start, fmt.Errorf("save payment intent: %w", err))
	}

	slog.Info("online payment started", "user_id", uid, "order_id", orderID, "gateway_order_id", gwOrder.ID, "amount_paise", amount)
	return &PaymentSession{
		KeyID:          s.payments.KeyID(),
		GatewayOrderID: gwOrder.ID,
		OrderID:        orderID,
		AmountPaise:    amount,
		Currency:       s.currency,
		Totals:         totals,
		Prefill: Prefill{
			Name:    addr.FullName(),
			Email:   addr.Email,
			Contact: addr.Phone,
		},
	}, nil
}

// ConfirmOnlinePayment verifies the gateway callback against the pending
// intent, captures the payment if it is only authorized, then persists and
// fulfils the order. The intent survives a failed persist so the
// confirmation can be retried.
func (s *CheckoutService) ConfirmOnlinePayment(ctx context.Context, uid string, conf PaymentConfirmation) (*CheckoutResult, error) {
	start := s.now()
	res := &CheckoutResult{State: StateValidating}
	if uid == "" {
		return nil, s.abort(res, start, ErrAuthRequired)
	}

	intent, err := s.intents.Load(ctx, uid)
	if err != nil {
		return nil, s.abort(res, start, err)
	}
	if conf.GatewayOrderID != intent.GatewayOrderID ||
		!s.payments.VerifyPaymentSignature(conf.GatewayOrderID, conf.PaymentID, conf.Signature) {
		slog.Warn("payment signature rejected", "user_id", uid, "order_id", intent.OrderID, "gateway", "razorpay")
		return nil, s.abort(res, start, ErrPaymentVerification)
	}

	record, err := s.settlePayment(ctx, intent, conf.PaymentID)
	if err != nil {
		slog.Error("payment settlement failed", "user_id", uid, "order_id", intent.OrderID, "gateway", "razorpay", "error", err)
		return nil, s.abort(res, start, err)
	}
	res.record(StateValidating, StepOK, nil)

	order := BuildOrder(intent.Items, s.profile(ctx, uid), intent.Address, start)
	applyTotals(&order, PriceCart(intent.Items))
	if intent.OrderID != "" {
		order.OrderID = intent.OrderID
	}
	order.PaymentMethod = models.PaymentOnline
	order.Payment = record

	cart, err := s.carts.ForUser(ctx, uid)
	if err != nil {
		slog.Warn("cart unavailable after payment", "user_id", uid, "error", err)
	}

	out, err := s.fulfil(ctx, uid, cart, order, res, start)
	if err != nil {
		return nil, err
	}
	if err := s.intents.Delete(ctx, uid); err != nil {
		slog.Warn("failed to clear payment intent", "user_id", uid, "order_id", order.OrderID, "error", err)
	}
	return out, nil
}

func (s *CheckoutService) settlePayment(ctx context.Context, intent *models.PaymentIntent, paymentID string) (*models.PaymentRecord, error) {
	pctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	payment, err := s.payments.FetchPayment(pctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaymentUnavailable, err)
	}
	if payment.OrderID != intent.GatewayOrderID || payment.Amount != intent.AmountPaise {
		return nil, fmt.Errorf("%w: paid %d for %s, expected %d for %s", ErrPaymentAmountMismatch,
			payment.Amount, payment.OrderID, intent.AmountPaise, intent.GatewayOrderID)
	}

	switch payment.Status {
	case clients.PaymentStatusCaptured:
	case clients.PaymentStatusAuthorized:
		payment, err = s.payments.CapturePayment(pctx, paymentID, intent.AmountPaise, intent.Currency)
		if err != nil {
			return nil, fmt.Errorf("%w: capture: %v", ErrPaymentUnavailable, err)
		}
		if payment.Status != clients.PaymentStatusCaptured {
			return nil, fmt.Errorf("%w: status %q after capture", ErrPaymentNotCaptured, payment.Status)
		}
	default:
		return nil, fmt.Errorf("%w: status %q", ErrPaymentNotCaptured, payment.Status)
	}

	return &models.PaymentRecord{
		Provider:       "razorpay",
		GatewayOrderID: intent.GatewayOrderID,
		PaymentID:      paymentID,
		AmountPaise:    payment.Amount,
		Currency:       intent.Currency,
		Status:         payment.Status,
		CapturedAt:     s.now().UTC(),
	}, nil
}

func (s *CheckoutService) validate(ctx context.Context, uid string, address models.Address) (*CartSync, []models.CartEntry, models.Address, error) {
	if uid == "" {
		return nil, nil, address, ErrAuthRequired
	}
	cart, err := s.carts.ForUser(ctx, uid)
	if err != nil {
		return nil, nil, address, fmt.Errorf("load cart: %w", err)
	}
	items := cart.Items()
	if len(items) == 0 {
		return nil, nil, address, ErrEmptyCart
	}
	if err := ValidateItems(items); err != nil {
		return nil, nil, address, err
	}
	addr, err := ValidateAddress(address)
	if err != nil {
		return nil, nil, address, err
	}
	return cart, items, addr, nil
}

// profile is only used for address defaults, so a lookup failure is logged
// and checkout continues without it.
func (s *CheckoutService) profile(ctx context.Context, uid string) *models.Profile {
	p, err := s.profiles.Get(ctx, uid)
	if err != nil {
		if !errors.Is(err, repository.ErrProfileNotFound) {
			slog.Warn("profile lookup failed during checkout", "user_id", uid, "error", err)
		}
		return nil
	}
	return p
}

// fulfil runs persist, shipment, notify and completion in order.
func (s *CheckoutService) fulfil(ctx context.Context, uid string, cart *CartSync, order models.Order, res *CheckoutResult, start time.Time) (*CheckoutResult, error) {
	res.State = StatePersisting
	r := s.persist(ctx, uid, &order)
	if r.Outcome == StepFatal {
		res.Steps = append(res.Steps, r)
		return nil, s.abort(res, start, r.Err)
	}
	res.record(r.Step, r.Outcome, r.Err)

	res.State = StateShipmentPending
	r = s.createShipment(ctx, uid, &order)
	res.record(r.Step, r.Outcome, r.Err)

	res.State = StateNotifyPending
	r = s.notify(ctx, uid, order)
	res.record(r.Step, r.Outcome, r.Err)

	if cart != nil {
		cart.Clear(ctx)
	}
	if err := s.orders.SaveLastOrder(ctx, uid, order); err != nil {
		slog.Warn("failed to save order backup", "user_id", uid, "order_id", order.OrderID, "error", err)
	}

	res.State = StateDone
	res.Order = order
	metrics.CheckoutDuration.WithLabelValues(string(StateDone)).Observe(time.Since(start).Seconds())
	slog.Info("order placed",
		"user_id", uid,
		"order_id", order.OrderID,
		"order_key", order.Key,
		"payment_method", order.PaymentMethod,
		"amount_due", order.AmountDue,
		"degraded", res.Degraded(),
	)
	return res, nil
}

func (s *CheckoutService) persist(ctx context.Context, uid string, order *models.Order) StepResult {
	pctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	key, err := s.orders.Append(pctx, uid, order)
	if err == nil && key == "" {
		err = errors.New("store returned no order key")
	}
	if err != nil {
		slog.Error("order persist failed", "user_id", uid, "order_id", order.OrderID, "step", string(StatePersisting), "error", err)
		return StepResult{Step: StatePersisting, Outcome: StepFatal, Err: fmt.Errorf("%w: %v", ErrOrderNotSaved, err)}
	}
	order.Key = key
	return StepResult{Step: StatePersisting, Outcome: StepOK}
}

// createShipment never fails the checkout: on any gateway error a pending
// placeholder is stored so the order always carries a shipment record.
func (s *CheckoutService) createShipment(ctx context.Context, uid string, order *models.Order) StepResult {
	sctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	now := s.now().UTC()
	outcome := StepOK
	var shipment models.Shipment

	result, err := s.shipments.CreateShipment(sctx, order)
	if err != nil {
		slog.Error("shipment creation failed",
			"user_id", uid, "order_id", order.OrderID, "step", string(StateShipmentPending), "gateway", "shiprocket", "error", err)
		shipment = models.PendingShipment(now)
		outcome = StepDegraded
	} else {
		shipment = models.Shipment{
			AWB:         result.AWB,
			ShipmentID:  result.ShipmentID,
			Courier:     result.Courier,
			TrackingURL: result.TrackingURL,
			CreatedAt:   now,
			Status:      models.ShipmentStatusCreated,
		}
	}

	if werr := s.orders.SetShipment(ctx, uid, order.Key, shipment); werr != nil {
		slog.Error("failed to store shipment record", "user_id", uid, "order_id", order.OrderID, "error", werr)
		outcome = StepDegraded
		err = errors.Join(err, werr)
	}
	order.Shipment = &shipment
	return StepResult{Step: StateShipmentPending, Outcome: outcome, Err: err}
}

// notify sends both emails concurrently. Each failure is logged on its own
// and neither cancels the other.
func (s *CheckoutService) notify(ctx context.Context, uid string, order models.Order) StepResult {
	var failed atomic.Int32
	var g errgroup.Group

	send := func(kind string, fn func(context.Context) error) {
		g.Go(func() error {
			nctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			if err := fn(nctx); err != nil {
				failed.Add(1)
				slog.Error("order email failed",
					"user_id", uid, "order_id", order.OrderID, "step", string(StateNotifyPending), "gateway", "mail", "email", kind, "error", err)
			}
			return nil
		})
	}
	send("customer_confirmation", func(c context.Context) error {
		return s.notifier.SendOrderConfirmation(c, order)
	})
	send("seller_notification", func(c context.Context) error {
		return s.notifier.SendSellerNotification(c, order, order.ShippingAddress.Email)
	})
	g.Wait()

	if n := failed.Load(); n > 0 {
		return StepResult{Step: StateNotifyPending, Outcome: StepDegraded, Err: fmt.Errorf("%d order emails failed", n)}
	}
	return StepResult{Step: StateNotifyPending, Outcome: StepOK}
}

func (s *CheckoutService) abort(res *CheckoutResult, start time.Time, err error) error {
	step := res.State
	res.State = StateFailed
	metrics.CheckoutSteps.WithLabelValues(string(step), StepFatal.String()).Inc()
	metrics.CheckoutDuration.WithLabelValues(string(StateFailed)).Observe(time.Since(start).Seconds())
	return err
}

func (r *CheckoutResult) record(step CheckoutState, outcome StepOutcome, err error) {
	r.Steps = append(r.Steps, StepResult{Step: step, Outcome: outcome, Err: err})
	metrics.CheckoutSteps.WithLabelValues(string(step), outcome.String()).Inc()
}
