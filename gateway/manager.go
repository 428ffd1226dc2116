// Package gateway drives an order from checkout to a settled lightning payment.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/40acres/lngateway/database"
	"github.com/40acres/lngateway/database/models"
	"github.com/40acres/lngateway/lightning"
	"github.com/40acres/lngateway/money"
	"github.com/40acres/lngateway/price"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

var (
	ErrAlreadySettled = errors.New("order is already paid")
	ErrOrderFailed    = errors.New("order payment failed")
	ErrOrderCancelled = errors.New("order was cancelled")
	ErrAmountTooSmall = errors.New("order total is worth less than one satoshi")
)

// Checkout is the invoice a customer is asked to pay.
type Checkout struct {
	OrderID        uint
	PaymentRequest string
	Amount         money.Money
	Rate           decimal.Decimal
	Currency       string
}

// View is the read-only payment state shown on the payment page.
type View struct {
	OrderID        uint                 `json:"order_id"`
	OrderKey       string               `json:"order_key"`
	Status         models.PaymentStatus `json:"status"`
	PaymentRequest string               `json:"payment_request,omitempty"`
	AmountSats     money.Money          `json:"amount_sats"`
	Amount         string               `json:"amount"`
	Coin           lightning.Coin       `json:"coin"`
	Total          decimal.Decimal      `json:"total"`
	Currency       string               `json:"currency"`
	ExpiresAt      *time.Time           `json:"expires_at,omitempty"`
	Paid           bool                 `json:"paid"`
}

type Manager struct {
	config     *Config
	lightning  lightning.Client
	oracle     price.Oracle
	repository database.OrderRepository
	now        func() time.Time
}

type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

func NewManager(config *Config, lnClient lightning.Client, oracle price.Oracle, repository database.OrderRepository, opts ...Option) *Manager {
	m := &Manager{
		config:     config,
		lightning:  lnClient,
		oracle:     oracle,
		repository: repository,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	return m
}

// CreateOrder stores a new unpaid order.
func (m *Manager) CreateOrder(ctx context.Context, orderKey string, total decimal.Decimal, currency string) (*models.Order, error) {
	if orderKey == "" {
		return nil, errors.New("order key is required")
	}
	if !total.IsPositive() {
		return nil, errors.New("order total must be positive")
	}
	if currency == "" {
		return nil, errors.New("currency is required")
	}

	order := &models.Order{
		OrderKey: orderKey,
		Total:    total,
		Currency: currency,
	}
	if err := m.repository.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	return order, nil
}

// EnsureInvoice returns the payment request the order should be paid with,
// creating one on first checkout.
func (m *Manager) EnsureInvoice(ctx context.Context, orderID uint) (*Checkout, error) {
	order, err := m.repository.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := checkPayable(order); err != nil {
		return nil, err
	}
	if order.LnInvoice != "" {
		return checkoutOf(order), nil
	}

	logger := log.WithField("order_id", order.ID)

	invoice, rate, err := m.issueInvoice(ctx, order)
	if err != nil {
		return nil, err
	}

	note := m.awaitingNote(invoice, rate, order.Currency)
	assigned, err := m.repository.AssignPaymentRequest(ctx, order.ID, invoice.PaymentRequest, invoice.ValueSat, rate, note)
	if err != nil {
		return nil, fmt.Errorf("failed to store payment request: %w", err)
	}
	if !assigned {
		// another checkout stored its invoice first, ours is never shown
		logger.Debug("payment request already assigned")

		order, err = m.repository.GetOrder(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if err := checkPayable(order); err != nil {
			return nil, err
		}
		if order.LnInvoice == "" {
			return nil, fmt.Errorf("order %d changed during checkout", orderID)
		}

		return checkoutOf(order), nil
	}

	logger.WithField("amount_sats", uint64(invoice.ValueSat)).Info("awaiting lightning payment")

	return &Checkout{
		OrderID:        order.ID,
		PaymentRequest: invoice.PaymentRequest,
		Amount:         invoice.ValueSat,
		Rate:           rate,
		Currency:       order.Currency,
	}, nil
}

// CheckSettlement asks the node whether the order's invoice was paid,
// renewing it when it expired. Only store failures are returned as errors.
func (m *Manager) CheckSettlement(ctx context.Context, orderID uint) (Result, error) {
	return m.checkSettlement(ctx, orderID, true)
}

// ConfirmPayment is CheckSettlement without renewal. An expired invoice is
// reported as pending and left for the shopper's next poll, so orders nobody
// is looking at never get new invoices.
func (m *Manager) ConfirmPayment(ctx context.Context, orderID uint) (Result, error) {
	return m.checkSettlement(ctx, orderID, false)
}

func (m *Manager) checkSettlement(ctx context.Context, orderID uint, renew bool) (Result, error) {
	order, err := m.repository.GetOrder(ctx, orderID)
	if errors.Is(err, database.ErrOrderNotFound) {
		return ResultNotFound, nil
	}
	if err != nil {
		return ResultPending, err
	}

	if order.PaymentStatus == models.PaymentSettled || order.Status.IsPaid() {
		return ResultAlreadySettled, nil
	}
	if order.PaymentStatus == models.PaymentFailed || order.Status == models.OrderCancelled {
		return ResultFailed, nil
	}
	if order.LnInvoice == "" {
		return ResultNotFound, nil
	}

	logger := log.WithField("order_id", order.ID)

	summary, err := m.lightning.LookupPaymentRequest(ctx, order.LnInvoice)
	switch {
	case errors.Is(err, lightning.ErrNodeUnreachable):
		logger.WithError(err).Warn("node unreachable, payment still pending")

		return ResultPending, nil
	case err != nil:
		logger.WithError(err).Warn("stored payment request not found")

		return ResultNotFound, nil
	}

	now := m.now()
	if summary.Expired(now) {
		if !renew {
			logger.Debug("invoice expired, waiting for the next poll to renew it")

			return ResultPending, nil
		}

		return m.renew(ctx, order, now)
	}

	// Nodes that omit settled on open invoices surface as ErrInvoiceNotFound;
	// either way the invoice is not known to be paid yet.
	detail, err := m.lightning.LookupInvoice(ctx, summary.PaymentHash)
	if err != nil {
		logger.WithError(err).Warn("failed to look up invoice, payment still pending")

		return ResultPending, nil
	}
	if !detail.Settled {
		return ResultPending, nil
	}

	paidAt := detail.SettleDate
	if paidAt.IsZero() {
		paidAt = now
	}
	paidAt = paidAt.UTC()

	note := fmt.Sprintf("Lightning Payment received on %s", paidAt.Format(time.RFC3339))
	marked, err := m.repository.MarkPaid(ctx, order.ID, order.LnInvoice, paidAt, note)
	if err != nil {
		return ResultPending, fmt.Errorf("failed to mark order paid: %w", err)
	}
	if !marked {
		return ResultAlreadySettled, nil
	}

	logger.WithField("paid_at", paidAt).Info("lightning payment received")

	return ResultSettled, nil
}

// CancelOrder abandons an unpaid order and its invoice. Paid or already
// closed orders report why they cannot be cancelled.
func (m *Manager) CancelOrder(ctx context.Context, orderID uint) error {
	cancelled, err := m.repository.CancelOrder(ctx, orderID, "Order cancelled, Lightning invoice abandoned")
	if err != nil {
		return fmt.Errorf("failed to cancel order: %w", err)
	}
	if cancelled {
		log.WithField("order_id", orderID).Info("order cancelled")

		return nil
	}

	order, err := m.repository.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}

	return checkPayable(order)
}

// CheckPaymentRequest runs CheckSettlement for the order currently holding
// paymentRequest. Push notices only carry the payment request.
func (m *Manager) CheckPaymentRequest(ctx context.Context, paymentRequest string) (Result, error) {
	order, err := m.repository.GetOrderByPaymentRequest(ctx, paymentRequest)
	if errors.Is(err, database.ErrOrderNotFound) {
		return ResultNotFound, nil
	}
	if err != nil {
		return ResultPending, err
	}

	return m.CheckSettlement(ctx, order.ID)
}

// renew replaces an expired payment request with a fresh one at the current
// price. Only the caller that claims the renewal talks to the node.
func (m *Manager) renew(ctx context.Context, order *models.Order, now time.Time) (Result, error) {
	logger := log.WithField("order_id", order.ID)

	claimed, err := m.repository.ClaimRenewal(ctx, order.ID, order.LnInvoice, now, now.Add(-m.config.RenewalTimeout))
	if err != nil {
		return ResultPending, fmt.Errorf("failed to claim renewal: %w", err)
	}
	if !claimed {
		logger.Debug("invoice renewal already in progress")

		return ResultRenewed, nil
	}

	invoice, rate, err := m.issueInvoice(ctx, order)
	if errors.Is(err, lightning.ErrNodeRejected) || errors.Is(err, ErrAmountTooSmall) {
		logger.WithError(err).Error("invoice renewal rejected, order failed")

		if _, ferr := m.repository.MarkFailed(ctx, order.ID, fmt.Sprintf("Lightning invoice could not be renewed: %v", err)); ferr != nil {
			return ResultPending, fmt.Errorf("failed to mark order failed: %w", ferr)
		}

		return ResultFailed, nil
	}
	if err != nil {
		logger.WithError(err).Warn("invoice renewal failed, will retry")

		if rerr := m.repository.ReleaseRenewal(ctx, order.ID, order.LnInvoice); rerr != nil {
			return ResultPending, fmt.Errorf("failed to release renewal: %w", rerr)
		}

		return ResultRenewed, nil
	}

	note := m.awaitingNote(invoice, rate, order.Currency)
	swapped, err := m.repository.CompleteRenewal(ctx, order.ID, order.LnInvoice, invoice.PaymentRequest, invoice.ValueSat, rate, note)
	if err != nil {
		return ResultPending, fmt.Errorf("failed to store renewed payment request: %w", err)
	}
	if swapped {
		logger.WithField("amount_sats", uint64(invoice.ValueSat)).Info("expired invoice renewed")
	}

	return ResultRenewed, nil
}

// PaymentView reports the payment state of an order. The node is only asked
// for the expiry of an unpaid payment request; lookup failures leave
// ExpiresAt unset.
func (m *Manager) PaymentView(ctx context.Context, orderID uint) (*View, error) {
	order, err := m.repository.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	view := &View{
		OrderID:        order.ID,
		OrderKey:       order.OrderKey,
		Status:         order.PaymentStatus,
		PaymentRequest: order.LnInvoice,
		AmountSats:     order.AmountSats,
		Amount:         order.AmountSats.Fixed(),
		Coin:           m.config.Coin,
		Total:          order.Total,
		Currency:       order.Currency,
		Paid:           order.PaymentStatus == models.PaymentSettled || order.Status.IsPaid(),
	}
	if order.LnInvoice != "" && !view.Paid {
		summary, err := m.lightning.LookupPaymentRequest(ctx, order.LnInvoice)
		if err == nil {
			expiresAt := summary.ExpiresAt()
			view.ExpiresAt = &expiresAt
		}
	}

	return view, nil
}

func (m *Manager) issueInvoice(ctx context.Context, order *models.Order) (*lightning.Invoice, decimal.Decimal, error) {
	rate, err := m.oracle.GetRate(ctx, order.Currency)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("failed to get exchange rate: %w", err)
	}

	amount, err := money.NewFromFiat(order.Total, rate)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("failed to convert order total: %w", err)
	}
	if amount < 1 {
		return nil, decimal.Zero, ErrAmountTooSmall
	}

	invoice, err := m.lightning.CreateInvoice(ctx, amount, "Order key: "+order.OrderKey)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("failed to create invoice: %w", err)
	}
	if invoice.ValueSat == 0 {
		invoice.ValueSat = amount
	}

	return invoice, rate, nil
}

func (m *Manager) awaitingNote(invoice *lightning.Invoice, rate decimal.Decimal, currency string) string {
	return fmt.Sprintf("Awaiting payment of %s %s @ 1 %s ~ %s %s. Invoice ID: %s",
		invoice.ValueSat.Fixed(), m.config.Coin, m.config.Coin, rate.String(), currency, invoice.PaymentRequest)
}

func checkPayable(order *models.Order) error {
	if order.PaymentStatus == models.PaymentSettled || order.Status.IsPaid() {
		return ErrAlreadySettled
	}
	if order.Status == models.OrderCancelled {
		return ErrOrderCancelled
	}
	if order.PaymentStatus == models.PaymentFailed {
		return ErrOrderFailed
	}

	return nil
}

func checkoutOf(order *models.Order) *Checkout {
	checkout := &Checkout{
		OrderID:        order.ID,
		PaymentRequest: order.LnInvoice,
		Amount:         order.AmountSats,
		Currency:       order.Currency,
	}
	if order.Rate != nil {
		checkout.Rate = *order.Rate
	}

	return checkout
}
