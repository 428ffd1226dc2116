package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/40acres/lngateway/database/models"
	"github.com/40acres/lngateway/money"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderRepository persists orders and their payment state. Every method that
// moves the payment status is a compare-and-set and reports whether this
// caller performed the transition.
type OrderRepository interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, id uint) (*models.Order, error)
	GetOrderByPaymentRequest(ctx context.Context, paymentRequest string) (*models.Order, error)
	GetPendingOrders(ctx context.Context) ([]*models.Order, error)

	AssignPaymentRequest(ctx context.Context, id uint, paymentRequest string, amount money.Money, rate decimal.Decimal, note string) (bool, error)
	ClaimRenewal(ctx context.Context, id uint, paymentRequest string, now, staleBefore time.Time) (bool, error)
	CompleteRenewal(ctx context.Context, id uint, oldPaymentRequest, newPaymentRequest string, amount money.Money, rate decimal.Decimal, note string) (bool, error)
	ReleaseRenewal(ctx context.Context, id uint, paymentRequest string) error
	MarkFailed(ctx context.Context, id uint, note string) (bool, error)
	CancelOrder(ctx context.Context, id uint, note string) (bool, error)
	MarkPaid(ctx context.Context, id uint, paymentRequest string, paidAt time.Time, note string) (bool, error)

	AddNote(ctx context.Context, id uint, note string) error
	ListNotes(ctx context.Context, id uint) ([]models.OrderNote, error)
}

var _ OrderRepository = (*Database)(nil)

func (d *Database) CreateOrder(ctx context.Context, order *models.Order) error {
	if order.Status == "" {
		order.Status = models.OrderPending
	}
	if order.PaymentStatus == "" {
		order.PaymentStatus = models.PaymentAwaitingInvoice
	}

	return d.orm.WithContext(ctx).Create(order).Error
}

func (d *Database) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	err := d.orm.WithContext(ctx).First(&order, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrOrderNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	return &order, nil
}

func (d *Database) GetOrderByPaymentRequest(ctx context.Context, paymentRequest string) (*models.Order, error) {
	if paymentRequest == "" {
		return nil, ErrOrderNotFound
	}

	var order models.Order
	err := d.orm.WithContext(ctx).
		Where("ln_invoice = ?", paymentRequest).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	return &order, nil
}

// GetPendingOrders returns the orders that hold a payment request and are not
// settled or failed yet.
func (d *Database) GetPendingOrders(ctx context.Context) ([]*models.Order, error) {
	var orders []*models.Order
	err := d.orm.WithContext(ctx).
		Where("payment_status IN ?", []models.PaymentStatus{models.PaymentAwaitingPayment, models.PaymentExpiredRenewing}).
		Order("id").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}

	return orders, nil
}

func (d *Database) AssignPaymentRequest(ctx context.Context, id uint, paymentRequest string, amount money.Money, rate decimal.Decimal, note string) (bool, error) {
	return d.transition(ctx, id, note, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("ln_invoice = ? AND payment_status = ?", "", models.PaymentAwaitingInvoice).
			Updates(map[string]interface{}{
				"ln_invoice":     paymentRequest,
				"amount_sats":    amount,
				"rate":           rate,
				"payment_status": models.PaymentAwaitingPayment,
			})
	})
}

// ClaimRenewal moves an order awaiting payment on paymentRequest into
// EXPIRED_RENEWING. A claim started before staleBefore is considered abandoned
// and can be taken over.
func (d *Database) ClaimRenewal(ctx context.Context, id uint, paymentRequest string, now, staleBefore time.Time) (bool, error) {
	res := d.orm.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND ln_invoice = ?", id, paymentRequest).
		Where(
			d.orm.Where("payment_status = ?", models.PaymentAwaitingPayment).
				Or("payment_status = ? AND renewal_started_at < ?", models.PaymentExpiredRenewing, staleBefore.UTC()),
		).
		Updates(map[string]interface{}{
			"payment_status":     models.PaymentExpiredRenewing,
			"renewal_started_at": now.UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}

	return res.RowsAffected == 1, nil
}

func (d *Database) CompleteRenewal(ctx context.Context, id uint, oldPaymentRequest, newPaymentRequest string, amount money.Money, rate decimal.Decimal, note string) (bool, error) {
	return d.transition(ctx, id, note, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("ln_invoice = ? AND payment_status = ?", oldPaymentRequest, models.PaymentExpiredRenewing).
			Updates(map[string]interface{}{
				"ln_invoice":         newPaymentRequest,
				"amount_sats":        amount,
				"rate":               rate,
				"payment_status":     models.PaymentAwaitingPayment,
				"renewal_started_at": nil,
			})
	})
}

// ReleaseRenewal gives a claimed renewal back so the next check retries it.
func (d *Database) ReleaseRenewal(ctx context.Context, id uint, paymentRequest string) error {
	return d.orm.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND ln_invoice = ? AND payment_status = ?", id, paymentRequest, models.PaymentExpiredRenewing).
		Updates(map[string]interface{}{
			"payment_status":     models.PaymentAwaitingPayment,
			"renewal_started_at": nil,
		}).Error
}

func (d *Database) MarkFailed(ctx context.Context, id uint, note string) (bool, error) {
	return d.transition(ctx, id, note, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("payment_status NOT IN ?", []models.PaymentStatus{models.PaymentSettled, models.PaymentFailed}).
			Updates(map[string]interface{}{
				"payment_status":     models.PaymentFailed,
				"status":             models.OrderFailed,
				"renewal_started_at": nil,
			})
	})
}

// CancelOrder closes an unpaid order. The payment side ends FAILED so the
// stored payment request is never settled or renewed.
func (d *Database) CancelOrder(ctx context.Context, id uint, note string) (bool, error) {
	return d.transition(ctx, id, note, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("payment_status NOT IN ? AND status NOT IN ?",
			[]models.PaymentStatus{models.PaymentSettled, models.PaymentFailed},
			[]models.OrderStatus{models.OrderProcessing, models.OrderCompleted}).
			Updates(map[string]interface{}{
				"payment_status":     models.PaymentFailed,
				"status":             models.OrderCancelled,
				"renewal_started_at": nil,
			})
	})
}

// MarkPaid settles the order once. Only the caller that performs the
// transition gets true and writes the note.
func (d *Database) MarkPaid(ctx context.Context, id uint, paymentRequest string, paidAt time.Time, note string) (bool, error) {
	return d.transition(ctx, id, note, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("ln_invoice = ? AND payment_status IN ?", paymentRequest,
			[]models.PaymentStatus{models.PaymentAwaitingPayment, models.PaymentExpiredRenewing}).
			Updates(map[string]interface{}{
				"payment_status":     models.PaymentSettled,
				"status":             models.OrderProcessing,
				"paid_at":            paidAt.UTC(),
				"renewal_started_at": nil,
			})
	})
}

func (d *Database) AddNote(ctx context.Context, id uint, note string) error {
	return d.orm.WithContext(ctx).Create(&models.OrderNote{OrderID: id, Note: note}).Error
}

func (d *Database) ListNotes(ctx context.Context, id uint) ([]models.OrderNote, error) {
	var notes []models.OrderNote
	err := d.orm.WithContext(ctx).
		Where("order_id = ?", id).
		Order("id").
		Find(&notes).Error
	if err != nil {
		return nil, err
	}

	return notes, nil
}

// transition runs a guarded update on a single order and, when it changed the
// row, appends the note in the same transaction.
func (d *Database) transition(ctx context.Context, id uint, note string, update func(tx *gorm.DB) *gorm.DB) (bool, error) {
	applied := false
	err := d.orm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := update(tx.Model(&models.Order{}).Where("id = ?", id))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return nil
		}
		applied = true
		if note == "" {
			return nil
		}

		return tx.Create(&models.OrderNote{OrderID: id, Note: note}).Error
	})
	if err != nil {
		return false, err
	}

	return applied, nil
}
