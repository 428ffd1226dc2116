package models

import (
	"database/sql/driver"
	"fmt"
)

// PaymentStatus tracks the lightning payment of an order.
type PaymentStatus string

const (
	// happy path
	PaymentAwaitingInvoice PaymentStatus = "AWAITING_INVOICE"
	PaymentAwaitingPayment PaymentStatus = "AWAITING_PAYMENT"
	PaymentSettled         PaymentStatus = "SETTLED"
	// the invoice expired and a new one is being created
	PaymentExpiredRenewing PaymentStatus = "EXPIRED_RENEWING"
	// the node refused to issue an invoice
	PaymentFailed PaymentStatus = "FAILED"
)

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentAwaitingInvoice, PaymentAwaitingPayment, PaymentExpiredRenewing, PaymentSettled, PaymentFailed:
		return true
	default:
		return false
	}
}

// IsFinal reports whether no automatic transition leaves the status.
func (s PaymentStatus) IsFinal() bool {
	return s == PaymentSettled || s == PaymentFailed
}

func (s PaymentStatus) String() string {
	return string(s)
}

func (s *PaymentStatus) Scan(value interface{}) error {
	switch v := value.(type) {
	case string:
		*s = PaymentStatus(v)
	case []byte:
		*s = PaymentStatus(v)
	default:
		return fmt.Errorf("failed to scan PaymentStatus: expected string, got %T", value)
	}

	return nil
}

func (s PaymentStatus) Value() (driver.Value, error) {
	return string(s), nil
}
