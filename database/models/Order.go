package models

import (
	"time"

	"github.com/40acres/lngateway/money"
	"github.com/shopspring/decimal"
)

type Order struct {
	ID uint `gorm:"primaryKey;autoIncrement"`

	// The key the shop shows to the customer
	OrderKey string          `gorm:"type:varchar(64);uniqueIndex;not null"`
	Total    decimal.Decimal `gorm:"type:numeric(20,8);not null"`
	Currency string          `gorm:"type:varchar(8);not null"`

	Status        OrderStatus   `gorm:"type:varchar(16);not null;default:'pending'"`
	PaymentStatus PaymentStatus `gorm:"type:varchar(20);not null;default:'AWAITING_INVOICE';index"`

	// The payment request currently offered to the customer
	LnInvoice string `gorm:"column:ln_invoice;type:text;not null;default:'';index"`
	// Price snapshot the current invoice was sized with
	AmountSats money.Money      `gorm:"not null;default:0"`
	Rate       *decimal.Decimal `gorm:"type:numeric(20,8)"`

	// When the current renewal was claimed, used to take over stale claims
	RenewalStartedAt *time.Time
	PaidAt           *time.Time

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	Notes []OrderNote `gorm:"constraint:OnDelete:CASCADE"`
}

func (Order) TableName() string {
	return "orders"
}
