package models

import (
	"database/sql/driver"
	"fmt"
)

// OrderStatus is the status the shop shows for an order.
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderCompleted  OrderStatus = "completed"
	OrderCancelled  OrderStatus = "cancelled"
	OrderFailed     OrderStatus = "failed"
)

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderPending, OrderProcessing, OrderCompleted, OrderCancelled, OrderFailed:
		return true
	default:
		return false
	}
}

// IsPaid reports whether the shop already considers the order paid.
func (s OrderStatus) IsPaid() bool {
	return s == OrderProcessing || s == OrderCompleted
}

func (s OrderStatus) String() string {
	return string(s)
}

func (s *OrderStatus) Scan(value interface{}) error {
	switch v := value.(type) {
	case string:
		*s = OrderStatus(v)
	case []byte:
		*s = OrderStatus(v)
	default:
		return fmt.Errorf("failed to scan OrderStatus: expected string, got %T", value)
	}

	return nil
}

func (s OrderStatus) Value() (driver.Value, error) {
	return string(s), nil
}
