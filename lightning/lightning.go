package lightning

import (
	"context"
	"errors"
	"time"

	"github.com/40acres/lngateway/money"
)

var (
	// ErrNodeUnreachable is returned when the node could not be reached at
	// the transport level, including TLS failures and timeouts.
	ErrNodeUnreachable = errors.New("lightning node unreachable")
	// ErrNodeRejected is returned when the node answered with an application
	// error. The node's message is kept in the wrapping error.
	ErrNodeRejected = errors.New("lightning node rejected the request")
	// ErrInvoiceNotFound is returned when a lookup does not resolve to an
	// invoice known by the node.
	ErrInvoiceNotFound = errors.New("invoice not found")
)

// Invoice is a freshly created invoice.
type Invoice struct {
	PaymentRequest string
	PaymentHash    string
	ValueSat       money.Money
	Memo           string
	CreatedAt      time.Time
	Expiry         time.Duration
}

func (i *Invoice) ExpiresAt() time.Time {
	return i.CreatedAt.Add(i.Expiry)
}

// InvoiceSummary is what the node knows about a payment request.
type InvoiceSummary struct {
	PaymentHash string
	CreatedAt   time.Time
	Expiry      time.Duration
	ValueSat    money.Money
	Description string
}

func (s *InvoiceSummary) ExpiresAt() time.Time {
	return s.CreatedAt.Add(s.Expiry)
}

// Expired reports whether now is strictly past the expiry instant.
func (s *InvoiceSummary) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt())
}

// InvoiceDetail is the settlement state of an invoice looked up by hash.
type InvoiceDetail struct {
	PaymentHash string
	Settled     bool
	SettleDate  time.Time
	ValueSat    money.Money
}

//go:generate go tool mockgen -destination=mock.go -package=lightning . Client,Subscriber
type Client interface {
	CreateInvoice(ctx context.Context, valueSat money.Money, memo string) (*Invoice, error)
	LookupPaymentRequest(ctx context.Context, paymentRequest string) (*InvoiceSummary, error)
	LookupInvoice(ctx context.Context, paymentHash string) (*InvoiceDetail, error)
}

// Subscriber is implemented by backends able to push paid invoices. The
// handler receives the payment request of every invoice reported as paid.
// SubscribePaid blocks until the stream breaks or ctx is done.
type Subscriber interface {
	SubscribePaid(ctx context.Context, handler func(paymentRequest string)) error
}
