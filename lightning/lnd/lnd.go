package lnd

import (
	"context"
	"crypto/tls"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/40acres/lngateway/lightning"
	"github.com/40acres/lngateway/money"
	"github.com/lightningnetwork/lnd/lnrpc"
	"github.com/lightningnetwork/lnd/macaroons"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/status"
)

// Client talks to lnd over gRPC.
type Client struct {
	lndClient       lnrpc.LightningClient
	invoiceExpiry   time.Duration
	closeConnection func()
}

var _ lightning.Client = (*Client)(nil)

// NewClient creates a lnd client from macaroon and cert file locations.
// This Client establishes a grpc connection with a lnd node using grpc.
func NewClient(ctx context.Context, opts ...Option) (*Client, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	if options.lndEndpoint == "" {
		options.lndEndpoint = "localhost:10009"
	}
	if options.macaroonFilePath == "" && options.macaroonHex == "" {
		options.macaroonFilePath = "/root/.lnd/data/chain/{Chain}/{Network}/invoice.macaroon"
	}
	if options.tlsCertFilePath == "" && !options.insecureSkipVerify {
		options.tlsCertFilePath = "/root/.lnd/tls.cert"
	}

	mac, _, err := options.loadMacaroon()
	if err != nil {
		return nil, err
	}

	var creds credentials.TransportCredentials
	if options.insecureSkipVerify {
		log.Warn("⚠️ TLS certificate verification of the lnd node is disabled")
		creds = credentials.NewTLS(&tls.Config{InsecureSkipVerify: true}) // nolint:gosec
	} else {
		pool, err := options.loadCertPool()
		if err != nil {
			return nil, err
		}
		creds = credentials.NewClientTLSFromCert(pool, "")
	}

	macCred, err := macaroons.NewMacaroonCredential(mac)
	if err != nil {
		return nil, fmt.Errorf("failed creating macaroon credentials: %w", err)
	}

	conn, err := grpc.NewClient(options.lndEndpoint, grpc.WithTransportCredentials(creds), grpc.WithPerRPCCredentials(macCred))
	if err != nil {
		return nil, fmt.Errorf("failed connecting to LND node: %w", err)
	}

	client := &Client{
		lndClient:     lnrpc.NewLightningClient(conn),
		invoiceExpiry: options.invoiceExpiry,
		closeConnection: func() {
			err := conn.Close()
			if err != nil {
				log.WithError(err).Error("error closing connection")
			}
		},
	}

	return client, nil
}

func (c *Client) CreateInvoice(ctx context.Context, valueSat money.Money, memo string) (*lightning.Invoice, error) {
	invoiceReq := &lnrpc.Invoice{
		Value:  int64(valueSat), // nolint:gosec
		Memo:   memo,
		Expiry: int64(c.invoiceExpiry.Seconds()),
	}

	res, err := c.lndClient.AddInvoice(ctx, invoiceReq)
	if err != nil {
		return nil, classify(err, lightning.ErrNodeRejected)
	}
	if res.PaymentRequest == "" {
		return nil, fmt.Errorf("%w: response has no payment_request", lightning.ErrNodeRejected)
	}

	invoice := &lightning.Invoice{
		PaymentRequest: res.PaymentRequest,
		PaymentHash:    hex.EncodeToString(res.RHash),
		ValueSat:       valueSat,
		Memo:           memo,
		CreatedAt:      time.Now().UTC(),
		Expiry:         c.invoiceExpiry,
	}

	payReq, err := c.lndClient.DecodePayReq(ctx, &lnrpc.PayReqString{PayReq: res.PaymentRequest})
	if err != nil {
		log.WithError(err).Debug("could not decode created payment request")

		return invoice, nil
	}
	invoice.CreatedAt = lightning.UnixTime(payReq.Timestamp)
	invoice.Expiry = time.Duration(payReq.Expiry) * time.Second

	return invoice, nil
}

func (c *Client) LookupPaymentRequest(ctx context.Context, paymentRequest string) (*lightning.InvoiceSummary, error) {
	payReq, err := c.lndClient.DecodePayReq(ctx, &lnrpc.PayReqString{PayReq: paymentRequest})
	if err != nil {
		return nil, classify(err, lightning.ErrInvoiceNotFound)
	}
	if payReq.PaymentHash == "" {
		return nil, fmt.Errorf("%w: response has no payment_hash", lightning.ErrInvoiceNotFound)
	}

	return &lightning.InvoiceSummary{
		PaymentHash: payReq.PaymentHash,
		CreatedAt:   lightning.UnixTime(payReq.Timestamp),
		Expiry:      time.Duration(payReq.Expiry) * time.Second,
		ValueSat:    money.Money(payReq.NumSatoshis), // nolint:gosec
		Description: payReq.Description,
	}, nil
}

func (c *Client) LookupInvoice(ctx context.Context, paymentHash string) (*lightning.InvoiceDetail, error) {
	rhash, err := hex.DecodeString(paymentHash)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid payment hash: %w", lightning.ErrInvoiceNotFound, err)
	}

	invoice, err := c.lndClient.LookupInvoice(ctx, &lnrpc.PaymentHash{RHash: rhash})
	if err != nil {
		return nil, classify(err, lightning.ErrInvoiceNotFound)
	}

	detail := &lightning.InvoiceDetail{
		PaymentHash: hex.EncodeToString(invoice.RHash),
		Settled:     invoice.State == lnrpc.Invoice_SETTLED,
		ValueSat:    money.Money(invoice.Value), // nolint:gosec
	}
	if invoice.SettleDate > 0 {
		detail.SettleDate = lightning.UnixTime(invoice.SettleDate)
	}

	return detail, nil
}

// CloseConnection closes the connection with the lnd node
func (c *Client) CloseConnection() {
	c.closeConnection()
}

// classify maps a gRPC error to the lightning error taxonomy. Errors that are
// not about reaching the node fall back to the given kind.
func classify(err error, fallback error) error {
	st := status.Convert(err)
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
		return fmt.Errorf("%w: %s", lightning.ErrNodeUnreachable, st.Message())
	case codes.NotFound:
		return fmt.Errorf("%w: %s", lightning.ErrInvoiceNotFound, st.Message())
	default:
		return fmt.Errorf("%w: %s", fallback, st.Message())
	}
}
