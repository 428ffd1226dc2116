// Package charge implements the lightning client on top of a Lightning Charge
// server. Paid invoices can be pushed over its websocket stream or delivered
// to a registered webhook.
package charge

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/40acres/lngateway/lightning"
	"github.com/40acres/lngateway/money"
	"github.com/btcsuite/btcd/chaincfg"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/websocket"
)

const (
	maxResponseBytes = 1 << 20
	maxErrorBytes    = 4 << 10
)

const (
	StatusUnpaid  = "unpaid"
	StatusPaid    = "paid"
	StatusExpired = "expired"
)

// Invoice is the invoice representation used by Lightning Charge.
type Invoice struct {
	ID          string  `json:"id"`
	MilliSat    *string `json:"msatoshi"`
	RHash       string  `json:"rhash"`
	PayReq      string  `json:"payreq"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	CreatedAt   int64   `json:"created_at"`
	ExpiresAt   int64   `json:"expires_at"`
	PaidAt      *int64  `json:"paid_at"`
}

type Client struct {
	endpoint   *url.URL
	token      string
	hookURL    string
	tlsConfig  *tls.Config
	httpClient *http.Client
	params     *chaincfg.Params
	expiry     time.Duration

	// Charge addresses invoices by its own id; payment hashes are mapped
	// to ids as invoices are created or listed.
	mu  sync.Mutex
	ids map[string]string
}

var (
	_ lightning.Client     = (*Client)(nil)
	_ lightning.Subscriber = (*Client)(nil)
)

type Option func(*Client)

// WithHookURL makes every created invoice register a webhook pointing at url.
func WithHookURL(url string) Option {
	return func(c *Client) {
		c.hookURL = url
	}
}

func WithInvoiceExpiry(expiry time.Duration) Option {
	return func(c *Client) {
		c.expiry = expiry
	}
}

func WithTLSConfig(cfg *tls.Config) Option {
	return func(c *Client) {
		c.tlsConfig = cfg
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// New creates a client for the Charge server at endpoint. Payment requests
// are decoded locally with params.
func New(endpoint, token string, params *chaincfg.Params, opts ...Option) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid charge endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid charge endpoint scheme %q", u.Scheme)
	}

	c := &Client{
		endpoint:   u,
		token:      token,
		params:     params,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		ids:        make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tlsConfig != nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.TLSClientConfig = c.tlsConfig
		c.httpClient.Transport = transport
	}

	return c, nil
}

type createInvoiceRequest struct {
	MilliSat    string `json:"msatoshi"`
	Description string `json:"description"`
	Expiry      int64  `json:"expiry,omitempty"`
}

func (c *Client) CreateInvoice(ctx context.Context, valueSat money.Money, memo string) (*lightning.Invoice, error) {
	req := createInvoiceRequest{
		MilliSat:    strconv.FormatUint(uint64(valueSat)*1000, 10),
		Description: memo,
		Expiry:      int64(c.expiry.Seconds()),
	}

	status, data, err := c.do(ctx, http.MethodPost, req, "invoice")
	if err != nil {
		return nil, err
	}
	if status != http.StatusCreated {
		return nil, fmt.Errorf("%w: %s", lightning.ErrNodeRejected, rejection(status, data))
	}

	var inv Invoice
	if err := json.Unmarshal(data, &inv); err != nil {
		return nil, fmt.Errorf("%w: malformed invoice: %w", lightning.ErrNodeRejected, err)
	}
	if inv.PayReq == "" {
		return nil, fmt.Errorf("%w: response has no payreq", lightning.ErrNodeRejected)
	}
	c.remember(&inv)

	if c.hookURL != "" {
		if err := c.RegisterHook(ctx, inv.ID, c.hookURL); err != nil {
			// Polling still settles the order.
			log.WithError(err).WithField("invoice_id", inv.ID).Warn("failed to register charge webhook")
		}
	}

	return &lightning.Invoice{
		PaymentRequest: inv.PayReq,
		PaymentHash:    inv.RHash,
		ValueSat:       valueSat,
		Memo:           memo,
		CreatedAt:      lightning.UnixTime(inv.CreatedAt),
		Expiry:         time.Duration(inv.ExpiresAt-inv.CreatedAt) * time.Second,
	}, nil
}

// LookupPaymentRequest decodes the payment request locally; Charge has no
// decode endpoint.
func (c *Client) LookupPaymentRequest(_ context.Context, paymentRequest string) (*lightning.InvoiceSummary, error) {
	return lightning.DecodePaymentRequest(paymentRequest, c.params)
}

// LookupInvoice fetches the invoice by its Charge id. Hashes the client has
// not seen yet are resolved by scanning the invoice list once.
func (c *Client) LookupInvoice(ctx context.Context, paymentHash string) (*lightning.InvoiceDetail, error) {
	id, ok := c.invoiceID(paymentHash)
	if !ok {
		inv, err := c.findInvoice(ctx, paymentHash)
		if err != nil {
			return nil, err
		}

		return inv.detail(), nil
	}

	status, data, err := c.do(ctx, http.MethodGet, nil, "invoice", id)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: %s", lightning.ErrInvoiceNotFound, rejection(status, data))
	}

	var inv Invoice
	if err := json.Unmarshal(data, &inv); err != nil {
		return nil, fmt.Errorf("%w: malformed invoice: %w", lightning.ErrInvoiceNotFound, err)
	}
	if !strings.EqualFold(inv.RHash, paymentHash) {
		return nil, fmt.Errorf("%w: invoice %s has hash %s", lightning.ErrInvoiceNotFound, id, inv.RHash)
	}

	return inv.detail(), nil
}

// findInvoice streams GET /invoices until the invoice with paymentHash shows
// up, remembering the id of every invoice it passes.
func (c *Client) findInvoice(ctx context.Context, paymentHash string) (*Invoice, error) {
	res, err := c.send(ctx, http.MethodGet, nil, "invoices")
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBytes))

		return nil, fmt.Errorf("%w: %s", lightning.ErrInvoiceNotFound, rejection(res.StatusCode, data))
	}

	dec := json.NewDecoder(res.Body)
	if tok, err := dec.Token(); err != nil || tok != json.Delim('[') {
		return nil, fmt.Errorf("%w: malformed invoice list", lightning.ErrNodeRejected)
	}
	for dec.More() {
		var inv Invoice
		if err := dec.Decode(&inv); err != nil {
			return nil, fmt.Errorf("%w: malformed invoice list: %w", lightning.ErrNodeUnreachable, err)
		}
		c.remember(&inv)
		if strings.EqualFold(inv.RHash, paymentHash) {
			return &inv, nil
		}
	}

	return nil, fmt.Errorf("%w: no invoice with hash %s", lightning.ErrInvoiceNotFound, paymentHash)
}

func (c *Client) remember(inv *Invoice) {
	if inv.ID == "" || inv.RHash == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids[strings.ToLower(inv.RHash)] = inv.ID
}

func (c *Client) invoiceID(paymentHash string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.ids[strings.ToLower(paymentHash)]

	return id, ok
}

func (inv *Invoice) detail() *lightning.InvoiceDetail {
	d := &lightning.InvoiceDetail{
		PaymentHash: inv.RHash,
		Settled:     inv.Status == StatusPaid,
	}
	if inv.MilliSat != nil {
		if msat, err := strconv.ParseUint(*inv.MilliSat, 10, 64); err == nil {
			d.ValueSat = money.Money(msat / 1000)
		}
	}
	if inv.PaidAt != nil {
		d.SettleDate = lightning.UnixTime(*inv.PaidAt)
	}

	return d
}

// RegisterHook asks Charge to POST the invoice to url once it is paid.
func (c *Client) RegisterHook(ctx context.Context, invoiceID, hookURL string) error {
	status, data, err := c.do(ctx, http.MethodPost, map[string]string{"url": hookURL}, "invoice", invoiceID, "webhook")
	if err != nil {
		return err
	}
	if status != http.StatusCreated {
		return fmt.Errorf("%w: %s", lightning.ErrNodeRejected, rejection(status, data))
	}

	return nil
}

// SubscribePaid streams paid invoices from the /ws endpoint until the
// connection drops or ctx is done.
func (c *Client) SubscribePaid(ctx context.Context, handler func(paymentRequest string)) error {
	loc := *c.endpoint
	loc.Scheme = "ws"
	if c.endpoint.Scheme == "https" {
		loc.Scheme = "wss"
	}
	origin := *c.endpoint

	header := http.Header{}
	header.Set("Authorization", c.basicAuth())

	ws, err := websocket.DialConfig(&websocket.Config{
		Location:  loc.JoinPath("ws"),
		Origin:    &origin,
		TlsConfig: c.tlsConfig,
		Header:    header,
		Version:   websocket.ProtocolVersionHybi13,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", lightning.ErrNodeUnreachable, err)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		ws.Close()
	}()

	for {
		var inv Invoice
		err := websocket.JSON.Receive(ws, &inv)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: stream closed", lightning.ErrNodeUnreachable)
		}
		if err != nil {
			var syntaxErr *json.SyntaxError
			if errors.As(err, &syntaxErr) {
				log.WithError(err).Warn("skipping malformed charge event")

				continue
			}

			return fmt.Errorf("%w: %w", lightning.ErrNodeUnreachable, err)
		}

		if inv.Status != "" && inv.Status != StatusPaid {
			continue
		}
		if inv.PayReq == "" {
			continue
		}
		handler(inv.PayReq)
	}
}

func (c *Client) basicAuth() string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte("api-token:"+c.token))
}

func (c *Client) send(ctx context.Context, method string, body any, path ...string) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint.JoinPath(path...).String(), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", c.basicAuth())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", lightning.ErrNodeUnreachable, err)
	}

	switch res.StatusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		res.Body.Close()

		return nil, fmt.Errorf("%w: %s", lightning.ErrNodeUnreachable, res.Status)
	}

	return res, nil
}

func (c *Client) do(ctx context.Context, method string, body any, path ...string) (int, []byte, error) {
	res, err := c.send(ctx, method, body, path...)
	if err != nil {
		return 0, nil, err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return res.StatusCode, nil, fmt.Errorf("%w: failed to read response: %w", lightning.ErrNodeUnreachable, err)
	}

	return res.StatusCode, data, nil
}

func rejection(status int, body []byte) string {
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return http.StatusText(status)
	}

	return fmt.Sprintf("%d %s", status, msg)
}
