package lnd

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/40acres/lngateway/lightning"
	"github.com/40acres/lngateway/money"
	"github.com/btcsuite/btcd/chaincfg"
	log "github.com/sirupsen/logrus"
)

const maxResponseBytes = 1 << 20

// RestClient talks to lnd through its REST proxy.
type RestClient struct {
	endpoint      *url.URL
	macaroon      string
	httpClient    *http.Client
	params        *chaincfg.Params
	invoiceExpiry time.Duration
}

var _ lightning.Client = (*RestClient)(nil)

// NewRestClient builds a REST client. TLS certificates are verified against
// the configured cert file, or the system roots when none is given.
func NewRestClient(opts ...Option) (*RestClient, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	if options.lndEndpoint == "" {
		options.lndEndpoint = "https://localhost:8080"
	}
	if !strings.Contains(options.lndEndpoint, "://") {
		options.lndEndpoint = "https://" + options.lndEndpoint
	}
	endpoint, err := url.Parse(options.lndEndpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid lnd endpoint: %w", err)
	}

	_, rawMacaroon, err := options.loadMacaroon()
	if err != nil {
		return nil, err
	}

	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}
	if options.insecureSkipVerify {
		log.Warn("⚠️ TLS certificate verification of the lnd node is disabled")
		tlsConfig.InsecureSkipVerify = true // nolint:gosec
	} else {
		pool, err := options.loadCertPool()
		if err != nil {
			return nil, err
		}
		tlsConfig.RootCAs = pool
	}

	params, err := lightning.ChainParams(options.coin, options.network)
	if err != nil {
		return nil, err
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = tlsConfig

	return &RestClient{
		endpoint: endpoint,
		macaroon: hex.EncodeToString(rawMacaroon),
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   options.requestTimeout,
		},
		params:        params,
		invoiceExpiry: options.invoiceExpiry,
	}, nil
}

// int64String decodes the int64 fields lnd serializes as JSON strings. Plain
// numbers are accepted too.
type int64String int64

func (i *int64String) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid integer %s: %w", b, err)
	}
	*i = int64String(v)

	return nil
}

type restError struct {
	Error   *string `json:"error"`
	Message *string `json:"message"`
	Code    *int    `json:"code"`
}

func (e *restError) text() string {
	switch {
	case e.Message != nil && *e.Message != "":
		return *e.Message
	case e.Error != nil && *e.Error != "":
		return *e.Error
	default:
		return ""
	}
}

type addInvoiceRequest struct {
	Value  int64  `json:"value"`
	Memo   string `json:"memo"`
	Expiry int64  `json:"expiry,omitempty"`
}

type addInvoiceResponse struct {
	restError
	RHash          *string `json:"r_hash"`
	PaymentRequest *string `json:"payment_request"`
}

type payReqResponse struct {
	restError
	PaymentHash *string      `json:"payment_hash"`
	NumSatoshis int64String  `json:"num_satoshis"`
	Timestamp   *int64String `json:"timestamp"`
	Expiry      *int64String `json:"expiry"`
	Description string       `json:"description"`
}

type invoiceResponse struct {
	restError
	RHash      *string     `json:"r_hash"`
	Value      int64String `json:"value"`
	Settled    *bool       `json:"settled"`
	SettleDate int64String `json:"settle_date"`
}

// CreateInvoice creates an invoice of valueSat satoshis with the given memo.
func (c *RestClient) CreateInvoice(ctx context.Context, valueSat money.Money, memo string) (*lightning.Invoice, error) {
	req := addInvoiceRequest{
		Value:  int64(valueSat), // nolint:gosec
		Memo:   memo,
		Expiry: int64(c.invoiceExpiry.Seconds()),
	}

	status, data, err := c.do(ctx, http.MethodPost, req, "v1", "invoices")
	if err != nil {
		return nil, err
	}

	var res addInvoiceResponse
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("%w: malformed response (status %d): %w", lightning.ErrNodeRejected, status, err)
	}
	if msg := res.text(); msg != "" || status >= http.StatusBadRequest {
		if msg == "" {
			msg = http.StatusText(status)
		}

		return nil, fmt.Errorf("%w: %s", lightning.ErrNodeRejected, msg)
	}
	if res.PaymentRequest == nil || *res.PaymentRequest == "" {
		return nil, fmt.Errorf("%w: response has no payment_request", lightning.ErrNodeRejected)
	}

	invoice := &lightning.Invoice{
		PaymentRequest: *res.PaymentRequest,
		ValueSat:       valueSat,
		Memo:           memo,
		CreatedAt:      time.Now().UTC(),
		Expiry:         c.invoiceExpiry,
	}
	if res.RHash != nil {
		invoice.PaymentHash = base64ToHex(*res.RHash)
	}

	// The add response carries no timestamps, the payment request does.
	if summary, err := lightning.DecodePaymentRequest(invoice.PaymentRequest, c.params); err == nil {
		invoice.CreatedAt = summary.CreatedAt
		invoice.Expiry = summary.Expiry
		if invoice.PaymentHash == "" {
			invoice.PaymentHash = summary.PaymentHash
		}
	} else {
		log.WithError(err).Debug("could not decode created payment request locally")
	}

	return invoice, nil
}

// LookupPaymentRequest asks the node to decode a payment request.
func (c *RestClient) LookupPaymentRequest(ctx context.Context, paymentRequest string) (*lightning.InvoiceSummary, error) {
	status, data, err := c.do(ctx, http.MethodGet, nil, "v1", "payreq", paymentRequest)
	if err != nil {
		return nil, err
	}

	var res payReqResponse
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("%w: malformed response (status %d): %w", lightning.ErrInvoiceNotFound, status, err)
	}
	if res.PaymentHash == nil || *res.PaymentHash == "" || res.Timestamp == nil {
		return nil, notFound(status, &res.restError, "payment_hash")
	}

	// lnd omits expiry when the invoice uses the default.
	expiry := time.Hour
	if res.Expiry != nil && *res.Expiry > 0 {
		expiry = time.Duration(*res.Expiry) * time.Second
	}

	return &lightning.InvoiceSummary{
		PaymentHash: *res.PaymentHash,
		CreatedAt:   lightning.UnixTime(int64(*res.Timestamp)),
		Expiry:      expiry,
		ValueSat:    money.Money(res.NumSatoshis), // nolint:gosec
		Description: res.Description,
	}, nil
}

// LookupInvoice fetches the settlement state of an invoice by its hex hash.
func (c *RestClient) LookupInvoice(ctx context.Context, paymentHash string) (*lightning.InvoiceDetail, error) {
	status, data, err := c.do(ctx, http.MethodGet, nil, "v1", "invoice", paymentHash)
	if err != nil {
		return nil, err
	}

	var res invoiceResponse
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("%w: malformed response (status %d): %w", lightning.ErrInvoiceNotFound, status, err)
	}
	if res.Settled == nil {
		return nil, notFound(status, &res.restError, "settled")
	}

	detail := &lightning.InvoiceDetail{
		PaymentHash: paymentHash,
		Settled:     *res.Settled,
		ValueSat:    money.Money(res.Value), // nolint:gosec
	}
	if res.RHash != nil && *res.RHash != "" {
		detail.PaymentHash = base64ToHex(*res.RHash)
	}
	if res.SettleDate > 0 {
		detail.SettleDate = lightning.UnixTime(int64(res.SettleDate))
	}

	return detail, nil
}

// do sends the request and returns the raw body. Transport failures and
// gateway errors are reported as ErrNodeUnreachable; any other status is
// returned for the caller to interpret together with the body.
func (c *RestClient) do(ctx context.Context, method string, body any, path ...string) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint.JoinPath(path...).String(), reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Grpc-Metadata-macaroon", c.macaroon)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %w", lightning.ErrNodeUnreachable, err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return res.StatusCode, nil, fmt.Errorf("%w: %s", lightning.ErrNodeUnreachable, res.Status)
	}

	data, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return res.StatusCode, nil, fmt.Errorf("%w: failed to read response: %w", lightning.ErrNodeUnreachable, err)
	}

	return res.StatusCode, data, nil
}

func notFound(status int, e *restError, field string) error {
	if msg := e.text(); msg != "" {
		return fmt.Errorf("%w: %s", lightning.ErrInvoiceNotFound, msg)
	}

	return fmt.Errorf("%w: response (status %d) has no %s", lightning.ErrInvoiceNotFound, status, field)
}

func base64ToHex(s string) string {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		b, err = base64.URLEncoding.DecodeString(s)
	}
	if err != nil {
		return ""
	}

	return hex.EncodeToString(b)
}
