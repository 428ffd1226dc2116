// Package price fetches exchange rates from a signed ticker feed.
package price

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const DefaultEndpoint = "https://apiv2.bitcoinaverage.com"

const defaultTimeout = 10 * time.Second

// ErrRateUnavailable is returned whenever no usable rate could be obtained.
var ErrRateUnavailable = errors.New("exchange rate unavailable")

//go:generate go tool mockgen -destination=mock.go -package=price . Oracle
type Oracle interface {
	// GetRate returns the price of one coin in the given fiat currency.
	GetRate(ctx context.Context, fiatCurrency string) (decimal.Decimal, error)
}

type Client struct {
	endpoint   *url.URL
	publicKey  string
	secretKey  string
	coin       string
	httpClient *http.Client
	now        func() time.Time
}

var _ Oracle = (*Client)(nil)

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a feed client quoting coin (BTC, LTC...).
func NewClient(endpoint, publicKey, secretKey, coin string, opts ...Option) (*Client, error) {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid price feed endpoint: %w", err)
	}

	c := &Client{
		endpoint:   u,
		publicKey:  publicKey,
		secretKey:  secretKey,
		coin:       strings.ToUpper(coin),
		httpClient: &http.Client{Timeout: defaultTimeout},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Signature builds the X-Signature header value for the given instant.
func Signature(publicKey, secretKey string, ts time.Time) string {
	payload := strconv.FormatInt(ts.Unix(), 10) + "." + publicKey
	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(payload))

	return payload + "." + hex.EncodeToString(mac.Sum(nil))
}

type tickerResponse struct {
	Ask *decimal.Decimal `json:"ask"`
}

func (c *Client) GetRate(ctx context.Context, fiatCurrency string) (decimal.Decimal, error) {
	symbol := c.coin + strings.ToUpper(fiatCurrency)
	logger := log.WithField("symbol", symbol)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint.JoinPath("indices", "global", "ticker", symbol).String(), nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %w", ErrRateUnavailable, err)
	}
	req.Header.Set("X-Signature", Signature(c.publicKey, c.secretKey, c.now()))

	res, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %w", ErrRateUnavailable, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		logger.WithField("status", res.StatusCode).Warn("price feed returned an error")

		return decimal.Zero, fmt.Errorf("%w: status %s", ErrRateUnavailable, res.Status)
	}

	var ticker tickerResponse
	if err := json.NewDecoder(io.LimitReader(res.Body, 1<<20)).Decode(&ticker); err != nil {
		return decimal.Zero, fmt.Errorf("%w: malformed ticker: %w", ErrRateUnavailable, err)
	}
	if ticker.Ask == nil || !ticker.Ask.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: ticker has no ask price", ErrRateUnavailable)
	}

	logger.WithField("ask", ticker.Ask.String()).Debug("fetched exchange rate")

	return *ticker.Ask, nil
}
