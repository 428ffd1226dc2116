package price

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const MempoolBaseURL = "https://mempool.space/api"

type MempoolOption func(*MempoolSpace)

func WithMempoolURL(url string) MempoolOption {
	return func(m *MempoolSpace) {
		m.baseURL = strings.TrimRight(url, "/")
	}
}

func WithMempoolHTTPClient(client *http.Client) MempoolOption {
	return func(m *MempoolSpace) {
		m.client = client
	}
}

// MempoolSpace quotes bitcoin from the public mempool.space price endpoint. It
// needs no credentials and only knows BTC.
type MempoolSpace struct {
	client  *http.Client
	baseURL string
}

var _ Oracle = (*MempoolSpace)(nil)

func NewMempoolSpace(options ...MempoolOption) *MempoolSpace {
	m := &MempoolSpace{
		client:  &http.Client{Timeout: defaultTimeout},
		baseURL: MempoolBaseURL,
	}
	for _, option := range options {
		option(m)
	}

	return m
}

func (m *MempoolSpace) GetRate(ctx context.Context, fiatCurrency string) (decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"/v1/prices", nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %w", ErrRateUnavailable, err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %w", ErrRateUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decimal.Zero, fmt.Errorf("%w: unexpected status code: %d", ErrRateUnavailable, resp.StatusCode)
	}

	prices := make(map[string]json.RawMessage)
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&prices); err != nil {
		return decimal.Zero, fmt.Errorf("%w: malformed prices: %w", ErrRateUnavailable, err)
	}

	raw, ok := prices[strings.ToUpper(fiatCurrency)]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: no price for %s", ErrRateUnavailable, fiatCurrency)
	}
	var rate decimal.Decimal
	if err := rate.UnmarshalJSON(raw); err != nil || !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: invalid price for %s", ErrRateUnavailable, fiatCurrency)
	}

	return rate, nil
}

// Fallback asks each oracle in turn and returns the first rate obtained.
type Fallback struct {
	oracles []Oracle
}

var _ Oracle = (*Fallback)(nil)

func NewFallback(oracles ...Oracle) *Fallback {
	return &Fallback{oracles: oracles}
}

func (f *Fallback) GetRate(ctx context.Context, fiatCurrency string) (decimal.Decimal, error) {
	err := fmt.Errorf("%w: no price source configured", ErrRateUnavailable)
	for i, oracle := range f.oracles {
		var rate decimal.Decimal
		rate, err = oracle.GetRate(ctx, fiatCurrency)
		if err == nil {
			return rate, nil
		}
		log.WithError(err).WithField("source", i).Warn("price source failed")
	}

	return decimal.Zero, err
}
