package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/40acres/lngateway/lightning"
	"github.com/40acres/lngateway/lightning/charge"
	"github.com/40acres/lngateway/lightning/lnd"
	log "github.com/sirupsen/logrus"
)

type BackendKind string

const (
	BackendLndRest BackendKind = "lnd-rest"
	BackendLndGrpc BackendKind = "lnd-grpc"
	BackendCharge  BackendKind = "charge"
)

// BackendConfig collects everything needed to talk to the payment node.
type BackendConfig struct {
	Kind               BackendKind
	Endpoint           string
	MacaroonHex        string
	MacaroonPath       string
	TLSCertPath        string
	InsecureSkipVerify bool
	ChargeToken        string
	// Public base URL of this gateway, used to register charge webhooks
	HookBaseURL   string
	Coin          lightning.Coin
	Network       lightning.Network
	InvoiceExpiry time.Duration
}

// Backend is a connected payment node. Subscriber is nil when the node has no
// push notifications.
type Backend struct {
	Client     lightning.Client
	Subscriber lightning.Subscriber
	Close      func()
}

func (c *BackendConfig) Validate() error {
	switch c.Kind {
	case BackendLndRest, BackendLndGrpc:
	case BackendCharge:
		if c.Endpoint == "" {
			return fmt.Errorf("charge backend requires an endpoint")
		}
		if c.ChargeToken == "" {
			return fmt.Errorf("charge backend requires an api token")
		}
	default:
		return fmt.Errorf("unknown lightning backend %q", c.Kind)
	}
	if _, err := lightning.ParseCoin(string(c.Coin)); err != nil {
		return err
	}

	return nil
}

func (c *BackendConfig) lndOptions() []lnd.Option {
	opts := []lnd.Option{
		lnd.WithCoin(c.Coin),
		lnd.WithNetwork(c.Network),
		lnd.WithInsecureSkipVerify(c.InsecureSkipVerify),
		lnd.WithInvoiceExpiry(c.InvoiceExpiry),
	}
	if c.Endpoint != "" {
		opts = append(opts, lnd.WithLndEndpoint(c.Endpoint))
	}
	if c.MacaroonHex != "" {
		opts = append(opts, lnd.WithMacaroonHex(c.MacaroonHex))
	}
	if c.MacaroonPath != "" {
		opts = append(opts, lnd.WithMacaroonFilePath(c.MacaroonPath))
	}
	if c.TLSCertPath != "" {
		opts = append(opts, lnd.WithTLSCertFilePath(c.TLSCertPath))
	}

	return opts
}

func NewBackend(ctx context.Context, c *BackendConfig) (*Backend, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	switch c.Kind {
	case BackendLndRest:
		client, err := lnd.NewRestClient(c.lndOptions()...)
		if err != nil {
			return nil, err
		}

		return &Backend{Client: client, Close: func() {}}, nil
	case BackendLndGrpc:
		client, err := lnd.NewClient(ctx, c.lndOptions()...)
		if err != nil {
			return nil, err
		}

		return &Backend{Client: client, Close: client.CloseConnection}, nil
	default:
		params, err := lightning.ChainParams(c.Coin, c.Network)
		if err != nil {
			return nil, err
		}

		opts := []charge.Option{charge.WithInvoiceExpiry(c.InvoiceExpiry)}
		if c.InsecureSkipVerify {
			log.Warn("⚠️ TLS certificate verification of the charge server is disabled")
			opts = append(opts, charge.WithTLSConfig(&tls.Config{InsecureSkipVerify: true})) // nolint:gosec
		}
		if c.HookBaseURL != "" {
			opts = append(opts, charge.WithHookURL(strings.TrimRight(c.HookBaseURL, "/")+"/hooks/charge"))
		}

		client, err := charge.New(c.Endpoint, c.ChargeToken, params, opts...)
		if err != nil {
			return nil, err
		}

		return &Backend{Client: client, Subscriber: client, Close: func() {}}, nil
	}
}
