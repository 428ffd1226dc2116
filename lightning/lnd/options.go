package lnd

import (
	"crypto/x509"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/40acres/lngateway/lightning"
	"github.com/spf13/afero"
	"gopkg.in/macaroon.v2"
)

type Option func(*Options)

func WithLndEndpoint(endpoint string) Option {
	return func(o *Options) {
		o.lndEndpoint = endpoint
	}
}

func WithMacaroonFilePath(path string) Option {
	return func(o *Options) {
		o.macaroonFilePath = path
	}
}

// WithMacaroonHex sets the macaroon directly, taking precedence over the file path.
func WithMacaroonHex(mac string) Option {
	return func(o *Options) {
		o.macaroonHex = mac
	}
}

func WithTLSCertFilePath(path string) Option {
	return func(o *Options) {
		o.tlsCertFilePath = path
	}
}

// WithInsecureSkipVerify disables verification of the node's TLS
// certificate. Only meant for local development nodes.
func WithInsecureSkipVerify(insecure bool) Option {
	return func(o *Options) {
		o.insecureSkipVerify = insecure
	}
}

func WithNetwork(network lightning.Network) Option {
	return func(o *Options) {
		o.network = network
	}
}

func WithCoin(coin lightning.Coin) Option {
	return func(o *Options) {
		o.coin = coin
	}
}

// WithInvoiceExpiry sets the expiry requested for new invoices. Zero keeps
// the node's default.
func WithInvoiceExpiry(expiry time.Duration) Option {
	return func(o *Options) {
		o.invoiceExpiry = expiry
	}
}

func WithRequestTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.requestTimeout = timeout
	}
}

type Options struct {
	lndEndpoint        string
	macaroonFilePath   string
	macaroonHex        string
	tlsCertFilePath    string
	insecureSkipVerify bool
	network            lightning.Network
	coin               lightning.Coin
	invoiceExpiry      time.Duration
	requestTimeout     time.Duration
	FS                 afero.Fs
}

var ErrMissingMacaroon = errors.New("a macaroon file path or hex value is required")

func defaultOptions() Options {
	return Options{
		network:        lightning.Mainnet,
		coin:           lightning.Bitcoin,
		requestTimeout: 30 * time.Second,
		FS:             afero.NewOsFs(),
	}
}

func (o *Options) chainName() string {
	if o.coin == lightning.Litecoin {
		return "litecoin"
	}

	return "bitcoin"
}

// loadMacaroon returns the raw macaroon bytes after checking they hold a
// well formed macaroon.
func (o *Options) loadMacaroon() (*macaroon.Macaroon, []byte, error) {
	var raw []byte
	var err error
	switch {
	case o.macaroonHex != "":
		raw, err = hex.DecodeString(strings.TrimSpace(o.macaroonHex))
		if err != nil {
			return nil, nil, fmt.Errorf("failed decoding macaroon: %w", err)
		}
	case o.macaroonFilePath != "":
		path := strings.ReplaceAll(o.macaroonFilePath, "{Network}", string(o.network))
		path = strings.ReplaceAll(path, "{Chain}", o.chainName())
		raw, err = afero.ReadFile(o.FS, path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed reading macaroon file: %w", err)
		}
	default:
		return nil, nil, ErrMissingMacaroon
	}

	mac := &macaroon.Macaroon{}
	if err := mac.UnmarshalBinary(raw); err != nil {
		return nil, nil, fmt.Errorf("failed unmarshalling macaroon: %w", err)
	}

	return mac, raw, nil
}

// loadCertPool reads the configured TLS certificate. A nil pool means the
// system roots are used.
func (o *Options) loadCertPool() (*x509.CertPool, error) {
	if o.tlsCertFilePath == "" {
		return nil, nil
	}

	certBytes, err := afero.ReadFile(o.FS, o.tlsCertFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed reading TLS cert file: %w", err)
	}

	cp := x509.NewCertPool()
	if !cp.AppendCertsFromPEM(certBytes) {
		return nil, fmt.Errorf("no PEM certificate found in %s", o.tlsCertFilePath)
	}

	return cp, nil
}
