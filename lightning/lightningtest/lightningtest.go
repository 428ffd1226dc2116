// Package lightningtest builds signed BOLT11 payment requests for tests.
package lightningtest

import (
	"encoding/hex"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/lightningnetwork/lnd/zpay32"
	"github.com/stretchr/testify/require"
)

// PaymentHash is the hash committed to by every payment request built here.
var PaymentHash = [32]byte{
	0xd7, 0x8a, 0x8b, 0xa8, 0xb6, 0x25, 0x10, 0x27,
	0xf3, 0x7f, 0xd6, 0xfe, 0xbf, 0xf0, 0x31, 0x5f,
	0x2d, 0x45, 0xbe, 0x83, 0x1b, 0xa3, 0x13, 0xfb,
	0x23, 0xc6, 0xe0, 0x3a, 0x2a, 0xbe, 0x3c, 0xa5,
}

var PaymentHashHex = hex.EncodeToString(PaymentHash[:])

var signer = func() zpay32.MessageSigner {
	key, err := hex.DecodeString("e126f68f7eafcc8b74f54d269fe206be715000f94dac067d1c04a8ca3b2db734")
	if err != nil {
		panic(err)
	}
	priv, _ := btcec.PrivKeyFromBytes(key)

	return zpay32.MessageSigner{
		SignCompact: func(msg []byte) ([]byte, error) {
			return ecdsa.SignCompact(priv, chainhash.HashB(msg), true)
		},
	}
}()

type Option func(*zpay32.Invoice)

func WithTimestamp(ts time.Time) Option {
	return func(i *zpay32.Invoice) {
		i.Timestamp = ts
	}
}

func WithExpiry(expiry time.Duration) Option {
	return Option(zpay32.Expiry(expiry))
}

// WithNet encodes the request for params instead of regtest.
func WithNet(params *chaincfg.Params) Option {
	return func(i *zpay32.Invoice) {
		i.Net = params
	}
}

func WithDescription(description string) Option {
	return func(i *zpay32.Invoice) {
		i.Description = &description
	}
}

// PaymentRequest encodes a regtest payment request for sats. A negative
// amount leaves the amount out.
func PaymentRequest(t testing.TB, sats int64, opts ...Option) string {
	t.Helper()

	description := "order payment"
	invoice := zpay32.Invoice{
		Net:         &chaincfg.RegressionNetParams,
		PaymentHash: &PaymentHash,
		Description: &description,
		Features:    lnwire.NewFeatureVector(nil, lnwire.Features),
		Timestamp:   time.Unix(time.Now().Unix(), 0),
	}
	if sats >= 0 {
		msat := lnwire.NewMSatFromSatoshis(btcutil.Amount(sats))
		invoice.MilliSat = &msat
	}
	for _, opt := range opts {
		opt(&invoice)
	}

	payreq, err := invoice.Encode(signer)
	require.NoError(t, err, "encoding payment request")

	return payreq
}
