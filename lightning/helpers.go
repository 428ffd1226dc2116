package lightning

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/40acres/lngateway/money"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/lightningnetwork/lnd/zpay32"
)

type Network string

const Mainnet Network = "mainnet"
const Regtest Network = "regtest"
const Testnet Network = "testnet"

// Coin is the currency the node settles in.
type Coin string

const Bitcoin Coin = "BTC"
const Litecoin Coin = "LTC"

func ParseCoin(s string) (Coin, error) {
	switch Coin(strings.ToUpper(s)) {
	case Bitcoin:
		return Bitcoin, nil
	case Litecoin:
		return Litecoin, nil
	default:
		return "", fmt.Errorf("unsupported coin %q", s)
	}
}

func ToChainCfgNetwork(network Network) *chaincfg.Params {
	switch network {
	case Mainnet:
		return &chaincfg.MainNetParams
	case Regtest:
		return &chaincfg.RegressionNetParams
	case Testnet:
		return &chaincfg.TestNet3Params
	default:
		return nil
	}
}

var litecoinHRP = map[Network]string{
	Mainnet: "ltc",
	Testnet: "tltc",
	Regtest: "rltc",
}

// ChainParams returns the parameters used to decode payment requests of the
// given coin. Litecoin reuses the bitcoin params with its own bech32 prefix,
// which is the only field invoice decoding depends on.
func ChainParams(coin Coin, network Network) (*chaincfg.Params, error) {
	params := ToChainCfgNetwork(network)
	if params == nil {
		return nil, fmt.Errorf("unsupported network %q", network)
	}
	if coin != Litecoin {
		return params, nil
	}

	ltc := *params
	ltc.Name = "litecoin-" + string(network)
	ltc.Bech32HRPSegwit = litecoinHRP[network]

	return &ltc, nil
}

// DecodePaymentRequest decodes a BOLT11 payment request locally.
func DecodePaymentRequest(paymentRequest string, params *chaincfg.Params) (*InvoiceSummary, error) {
	invoice, err := zpay32.Decode(paymentRequest, params)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode payment request: %w", ErrInvoiceNotFound, err)
	}
	if invoice.PaymentHash == nil {
		return nil, fmt.Errorf("%w: payment request has no payment hash", ErrInvoiceNotFound)
	}

	summary := &InvoiceSummary{
		PaymentHash: hex.EncodeToString(invoice.PaymentHash[:]),
		CreatedAt:   invoice.Timestamp,
		Expiry:      invoice.Expiry(),
	}
	if invoice.MilliSat != nil {
		summary.ValueSat = money.Money(invoice.MilliSat.ToSatoshis()) // nolint:gosec
	}
	if invoice.Description != nil {
		summary.Description = *invoice.Description
	}

	return summary, nil
}

// UnixTime converts the unix seconds reported by nodes to a UTC time.
func UnixTime(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}
