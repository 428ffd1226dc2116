package money

import (
	"errors"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/shopspring/decimal"
)

// Money is a type that represents a monetary amount in satoshis for Bitcoin.
type Money uint64

var satsPerCoin = decimal.NewFromInt(btcutil.SatoshiPerBitcoin)

var (
	// ErrNegativeAmount is returned when trying to create a Money with a negative amount.
	ErrNegativeAmount = errors.New("amount cannot be negative")
	// ErrInvalidRate is returned when converting with a zero or negative exchange rate.
	ErrInvalidRate = errors.New("exchange rate must be positive")
)

func NewFromBtc(amount decimal.Decimal) (Money, error) {
	if amount.IsNegative() {
		return 0, ErrNegativeAmount
	}

	return Money(amount.Mul(satsPerCoin).IntPart()), nil // nolint:gosec
}

// NewFromFiat converts a fiat total into satoshis at the given price of one
// coin, rounding half away from zero to the nearest satoshi.
func NewFromFiat(total, rate decimal.Decimal) (Money, error) {
	if total.IsNegative() {
		return 0, ErrNegativeAmount
	}
	if !rate.IsPositive() {
		return 0, ErrInvalidRate
	}

	return Money(total.Mul(satsPerCoin).Div(rate).Round(0).IntPart()), nil // nolint:gosec
}

func (m Money) ToBtc() decimal.Decimal {
	return decimal.NewFromUint64(uint64(m)).Div(satsPerCoin)
}

// ToFiat values the amount at the given price of one coin.
func (m Money) ToFiat(rate decimal.Decimal) decimal.Decimal {
	return m.ToBtc().Mul(rate)
}

// Fixed renders the amount in whole coins with exactly seven decimals, the
// precision used in order notes.
func (m Money) Fixed() string {
	return m.ToBtc().StringFixed(7)
}

func (m Money) String() string {
	return btcutil.Amount(m).String() // nolint:gosec
}
