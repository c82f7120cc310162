// Package pricing converts stable-asset amounts into the converted asset at a
// USD-per-BTC rate, and values converted balances back in stable units.
package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"skimvault/pkg/domain"
)

// DefaultRate is the fixed development rate of 45,000 USD per BTC.
const DefaultRate Rate = 45_000

// StableDecimals is the decimal scale of the stable asset.
const StableDecimals = 6

// conversionScale multiplies the stable amount before dividing by the rate in
// stable base units.
var conversionScale = domain.NewAmount(1_000_000)

// ErrZeroRate is returned for a zero price; Convert divides by the rate.
var ErrZeroRate = errors.New("pricing: rate must be positive")

// Rate is a whole-dollar USD price for one BTC.
type Rate uint64

// Validate returns ErrZeroRate for a zero rate.
func (r Rate) Validate() error {
	if r == 0 {
		return ErrZeroRate
	}
	return nil
}

// baseUnits returns the rate expressed in stable base units.
func (r Rate) baseUnits() domain.Amount {
	a, _ := domain.NewAmount(uint64(r)).Mul(conversionScale)
	return a
}

// Convert returns floor(stable * 1_000_000 / (rate * 1_000_000)).
// Small inputs legitimately convert to zero.
func Convert(stable domain.Amount, rate Rate) (domain.Amount, error) {
	if err := rate.Validate(); err != nil {
		return domain.Amount{}, err
	}
	out, err := stable.MulDiv(conversionScale, rate.baseUnits())
	if err != nil {
		return domain.Amount{}, fmt.Errorf("pricing: convert %s: %w", stable, err)
	}
	return out, nil
}

// USDValue values a converted balance in stable base units (converted * rate).
func USDValue(converted domain.Amount, rate Rate) (domain.Amount, error) {
	out, err := converted.Mul(domain.NewAmount(uint64(rate)))
	if err != nil {
		return domain.Amount{}, fmt.Errorf("pricing: value %s: %w", converted, err)
	}
	return out, nil
}

// FormatUnits renders a base-unit amount with the given number of decimals,
// e.g. FormatUnits(150000000, 6) == "150".
func FormatUnits(a domain.Amount, decimals int32) string {
	return decimal.NewFromBigInt(a.Big(), -decimals).String()
}
