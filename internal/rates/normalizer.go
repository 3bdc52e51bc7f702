package rates

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"kanisa/internal/core"
)

// minorUnits maps currencies that do not use two decimal places. Anything
// absent defaults to 2.
var minorUnits = map[core.CurrencyCode]int32{
	"JPY": 0,
	"KRW": 0,
	"UGX": 0,
	"RWF": 0,
	"BHD": 3,
	"KWD": 3,
	"TND": 3,
}

// MinorUnits returns the number of decimal places the currency carries.
func MinorUnits(code core.CurrencyCode) int32 {
	if u, ok := minorUnits[code.Normalized()]; ok {
		return u
	}
	return 2
}

// Normalizer converts entered amounts into the reporting currency. It is pure
// with respect to its inputs and the rate-source snapshot; it never touches
// stored entries.
type Normalizer struct {
	reporting core.CurrencyCode
	source    RateSource
}

func NewNormalizer(reporting core.CurrencyCode, source RateSource) *Normalizer {
	return &Normalizer{reporting: reporting.Normalized(), source: source}
}

// ReportingCurrency returns the currency all normalized amounts are in.
func (n *Normalizer) ReportingCurrency() core.CurrencyCode {
	return n.reporting
}

// Normalize converts amount from the given currency into the reporting
// currency, rounded half-up to the reporting currency's minor units. When the
// currencies already match, the amount is returned unchanged with no rate
// lookup at all.
func (n *Normalizer) Normalize(ctx context.Context, amount decimal.Decimal, currency core.CurrencyCode) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, core.ErrInvalidAmount
	}
	currency = currency.Normalized()
	if currency == n.reporting {
		return amount, nil
	}

	rate, err := n.source.Rate(ctx, currency, n.reporting)
	if err != nil {
		return decimal.Zero, fmt.Errorf("normalize %s: %w", currency, err)
	}
	return amount.Mul(rate).Round(MinorUnits(n.reporting)), nil
}
