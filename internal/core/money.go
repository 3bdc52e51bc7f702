// Package core holds the contribution ledger's domain types.
//
// This file contains parsing helpers for monetary amounts as operators type
// them into the admin forms.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts an operator-entered amount into a decimal.
//
// It accepts both dot (1234.56) and comma (1234,56) decimal separators and
// rejects signs, empty input and non-positive values. Precision beyond the
// entered digits is preserved; rounding to the reporting currency's minor
// units happens during normalization, not here.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}
