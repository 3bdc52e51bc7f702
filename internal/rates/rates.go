// Package rates resolves exchange rates and normalizes contribution amounts
// into the reporting currency.
package rates

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"kanisa/internal/core"
)

// RateSource resolves an exchange rate for from -> to. Implementations must
// return an error wrapping core.ErrRateUnavailable when no rate can be
// resolved; they must never fabricate a fallback rate.
type RateSource interface {
	Rate(ctx context.Context, from, to core.CurrencyCode) (decimal.Decimal, error)
}

// StaticSource serves rates from a fixed in-memory table, keyed "FROM/TO".
// Used for self-contained deployments and tests.
type StaticSource struct {
	rates map[string]decimal.Decimal
}

func NewStaticSource(rates map[string]decimal.Decimal) *StaticSource {
	table := make(map[string]decimal.Decimal, len(rates))
	for k, v := range rates {
		table[strings.ToUpper(k)] = v
	}
	return &StaticSource{rates: table}
}

// ParseStaticTable builds a StaticSource from a config string of the form
// "USD:130,EUR:140.5", where every rate converts into the reporting currency.
func ParseStaticTable(table string, reporting core.CurrencyCode) (*StaticSource, error) {
	rates := make(map[string]decimal.Decimal)
	for _, pair := range strings.Split(table, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed rate entry %q", pair)
		}
		code := core.CurrencyCode(parts[0]).Normalized()
		if err := code.Validate(); err != nil {
			return nil, fmt.Errorf("rate entry %q: %w", pair, err)
		}
		rate, err := decimal.NewFromString(strings.TrimSpace(parts[1]))
		if err != nil || !rate.IsPositive() {
			return nil, fmt.Errorf("rate entry %q: invalid rate", pair)
		}
		rates[pairKey(code, reporting.Normalized())] = rate
	}
	return NewStaticSource(rates), nil
}

func (s *StaticSource) Rate(_ context.Context, from, to core.CurrencyCode) (decimal.Decimal, error) {
	rate, ok := s.rates[pairKey(from.Normalized(), to.Normalized())]
	if !ok {
		return decimal.Zero, fmt.Errorf("no rate for %s->%s: %w", from, to, core.ErrRateUnavailable)
	}
	return rate, nil
}

func pairKey(from, to core.CurrencyCode) string {
	return string(from) + "/" + string(to)
}
