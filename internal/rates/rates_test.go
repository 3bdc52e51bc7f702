package rates

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"kanisa/internal/core"
)

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

func TestParseStaticTable(t *testing.T) {
	src, err := ParseStaticTable("USD:130, EUR:140.5", "KES")
	if err != nil {
		t.Fatalf("ParseStaticTable: %v", err)
	}

	rate, err := src.Rate(context.Background(), "USD", "KES")
	if err != nil {
		t.Fatalf("Rate: %v", err)
	}
	if !rate.Equal(decimal.NewFromInt(130)) {
		t.Fatalf("USD->KES = %s, want 130", rate)
	}

	rate, err = src.Rate(context.Background(), "eur", "kes")
	if err != nil {
		t.Fatalf("Rate (lowercase): %v", err)
	}
	if !rate.Equal(mustDecimal(t, "140.5")) {
		t.Fatalf("EUR->KES = %s, want 140.5", rate)
	}

	if _, err := src.Rate(context.Background(), "GBP", "KES"); !errors.Is(err, core.ErrRateUnavailable) {
		t.Fatalf("missing pair: got %v, want ErrRateUnavailable", err)
	}
}

func TestParseStaticTableRejectsGarbage(t *testing.T) {
	for _, table := range []string{"USD", "USD:", "USD:-1", "USD:abc", "US:130"} {
		if _, err := ParseStaticTable(table, "KES"); err == nil {
			t.Fatalf("ParseStaticTable(%q) expected error", table)
		}
	}
}

func TestNormalizeIdentity(t *testing.T) {
	// Identity conversion needs no rate source at all.
	n := NewNormalizer("KES", NewStaticSource(nil))

	amount := mustDecimal(t, "1234.567")
	got, err := n.Normalize(context.Background(), amount, "KES")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if !got.Equal(amount) {
		t.Fatalf("identity conversion changed the amount: %s != %s", got, amount)
	}
}

func TestNormalizeConverts(t *testing.T) {
	src, _ := ParseStaticTable("USD:130,EUR:140.55", "KES")
	n := NewNormalizer("KES", src)

	got, err := n.Normalize(context.Background(), decimal.NewFromInt(100), "USD")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if !got.Equal(decimal.NewFromInt(13000)) {
		t.Fatalf("100 USD = %s KES, want 13000", got)
	}

	// 10.11 * 140.55 = 1420.9605 -> 1420.96 at two minor units.
	got, err = n.Normalize(context.Background(), mustDecimal(t, "10.11"), "EUR")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if !got.Equal(mustDecimal(t, "1420.96")) {
		t.Fatalf("10.11 EUR = %s KES, want 1420.96", got)
	}
}

func TestNormalizeZeroMinorUnitCurrency(t *testing.T) {
	src, _ := ParseStaticTable("KES:2.6", "JPY")
	n := NewNormalizer("JPY", src)

	// JPY carries no decimals: 10.5 * 2.6 = 27.3 -> 27.
	got, err := n.Normalize(context.Background(), mustDecimal(t, "10.5"), "KES")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if !got.Equal(decimal.NewFromInt(27)) {
		t.Fatalf("10.5 KES = %s JPY, want 27", got)
	}
}

func TestNormalizeRateUnavailable(t *testing.T) {
	n := NewNormalizer("KES", NewStaticSource(nil))
	_, err := n.Normalize(context.Background(), decimal.NewFromInt(10), "USD")
	if !errors.Is(err, core.ErrRateUnavailable) {
		t.Fatalf("got %v, want ErrRateUnavailable", err)
	}
}

func TestNormalizeRejectsNonPositive(t *testing.T) {
	n := NewNormalizer("KES", NewStaticSource(nil))
	if _, err := n.Normalize(context.Background(), decimal.Zero, "KES"); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("got %v, want ErrInvalidAmount", err)
	}
}

func TestMinorUnits(t *testing.T) {
	cases := []struct {
		code core.CurrencyCode
		want int32
	}{
		{"KES", 2},
		{"usd", 2},
		{"JPY", 0},
		{"ugx", 0},
		{"KWD", 3},
	}
	for _, tc := range cases {
		if got := MinorUnits(tc.code); got != tc.want {
			t.Fatalf("MinorUnits(%s) = %d, want %d", tc.code, got, tc.want)
		}
	}
}
