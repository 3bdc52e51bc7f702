package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func validDraft() Draft {
	return Draft{
		ScopeID:       "nairobi-central",
		ContributorID: "m-001",
		Amount:        decimal.NewFromInt(100),
		Currency:      "USD",
		PaymentMethod: "M-PESA",
		PaymentDate:   time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC),
		Reference:     "QX12345",
	}
}

func TestDraftValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Draft)
		want   error
	}{
		{"valid", func(d *Draft) {}, nil},
		{"missing scope", func(d *Draft) { d.ScopeID = "  " }, ErrMissingScope},
		{"zero amount", func(d *Draft) { d.Amount = decimal.Zero }, ErrInvalidAmount},
		{"negative amount", func(d *Draft) { d.Amount = decimal.NewFromInt(-5) }, ErrInvalidAmount},
		{"bad currency", func(d *Draft) { d.Currency = "US" }, ErrInvalidCurrency},
		{"numeric currency", func(d *Draft) { d.Currency = "U5D" }, ErrInvalidCurrency},
		{"missing payment date", func(d *Draft) { d.PaymentDate = time.Time{} }, ErrMissingPaymentDate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := validDraft()
			tc.mutate(&d)
			if got := d.Validate(); got != tc.want {
				t.Fatalf("Validate() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestPatchRenormalizes(t *testing.T) {
	amount := decimal.NewFromInt(50)
	currency := CurrencyCode("EUR")
	notes := "thanksgiving offering"

	cases := []struct {
		name  string
		patch Patch
		want  bool
	}{
		{"empty", Patch{}, false},
		{"notes only", Patch{Notes: &notes}, false},
		{"amount", Patch{Amount: &amount}, true},
		{"currency", Patch{Currency: &currency}, true},
		{"both", Patch{Amount: &amount, Currency: &currency}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.patch.Renormalizes(); got != tc.want {
				t.Fatalf("Renormalizes() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestPatchApply(t *testing.T) {
	entry := Contribution{
		ID:               "c-1",
		ScopeID:          "nairobi-central",
		Amount:           decimal.NewFromInt(100),
		Currency:         "USD",
		NormalizedAmount: decimal.NewFromInt(13000),
		Notes:            "old",
		CreatedAt:        time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	notes := "new"
	got := Patch{Notes: &notes}.Apply(entry)
	if got.Notes != "new" {
		t.Fatalf("Notes = %q, want %q", got.Notes, "new")
	}
	if got.ID != entry.ID || !got.CreatedAt.Equal(entry.CreatedAt) {
		t.Fatal("Apply must not touch identity or CreatedAt")
	}
	if !got.NormalizedAmount.Equal(entry.NormalizedAmount) {
		t.Fatal("Apply must not touch the normalized amount")
	}

	currency := CurrencyCode("eur")
	got = Patch{Currency: &currency}.Apply(entry)
	if got.Currency != "EUR" {
		t.Fatalf("Currency = %q, want upper-cased EUR", got.Currency)
	}
}

func TestMatchesSearch(t *testing.T) {
	entry := Contribution{
		ContributorName: "Grace Wanjiru",
		PaymentMethod:   "M-PESA",
		Reference:       "QX12345",
		Notes:           "tithe for March",
	}

	cases := []struct {
		term string
		want bool
	}{
		{"", true},
		{"pesa", true},
		{"PESA", true},
		{"wanjiru", true},
		{"qx123", true},
		{"march", true},
		{"stripe", false},
	}
	for _, tc := range cases {
		if got := entry.MatchesSearch(tc.term); got != tc.want {
			t.Fatalf("MatchesSearch(%q) = %v, want %v", tc.term, got, tc.want)
		}
	}
}

func TestMatchesFilter(t *testing.T) {
	entry := Contribution{ScopeID: "nairobi-central", Notes: "harambee"}

	if !entry.Matches(Filter{ScopeID: "nairobi-central", Search: "harambee"}) {
		t.Fatal("conjunctive filter should match")
	}
	if entry.Matches(Filter{ScopeID: "mombasa", Search: "harambee"}) {
		t.Fatal("scope mismatch should fail even when the search matches")
	}
	if entry.Matches(Filter{ScopeID: "nairobi-central", Search: "choir"}) {
		t.Fatal("search mismatch should fail even when the scope matches")
	}
}

func TestPageClamped(t *testing.T) {
	cases := []struct {
		in   Page
		want Page
	}{
		{Page{Index: -1, Size: 0}, Page{Index: 0, Size: DefaultPageSize}},
		{Page{Index: 2, Size: 10}, Page{Index: 2, Size: 10}},
		{Page{Index: 0, Size: 10000}, Page{Index: 0, Size: MaxPageSize}},
	}
	for _, tc := range cases {
		if got := tc.in.Clamped(); got != tc.want {
			t.Fatalf("Clamped(%+v) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}

func TestLessOrdering(t *testing.T) {
	older := Contribution{PaymentDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	newer := Contribution{PaymentDate: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)}
	if !Less(newer, older) {
		t.Fatal("newer payment date should sort first")
	}

	tieA := Contribution{PaymentDate: older.PaymentDate, CreatedAt: time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)}
	tieB := Contribution{PaymentDate: older.PaymentDate, CreatedAt: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	if !Less(tieB, tieA) {
		t.Fatal("later CreatedAt should break the tie")
	}
}

func TestDisplayContributor(t *testing.T) {
	named := Contribution{ContributorName: "Grace Wanjiru"}
	if got := named.DisplayContributor(); got != "Grace Wanjiru" {
		t.Fatalf("got %q", got)
	}
	anon := Contribution{}
	if got := anon.DisplayContributor(); got != "Anonymous" {
		t.Fatalf("got %q", got)
	}
}
