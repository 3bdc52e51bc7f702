package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"kanisa/internal/core"
)

func entry(id, scope string, paid time.Time, created time.Time) core.Contribution {
	return core.Contribution{
		ID:               id,
		ScopeID:          scope,
		Amount:           decimal.NewFromInt(100),
		Currency:         "KES",
		NormalizedAmount: decimal.NewFromInt(100),
		PaymentDate:      paid,
		CreatedAt:        created,
	}
}

func TestGetResolvesNames(t *testing.T) {
	s := NewWithNames(
		map[string]string{"nairobi-central": "Nairobi Central"},
		map[string]string{"m-1": "Grace Wanjiru"},
	)
	c := entry("c-1", "nairobi-central", time.Now(), time.Now())
	c.ContributorID = "m-1"
	if err := s.Insert(context.Background(), c); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, err := s.Get(context.Background(), "c-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ScopeName != "Nairobi Central" || got.ContributorName != "Grace Wanjiru" {
		t.Fatalf("names not resolved: %+v", got)
	}
}

func TestWritesStoreRawIDsOnly(t *testing.T) {
	s := NewWithNames(map[string]string{"s1": "Current Name"}, nil)

	c := entry("c-1", "s1", time.Now(), time.Now())
	c.ScopeName = "Stale Name"
	if err := s.Insert(context.Background(), c); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if stored := s.entries["c-1"]; stored.ScopeName != "" || stored.ContributorName != "" {
		t.Fatalf("Insert kept resolved names at rest: %+v", stored)
	}

	c.ScopeName = "Stale Name"
	if err := s.Replace(context.Background(), c); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if stored := s.entries["c-1"]; stored.ScopeName != "" {
		t.Fatalf("Replace kept resolved names at rest: %+v", stored)
	}

	got, err := s.Get(context.Background(), "c-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ScopeName != "Current Name" {
		t.Fatalf("ScopeName = %q, want the seeded name", got.ScopeName)
	}
}

func TestGetNotFound(t *testing.T) {
	s := New()
	if _, err := s.Get(context.Background(), "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestReplaceAndRemoveNotFound(t *testing.T) {
	s := New()
	if err := s.Replace(context.Background(), entry("ghost", "x", time.Now(), time.Now())); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("Replace: got %v, want ErrNotFound", err)
	}
	if err := s.Remove(context.Background(), "ghost"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("Remove: got %v, want ErrNotFound", err)
	}
}

func TestListOrderingAndPaging(t *testing.T) {
	s := New()
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	// Insert out of order on purpose.
	for _, c := range []core.Contribution{
		entry("a", "s1", base.AddDate(0, 0, 1), base),
		entry("b", "s1", base.AddDate(0, 0, 3), base),
		entry("c", "s1", base.AddDate(0, 0, 2), base),
		entry("d", "s1", base.AddDate(0, 0, 2), base.Add(time.Hour)), // same day as c, created later
	} {
		if err := s.Insert(context.Background(), c); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	res, err := s.List(context.Background(), core.Filter{}, core.Page{Index: 0, Size: 10})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if res.TotalMatching != 4 {
		t.Fatalf("TotalMatching = %d, want 4", res.TotalMatching)
	}
	gotOrder := []string{res.Items[0].ID, res.Items[1].ID, res.Items[2].ID, res.Items[3].ID}
	wantOrder := []string{"b", "d", "c", "a"}
	for i := range wantOrder {
		if gotOrder[i] != wantOrder[i] {
			t.Fatalf("order = %v, want %v", gotOrder, wantOrder)
		}
	}

	// Second page of size 2.
	res, err = s.List(context.Background(), core.Filter{}, core.Page{Index: 1, Size: 2})
	if err != nil {
		t.Fatalf("List page 1: %v", err)
	}
	if len(res.Items) != 2 || res.Items[0].ID != "c" || res.Items[1].ID != "a" {
		t.Fatalf("page 1 items wrong: %+v", res.Items)
	}
	if res.TotalMatching != 4 {
		t.Fatalf("TotalMatching on page 1 = %d, want 4", res.TotalMatching)
	}

	// Offset past the end yields an empty page, not an error.
	res, err = s.List(context.Background(), core.Filter{}, core.Page{Index: 9, Size: 10})
	if err != nil {
		t.Fatalf("List far page: %v", err)
	}
	if len(res.Items) != 0 || res.TotalMatching != 4 {
		t.Fatalf("far page: %+v", res)
	}
}

func TestListFilters(t *testing.T) {
	s := NewWithNames(nil, map[string]string{"m-1": "Grace Wanjiru"})
	now := time.Now()

	a := entry("a", "s1", now, now)
	a.PaymentMethod = "M-PESA"
	b := entry("b", "s2", now, now)
	b.Notes = "pesa transfer pending"
	c := entry("c", "s1", now, now)
	c.ContributorID = "m-1"
	for _, e := range []core.Contribution{a, b, c} {
		if err := s.Insert(context.Background(), e); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	res, _ := s.List(context.Background(), core.Filter{Search: "pesa"}, core.Page{Size: 10})
	if res.TotalMatching != 2 {
		t.Fatalf("search 'pesa' matched %d, want 2", res.TotalMatching)
	}

	res, _ = s.List(context.Background(), core.Filter{ScopeID: "s1", Search: "pesa"}, core.Page{Size: 10})
	if res.TotalMatching != 1 || res.Items[0].ID != "a" {
		t.Fatalf("conjunctive filter wrong: %+v", res)
	}

	// Search hits resolved contributor names too.
	res, _ = s.List(context.Background(), core.Filter{Search: "wanjiru"}, core.Page{Size: 10})
	if res.TotalMatching != 1 || res.Items[0].ID != "c" {
		t.Fatalf("name search wrong: %+v", res)
	}
}

func TestTotal(t *testing.T) {
	s := New()
	now := time.Now()
	a := entry("a", "s1", now, now)
	a.NormalizedAmount = decimal.NewFromInt(13000)
	b := entry("b", "s2", now, now)
	b.NormalizedAmount = decimal.NewFromInt(500)
	for _, e := range []core.Contribution{a, b} {
		if err := s.Insert(context.Background(), e); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	total, err := s.Total(context.Background(), "")
	if err != nil {
		t.Fatalf("Total: %v", err)
	}
	if !total.Equal(decimal.NewFromInt(13500)) {
		t.Fatalf("total = %s, want 13500", total)
	}

	scoped, err := s.Total(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Total scoped: %v", err)
	}
	if !scoped.Equal(decimal.NewFromInt(13000)) {
		t.Fatalf("scoped total = %s, want 13000", scoped)
	}
}
