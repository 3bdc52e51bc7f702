package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

type (
	// CurrencyCode is an ISO 4217 style code such as "KES" or "USD".
	CurrencyCode string

	// Contribution is a single ledger record: a tithe or offering as it was
	// paid, plus its reporting-currency equivalent fixed at write time.
	Contribution struct {
		ID               string
		ScopeID          string // owning church
		ScopeName        string // resolved for display, never persisted on the entry
		ContributorID    string // empty means anonymous
		ContributorName  string // resolved for display
		Amount           decimal.Decimal
		Currency         CurrencyCode
		NormalizedAmount decimal.Decimal // reporting currency, fixed at write time
		PaymentMethod    string
		PaymentDate      time.Time
		Reference        string
		Notes            string
		CreatedAt        time.Time
	}

	// Draft is the operator input for a new contribution. The ledger service
	// assigns identity and the normalized amount.
	Draft struct {
		ScopeID       string
		ContributorID string
		Amount        decimal.Decimal
		Currency      CurrencyCode
		PaymentMethod string
		PaymentDate   time.Time
		Reference     string
		Notes         string
	}

	// Patch carries the fields an edit wants to change. Nil means "leave as is".
	Patch struct {
		ScopeID       *string
		ContributorID *string
		Amount        *decimal.Decimal
		Currency      *CurrencyCode
		PaymentMethod *string
		PaymentDate   *time.Time
		Reference     *string
		Notes         *string
	}

	// Filter narrows a listing. Conditions are conjunctive.
	Filter struct {
		ScopeID string
		Search  string
	}

	// Page is an offset-based page request. Index is zero-based.
	Page struct {
		Index int
		Size  int
	}

	// PagedResult is one page of contributions plus the total match count so
	// callers can compute page counts.
	PagedResult struct {
		Items         []Contribution
		TotalMatching int
	}
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 200

	maxNotesLen     = 500
	maxReferenceLen = 100
)

var (
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrInvalidCurrency    = errors.New("invalid currency code")
	ErrMissingScope       = errors.New("missing scope")
	ErrMissingPaymentDate = errors.New("missing payment date")
	ErrRateUnavailable    = errors.New("exchange rate unavailable")
	ErrNotFound           = errors.New("contribution not found")
	ErrFieldTooLong       = errors.New("field too long")
)

// Validate checks the code is three ASCII letters.
func (c CurrencyCode) Validate() error {
	if len(c) != 3 {
		return ErrInvalidCurrency
	}
	for _, r := range c {
		if !unicode.IsLetter(r) || r > unicode.MaxASCII {
			return ErrInvalidCurrency
		}
	}
	return nil
}

// Normalized returns the code upper-cased and trimmed.
func (c CurrencyCode) Normalized() CurrencyCode {
	return CurrencyCode(strings.ToUpper(strings.TrimSpace(string(c))))
}

func (d Draft) Validate() error {
	if strings.TrimSpace(d.ScopeID) == "" {
		return ErrMissingScope
	}
	if !d.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if err := d.Currency.Validate(); err != nil {
		return err
	}
	if d.PaymentDate.IsZero() {
		return ErrMissingPaymentDate
	}
	if len(d.Notes) > maxNotesLen {
		return fmt.Errorf("notes exceed %d characters: %w", maxNotesLen, ErrFieldTooLong)
	}
	if len(d.Reference) > maxReferenceLen {
		return fmt.Errorf("reference exceeds %d characters: %w", maxReferenceLen, ErrFieldTooLong)
	}
	return nil
}

func (p Patch) Validate() error {
	if p.ScopeID != nil && strings.TrimSpace(*p.ScopeID) == "" {
		return ErrMissingScope
	}
	if p.Amount != nil && !p.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if p.Currency != nil {
		if err := p.Currency.Validate(); err != nil {
			return err
		}
	}
	if p.PaymentDate != nil && p.PaymentDate.IsZero() {
		return ErrMissingPaymentDate
	}
	if p.Notes != nil && len(*p.Notes) > maxNotesLen {
		return fmt.Errorf("notes exceed %d characters: %w", maxNotesLen, ErrFieldTooLong)
	}
	if p.Reference != nil && len(*p.Reference) > maxReferenceLen {
		return fmt.Errorf("reference exceeds %d characters: %w", maxReferenceLen, ErrFieldTooLong)
	}
	return nil
}

// Renormalizes reports whether applying the patch changes the amount or the
// currency, which forces a fresh normalization of that entry.
func (p Patch) Renormalizes() bool {
	return p.Amount != nil || p.Currency != nil
}

// Apply overlays the patch onto an existing contribution. Identity, the
// normalized amount and CreatedAt are left untouched; the caller decides
// whether normalization has to be redone.
func (p Patch) Apply(c Contribution) Contribution {
	if p.ScopeID != nil {
		c.ScopeID = *p.ScopeID
	}
	if p.ContributorID != nil {
		c.ContributorID = *p.ContributorID
	}
	if p.Amount != nil {
		c.Amount = *p.Amount
	}
	if p.Currency != nil {
		c.Currency = p.Currency.Normalized()
	}
	if p.PaymentMethod != nil {
		c.PaymentMethod = *p.PaymentMethod
	}
	if p.PaymentDate != nil {
		c.PaymentDate = *p.PaymentDate
	}
	if p.Reference != nil {
		c.Reference = *p.Reference
	}
	if p.Notes != nil {
		c.Notes = *p.Notes
	}
	return c
}

// MatchesSearch reports whether the term appears, case-insensitively, in any
// human-visible field of the entry. An empty term matches everything.
func (c Contribution) MatchesSearch(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	for _, field := range []string{c.ContributorName, c.PaymentMethod, c.Reference, c.Notes} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

// Matches applies the full conjunctive filter.
func (c Contribution) Matches(f Filter) bool {
	if f.ScopeID != "" && c.ScopeID != f.ScopeID {
		return false
	}
	return c.MatchesSearch(f.Search)
}

// Clamped returns the page with defaults and bounds applied.
func (p Page) Clamped() Page {
	if p.Index < 0 {
		p.Index = 0
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

// Offset returns the row offset the page starts at.
func (p Page) Offset() int {
	return p.Index * p.Size
}

// Less orders contributions most-recent payment date first, ties broken by
// CreatedAt descending so listings are deterministic.
func Less(a, b Contribution) bool {
	if !a.PaymentDate.Equal(b.PaymentDate) {
		return a.PaymentDate.After(b.PaymentDate)
	}
	return a.CreatedAt.After(b.CreatedAt)
}

// DisplayContributor returns the contributor name, or "Anonymous" when the
// entry has no known member attached.
func (c Contribution) DisplayContributor() string {
	if strings.TrimSpace(c.ContributorName) != "" {
		return c.ContributorName
	}
	return "Anonymous"
}
