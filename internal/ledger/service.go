// Package ledger owns the contribution ledger: entry identity, the
// normalized-amount invariant, and the read-side projections the admin
// console consumes.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"kanisa/internal/core"
	"kanisa/internal/rates"
)

// Store is the persistence port for ledger entries. Implementations resolve
// scope and contributor names on reads; writes carry raw IDs only.
type Store interface {
	Insert(ctx context.Context, c core.Contribution) error
	Get(ctx context.Context, id string) (core.Contribution, error)
	Replace(ctx context.Context, c core.Contribution) error
	Remove(ctx context.Context, id string) error
	List(ctx context.Context, f core.Filter, p core.Page) (core.PagedResult, error)
	Total(ctx context.Context, scopeID string) (decimal.Decimal, error)
}

// EventPublisher notifies downstream consumers (the audit mirror) about
// ledger writes. Publishing is best-effort; a failed publish never fails the
// write that triggered it.
type EventPublisher interface {
	PublishRecorded(ctx context.Context, id string) error
	PublishDeleted(ctx context.Context, id string) error
}

// Service wires validation, normalization and persistence together. Every
// write normalizes exactly once; NormalizedAmount is never recomputed when
// rates move, so historical totals stay stable.
type Service struct {
	store      Store
	normalizer *rates.Normalizer
	publisher  EventPublisher // nil when no broker is configured
}

func NewService(store Store, normalizer *rates.Normalizer, publisher EventPublisher) *Service {
	return &Service{
		store:      store,
		normalizer: normalizer,
		publisher:  publisher,
	}
}

// ReportingCurrency returns the currency aggregate totals are expressed in.
func (s *Service) ReportingCurrency() core.CurrencyCode {
	return s.normalizer.ReportingCurrency()
}

// Create validates the draft, normalizes its amount and persists a new entry.
// Nothing is persisted when the rate lookup fails: a rejected write beats a
// silently wrong normalized total.
func (s *Service) Create(ctx context.Context, draft core.Draft) (core.Contribution, error) {
	draft.Currency = draft.Currency.Normalized()
	if err := draft.Validate(); err != nil {
		return core.Contribution{}, err
	}

	normalized, err := s.normalizer.Normalize(ctx, draft.Amount, draft.Currency)
	if err != nil {
		return core.Contribution{}, fmt.Errorf("normalize draft: %w", err)
	}

	entry := core.Contribution{
		ID:               uuid.NewString(),
		ScopeID:          draft.ScopeID,
		ContributorID:    draft.ContributorID,
		Amount:           draft.Amount,
		Currency:         draft.Currency,
		NormalizedAmount: normalized,
		PaymentMethod:    draft.PaymentMethod,
		PaymentDate:      draft.PaymentDate,
		Reference:        draft.Reference,
		Notes:            draft.Notes,
		CreatedAt:        time.Now().UTC(),
	}

	if err := s.store.Insert(ctx, entry); err != nil {
		return core.Contribution{}, fmt.Errorf("insert contribution: %w", err)
	}

	// Read the entry back so the response carries resolved display names.
	stored, err := s.store.Get(ctx, entry.ID)
	if err != nil {
		return core.Contribution{}, fmt.Errorf("load contribution %s: %w", entry.ID, err)
	}

	slog.InfoContext(ctx, "Contribution recorded",
		"contribution_id", entry.ID,
		"scope_id", entry.ScopeID,
		"amount", entry.Amount.String(),
		"currency", entry.Currency,
		"normalized_amount", entry.NormalizedAmount.String())

	s.publishRecorded(ctx, entry.ID)
	return stored, nil
}

// Update applies the patch to an existing entry. Changing Amount or Currency
// re-runs normalization for that entry only; any other edit leaves the stored
// NormalizedAmount untouched. Last write wins; there is no version check.
func (s *Service) Update(ctx context.Context, id string, patch core.Patch) (core.Contribution, error) {
	if err := patch.Validate(); err != nil {
		return core.Contribution{}, err
	}

	current, err := s.store.Get(ctx, id)
	if err != nil {
		return core.Contribution{}, fmt.Errorf("load contribution %s: %w", id, err)
	}

	updated := patch.Apply(current)
	if patch.Renormalizes() {
		normalized, err := s.normalizer.Normalize(ctx, updated.Amount, updated.Currency)
		if err != nil {
			return core.Contribution{}, fmt.Errorf("renormalize contribution %s: %w", id, err)
		}
		updated.NormalizedAmount = normalized
	}

	if err := s.store.Replace(ctx, updated); err != nil {
		return core.Contribution{}, fmt.Errorf("replace contribution %s: %w", id, err)
	}

	slog.InfoContext(ctx, "Contribution updated",
		"contribution_id", id,
		"renormalized", patch.Renormalizes())

	s.publishRecorded(ctx, id)
	return updated, nil
}

// Delete removes the entry permanently. There is no soft delete or undo.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Remove(ctx, id); err != nil {
		return fmt.Errorf("remove contribution %s: %w", id, err)
	}

	slog.InfoContext(ctx, "Contribution deleted", "contribution_id", id)

	if s.publisher != nil {
		if err := s.publisher.PublishDeleted(ctx, id); err != nil {
			slog.ErrorContext(ctx, "Failed to publish delete event",
				"contribution_id", id, "error", err)
		}
	}
	return nil
}

// Get returns a single entry with resolved display names.
func (s *Service) Get(ctx context.Context, id string) (core.Contribution, error) {
	return s.store.Get(ctx, id)
}

// List returns one page of the filtered ledger, most recent payment first.
// It always reads the store's current state; there is no caching between the
// console and the ledger.
func (s *Service) List(ctx context.Context, filter core.Filter, page core.Page) (core.PagedResult, error) {
	result, err := s.store.List(ctx, filter, page.Clamped())
	if err != nil {
		return core.PagedResult{}, fmt.Errorf("list contributions: %w", err)
	}
	return result, nil
}

// AggregateTotal sums stored NormalizedAmount values, optionally scoped to
// one church. A pure fold over already-normalized values: no currency math,
// no rate lookups, the same answer no matter when it runs.
func (s *Service) AggregateTotal(ctx context.Context, scopeID string) (decimal.Decimal, error) {
	total, err := s.store.Total(ctx, scopeID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("aggregate total: %w", err)
	}
	return total, nil
}

func (s *Service) publishRecorded(ctx context.Context, id string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishRecorded(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish record event",
			"contribution_id", id, "error", err)
	}
}
