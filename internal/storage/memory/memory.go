// Package memory implements the ledger store in process memory. It is the
// default backend for local development and the test double for everything
// that consumes the store port.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"kanisa/internal/core"
)

type Store struct {
	mu      sync.RWMutex
	entries map[string]core.Contribution
	scopes  map[string]string // scope id -> display name
	members map[string]string // member id -> display name
}

func New() *Store {
	return &Store{
		entries: make(map[string]core.Contribution),
		scopes:  make(map[string]string),
		members: make(map[string]string),
	}
}

// NewWithNames seeds the store with scope and member display names.
func NewWithNames(scopes, members map[string]string) *Store {
	s := New()
	for id, name := range scopes {
		s.scopes[id] = name
	}
	for id, name := range members {
		s.members[id] = name
	}
	return s
}

// SeedScope registers a scope display name.
func (s *Store) SeedScope(id, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scopes[id] = name
}

// SeedMember registers a member display name.
func (s *Store) SeedMember(id, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[id] = name
}

func (s *Store) Insert(_ context.Context, c core.Contribution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Stored entries keep raw IDs only; names are resolved on read.
	c.ScopeName, c.ContributorName = "", ""
	s.entries[c.ID] = c
	return nil
}

func (s *Store) Get(_ context.Context, id string) (core.Contribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.entries[id]
	if !ok {
		return core.Contribution{}, core.ErrNotFound
	}
	return s.resolve(c), nil
}

func (s *Store) Replace(_ context.Context, c core.Contribution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[c.ID]; !ok {
		return core.ErrNotFound
	}
	// Stored entries keep raw IDs only; names are resolved on read.
	c.ScopeName, c.ContributorName = "", ""
	s.entries[c.ID] = c
	return nil
}

func (s *Store) Remove(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.entries, id)
	return nil
}

func (s *Store) List(_ context.Context, f core.Filter, p core.Page) (core.PagedResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]core.Contribution, 0, len(s.entries))
	for _, c := range s.entries {
		resolved := s.resolve(c)
		if resolved.Matches(f) {
			matched = append(matched, resolved)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return core.Less(matched[i], matched[j]) })

	total := len(matched)
	start := p.Offset()
	if start > total {
		start = total
	}
	end := start + p.Size
	if end > total {
		end = total
	}
	return core.PagedResult{
		Items:         append([]core.Contribution(nil), matched[start:end]...),
		TotalMatching: total,
	}, nil
}

func (s *Store) Total(_ context.Context, scopeID string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := decimal.Zero
	for _, c := range s.entries {
		if scopeID != "" && c.ScopeID != scopeID {
			continue
		}
		total = total.Add(c.NormalizedAmount)
	}
	return total, nil
}

func (s *Store) resolve(c core.Contribution) core.Contribution {
	c.ScopeName = s.scopes[c.ScopeID]
	if c.ContributorID != "" {
		c.ContributorName = s.members[c.ContributorID]
	}
	return c
}
