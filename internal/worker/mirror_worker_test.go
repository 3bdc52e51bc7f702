package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"kanisa/internal/amqp"
	"kanisa/internal/core"
)

type stubStore struct {
	entries  map[string]core.Contribution
	pending  []string
	mirrored []string
	errored  []string
}

func (s *stubStore) Get(_ context.Context, id string) (core.Contribution, error) {
	entry, ok := s.entries[id]
	if !ok {
		return core.Contribution{}, core.ErrNotFound
	}
	return entry, nil
}

func (s *stubStore) PendingMirror(_ context.Context, limit int) ([]string, error) {
	if len(s.pending) > limit {
		return s.pending[:limit], nil
	}
	return s.pending, nil
}

func (s *stubStore) MarkMirrored(_ context.Context, id string) error {
	s.mirrored = append(s.mirrored, id)
	return nil
}

func (s *stubStore) MarkMirrorError(_ context.Context, id string) error {
	s.errored = append(s.errored, id)
	return nil
}

type stubMirror struct {
	records []core.Contribution
	voids   []string
	failFor map[string]error
}

func (m *stubMirror) AppendRecord(_ context.Context, entry core.Contribution) error {
	if err := m.failFor[entry.ID]; err != nil {
		return err
	}
	m.records = append(m.records, entry)
	return nil
}

func (m *stubMirror) AppendVoid(_ context.Context, id string) error {
	m.voids = append(m.voids, id)
	return nil
}

func testEntry(id string) core.Contribution {
	return core.Contribution{
		ID:               id,
		ScopeID:          "nairobi",
		ScopeName:        "Nairobi Central",
		Amount:           decimal.RequireFromString("100"),
		Currency:         "USD",
		NormalizedAmount: decimal.RequireFromString("13000"),
		PaymentMethod:    "mpesa",
		PaymentDate:      time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestHandleEventRecorded(t *testing.T) {
	store := &stubStore{entries: map[string]core.Contribution{"c-1": testEntry("c-1")}}
	mirror := &stubMirror{}
	w := NewMirrorWorker(store, mirror, 10)

	err := w.HandleEvent(context.Background(), amqp.NewLedgerEvent("c-1", amqp.ActionRecorded))
	if err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if len(mirror.records) != 1 || mirror.records[0].ID != "c-1" {
		t.Fatalf("expected one mirrored record for c-1, got %+v", mirror.records)
	}
	if len(store.mirrored) != 1 || store.mirrored[0] != "c-1" {
		t.Fatalf("expected c-1 marked mirrored, got %v", store.mirrored)
	}
}

func TestHandleEventRecordedEntryGone(t *testing.T) {
	store := &stubStore{entries: map[string]core.Contribution{}}
	mirror := &stubMirror{}
	w := NewMirrorWorker(store, mirror, 10)

	err := w.HandleEvent(context.Background(), amqp.NewLedgerEvent("gone", amqp.ActionRecorded))
	if err != nil {
		t.Fatalf("a deleted entry must not requeue the event: %v", err)
	}
	if len(mirror.records) != 0 {
		t.Fatalf("nothing should be mirrored, got %+v", mirror.records)
	}
}

func TestHandleEventDeleted(t *testing.T) {
	store := &stubStore{entries: map[string]core.Contribution{}}
	mirror := &stubMirror{}
	w := NewMirrorWorker(store, mirror, 10)

	err := w.HandleEvent(context.Background(), amqp.NewLedgerEvent("c-9", amqp.ActionDeleted))
	if err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if len(mirror.voids) != 1 || mirror.voids[0] != "c-9" {
		t.Fatalf("expected void row for c-9, got %v", mirror.voids)
	}
}

func TestHandleEventUnknownActionDropped(t *testing.T) {
	store := &stubStore{entries: map[string]core.Contribution{}}
	mirror := &stubMirror{}
	w := NewMirrorWorker(store, mirror, 10)

	err := w.HandleEvent(context.Background(), amqp.NewLedgerEvent("c-1", "exploded"))
	if err != nil {
		t.Fatalf("unknown actions must be dropped, not requeued: %v", err)
	}
	if len(mirror.records) != 0 || len(mirror.voids) != 0 {
		t.Fatal("unknown action must not touch the mirror")
	}
}

func TestMirrorFailureMarksError(t *testing.T) {
	store := &stubStore{entries: map[string]core.Contribution{"c-1": testEntry("c-1")}}
	mirror := &stubMirror{failFor: map[string]error{"c-1": errors.New("quota exceeded")}}
	w := NewMirrorWorker(store, mirror, 10)

	err := w.HandleEvent(context.Background(), amqp.NewLedgerEvent("c-1", amqp.ActionRecorded))
	if err == nil {
		t.Fatal("expected error so the delivery requeues")
	}
	if len(store.errored) != 1 || store.errored[0] != "c-1" {
		t.Fatalf("expected c-1 marked errored, got %v", store.errored)
	}
	if len(store.mirrored) != 0 {
		t.Fatalf("failed entry must not be marked mirrored, got %v", store.mirrored)
	}
}

func TestProcessPendingContinuesPastFailures(t *testing.T) {
	store := &stubStore{
		entries: map[string]core.Contribution{
			"a": testEntry("a"),
			"b": testEntry("b"),
			"c": testEntry("c"),
		},
		pending: []string{"a", "b", "c"},
	}
	mirror := &stubMirror{failFor: map[string]error{"b": errors.New("boom")}}
	w := NewMirrorWorker(store, mirror, 10)

	if err := w.ProcessPending(context.Background()); err != nil {
		t.Fatalf("ProcessPending: %v", err)
	}
	if len(mirror.records) != 2 {
		t.Fatalf("expected a and c mirrored despite b failing, got %+v", mirror.records)
	}
	if len(store.errored) != 1 || store.errored[0] != "b" {
		t.Fatalf("expected only b errored, got %v", store.errored)
	}
}

func TestProcessPendingRespectsBatchSize(t *testing.T) {
	store := &stubStore{
		entries: map[string]core.Contribution{
			"a": testEntry("a"),
			"b": testEntry("b"),
		},
		pending: []string{"a", "b"},
	}
	mirror := &stubMirror{}
	w := NewMirrorWorker(store, mirror, 1)

	if err := w.ProcessPending(context.Background()); err != nil {
		t.Fatalf("ProcessPending: %v", err)
	}
	if len(mirror.records) != 1 {
		t.Fatalf("batch size 1 must mirror a single entry, got %d", len(mirror.records))
	}
}
