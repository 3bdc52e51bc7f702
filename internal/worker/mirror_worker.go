// Package worker drives the Google Sheets audit mirror. It consumes ledger
// events from AMQP and sweeps the mirror_state column so entries missed by
// the queue still reach the sheet.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"kanisa/internal/amqp"
	"kanisa/internal/core"
)

// MirrorStore is the slice of storage the worker needs.
type MirrorStore interface {
	Get(ctx context.Context, id string) (core.Contribution, error)
	PendingMirror(ctx context.Context, limit int) ([]string, error)
	MarkMirrored(ctx context.Context, id string) error
	MarkMirrorError(ctx context.Context, id string) error
}

// Mirror receives rows on the audit sheet.
type Mirror interface {
	AppendRecord(ctx context.Context, entry core.Contribution) error
	AppendVoid(ctx context.Context, id string) error
}

type MirrorWorker struct {
	storage   MirrorStore
	mirror    Mirror
	batchSize int
}

func NewMirrorWorker(storage MirrorStore, mirror Mirror, batchSize int) *MirrorWorker {
	return &MirrorWorker{
		storage:   storage,
		mirror:    mirror,
		batchSize: batchSize,
	}
}

// HandleEvent processes a single ledger event from AMQP.
func (w *MirrorWorker) HandleEvent(ctx context.Context, event *amqp.LedgerEvent) error {
	slog.InfoContext(ctx, "Processing ledger event",
		"contribution_id", event.ContributionID,
		"event_action", event.Action)

	switch event.Action {
	case amqp.ActionDeleted:
		if err := w.mirror.AppendVoid(ctx, event.ContributionID); err != nil {
			return fmt.Errorf("append void row: %w", err)
		}
		return nil
	case amqp.ActionRecorded:
		return w.mirrorEntry(ctx, event.ContributionID)
	default:
		slog.WarnContext(ctx, "Dropping event with unknown action",
			"contribution_id", event.ContributionID,
			"event_action", event.Action)
		return nil
	}
}

// ProcessPending sweeps entries still marked pending. This is the backup
// path for events lost between publish and consume.
func (w *MirrorWorker) ProcessPending(ctx context.Context) error {
	ids, err := w.storage.PendingMirror(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending entries: %w", err)
	}

	if len(ids) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending mirror entries", "count", len(ids))

	for _, id := range ids {
		if err := w.mirrorEntry(ctx, id); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror entry", "contribution_id", id, "error", err)
		}
	}

	return nil
}

// StartupCheck drains a larger pending batch once at worker start, covering
// downtime during which events were published but never consumed.
func (w *MirrorWorker) StartupCheck(ctx context.Context) error {
	ids, err := w.storage.PendingMirror(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending entries for startup check: %w", err)
	}

	if len(ids) == 0 {
		slog.InfoContext(ctx, "No pending entries found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending entries on startup, processing...",
		"count", len(ids))

	mirrored := 0
	failed := 0
	for _, id := range ids {
		if err := w.mirrorEntry(ctx, id); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror entry during startup",
				"contribution_id", id, "error", err)
			failed++
			continue
		}
		mirrored++
	}

	slog.InfoContext(ctx, "Startup mirror check completed",
		"total", len(ids),
		"mirrored", mirrored,
		"errors", failed)

	return nil
}

func (w *MirrorWorker) mirrorEntry(ctx context.Context, id string) error {
	entry, err := w.storage.Get(ctx, id)
	if err != nil {
		// Deleted before the event was consumed. The delete event appends
		// its own void row, so there is nothing left to mirror here.
		if errors.Is(err, core.ErrNotFound) {
			slog.InfoContext(ctx, "Entry gone before mirroring, skipping",
				"contribution_id", id)
			return nil
		}
		return fmt.Errorf("get entry from storage: %w", err)
	}

	if err := w.mirror.AppendRecord(ctx, entry); err != nil {
		if markErr := w.storage.MarkMirrorError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark mirror error",
				"contribution_id", id, "error", markErr)
		}
		return fmt.Errorf("append to sheet: %w", err)
	}

	if err := w.storage.MarkMirrored(ctx, id); err != nil {
		// The row is on the sheet; the sweep will retry the mark.
		slog.ErrorContext(ctx, "Failed to mark entry mirrored",
			"contribution_id", id, "error", err)
	}

	slog.InfoContext(ctx, "Mirrored entry",
		"contribution_id", id,
		"scope_id", entry.ScopeID,
		"normalized_amount", entry.NormalizedAmount.String())

	return nil
}
