package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"dailyledger/internal/amqp"
	"dailyledger/internal/core"
	"dailyledger/internal/sheets"
)

// ExpenseSource lists the authoritative record set.
type ExpenseSource interface {
	ListAll(ctx context.Context) ([]core.Expense, error)
}

// MirrorWorker applies expense events to a spreadsheet mirror and
// periodically reconciles the mirror with the store.
type MirrorWorker struct {
	mirror sheets.Mirror
	lister sheets.Lister
	source ExpenseSource
}

// NewMirrorWorker creates a worker. lister and source may be nil, in which
// case Reconcile is a no-op.
func NewMirrorWorker(mirror sheets.Mirror, lister sheets.Lister, source ExpenseSource) *MirrorWorker {
	return &MirrorWorker{mirror: mirror, lister: lister, source: source}
}

// HandleEvent applies a single expense event. Stale updates are dropped
// without error so the message is acknowledged.
func (w *MirrorWorker) HandleEvent(ctx context.Context, ev *amqp.ExpenseEvent) error {
	slog.InfoContext(ctx, "Processing expense event",
		"message_id", ev.MessageID,
		"kind", ev.Kind,
		"id", ev.ID,
		"version", ev.Version)

	switch ev.Kind {
	case amqp.EventCreated, amqp.EventUpdated:
		e, err := ev.ToExpense()
		if err != nil {
			return err
		}
		ref, err := w.mirror.Upsert(ctx, e)
		if errors.Is(err, sheets.ErrStale) {
			slog.InfoContext(ctx, "Skipping stale expense event", "id", ev.ID, "version", ev.Version)
			return nil
		}
		if err != nil {
			return fmt.Errorf("mirror expense %d: %w", ev.ID, err)
		}
		slog.InfoContext(ctx, "Mirrored expense",
			"id", ev.ID,
			"sheets_ref", ref,
			"amount_cents", e.Amount.Cents)
	case amqp.EventDeleted:
		if err := w.mirror.Remove(ctx, core.ExpenseID(ev.ID)); err != nil {
			return fmt.Errorf("remove mirrored expense %d: %w", ev.ID, err)
		}
		slog.InfoContext(ctx, "Removed mirrored expense", "id", ev.ID)
	default:
		return fmt.Errorf("unknown event kind %q", ev.Kind)
	}
	return nil
}

// ReconcileResult summarizes one reconciliation pass.
type ReconcileResult struct {
	Upserted int
	Removed  int
	Errors   int
}

// Reconcile writes every store record to the mirror and removes mirror rows
// for ids the store no longer holds. It recovers from lost events.
func (w *MirrorWorker) Reconcile(ctx context.Context) (ReconcileResult, error) {
	var res ReconcileResult
	if w.source == nil || w.lister == nil {
		return res, nil
	}

	records, err := w.source.ListAll(ctx)
	if err != nil {
		return res, fmt.Errorf("list store records: %w", err)
	}
	mirrored, err := w.lister.List(ctx)
	if err != nil {
		return res, fmt.Errorf("list mirror rows: %w", err)
	}

	current := make(map[core.ExpenseID]core.Expense, len(mirrored))
	for _, e := range mirrored {
		current[e.ID] = e
	}

	live := make(map[core.ExpenseID]bool, len(records))
	for _, e := range records {
		live[e.ID] = true
		if m, ok := current[e.ID]; ok && m.UpdatedAt.Equal(e.UpdatedAt) {
			continue
		}
		if _, err := w.mirror.Upsert(ctx, e); err != nil && !errors.Is(err, sheets.ErrStale) {
			slog.ErrorContext(ctx, "Failed to reconcile expense", "id", e.ID, "error", err)
			res.Errors++
			continue
		}
		res.Upserted++
	}

	for id := range current {
		if live[id] {
			continue
		}
		if err := w.mirror.Remove(ctx, id); err != nil {
			slog.ErrorContext(ctx, "Failed to remove orphaned row", "id", id, "error", err)
			res.Errors++
			continue
		}
		res.Removed++
	}

	slog.InfoContext(ctx, "Reconcile completed",
		"records", len(records),
		"upserted", res.Upserted,
		"removed", res.Removed,
		"errors", res.Errors)
	return res, nil
}

// RunReconcileLoop reconciles every interval until ctx ends.
func (w *MirrorWorker) RunReconcileLoop(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.Reconcile(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic reconcile failed", "error", err)
			}
		}
	}
}
