// Package worker drains the ledger to the export backend. Change events
// from AMQP trigger a drain immediately; a periodic sweep and a startup
// check cover lost messages and downtime.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"contas/internal/amqp"
	"contas/internal/core"
	"contas/internal/export"
)

// SyncStore is the bookkeeping surface behind the export worker.
type SyncStore interface {
	ListUnsyncedTransactions(ctx context.Context, limit int) ([]core.Transaction, error)
	MarkTransactionSynced(ctx context.Context, id string) error
	MarkTransactionSyncError(ctx context.Context, id string) error
}

// SyncWorker copies unsynced ledger entries to the export backend.
type SyncWorker struct {
	store     SyncStore
	backend   export.TransactionAppender
	batchSize int
}

func NewSyncWorker(store SyncStore, backend export.TransactionAppender, batchSize int) *SyncWorker {
	return &SyncWorker{
		store:     store,
		backend:   backend,
		batchSize: batchSize,
	}
}

// HandleChangeEvent reacts to one change event. Only ledger events matter
// here; plan and category events are acknowledged untouched so they do not
// pile up in the queue.
func (w *SyncWorker) HandleChangeEvent(ctx context.Context, event *amqp.ChangeEvent) error {
	if event.Collection != amqp.CollectionTransactions {
		return nil
	}
	if event.Op == amqp.OpDeleted {
		// The export is an append-only audit copy; deletions stay local.
		slog.DebugContext(ctx, "Ignoring ledger deletion for export", "id", event.ID)
		return nil
	}

	return w.DrainPending(ctx)
}

// DrainPending exports one batch of unsynced entries. Failed entries are
// marked and excluded from later batches so one bad row cannot wedge the
// whole drain.
func (w *SyncWorker) DrainPending(ctx context.Context) error {
	pending, err := w.store.ListUnsyncedTransactions(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list unsynced transactions: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Draining unsynced ledger entries", "count", len(pending))

	for _, t := range pending {
		ref, err := w.backend.Append(ctx, t)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to export transaction",
				"id", t.ID,
				"error", err)
			if markErr := w.store.MarkTransactionSyncError(ctx, t.ID); markErr != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error", "id", t.ID, "error", markErr)
			}
			continue
		}

		if err := w.store.MarkTransactionSynced(ctx, t.ID); err != nil {
			// The row landed; failing the batch would append it again.
			slog.ErrorContext(ctx, "Failed to mark transaction as synced", "id", t.ID, "error", err)
			continue
		}

		slog.InfoContext(ctx, "Transaction exported",
			"id", t.ID,
			"row_ref", ref,
			"amount_cents", t.Amount.Cents)
	}

	return nil
}

// StartupSyncCheck drains a larger backlog once at startup to recover from
// missed events or worker downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	pending, err := w.store.ListUnsyncedTransactions(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("list unsynced transactions for startup check: %w", err)
	}
	if len(pending) == 0 {
		slog.InfoContext(ctx, "No unsynced ledger entries found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found unsynced ledger entries on startup", "count", len(pending))

	synced, failed := 0, 0
	for _, t := range pending {
		if _, err := w.backend.Append(ctx, t); err != nil {
			slog.ErrorContext(ctx, "Failed to export transaction during startup",
				"id", t.ID,
				"error", err)
			if markErr := w.store.MarkTransactionSyncError(ctx, t.ID); markErr != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error", "id", t.ID, "error", markErr)
			}
			failed++
			continue
		}
		if err := w.store.MarkTransactionSynced(ctx, t.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to mark transaction as synced", "id", t.ID, "error", err)
		}
		synced++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(pending),
		"synced", synced,
		"errors", failed)

	return nil
}
