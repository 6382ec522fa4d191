package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"contas/internal/amqp"
	"contas/internal/core"
	"contas/internal/export/memory"
)

type fakeSyncStore struct {
	pending []core.Transaction
	synced  []string
	errored []string
}

func (f *fakeSyncStore) ListUnsyncedTransactions(_ context.Context, limit int) ([]core.Transaction, error) {
	if limit > len(f.pending) {
		limit = len(f.pending)
	}
	return append([]core.Transaction(nil), f.pending[:limit]...), nil
}

func (f *fakeSyncStore) MarkTransactionSynced(_ context.Context, id string) error {
	f.synced = append(f.synced, id)
	for i := range f.pending {
		if f.pending[i].ID == id {
			f.pending = append(f.pending[:i], f.pending[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeSyncStore) MarkTransactionSyncError(_ context.Context, id string) error {
	f.errored = append(f.errored, id)
	for i := range f.pending {
		if f.pending[i].ID == id {
			f.pending = append(f.pending[:i], f.pending[i+1:]...)
			break
		}
	}
	return nil
}

// failingBackend rejects specific ids.
type failingBackend struct {
	inner  *memory.Store
	reject map[string]bool
}

func (b *failingBackend) Append(ctx context.Context, t core.Transaction) (string, error) {
	if b.reject[t.ID] {
		return "", errors.New("quota exceeded")
	}
	return b.inner.Append(ctx, t)
}

func entry(id string) core.Transaction {
	return core.Transaction{
		ID:      id,
		OwnerID: "u1",
		Label:   "Mercado " + id,
		Amount:  core.Money{Cents: 1000},
		Type:    core.Expense,
		Method:  core.Pix,
		Date:    core.NewDay(2026, time.March, 3),
	}
}

func TestDrainPendingExportsBatch(t *testing.T) {
	store := &fakeSyncStore{pending: []core.Transaction{entry("t1"), entry("t2")}}
	backend := memory.New()
	w := NewSyncWorker(store, backend, 10)

	if err := w.DrainPending(context.Background()); err != nil {
		t.Fatalf("DrainPending: %v", err)
	}

	if len(backend.Items()) != 2 {
		t.Errorf("exported = %d, want 2", len(backend.Items()))
	}
	if len(store.synced) != 2 {
		t.Errorf("marked synced = %v, want both ids", store.synced)
	}
}

func TestDrainPendingSkipsFailedEntry(t *testing.T) {
	store := &fakeSyncStore{pending: []core.Transaction{entry("t1"), entry("t2"), entry("t3")}}
	backend := &failingBackend{inner: memory.New(), reject: map[string]bool{"t2": true}}
	w := NewSyncWorker(store, backend, 10)

	if err := w.DrainPending(context.Background()); err != nil {
		t.Fatalf("DrainPending: %v", err)
	}

	if len(backend.inner.Items()) != 2 {
		t.Errorf("exported = %d, want 2 (t2 skipped)", len(backend.inner.Items()))
	}
	if len(store.errored) != 1 || store.errored[0] != "t2" {
		t.Errorf("errored = %v, want [t2]", store.errored)
	}
}

func TestHandleChangeEventFilters(t *testing.T) {
	store := &fakeSyncStore{pending: []core.Transaction{entry("t1")}}
	backend := memory.New()
	w := NewSyncWorker(store, backend, 10)

	// plan events never touch the export
	if err := w.HandleChangeEvent(context.Background(), amqp.NewChangeEvent(amqp.CollectionPlans, "p1", amqp.OpUpdated)); err != nil {
		t.Fatalf("plan event: %v", err)
	}
	if len(backend.Items()) != 0 {
		t.Error("plan event must not trigger a drain")
	}

	// ledger deletions are acknowledged without draining
	if err := w.HandleChangeEvent(context.Background(), amqp.NewChangeEvent(amqp.CollectionTransactions, "t1", amqp.OpDeleted)); err != nil {
		t.Fatalf("delete event: %v", err)
	}
	if len(backend.Items()) != 0 {
		t.Error("delete event must not trigger a drain")
	}

	// a creation drains whatever is pending
	if err := w.HandleChangeEvent(context.Background(), amqp.NewChangeEvent(amqp.CollectionTransactions, "t1", amqp.OpCreated)); err != nil {
		t.Fatalf("create event: %v", err)
	}
	if len(backend.Items()) != 1 {
		t.Errorf("exported = %d, want 1", len(backend.Items()))
	}
}

func TestStartupSyncCheck(t *testing.T) {
	store := &fakeSyncStore{pending: []core.Transaction{entry("t1"), entry("t2")}}
	backend := memory.New()
	w := NewSyncWorker(store, backend, 1)

	// startup uses a larger batch than the configured size
	if err := w.StartupSyncCheck(context.Background()); err != nil {
		t.Fatalf("StartupSyncCheck: %v", err)
	}
	if len(backend.Items()) != 2 {
		t.Errorf("exported = %d, want 2", len(backend.Items()))
	}
}
