package stream

import (
	"context"
	"errors"
	"testing"
	"time"

	"contas/internal/core"
)

// fakeSource serves canned snapshots and counts reads.
type fakeSource struct {
	transactions []core.Transaction
	plans        []core.RecurringPlan
	categories   []core.Category
	txReads      int
	err          error
}

func (f *fakeSource) ListTransactions(_ context.Context, _ []string) ([]core.Transaction, error) {
	f.txReads++
	return f.transactions, f.err
}

func (f *fakeSource) ListPlans(_ context.Context, _ []string) ([]core.RecurringPlan, error) {
	return f.plans, f.err
}

func (f *fakeSource) ListCategories(_ context.Context, _ string) ([]core.Category, error) {
	return f.categories, f.err
}

func TestSubscribeDeliversInitialSnapshot(t *testing.T) {
	source := &fakeSource{transactions: []core.Transaction{{ID: "t1"}}}
	hub := NewHub(source)

	var got []core.Transaction
	unsub, err := hub.SubscribeTransactions(context.Background(), []string{"u1"}, func(list []core.Transaction) {
		got = list
	})
	if err != nil {
		t.Fatalf("SubscribeTransactions: %v", err)
	}
	defer unsub()

	if len(got) != 1 || got[0].ID != "t1" {
		t.Errorf("initial snapshot = %+v, want the canned transaction", got)
	}
}

func TestInvalidateRedelivers(t *testing.T) {
	source := &fakeSource{transactions: []core.Transaction{{ID: "t1"}}}
	hub := NewHub(source)

	deliveries := 0
	unsub, err := hub.SubscribeTransactions(context.Background(), []string{"u1"}, func(list []core.Transaction) {
		deliveries++
	})
	if err != nil {
		t.Fatalf("SubscribeTransactions: %v", err)
	}
	defer unsub()

	source.transactions = append(source.transactions, core.Transaction{ID: "t2"})
	hub.Invalidate(context.Background(), Transactions)

	if deliveries != 2 {
		t.Errorf("deliveries = %d, want 2 (initial + invalidation)", deliveries)
	}
	if source.txReads != 2 {
		t.Errorf("source reads = %d, want 2", source.txReads)
	}
}

func TestInvalidateOnlyMatchingCollection(t *testing.T) {
	source := &fakeSource{}
	hub := NewHub(source)

	txDeliveries, planDeliveries := 0, 0
	unsubTx, err := hub.SubscribeTransactions(context.Background(), []string{"u1"}, func([]core.Transaction) { txDeliveries++ })
	if err != nil {
		t.Fatalf("SubscribeTransactions: %v", err)
	}
	defer unsubTx()
	unsubPlans, err := hub.SubscribePlans(context.Background(), []string{"u1"}, func([]core.RecurringPlan) { planDeliveries++ })
	if err != nil {
		t.Fatalf("SubscribePlans: %v", err)
	}
	defer unsubPlans()

	hub.Invalidate(context.Background(), Plans)

	if txDeliveries != 1 {
		t.Errorf("transaction deliveries = %d, want 1 (initial only)", txDeliveries)
	}
	if planDeliveries != 2 {
		t.Errorf("plan deliveries = %d, want 2", planDeliveries)
	}
}

func TestUnsubscribeStopsDeliveries(t *testing.T) {
	source := &fakeSource{}
	hub := NewHub(source)

	deliveries := 0
	unsub, err := hub.SubscribeCategories(context.Background(), "u1", func([]core.Category) { deliveries++ })
	if err != nil {
		t.Fatalf("SubscribeCategories: %v", err)
	}

	unsub()
	unsub() // double unsubscribe must be safe
	hub.Invalidate(context.Background(), Categories)

	if deliveries != 1 {
		t.Errorf("deliveries = %d, want 1", deliveries)
	}
}

func TestSubscribeFailsWhenInitialReadFails(t *testing.T) {
	source := &fakeSource{err: errors.New("db gone")}
	hub := NewHub(source)

	_, err := hub.SubscribeTransactions(context.Background(), []string{"u1"}, func([]core.Transaction) {
		t.Error("callback must not run when the initial read fails")
	})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestInvalidateSurvivesFailedDelivery(t *testing.T) {
	source := &fakeSource{}
	hub := NewHub(source)

	deliveries := 0
	unsub, err := hub.SubscribePlans(context.Background(), []string{"u1"}, func([]core.RecurringPlan) { deliveries++ })
	if err != nil {
		t.Fatalf("SubscribePlans: %v", err)
	}
	defer unsub()

	source.err = errors.New("transient")
	hub.Invalidate(context.Background(), Plans)
	source.err = nil
	hub.Invalidate(context.Background(), Plans)

	if deliveries != 2 {
		t.Errorf("deliveries = %d, want 2 (failed delivery skipped, next one works)", deliveries)
	}

	// sanity: timestamps do not matter for delivery
	_ = time.Now()
}
