package state

import (
	"context"
	"testing"
	"time"

	"contas/internal/core"
	"contas/internal/stream"
)

// fakeHub hands the registered callbacks back to the test so it can push
// snapshots on demand.
type fakeHub struct {
	pushTransactions func([]core.Transaction)
	pushPlans        func([]core.RecurringPlan)
	pushCategories   func([]core.Category)

	transactions []core.Transaction
	plans        []core.RecurringPlan
	categories   []core.Category
}

func (f *fakeHub) SubscribeTransactions(_ context.Context, _ []string, onChange func([]core.Transaction)) (stream.Unsubscribe, error) {
	f.pushTransactions = onChange
	onChange(f.transactions)
	return func() {}, nil
}

func (f *fakeHub) SubscribePlans(_ context.Context, _ []string, onChange func([]core.RecurringPlan)) (stream.Unsubscribe, error) {
	f.pushPlans = onChange
	onChange(f.plans)
	return func() {}, nil
}

func (f *fakeHub) SubscribeCategories(_ context.Context, _ string, onChange func([]core.Category)) (stream.Unsubscribe, error) {
	f.pushCategories = onChange
	onChange(f.categories)
	return func() {}, nil
}

func marchSession(t *testing.T) (*Session, *fakeHub) {
	t.Helper()
	hub := &fakeHub{
		transactions: []core.Transaction{
			{ID: "t1", Label: "Salário", Amount: core.Money{Cents: 500000}, Type: core.Income, Date: core.NewDay(2026, time.March, 1)},
			{ID: "t2", Label: "Mercado", Amount: core.Money{Cents: 40000}, Type: core.Expense, Category: "Alimentação", Method: core.Pix, Date: core.NewDay(2026, time.March, 5)},
		},
	}
	session, err := NewSession(context.Background(), hub, "u1", []string{"u1"}, core.NewDay(2026, time.March, 1))
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return session, hub
}

func TestSessionInitialSummary(t *testing.T) {
	session, _ := marchSession(t)
	defer session.Close()

	summary := session.Summary()
	if summary.Income.Cents != 500000 || summary.Expense.Cents != 40000 {
		t.Errorf("income/expense = %d/%d", summary.Income.Cents, summary.Expense.Cents)
	}
	if summary.Balance.Cents != 460000 {
		t.Errorf("balance = %d", summary.Balance.Cents)
	}
}

func TestSessionRecomputesOnSnapshot(t *testing.T) {
	session, hub := marchSession(t)
	defer session.Close()

	hub.transactions = append(hub.transactions, core.Transaction{
		ID: "t3", Label: "Farmácia", Amount: core.Money{Cents: 5000},
		Type: core.Expense, Category: "Contas", Method: core.Debit,
		Date: core.NewDay(2026, time.March, 20),
	})
	hub.pushTransactions(hub.transactions)

	if got := session.Summary().Expense.Cents; got != 45000 {
		t.Errorf("expense after push = %d, want 45000", got)
	}
}

func TestSessionSetMonth(t *testing.T) {
	session, _ := marchSession(t)
	defer session.Close()

	summary := session.SetMonth(core.NewDay(2026, time.April, 1))
	if len(summary.Transactions) != 0 {
		t.Errorf("april transactions = %d, want 0", len(summary.Transactions))
	}
	if !core.SameMonth(session.Month(), core.NewDay(2026, time.April, 1)) {
		t.Error("viewed month did not move")
	}
}

func TestSessionObserve(t *testing.T) {
	session, hub := marchSession(t)
	defer session.Close()

	var seen []core.MonthSummary
	unsub := session.Observe(func(s core.MonthSummary) { seen = append(seen, s) })

	if len(seen) != 1 {
		t.Fatalf("observer deliveries = %d, want immediate delivery", len(seen))
	}

	hub.pushTransactions(hub.transactions)
	if len(seen) != 2 {
		t.Errorf("deliveries after push = %d, want 2", len(seen))
	}

	unsub()
	hub.pushTransactions(hub.transactions)
	if len(seen) != 2 {
		t.Errorf("deliveries after unsubscribe = %d, want still 2", len(seen))
	}
}

func TestSessionCategories(t *testing.T) {
	session, hub := marchSession(t)
	defer session.Close()

	hub.pushCategories([]core.Category{{ID: "c1", OwnerID: "u1", Label: "Pets", Color: "#AED581"}})

	all := session.Categories()
	if len(all) != len(core.BuiltinCategories())+1 {
		t.Fatalf("categories = %d, want built-ins plus one custom", len(all))
	}
	if got := session.ResolveCategory("Pets").Color; got != "#AED581" {
		t.Errorf("resolved color = %q", got)
	}
	if got := session.ResolveCategory("Extinta").Color; got != "#9E9E9E" {
		t.Errorf("fallback color = %q", got)
	}
}
