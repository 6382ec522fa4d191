package core

import (
	"reflect"
	"testing"
	"time"
)

func marchLedger() []Transaction {
	return []Transaction{
		{ID: "t1", Label: "Salário", Amount: Money{Cents: 500000}, Type: Income, Category: "Renda", Date: NewDay(2026, time.March, 5)},
		{ID: "t2", Label: "Mercado", Amount: Money{Cents: 35000}, Type: Expense, Category: "Alimentação", Method: Credit, Date: NewDay(2026, time.March, 8)},
		{ID: "t3", Label: "Ônibus", Amount: Money{Cents: 1200}, Type: Expense, Category: "Transporte", Method: Pix, Date: NewDay(2026, time.March, 9)},
		{ID: "t4", Label: "Padaria", Amount: Money{Cents: 4800}, Type: Expense, Category: "Alimentação", Date: NewDay(2026, time.March, 12)},
		{ID: "t5", Label: "Aluguel abril", Amount: Money{Cents: 120000}, Type: Expense, Category: "Contas", Method: Pix, Date: NewDay(2026, time.April, 1)},
	}
}

func TestFilterByMonth(t *testing.T) {
	ref := NewDay(2026, time.March, 15)
	got := FilterByMonth(marchLedger(), ref)
	if len(got) != 4 {
		t.Fatalf("len = %d, want 4", len(got))
	}
	for _, tx := range got {
		if !SameMonth(tx.Date, ref) {
			t.Errorf("transaction %s dated %v leaked into March", tx.ID, tx.Date)
		}
	}
}

func TestFilterByMonthIdempotent(t *testing.T) {
	ref := NewDay(2026, time.March, 15)
	once := FilterByMonth(marchLedger(), ref)
	twice := FilterByMonth(once, ref)
	if !reflect.DeepEqual(once, twice) {
		t.Error("filtering twice changed the result")
	}
}

func TestSummarizeTotals(t *testing.T) {
	s := Summarize(NewDay(2026, time.March, 15), marchLedger(), nil)

	if s.Income.Cents != 500000 {
		t.Errorf("income = %d, want 500000", s.Income.Cents)
	}
	if s.Expense.Cents != 41000 {
		t.Errorf("expense = %d, want 41000", s.Expense.Cents)
	}
	if s.Balance.Cents != 459000 {
		t.Errorf("balance = %d, want 459000", s.Balance.Cents)
	}
	if want := 459000.0 / 500000.0; s.Availability != want {
		t.Errorf("availability = %v, want %v", s.Availability, want)
	}
}

func TestSummarizeByCategory(t *testing.T) {
	s := Summarize(NewDay(2026, time.March, 15), marchLedger(), nil)

	want := []CategoryAmount{
		{Label: "Alimentação", Amount: Money{Cents: 39800}},
		{Label: "Transporte", Amount: Money{Cents: 1200}},
	}
	if !reflect.DeepEqual(s.ByCategory, want) {
		t.Errorf("ByCategory = %+v, want %+v", s.ByCategory, want)
	}
}

func TestSummarizeByMethodDefaultsToOther(t *testing.T) {
	s := Summarize(NewDay(2026, time.March, 15), marchLedger(), nil)

	want := []MethodAmount{
		{Method: Credit, Amount: Money{Cents: 35000}},
		{Method: Other, Amount: Money{Cents: 4800}},
		{Method: Pix, Amount: Money{Cents: 1200}},
	}
	if !reflect.DeepEqual(s.ByMethod, want) {
		t.Errorf("ByMethod = %+v, want %+v", s.ByMethod, want)
	}
}

func TestSummarizeZeroIncome(t *testing.T) {
	ledger := []Transaction{
		{ID: "t1", Label: "Mercado", Amount: Money{Cents: 15000}, Type: Expense, Category: "Alimentação", Date: NewDay(2026, time.March, 8)},
	}
	s := Summarize(NewDay(2026, time.March, 15), ledger, nil)

	if s.Balance.Cents != -15000 {
		t.Errorf("balance = %d, want -15000", s.Balance.Cents)
	}
	if s.Availability != 0 {
		t.Errorf("availability = %v, want 0 when income is zero", s.Availability)
	}
}

func TestSummarizePlansProjection(t *testing.T) {
	schedule, err := GenerateSchedule(NewDay(2026, time.January, 15), 10, Money{Cents: 300000}, Loan)
	if err != nil {
		t.Fatalf("GenerateSchedule: %v", err)
	}
	schedule[2].Paid = true
	inMonth := RecurringPlan{ID: "p1", Title: "Notebook", Kind: Loan, TotalAmount: Money{Cents: 300000}, Installments: schedule}

	outSchedule, err := GenerateSchedule(NewDay(2026, time.June, 1), 4, Money{Cents: 40000}, Loan)
	if err != nil {
		t.Fatalf("GenerateSchedule: %v", err)
	}
	outOfMonth := RecurringPlan{ID: "p2", Title: "Geladeira", Kind: Loan, TotalAmount: Money{Cents: 40000}, Installments: outSchedule}

	s := Summarize(NewDay(2026, time.March, 15), nil, []RecurringPlan{inMonth, outOfMonth})

	if len(s.Plans) != 1 {
		t.Fatalf("plans in view = %d, want 1 (plans with no installment this month are excluded)", len(s.Plans))
	}
	view := s.Plans[0]
	if view.Plan.ID != "p1" {
		t.Errorf("plan id = %s, want p1", view.Plan.ID)
	}
	if view.Current.Number != 3 {
		t.Errorf("current installment = %d, want 3", view.Current.Number)
	}
	if !view.Paid {
		t.Error("view should reflect the paid flag of the March installment")
	}
}

func TestSummarizeDeterministic(t *testing.T) {
	ref := NewDay(2026, time.March, 15)
	schedule, err := GenerateSchedule(NewDay(2026, time.January, 15), 10, Money{Cents: 300000}, Loan)
	if err != nil {
		t.Fatalf("GenerateSchedule: %v", err)
	}
	plans := []RecurringPlan{{ID: "p1", Title: "Notebook", Kind: Loan, TotalAmount: Money{Cents: 300000}, Installments: schedule}}

	a := Summarize(ref, marchLedger(), plans)
	b := Summarize(ref, marchLedger(), plans)
	if !reflect.DeepEqual(a, b) {
		t.Error("two invocations with identical inputs produced different summaries")
	}
}
