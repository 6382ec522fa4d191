package core

import (
	"sort"
	"time"
)

type (
	// CategoryAmount is an expense total grouped by category label.
	CategoryAmount struct {
		Label  string
		Amount Money
	}

	// MethodAmount is an expense total grouped by payment method.
	// Transactions with no stored method land in the Other bucket.
	MethodAmount struct {
		Method PaymentMethod
		Amount Money
	}

	// PlanMonthView projects a plan into the reference month: the plan plus
	// the single installment due that month.
	PlanMonthView struct {
		Plan    RecurringPlan
		Current Installment
		Paid    bool
	}

	// MonthSummary is every derived figure the presentation layer needs for
	// one reference month. It is recomputed from scratch on each snapshot;
	// nothing in it is persisted.
	MonthSummary struct {
		Reference    time.Time
		Transactions []Transaction
		Plans        []PlanMonthView
		Income       Money
		Expense      Money
		Balance      Money
		ByCategory   []CategoryAmount
		ByMethod     []MethodAmount
		// Availability is balance/income, the fraction of the month's income
		// still unspent. Zero when there is no income: never NaN.
		Availability float64
	}
)

// FilterByMonth returns the transactions dated inside ref's calendar month,
// order preserved.
func FilterByMonth(list []Transaction, ref time.Time) []Transaction {
	out := make([]Transaction, 0, len(list))
	for _, t := range list {
		if SameMonth(t.Date, ref) {
			out = append(out, t)
		}
	}
	return out
}

// Summarize derives the full month view from the two source collections.
// It is pure and deterministic: identical inputs produce identical output,
// so re-running on every store snapshot is safe and order-independent.
func Summarize(ref time.Time, transactions []Transaction, plans []RecurringPlan) MonthSummary {
	s := MonthSummary{
		Reference:    ref,
		Transactions: FilterByMonth(transactions, ref),
	}

	byCategory := make(map[string]int64)
	byMethod := make(map[PaymentMethod]int64)
	for _, t := range s.Transactions {
		switch t.Type {
		case Income:
			s.Income = s.Income.Add(t.Amount)
		case Expense:
			s.Expense = s.Expense.Add(t.Amount)
			byCategory[t.Category] += t.Amount.Cents
			method := t.Method
			if method == "" {
				method = Other
			}
			byMethod[method] += t.Amount.Cents
		}
	}
	s.Balance = s.Income.Sub(s.Expense)
	if s.Income.Cents > 0 {
		s.Availability = float64(s.Balance.Cents) / float64(s.Income.Cents)
	}

	for label, cents := range byCategory {
		s.ByCategory = append(s.ByCategory, CategoryAmount{Label: label, Amount: Money{Cents: cents}})
	}
	sort.Slice(s.ByCategory, func(i, j int) bool {
		if s.ByCategory[i].Amount.Cents != s.ByCategory[j].Amount.Cents {
			return s.ByCategory[i].Amount.Cents > s.ByCategory[j].Amount.Cents
		}
		return s.ByCategory[i].Label < s.ByCategory[j].Label
	})
	for method, cents := range byMethod {
		s.ByMethod = append(s.ByMethod, MethodAmount{Method: method, Amount: Money{Cents: cents}})
	}
	sort.Slice(s.ByMethod, func(i, j int) bool {
		if s.ByMethod[i].Amount.Cents != s.ByMethod[j].Amount.Cents {
			return s.ByMethod[i].Amount.Cents > s.ByMethod[j].Amount.Cents
		}
		return s.ByMethod[i].Method < s.ByMethod[j].Method
	})

	for _, p := range plans {
		if inst, ok := FindInstallmentForMonth(p, ref); ok {
			s.Plans = append(s.Plans, PlanMonthView{Plan: p, Current: inst, Paid: inst.Paid})
		}
	}

	return s
}
