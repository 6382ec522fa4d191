package core

import "time"

// SplitCents divides total into count parts that sum back to total exactly.
// Every part gets total/count and the remainder is spread one cent each over
// the earliest parts, so a R$ 100,00 loan in 3 becomes 33,34 + 33,33 + 33,33.
func SplitCents(total int64, count int) []int64 {
	base := total / int64(count)
	rem := total % int64(count)
	parts := make([]int64, count)
	for i := range parts {
		parts[i] = base
		if int64(i) < rem {
			parts[i]++
		}
	}
	return parts
}

// GenerateSchedule builds the full installment schedule for a plan at
// creation time.
//
// For a loan, total is the principal split equally (in cents) over count
// installments. For a subscription, total is the flat monthly charge and
// count is ignored in favor of SubscriptionMonths. Due dates start at start
// and advance one calendar month per installment with day-of-month clamping.
func GenerateSchedule(start time.Time, count int, total Money, kind PlanKind) ([]Installment, error) {
	if err := total.Validate(); err != nil {
		return nil, err
	}
	if start.IsZero() {
		return nil, ErrInvalidDate
	}

	var amounts []int64
	switch kind {
	case Subscription:
		count = SubscriptionMonths
		amounts = make([]int64, count)
		for i := range amounts {
			amounts[i] = total.Cents
		}
	case Loan:
		if count <= 0 {
			return nil, ErrInvalidInstallmentCount
		}
		amounts = SplitCents(total.Cents, count)
	default:
		return nil, ErrInvalidKind
	}

	schedule := make([]Installment, count)
	for i := 0; i < count; i++ {
		schedule[i] = Installment{
			Number:  i + 1,
			Amount:  Money{Cents: amounts[i]},
			DueDate: AddMonthsClamped(start, i),
			Paid:    false,
		}
	}
	return schedule, nil
}

// FindInstallmentForMonth returns the installment of p due in ref's month,
// if any. A plan with no installment in that month is simply absent from the
// month view; it does not appear as "not due".
func FindInstallmentForMonth(p RecurringPlan, ref time.Time) (Installment, bool) {
	for _, inst := range p.Installments {
		if SameMonth(inst.DueDate, ref) {
			return inst, true
		}
	}
	return Installment{}, false
}
