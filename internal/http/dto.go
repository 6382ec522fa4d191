package http

import (
	"time"

	"contas/internal/core"
)

// Wire shapes. Amounts travel as integer cents plus a pre-formatted BRL
// display string; dates as YYYY-MM-DD.

type transactionJSON struct {
	ID        string `json:"id"`
	OwnerID   string `json:"owner_id"`
	OwnerName string `json:"owner_name,omitempty"`
	Label     string `json:"label"`
	Cents     int64  `json:"amount_cents"`
	Display   string `json:"amount"`
	Type      string `json:"type"`
	Category  string `json:"category,omitempty"`
	Method    string `json:"method,omitempty"`
	Date      string `json:"date"`
	CreatedAt string `json:"created_at,omitempty"`
}

func toTransactionJSON(t core.Transaction) transactionJSON {
	out := transactionJSON{
		ID:        t.ID,
		OwnerID:   t.OwnerID,
		OwnerName: t.OwnerName,
		Label:     t.Label,
		Cents:     t.Amount.Cents,
		Display:   core.FormatBRL(t.Amount),
		Type:      string(t.Type),
		Category:  t.Category,
		Method:    string(t.Method),
		Date:      t.Date.Format("2006-01-02"),
	}
	if !t.CreatedAt.IsZero() {
		out.CreatedAt = t.CreatedAt.Format(time.RFC3339)
	}
	return out
}

func toTransactionsJSON(list []core.Transaction) []transactionJSON {
	out := make([]transactionJSON, len(list))
	for i, t := range list {
		out[i] = toTransactionJSON(t)
	}
	return out
}

type installmentJSON struct {
	Number  int    `json:"number"`
	Cents   int64  `json:"amount_cents"`
	Display string `json:"amount"`
	DueDate string `json:"due_date"`
	Paid    bool   `json:"paid"`
}

type planJSON struct {
	ID           string            `json:"id"`
	OwnerID      string            `json:"owner_id"`
	Title        string            `json:"title"`
	Category     string            `json:"category,omitempty"`
	Kind         string            `json:"kind"`
	TotalCents   int64             `json:"total_cents"`
	TotalDisplay string            `json:"total"`
	Installments []installmentJSON `json:"installments"`
}

func toPlanJSON(p core.RecurringPlan) planJSON {
	out := planJSON{
		ID:           p.ID,
		OwnerID:      p.OwnerID,
		Title:        p.Title,
		Category:     p.Category,
		Kind:         string(p.Kind),
		TotalCents:   p.TotalAmount.Cents,
		TotalDisplay: core.FormatBRL(p.TotalAmount),
		Installments: make([]installmentJSON, len(p.Installments)),
	}
	for i, inst := range p.Installments {
		out.Installments[i] = installmentJSON{
			Number:  inst.Number,
			Cents:   inst.Amount.Cents,
			Display: core.FormatBRL(inst.Amount),
			DueDate: inst.DueDate.Format("2006-01-02"),
			Paid:    inst.Paid,
		}
	}
	return out
}

type categoryJSON struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Color   string `json:"color,omitempty"`
	IconKey string `json:"icon_key,omitempty"`
	Builtin bool   `json:"builtin"`
}

func toCategoryJSON(c core.Category) categoryJSON {
	return categoryJSON{
		ID:      c.ID,
		Label:   c.Label,
		Color:   c.Color,
		IconKey: c.IconKey,
		Builtin: c.Builtin,
	}
}

type notificationJSON struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Type      string `json:"type"`
	Author    string `json:"author,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

func toNotificationJSON(n core.Notification) notificationJSON {
	out := notificationJSON{
		ID:      n.ID,
		Title:   n.Title,
		Message: n.Message,
		Type:    string(n.Type),
		Author:  n.Author,
	}
	if !n.CreatedAt.IsZero() {
		out.CreatedAt = n.CreatedAt.Format(time.RFC3339)
	}
	return out
}

type amountByLabelJSON struct {
	Label   string `json:"label"`
	Cents   int64  `json:"amount_cents"`
	Display string `json:"amount"`
}

type planMonthJSON struct {
	Plan    planJSON        `json:"plan"`
	Current installmentJSON `json:"current"`
	Paid    bool            `json:"paid"`
}

type summaryJSON struct {
	Month          string              `json:"month"`
	MonthLabel     string              `json:"month_label"`
	IncomeCents    int64               `json:"income_cents"`
	Income         string              `json:"income"`
	ExpenseCents   int64               `json:"expense_cents"`
	Expense        string              `json:"expense"`
	BalanceCents   int64               `json:"balance_cents"`
	Balance        string              `json:"balance"`
	Availability   float64             `json:"availability"`
	ByCategory     []amountByLabelJSON `json:"by_category"`
	ByMethod       []amountByLabelJSON `json:"by_method"`
	Transactions   []transactionJSON   `json:"transactions"`
	PlansThisMonth []planMonthJSON     `json:"plans"`
}

func toSummaryJSON(s core.MonthSummary) summaryJSON {
	out := summaryJSON{
		Month:        s.Reference.Format("2006-01"),
		MonthLabel:   core.MonthLabel(s.Reference),
		IncomeCents:  s.Income.Cents,
		Income:       core.FormatBRL(s.Income),
		ExpenseCents: s.Expense.Cents,
		Expense:      core.FormatBRL(s.Expense),
		BalanceCents: s.Balance.Cents,
		Balance:      core.FormatBRL(s.Balance),
		Availability: s.Availability,
		Transactions: toTransactionsJSON(s.Transactions),
	}
	for _, c := range s.ByCategory {
		out.ByCategory = append(out.ByCategory, amountByLabelJSON{
			Label:   c.Label,
			Cents:   c.Amount.Cents,
			Display: core.FormatBRL(c.Amount),
		})
	}
	for _, m := range s.ByMethod {
		out.ByMethod = append(out.ByMethod, amountByLabelJSON{
			Label:   string(m.Method),
			Cents:   m.Amount.Cents,
			Display: core.FormatBRL(m.Amount),
		})
	}
	for _, p := range s.Plans {
		out.PlansThisMonth = append(out.PlansThisMonth, planMonthJSON{
			Plan: toPlanJSON(p.Plan),
			Current: installmentJSON{
				Number:  p.Current.Number,
				Cents:   p.Current.Amount.Cents,
				Display: core.FormatBRL(p.Current.Amount),
				DueDate: p.Current.DueDate.Format("2006-01-02"),
				Paid:    p.Current.Paid,
			},
			Paid: p.Paid,
		})
	}
	return out
}

type userJSON struct {
	ID        string `json:"id"`
	Email     string `json:"email,omitempty"`
	Name      string `json:"name,omitempty"`
	PartnerID string `json:"partner_id,omitempty"`
	Admin     bool   `json:"admin"`
}

func toUserJSON(u core.User) userJSON {
	return userJSON{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		PartnerID: u.PartnerID,
		Admin:     u.Admin,
	}
}
