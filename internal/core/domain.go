package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	Pix     PaymentMethod = "pix"
	Credit  PaymentMethod = "credit"
	Debit   PaymentMethod = "debit"
	Cash    PaymentMethod = "cash"
	Voucher PaymentMethod = "voucher"
	Other   PaymentMethod = "other"
)

const (
	Loan         PlanKind = "loan"
	Subscription PlanKind = "subscription"
)

// SubscriptionMonths is how many monthly installments an open-ended
// subscription is materialized as (five years).
const SubscriptionMonths = 60

type (
	TransactionType string

	PaymentMethod string

	PlanKind string

	Money struct {
		Cents int64
	}

	// Transaction is one atomic ledger entry. Date is the calendar date of
	// the economic event; CreatedAt is when the record was inserted.
	Transaction struct {
		ID        string
		OwnerID   string
		OwnerName string
		Label     string
		Amount    Money
		Type      TransactionType
		Category  string
		Method    PaymentMethod // only meaningful for expenses; may be empty
		Date      time.Time
		CreatedAt time.Time
	}

	// Installment is one scheduled sub-payment of a recurring plan.
	Installment struct {
		Number  int
		Amount  Money
		DueDate time.Time
		Paid    bool
	}

	// RecurringPlan is a parceled debt (loan) or a monthly subscription.
	// The installment schedule is generated in full at creation time and
	// never changes shape afterwards; only the paid flags move.
	RecurringPlan struct {
		ID           string
		OwnerID      string
		Title        string
		Category     string
		Kind         PlanKind
		TotalAmount  Money
		Installments []Installment
		CreatedAt    time.Time
	}

	// Category is display/grouping metadata. Label doubles as the natural
	// key referenced by transactions and plans.
	Category struct {
		ID      string
		OwnerID string // empty for built-ins
		Label   string
		Color   string
		IconKey string
		Builtin bool
	}

	// User mirrors the identity record the auth proxy manages. PartnerID
	// links two users into one shared household view.
	User struct {
		ID        string
		Email     string
		Name      string
		PartnerID string
		Admin     bool
	}

	NotificationType string

	// Notification is a broadcast message shown to every user.
	Notification struct {
		ID        string
		Title     string
		Message   string
		Type      NotificationType
		Author    string
		CreatedAt time.Time
	}
)

const (
	NotifyInfo    NotificationType = "info"
	NotifyWarning NotificationType = "warning"
	NotifyUpdate  NotificationType = "update"
)

var (
	ErrInvalidAmount           = errors.New("invalid amount")
	ErrInvalidDate             = errors.New("invalid date")
	ErrInvalidType             = errors.New("invalid transaction type")
	ErrInvalidMethod           = errors.New("invalid payment method")
	ErrInvalidKind             = errors.New("invalid plan kind")
	ErrEmptyLabel              = errors.New("empty label")
	ErrEmptyTitle              = errors.New("empty title")
	ErrInvalidInstallmentCount = errors.New("installment count must be positive")
	ErrBuiltinCategory         = errors.New("built-in categories are immutable")
	ErrLabelTooLong            = errors.New("label too long (max 200 characters)")
	ErrMethodOnIncome          = errors.New("payment method only applies to expenses")
	ErrEmptyMessage            = errors.New("empty message")
	ErrInvalidNotification     = errors.New("invalid notification type")
)

func (t TransactionType) Valid() bool {
	switch t {
	case Income, Expense:
		return true
	}
	return false
}

func (m PaymentMethod) Valid() bool {
	switch m {
	case Pix, Credit, Debit, Cash, Voucher, Other:
		return true
	}
	return false
}

func (k PlanKind) Valid() bool {
	switch k {
	case Loan, Subscription:
		return true
	}
	return false
}

func (n NotificationType) Valid() bool {
	switch n {
	case NotifyInfo, NotifyWarning, NotifyUpdate:
		return true
	}
	return false
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Validate checks a transaction before it is written. Category labels are
// not checked against the registry: orphaned labels are tolerated and
// rendered with the fallback category.
func (t Transaction) Validate() error {
	if len(strings.TrimSpace(t.Label)) == 0 {
		return ErrEmptyLabel
	}
	if len(t.Label) > 200 {
		return ErrLabelTooLong
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if t.Method != "" {
		if t.Type != Expense {
			return ErrMethodOnIncome
		}
		if !t.Method.Valid() {
			return ErrInvalidMethod
		}
	}
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Validate checks plan shape including the generated schedule invariants:
// a non-empty schedule with installment numbers contiguous from 1.
func (p RecurringPlan) Validate() error {
	if len(strings.TrimSpace(p.Title)) == 0 {
		return ErrEmptyTitle
	}
	if len(p.Title) > 200 {
		return ErrLabelTooLong
	}
	if err := p.TotalAmount.Validate(); err != nil {
		return err
	}
	if !p.Kind.Valid() {
		return ErrInvalidKind
	}
	if len(p.Installments) == 0 {
		return ErrInvalidInstallmentCount
	}
	for i, inst := range p.Installments {
		if inst.Number != i+1 {
			return errors.New("installment numbers must be contiguous from 1")
		}
		if err := inst.Amount.Validate(); err != nil {
			return err
		}
		if inst.DueDate.IsZero() {
			return ErrInvalidDate
		}
	}
	return nil
}

func (n Notification) Validate() error {
	if len(strings.TrimSpace(n.Title)) == 0 {
		return ErrEmptyTitle
	}
	if len(strings.TrimSpace(n.Message)) == 0 {
		return ErrEmptyMessage
	}
	if !n.Type.Valid() {
		return ErrInvalidNotification
	}
	return nil
}
