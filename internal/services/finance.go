// Package services orchestrates mutations across SQLite, the change event
// exchange and the snapshot hub. Every action writes to storage first;
// publishing and snapshot invalidation are best-effort afterwards.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"contas/internal/amqp"
	"contas/internal/core"
	"contas/internal/storage"
	"contas/internal/stream"
)

// Store is the persistence surface the finance service needs. The SQLite
// repository satisfies it; tests substitute a fake.
type Store interface {
	CreateTransaction(ctx context.Context, t core.Transaction) (string, error)
	UpdateTransaction(ctx context.Context, id string, label *string, amountCents *int64) error
	DeleteTransaction(ctx context.Context, id string) error

	CreatePlan(ctx context.Context, p core.RecurringPlan) (string, error)
	DeletePlan(ctx context.Context, id string) error
	GetPlan(ctx context.Context, id string) (core.RecurringPlan, error)
	MarkInstallmentPaid(ctx context.Context, planID string, number int) (bool, error)

	CreateCategory(ctx context.Context, c core.Category) (string, error)
	UpdateCategory(ctx context.Context, id string, c core.Category) error
	DeleteCategory(ctx context.Context, id string) error
}

// Publisher pushes change events to the exchange. Nil-able: a deployment
// without a broker still works, consumers just fall back to polling.
type Publisher interface {
	PublishChange(ctx context.Context, event *amqp.ChangeEvent) error
}

// Invalidator re-delivers snapshots to live subscribers after a mutation.
type Invalidator interface {
	Invalidate(ctx context.Context, c stream.Collection)
}

// FinanceService carries the household's day-to-day mutations: ledger
// entries, recurring plans and their installment payments, and custom
// categories.
type FinanceService struct {
	store     Store
	publisher Publisher
	hub       Invalidator
}

func NewFinanceService(store Store, publisher Publisher, hub Invalidator) *FinanceService {
	return &FinanceService{
		store:     store,
		publisher: publisher,
		hub:       hub,
	}
}

// AddTransactionInput is the caller-facing shape of a new ledger entry.
type AddTransactionInput struct {
	OwnerID   string
	OwnerName string
	Label     string
	Amount    core.Money
	Type      core.TransactionType
	Category  string
	Method    core.PaymentMethod
	Date      time.Time
}

// AddTransaction validates and records one ledger entry. An empty category
// on an expense falls back to the generic bucket so summaries never group
// under a blank label.
func (s *FinanceService) AddTransaction(ctx context.Context, in AddTransactionInput) (string, error) {
	t := core.Transaction{
		OwnerID:   in.OwnerID,
		OwnerName: in.OwnerName,
		Label:     strings.TrimSpace(in.Label),
		Amount:    in.Amount,
		Type:      in.Type,
		Category:  in.Category,
		Method:    in.Method,
		Date:      in.Date,
	}
	if t.Type == core.Expense && t.Category == "" {
		t.Category = core.NewRegistry(nil).Resolve("").Label
	}
	if err := t.Validate(); err != nil {
		return "", fmt.Errorf("validate transaction: %w", err)
	}

	id, err := s.store.CreateTransaction(ctx, t)
	if err != nil {
		return "", fmt.Errorf("save transaction: %w", err)
	}

	s.notify(ctx, amqp.CollectionTransactions, id, amqp.OpCreated, stream.Transactions)
	return id, nil
}

// EditTransaction patches a ledger entry's label and/or amount. Nil fields
// stay untouched. Editing a missing entry reports storage.ErrNotFound.
func (s *FinanceService) EditTransaction(ctx context.Context, id string, label *string, amount *core.Money) error {
	if label != nil {
		trimmed := strings.TrimSpace(*label)
		if trimmed == "" {
			return core.ErrEmptyLabel
		}
		label = &trimmed
	}
	var cents *int64
	if amount != nil {
		if err := amount.Validate(); err != nil {
			return err
		}
		cents = &amount.Cents
	}

	if err := s.store.UpdateTransaction(ctx, id, label, cents); err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}

	s.notify(ctx, amqp.CollectionTransactions, id, amqp.OpUpdated, stream.Transactions)
	return nil
}

func (s *FinanceService) RemoveTransaction(ctx context.Context, id string) error {
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	s.notify(ctx, amqp.CollectionTransactions, id, amqp.OpDeleted, stream.Transactions)
	return nil
}

// CreatePlanInput describes a new recurring plan. For a subscription,
// TotalAmount is the flat monthly charge and InstallmentCount is ignored.
type CreatePlanInput struct {
	OwnerID          string
	Title            string
	Category         string
	Kind             core.PlanKind
	TotalAmount      core.Money
	InstallmentCount int
	StartDate        time.Time
}

// CreatePlan generates the full installment schedule up front and persists
// plan and schedule atomically.
func (s *FinanceService) CreatePlan(ctx context.Context, in CreatePlanInput) (string, error) {
	schedule, err := core.GenerateSchedule(in.StartDate, in.InstallmentCount, in.TotalAmount, in.Kind)
	if err != nil {
		return "", fmt.Errorf("generate schedule: %w", err)
	}

	p := core.RecurringPlan{
		OwnerID:      in.OwnerID,
		Title:        strings.TrimSpace(in.Title),
		Category:     in.Category,
		Kind:         in.Kind,
		TotalAmount:  in.TotalAmount,
		Installments: schedule,
	}
	if err := p.Validate(); err != nil {
		return "", fmt.Errorf("validate plan: %w", err)
	}

	id, err := s.store.CreatePlan(ctx, p)
	if err != nil {
		return "", fmt.Errorf("save plan: %w", err)
	}

	s.notify(ctx, amqp.CollectionPlans, id, amqp.OpCreated, stream.Plans)
	return id, nil
}

// DeletePlan removes a plan and its schedule. Ledger entries created by
// already-paid installments stay in the ledger.
func (s *FinanceService) DeletePlan(ctx context.Context, id string) error {
	if err := s.store.DeletePlan(ctx, id); err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}

	s.notify(ctx, amqp.CollectionPlans, id, amqp.OpDeleted, stream.Plans)
	return nil
}

// PayInstallment marks the plan's installment paid and records the matching
// expense in the ledger, dated mid-month of the view the payer was looking
// at.
//
// Paying a plan that no longer exists, or an installment that is already
// paid, is a silent no-op: the payer acted on a stale snapshot and the
// intended end state already holds. The paid flag flips with a single
// conditional update, so two concurrent payers of different installments
// never undo each other and a double payment records exactly one ledger
// entry.
func (s *FinanceService) PayInstallment(ctx context.Context, ownerID, ownerName, planID string, number int, viewMonth time.Time) error {
	plan, err := s.store.GetPlan(ctx, planID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			slog.WarnContext(ctx, "Payment for missing plan ignored", "plan_id", planID)
			return nil
		}
		return fmt.Errorf("load plan: %w", err)
	}

	var paid core.Installment
	found := false
	for _, inst := range plan.Installments {
		if inst.Number == number {
			paid = inst
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("plan %s has no installment %d", planID, number)
	}

	flipped, err := s.store.MarkInstallmentPaid(ctx, planID, number)
	if err != nil {
		return fmt.Errorf("mark installment paid: %w", err)
	}
	if !flipped {
		slog.InfoContext(ctx, "Installment already paid, skipping",
			"plan_id", planID,
			"number", number)
		return nil
	}

	category := plan.Category
	if category == "" {
		category = core.DefaultPlanCategory
	}
	entry := core.Transaction{
		OwnerID:   ownerID,
		OwnerName: ownerName,
		Label:     fmt.Sprintf("Parcela %d - %s", number, plan.Title),
		Amount:    paid.Amount,
		Type:      core.Expense,
		Category:  category,
		Date:      core.MonthAnchor(viewMonth),
	}
	txID, err := s.store.CreateTransaction(ctx, entry)
	if err != nil {
		// The installment stays paid. Surfacing the error lets the caller
		// retry the ledger entry by hand; reverting the flag would invite
		// a double charge instead.
		slog.ErrorContext(ctx, "Installment paid but ledger entry failed",
			"plan_id", planID,
			"number", number,
			"error", err)
		return fmt.Errorf("record installment payment: %w", err)
	}

	s.notify(ctx, amqp.CollectionPlans, planID, amqp.OpUpdated, stream.Plans)
	s.notify(ctx, amqp.CollectionTransactions, txID, amqp.OpCreated, stream.Transactions)

	slog.InfoContext(ctx, "Installment paid",
		"plan_id", planID,
		"number", number,
		"transaction_id", txID)
	return nil
}

// AddCategory persists a custom category for one owner. Labels matching a
// built-in are rejected; built-ins always shadow custom entries anyway.
func (s *FinanceService) AddCategory(ctx context.Context, c core.Category) (string, error) {
	c.Label = strings.TrimSpace(c.Label)
	if c.Label == "" {
		return "", core.ErrEmptyLabel
	}
	for _, b := range core.BuiltinCategories() {
		if b.Label == c.Label {
			return "", core.ErrBuiltinCategory
		}
	}

	id, err := s.store.CreateCategory(ctx, c)
	if err != nil {
		return "", fmt.Errorf("save category: %w", err)
	}

	s.notify(ctx, amqp.CollectionCategories, id, amqp.OpCreated, stream.Categories)
	return id, nil
}

func (s *FinanceService) EditCategory(ctx context.Context, id string, c core.Category) error {
	if isBuiltinID(id) {
		return core.ErrBuiltinCategory
	}
	c.Label = strings.TrimSpace(c.Label)
	if c.Label == "" {
		return core.ErrEmptyLabel
	}

	if err := s.store.UpdateCategory(ctx, id, c); err != nil {
		return fmt.Errorf("update category: %w", err)
	}

	s.notify(ctx, amqp.CollectionCategories, id, amqp.OpUpdated, stream.Categories)
	return nil
}

// RemoveCategory deletes a custom category. Transactions keep their label
// and render with the fallback category from then on.
func (s *FinanceService) RemoveCategory(ctx context.Context, id string) error {
	if isBuiltinID(id) {
		return core.ErrBuiltinCategory
	}

	if err := s.store.DeleteCategory(ctx, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}

	s.notify(ctx, amqp.CollectionCategories, id, amqp.OpDeleted, stream.Categories)
	return nil
}

func isBuiltinID(id string) bool {
	for _, b := range core.BuiltinCategories() {
		if b.ID == id {
			return true
		}
	}
	return false
}

// notify fans a completed mutation out. Failures are logged, never returned:
// the write already happened and snapshots self-heal on the next read.
func (s *FinanceService) notify(ctx context.Context, collection, id, op string, c stream.Collection) {
	if s.publisher != nil {
		if err := s.publisher.PublishChange(ctx, amqp.NewChangeEvent(collection, id, op)); err != nil {
			slog.ErrorContext(ctx, "Failed to publish change event",
				"collection", collection,
				"id", id,
				"error", err)
		}
	}
	if s.hub != nil {
		s.hub.Invalidate(ctx, c)
	}
}
