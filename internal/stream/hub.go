// Package stream fans collection snapshots out to in-process subscribers,
// standing in for the hosted document store's realtime listeners: every
// delivery is the full current snapshot of a collection, never a delta, so
// consumers can recompute from scratch on each push.
package stream

import (
	"context"
	"log/slog"
	"sync"

	"contas/internal/core"
)

// Collection identifies a subscribable data set.
type Collection string

const (
	Transactions Collection = "transactions"
	Plans        Collection = "plans"
	Categories   Collection = "categories"
)

// Source is the snapshot reader behind the hub; *storage.SQLiteRepository
// satisfies it.
type Source interface {
	ListTransactions(ctx context.Context, ownerIDs []string) ([]core.Transaction, error)
	ListPlans(ctx context.Context, ownerIDs []string) ([]core.RecurringPlan, error)
	ListCategories(ctx context.Context, ownerID string) ([]core.Category, error)
}

// Unsubscribe removes a subscription. Safe to call more than once.
type Unsubscribe func()

type subscription struct {
	collection Collection
	// deliver re-reads this subscriber's snapshot and invokes its callback.
	deliver func(ctx context.Context) error
}

// Hub tracks subscriptions and re-delivers snapshots when a collection is
// invalidated by a mutation.
type Hub struct {
	mu     sync.Mutex
	source Source
	nextID int
	subs   map[int]*subscription
}

func NewHub(source Source) *Hub {
	return &Hub{
		source: source,
		subs:   make(map[int]*subscription),
	}
}

// SubscribeTransactions registers onChange for the owners' ledger and
// delivers the initial snapshot before returning.
func (h *Hub) SubscribeTransactions(ctx context.Context, ownerIDs []string, onChange func([]core.Transaction)) (Unsubscribe, error) {
	deliver := func(ctx context.Context) error {
		list, err := h.source.ListTransactions(ctx, ownerIDs)
		if err != nil {
			return err
		}
		onChange(list)
		return nil
	}
	return h.add(ctx, Transactions, deliver)
}

// SubscribePlans registers onChange for the owners' recurring plans and
// delivers the initial snapshot before returning.
func (h *Hub) SubscribePlans(ctx context.Context, ownerIDs []string, onChange func([]core.RecurringPlan)) (Unsubscribe, error) {
	deliver := func(ctx context.Context) error {
		list, err := h.source.ListPlans(ctx, ownerIDs)
		if err != nil {
			return err
		}
		onChange(list)
		return nil
	}
	return h.add(ctx, Plans, deliver)
}

// SubscribeCategories registers onChange for one owner's custom categories
// and delivers the initial snapshot before returning. Categories are not
// shared with the partner so the owner's list stays uncluttered.
func (h *Hub) SubscribeCategories(ctx context.Context, ownerID string, onChange func([]core.Category)) (Unsubscribe, error) {
	deliver := func(ctx context.Context) error {
		list, err := h.source.ListCategories(ctx, ownerID)
		if err != nil {
			return err
		}
		onChange(list)
		return nil
	}
	return h.add(ctx, Categories, deliver)
}

func (h *Hub) add(ctx context.Context, c Collection, deliver func(context.Context) error) (Unsubscribe, error) {
	if err := deliver(ctx); err != nil {
		return nil, err
	}

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = &subscription{collection: c, deliver: deliver}
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}, nil
}

// Invalidate re-delivers fresh snapshots to every subscriber of the given
// collection. A failed delivery is logged and skipped; the subscriber keeps
// its stale snapshot until the next invalidation.
func (h *Hub) Invalidate(ctx context.Context, c Collection) {
	h.mu.Lock()
	pending := make([]*subscription, 0, len(h.subs))
	for _, sub := range h.subs {
		if sub.collection == c {
			pending = append(pending, sub)
		}
	}
	h.mu.Unlock()

	for _, sub := range pending {
		if err := sub.deliver(ctx); err != nil {
			slog.ErrorContext(ctx, "Snapshot delivery failed",
				"collection", c,
				"error", err)
		}
	}
}
