// Package state holds per-user session state: the month being viewed and
// the live month summary derived from the latest snapshots. It is the
// server-side stand-in for the client's in-memory view model.
package state

import (
	"context"
	"fmt"
	"sync"
	"time"

	"contas/internal/core"
	"contas/internal/stream"
)

// Subscriber is the hub surface a session needs.
type Subscriber interface {
	SubscribeTransactions(ctx context.Context, ownerIDs []string, onChange func([]core.Transaction)) (stream.Unsubscribe, error)
	SubscribePlans(ctx context.Context, ownerIDs []string, onChange func([]core.RecurringPlan)) (stream.Unsubscribe, error)
	SubscribeCategories(ctx context.Context, ownerID string, onChange func([]core.Category)) (stream.Unsubscribe, error)
}

// Session tracks one user's viewed month and keeps the derived summary
// current as snapshots arrive. Observers registered with Observe get every
// recomputed summary, which is what feeds the live event stream.
type Session struct {
	mu           sync.Mutex
	month        time.Time
	transactions []core.Transaction
	plans        []core.RecurringPlan
	registry     *core.Registry
	summary      core.MonthSummary

	nextObserver int
	observers    map[int]func(core.MonthSummary)
	unsubscribes []stream.Unsubscribe
}

// NewSession subscribes to the owners' collections and computes the initial
// summary for the given month before returning.
func NewSession(ctx context.Context, hub Subscriber, userID string, ownerIDs []string, month time.Time) (*Session, error) {
	s := &Session{
		month:     core.MonthAnchor(month),
		registry:  core.NewRegistry(nil),
		observers: make(map[int]func(core.MonthSummary)),
	}

	unsubTx, err := hub.SubscribeTransactions(ctx, ownerIDs, func(list []core.Transaction) {
		s.mu.Lock()
		s.transactions = list
		s.recomputeLocked()
		s.mu.Unlock()
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe transactions: %w", err)
	}
	s.unsubscribes = append(s.unsubscribes, unsubTx)

	unsubPlans, err := hub.SubscribePlans(ctx, ownerIDs, func(list []core.RecurringPlan) {
		s.mu.Lock()
		s.plans = list
		s.recomputeLocked()
		s.mu.Unlock()
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("subscribe plans: %w", err)
	}
	s.unsubscribes = append(s.unsubscribes, unsubPlans)

	unsubCats, err := hub.SubscribeCategories(ctx, userID, func(list []core.Category) {
		s.mu.Lock()
		s.registry = core.NewRegistry(list)
		s.mu.Unlock()
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("subscribe categories: %w", err)
	}
	s.unsubscribes = append(s.unsubscribes, unsubCats)

	return s, nil
}

// recomputeLocked rebuilds the summary and fans it out. Callers hold mu.
func (s *Session) recomputeLocked() {
	s.summary = core.Summarize(s.month, s.transactions, s.plans)
	for _, observe := range s.observers {
		observe(s.summary)
	}
}

// SetMonth moves the viewed month and recomputes immediately; no storage
// round trip is needed because the session already holds full snapshots.
func (s *Session) SetMonth(month time.Time) core.MonthSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.month = core.MonthAnchor(month)
	s.recomputeLocked()
	return s.summary
}

// Month returns the currently viewed month's anchor timestamp.
func (s *Session) Month() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.month
}

// Summary returns the latest derived month view.
func (s *Session) Summary() core.MonthSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary
}

// Categories returns built-ins plus the user's custom entries.
func (s *Session) Categories() []core.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.All()
}

// ResolveCategory maps a label to its display metadata, falling back for
// labels whose category was deleted.
func (s *Session) ResolveCategory(label string) core.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.Resolve(label)
}

// Observe registers a callback for every recomputed summary and delivers
// the current one right away.
func (s *Session) Observe(fn func(core.MonthSummary)) stream.Unsubscribe {
	s.mu.Lock()
	id := s.nextObserver
	s.nextObserver++
	s.observers[id] = fn
	current := s.summary
	s.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.observers, id)
			s.mu.Unlock()
		})
	}
}

// Close drops all hub subscriptions. The session stops updating but stays
// readable.
func (s *Session) Close() {
	for _, unsub := range s.unsubscribes {
		unsub()
	}
	s.unsubscribes = nil
}
