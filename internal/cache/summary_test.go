package cache

import (
	"testing"
	"time"

	"contas/internal/core"
)

func TestSummaryCacheRoundTrip(t *testing.T) {
	c := NewSummaryCache(10, time.Minute)
	month := core.NewDay(2026, time.March, 15)

	if _, ok := c.Get("u1", month); ok {
		t.Fatal("empty cache should miss")
	}

	c.Set("u1", month, core.MonthSummary{Income: core.Money{Cents: 100}})
	got, ok := c.Get("u1", month)
	if !ok || got.Income.Cents != 100 {
		t.Errorf("Get = %+v, %v", got, ok)
	}

	// months are distinct keys
	if _, ok := c.Get("u1", core.NewDay(2026, time.April, 15)); ok {
		t.Error("different month must miss")
	}
}

func TestSummaryCacheInvalidateOwner(t *testing.T) {
	c := NewSummaryCache(10, time.Minute)

	c.Set("u1", core.NewDay(2026, time.March, 15), core.MonthSummary{})
	c.Set("u1", core.NewDay(2026, time.April, 15), core.MonthSummary{})
	c.Set("u2", core.NewDay(2026, time.March, 15), core.MonthSummary{})

	c.InvalidateOwner("u1")

	if _, ok := c.Get("u1", core.NewDay(2026, time.March, 15)); ok {
		t.Error("u1 march should be gone")
	}
	if _, ok := c.Get("u1", core.NewDay(2026, time.April, 15)); ok {
		t.Error("u1 april should be gone")
	}
	if _, ok := c.Get("u2", core.NewDay(2026, time.March, 15)); !ok {
		t.Error("u2 must survive another owner's invalidation")
	}
}

func TestSummaryCacheTTL(t *testing.T) {
	c := NewSummaryCache(10, time.Millisecond)
	month := core.NewDay(2026, time.March, 15)

	c.Set("u1", month, core.MonthSummary{})
	time.Sleep(5 * time.Millisecond)

	if _, ok := c.Get("u1", month); ok {
		t.Error("expired entry must miss")
	}
	if n := c.CleanExpired(); n != 0 {
		// Get already evicted the expired entry.
		t.Errorf("CleanExpired = %d, want 0", n)
	}
}

func TestLRUEviction(t *testing.T) {
	lru := NewLRUCache[int](2, time.Minute)
	lru.Set("a", 1)
	lru.Set("b", 2)
	lru.Set("c", 3)

	if _, ok := lru.Get("a"); ok {
		t.Error("oldest entry should be evicted at capacity")
	}
	if lru.Size() != 2 {
		t.Errorf("size = %d, want 2", lru.Size())
	}
}
