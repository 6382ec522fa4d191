package cache

import (
	"time"

	"contas/internal/core"
)

// SummaryCache caches derived month summaries keyed by owner and month.
// All of an owner's months are dropped together on any mutation, because a
// single ledger edit can move a transaction across months.
type SummaryCache struct {
	lru *LRUCache[core.MonthSummary]
}

func NewSummaryCache(maxSize int, ttl time.Duration) *SummaryCache {
	return &SummaryCache{lru: NewLRUCache[core.MonthSummary](maxSize, ttl)}
}

func key(ownerID string, month time.Time) string {
	return ownerID + "|" + month.Format("2006-01")
}

func (c *SummaryCache) Get(ownerID string, month time.Time) (core.MonthSummary, bool) {
	return c.lru.Get(key(ownerID, month))
}

func (c *SummaryCache) Set(ownerID string, month time.Time, s core.MonthSummary) {
	c.lru.Set(key(ownerID, month), s)
}

// InvalidateOwner drops every cached month for the owner.
func (c *SummaryCache) InvalidateOwner(ownerID string) {
	c.lru.DeletePrefix(ownerID + "|")
}

// CleanExpired lets the cache manager sweep expired entries.
func (c *SummaryCache) CleanExpired() int {
	return c.lru.CleanExpired()
}

func (c *SummaryCache) Size() int {
	return c.lru.Size()
}
