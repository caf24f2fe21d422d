// Package cachemem caches chain verification results so repeated verify
// requests do not re-walk the whole ledger.
package cachemem

import (
	"context"
	"sync"
	"time"

	"learntrust/internal/domain"
)

type Cache struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[string]entry
}

type entry struct {
	value     domain.ChainVerification
	expiresAt time.Time
	hasExpiry bool
}

func New() *Cache {
	return &Cache{now: time.Now, entries: make(map[string]entry)}
}

func NewWithClock(now func() time.Time) *Cache {
	return &Cache{now: now, entries: make(map[string]entry)}
}

func (c *Cache) Get(_ context.Context, key string) (*domain.ChainVerification, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if e.hasExpiry && c.now().After(e.expiresAt) {
		delete(c.entries, key)
		return nil, false, nil
	}
	value := e.value
	return &value, true, nil
}

func (c *Cache) Put(_ context.Context, key string, value domain.ChainVerification, ttl time.Duration) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e := entry{value: value}
	if ttl > 0 {
		e.hasExpiry = true
		e.expiresAt = c.now().Add(ttl)
	}
	c.entries[key] = e
	return nil
}
