// Package cache holds partially reconciled product aggregates until they are
// complete enough to synchronize.
package cache

import (
	"sync"
	"time"

	"catalog-sync-service/internal/models"
)

// entry accumulates both sides of one aggregate, keyed by abstract SKU. An
// entry with concretes but no abstract (or the reverse) is valid: the two
// halves arrive as independent events.
type entry struct {
	mu        sync.Mutex
	abstract  *models.AbstractProduct
	concretes []*models.ConcreteProduct
	expiresAt time.Time
}

// expired reports whether the entry's deadline has passed. A zero deadline
// marks an entry created but not yet written; it is not expired.
func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// AggregateCache is a time-bounded per-key store. Expiry is sliding: every
// save pushes the entry's deadline out again, so a slowly arriving sibling
// event keeps the entry alive. All read-modify-write cycles are serialized
// per key.
type AggregateCache struct {
	mu      sync.RWMutex
	entries map[string]*entry
	done    chan struct{}
	once    sync.Once
}

// NewAggregateCache creates a cache and starts its expiry janitor.
func NewAggregateCache(sweepInterval time.Duration) *AggregateCache {
	c := &AggregateCache{
		entries: make(map[string]*entry),
		done:    make(chan struct{}),
	}
	if sweepInterval > 0 {
		go c.janitor(sweepInterval)
	}
	return c
}

// Close stops the janitor.
func (c *AggregateCache) Close() {
	c.once.Do(func() { close(c.done) })
}

func (c *AggregateCache) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case now := <-ticker.C:
			c.mu.Lock()
			for key, e := range c.entries {
				if e.expired(now) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

// getOrCreate returns the live entry for key, creating it on first write.
// Expired entries are replaced rather than revived.
func (c *AggregateCache) getOrCreate(key string) *entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || e.expired(time.Now()) {
		e = &entry{}
		c.entries[key] = e
	}
	return e
}

func (c *AggregateCache) get(key string) (*entry, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || e.expired(time.Now()) {
		return nil, false
	}
	return e, true
}

// SaveAbstract stores the abstract side of an aggregate, overwriting any
// previous value, and resets the entry's TTL.
func (c *AggregateCache) SaveAbstract(key string, product *models.AbstractProduct, ttl time.Duration) {
	e := c.getOrCreate(key)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.abstract = product
	e.expiresAt = time.Now().Add(ttl)
}

// SaveConcrete appends one concrete product to the aggregate and resets the
// entry's TTL. Redelivery of a concrete with an already-known SKU replaces
// the stored record in place, so at-least-once delivery stays idempotent.
func (c *AggregateCache) SaveConcrete(key string, product *models.ConcreteProduct, ttl time.Duration) {
	e := c.getOrCreate(key)
	e.mu.Lock()
	defer e.mu.Unlock()
	replaced := false
	for i, existing := range e.concretes {
		if existing.SKU == product.SKU {
			e.concretes[i] = product
			replaced = true
			break
		}
	}
	if !replaced {
		e.concretes = append(e.concretes, product)
	}
	e.expiresAt = time.Now().Add(ttl)
}

// GetAbstract returns the cached abstract product for key, if any.
func (c *AggregateCache) GetAbstract(key string) *models.AbstractProduct {
	e, ok := c.get(key)
	if !ok {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.abstract
}

// GetConcretes returns a copy of the accumulated concrete list for key, in
// arrival order.
func (c *AggregateCache) GetConcretes(key string) []*models.ConcreteProduct {
	e, ok := c.get(key)
	if !ok {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*models.ConcreteProduct, len(e.concretes))
	copy(out, e.concretes)
	return out
}

// Clear removes both sides of the aggregate atomically. It must be called
// only after a confirmed successful synchronization.
func (c *AggregateCache) Clear(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Len returns the number of live entries.
func (c *AggregateCache) Len() int {
	now := time.Now()
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, e := range c.entries {
		if !e.expired(now) {
			n++
		}
	}
	return n
}
