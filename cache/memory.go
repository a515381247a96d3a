package cache

import (
	"context"
	"sync"
	"time"
)

// entry holds a cached value with its creation timestamp.
type entry struct {
	value     string
	createdAt time.Time
}

// Memory is an in-memory Store with a TTL and a bounded number of entries.
type Memory struct {
	mu         sync.RWMutex
	store      map[string]*entry
	maxEntries int
	ttl        time.Duration
	now        func() time.Time

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewMemory creates a Memory store. A background goroutine evicts expired
// entries until Close is called.
func NewMemory(maxEntries int, ttl time.Duration) *Memory {
	if maxEntries < 1 {
		maxEntries = 1
	}
	c := &Memory{
		store:      make(map[string]*entry),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
		done:       make(chan struct{}),
	}

	interval := 5 * time.Minute
	if ttl > 0 && ttl < interval {
		interval = ttl
	}
	c.wg.Add(1)
	go c.cleanupLoop(interval)
	return c
}

// Get returns a value younger than the TTL.
func (c *Memory) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()

	if !ok || c.expired(e) {
		return "", false, nil
	}
	return e.value, true, nil
}

// Set stores a value. If the cache is at capacity, an arbitrary entry is
// evicted to make room.
func (c *Memory) Set(_ context.Context, key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.store[key]; !exists && len(c.store) >= c.maxEntries {
		for k := range c.store {
			delete(c.store, k)
			break
		}
	}

	c.store[key] = &entry{value: value, createdAt: c.now()}
	return nil
}

// Len is the number of stored entries, expired or not.
func (c *Memory) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Close stops the cleanup goroutine.
func (c *Memory) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.wg.Wait()
	})
	return nil
}

func (c *Memory) expired(e *entry) bool {
	return c.ttl > 0 && c.now().Sub(e.createdAt) > c.ttl
}

func (c *Memory) evictExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.store {
		if c.expired(e) {
			delete(c.store, k)
		}
	}
}

func (c *Memory) cleanupLoop(interval time.Duration) {
	defer c.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.evictExpired()
		}
	}
}
