package cache

import (
	"context"
	"errors"
	"sync"
	"time"
)

type memoryEntry struct {
	token     string
	expiresAt time.Time
}

// MemoryCache is the in-process fallback used when no Redis address is
// configured, and the fake the tests run against. Entries are checked for
// expiry on read rather than swept by a background goroutine; the keyspace is
// bounded by the number of logged-in users so that is fine.
//
// A restart wipes the map, which logs everyone out. That is acceptable for
// single-instance deployments; anything bigger should configure Redis.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (c *MemoryCache) Store(ctx context.Context, username, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("cache: ttl must be positive")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[username] = memoryEntry{
		token:     token,
		expiresAt: c.now().Add(ttl),
	}
	return nil
}

func (c *MemoryCache) Lookup(ctx context.Context, username string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[username]
	if !ok {
		return "", ErrNotFound
	}
	if c.now().After(e.expiresAt) {
		delete(c.entries, username)
		return "", ErrNotFound
	}
	return e.token, nil
}

func (c *MemoryCache) Remove(ctx context.Context, username string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, username)
	return nil
}

func (c *MemoryCache) Ping(ctx context.Context) error { return nil }

func (c *MemoryCache) Close() error { return nil }
