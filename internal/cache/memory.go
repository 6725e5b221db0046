package cache

import (
	"log/slog"
	"sync"
	"time"
)

// MemoryCache keeps enveloped values in-process. Useful for tests and for
// callers that do not want session persistence across restarts.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	log     *slog.Logger
}

// NewMemoryCache initializes an empty in-memory cache.
func NewMemoryCache(logger *slog.Logger) *MemoryCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryCache{entries: make(map[string][]byte), log: logger}
}

func (c *MemoryCache) Set(key string, value any, ttl time.Duration) {
	data, err := encodeEnvelope(value, ttl)
	if err != nil {
		c.log.Error("cache set: encode", "key", key, "err", err)
		return
	}
	c.mu.Lock()
	c.entries[key] = data
	c.mu.Unlock()
}

func (c *MemoryCache) Get(key string, out any) bool {
	c.mu.Lock()
	data, found := c.entries[key]
	c.mu.Unlock()
	if !found {
		return false
	}
	ok, expired := decodeEnvelope(data, out)
	if expired {
		c.Remove(key)
	}
	return ok
}

func (c *MemoryCache) Remove(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

func (c *MemoryCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string][]byte)
	c.mu.Unlock()
}
