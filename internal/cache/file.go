package cache

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileCache persists one JSON file per key under a base directory. It is the
// durable default so a restarted client can recover its session.
type FileCache struct {
	basePath string
	log      *slog.Logger
}

// NewFileCache creates the base directory if missing.
func NewFileCache(basePath string, logger *slog.Logger) (*FileCache, error) {
	if strings.TrimSpace(basePath) == "" {
		basePath = ".shici-cache"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FileCache{basePath: basePath, log: logger}, nil
}

// Set writes the enveloped value to disk. Failures are logged and swallowed.
func (c *FileCache) Set(key string, value any, ttl time.Duration) {
	data, err := encodeEnvelope(value, ttl)
	if err != nil {
		c.log.Error("cache set: encode", "key", key, "err", err)
		return
	}
	if err := os.WriteFile(c.path(key), data, 0o644); err != nil {
		c.log.Error("cache set: write", "key", key, "err", err)
	}
}

// Get reads and decodes the value under key. Missing, corrupt, and expired
// entries all read as absent; expired ones are evicted.
func (c *FileCache) Get(key string, out any) bool {
	data, err := os.ReadFile(c.path(key))
	if err != nil {
		if !os.IsNotExist(err) {
			c.log.Error("cache get: read", "key", key, "err", err)
		}
		return false
	}
	ok, expired := decodeEnvelope(data, out)
	if expired {
		c.Remove(key)
	}
	return ok
}

// Remove deletes the key's file if present.
func (c *FileCache) Remove(key string) {
	if err := os.Remove(c.path(key)); err != nil && !os.IsNotExist(err) {
		c.log.Error("cache remove", "key", key, "err", err)
	}
}

// Clear deletes every cached entry.
func (c *FileCache) Clear() {
	entries, err := os.ReadDir(c.basePath)
	if err != nil {
		c.log.Error("cache clear", "err", err)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		if err := os.Remove(filepath.Join(c.basePath, entry.Name())); err != nil {
			c.log.Error("cache clear: remove", "file", entry.Name(), "err", err)
		}
	}
}

func (c *FileCache) path(key string) string {
	return filepath.Join(c.basePath, safeKey(key)+".json")
}

func safeKey(key string) string {
	key = filepath.Base(strings.TrimSpace(key))
	key = strings.ReplaceAll(key, string(os.PathSeparator), "_")
	if key == "" || key == "." {
		return "entry"
	}
	return key
}
