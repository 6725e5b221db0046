package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileCacheRoundTrip(t *testing.T) {
	c, err := NewFileCache(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("new file cache: %v", err)
	}

	type profile struct {
		Name  string `json:"name"`
		Level int    `json:"level"`
	}
	c.Set("user", profile{Name: "libai", Level: 3}, 0)

	var got profile
	if !c.Get("user", &got) {
		t.Fatalf("expected hit for stored key")
	}
	if got.Name != "libai" || got.Level != 3 {
		t.Fatalf("unexpected value: %+v", got)
	}

	c.Remove("user")
	if c.Get("user", &got) {
		t.Fatalf("expected miss after remove")
	}
}

func TestFileCacheExpiryEvicts(t *testing.T) {
	dir := t.TempDir()
	c, err := NewFileCache(dir, nil)
	if err != nil {
		t.Fatalf("new file cache: %v", err)
	}

	c.Set("token", "abc", time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	var got string
	if c.Get("token", &got) {
		t.Fatalf("expected miss for expired key")
	}
	if _, err := os.Stat(filepath.Join(dir, "token.json")); !os.IsNotExist(err) {
		t.Fatalf("expected expired entry to be evicted, stat err: %v", err)
	}
}

func TestFileCacheCorruptEntryReadsAsAbsent(t *testing.T) {
	dir := t.TempDir()
	c, err := NewFileCache(dir, nil)
	if err != nil {
		t.Fatalf("new file cache: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "user.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt entry: %v", err)
	}

	var got map[string]any
	if c.Get("user", &got) {
		t.Fatalf("expected miss for corrupt entry")
	}
}

func TestFileCacheClear(t *testing.T) {
	c, err := NewFileCache(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("new file cache: %v", err)
	}
	c.Set("token", "abc", 0)
	c.Set("user", "def", 0)
	c.Clear()

	var got string
	if c.Get("token", &got) || c.Get("user", &got) {
		t.Fatalf("expected empty cache after clear")
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache(nil)
	c.Set("token", "abc", time.Millisecond)
	c.Set("keep", "def", 0)
	time.Sleep(5 * time.Millisecond)

	var got string
	if c.Get("token", &got) {
		t.Fatalf("expected miss for expired key")
	}
	if !c.Get("keep", &got) || got != "def" {
		t.Fatalf("expected hit for unexpired key, got %q", got)
	}
}

func TestMemoryCacheTypeMismatchReadsAsAbsent(t *testing.T) {
	c := NewMemoryCache(nil)
	c.Set("user", "just a string", 0)

	var got struct{ ID int }
	if c.Get("user", &got) {
		t.Fatalf("expected miss when stored value does not decode into out")
	}
}
