// Package cache provides the persistent key-value cache backing session
// restore. Values are stored in a JSON envelope with an optional absolute
// expiry. Backend failures never escape this boundary: callers see absence,
// not an error.
package cache

import (
	"encoding/json"
	"time"
)

// Well-known keys used by the session layer.
const (
	KeyToken = "token"
	KeyUser  = "user"
)

// Cache stores serialized values with optional expiry.
type Cache interface {
	// Set serializes value under key. A ttl of zero means no expiry.
	Set(key string, value any, ttl time.Duration)
	// Get deserializes the value under key into out. It returns false for
	// missing, corrupt, or expired entries; expired entries are evicted.
	Get(key string, out any) bool
	// Remove deletes key if present.
	Remove(key string)
	// Clear deletes every key.
	Clear()
}

// envelope wraps a stored value with its absolute expiry (unix millis,
// 0 = never).
type envelope struct {
	Value  json.RawMessage `json:"value"`
	Expire int64           `json:"expire"`
}

func encodeEnvelope(value any, ttl time.Duration) ([]byte, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	env := envelope{Value: raw}
	if ttl > 0 {
		env.Expire = time.Now().Add(ttl).UnixMilli()
	}
	return json.Marshal(env)
}

// decodeEnvelope unpacks data into out. expired reports an entry past its
// expiry so the caller can evict it.
func decodeEnvelope(data []byte, out any) (ok, expired bool) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return false, false
	}
	if env.Expire > 0 && time.Now().UnixMilli() > env.Expire {
		return false, true
	}
	if err := json.Unmarshal(env.Value, out); err != nil {
		return false, false
	}
	return true, false
}
