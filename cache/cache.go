package cache

import (
	"context"
	"time"
)

// Repository is an interface for the key-value store backing the cache
type Repository interface {
	// Get returns the stored value for key. A missing or expired key is reported with ok=false and a nil error.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Set stores value under key. A ttl of zero stores the value without expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Entry is a struct for a cache entry
type Entry struct {
	Key   string `db:"key"`
	Value []byte `db:"value"`
	// ExpiresAt is the expiration as unix nanoseconds, zero never expires
	ExpiresAt int64 `db:"expires_at"`
}

// Expired reports whether the entry is past its expiration at t
func (e Entry) Expired(t time.Time) bool {
	return e.ExpiresAt != 0 && t.UnixNano() >= e.ExpiresAt
}

func expiresAt(now time.Time, ttl time.Duration) int64 {
	if ttl <= 0 {
		return 0
	}
	return now.Add(ttl).UnixNano()
}
