package cache

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

type sqlRepository struct {
	l   log.Logger
	db  *sqlx.DB
	now func() time.Time
}

// NewSQLRepository initializes a new cache repository on top of the cache_entries table. It is meant for single
// node setups where no Redis is available, expired rows are treated as missing and cleaned up lazily.
func NewSQLRepository(l log.Logger, db *sqlx.DB) *sqlRepository {
	return &sqlRepository{
		l:   l,
		db:  db,
		now: time.Now,
	}
}

// Get returns the value for a given key if it exists and didn't expire yet
func (s *sqlRepository) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var entry Entry
	err := s.db.GetContext(ctx, &entry, s.db.Rebind("SELECT key, value, expires_at FROM cache_entries WHERE key=?"), key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, errors.Wrap(err, "selecting cache entry")
	}
	if entry.Expired(s.now()) {
		if err := s.Delete(ctx, key); err != nil {
			level.Debug(s.l).Log("msg", "could not remove expired cache entry", "key", key, "err", err)
		}
		return nil, false, nil
	}
	return entry.Value, true, nil
}

// Set sets a cache entry, overwriting an existing entry with the same key
func (s *sqlRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`INSERT INTO cache_entries (key, value, expires_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`),
		key, string(value), expiresAt(s.now(), ttl))
	return errors.Wrap(err, "upserting cache entry")
}

// Delete removes a cache entry, deleting a missing key is not an error
func (s *sqlRepository) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM cache_entries WHERE key=?"), key)
	return errors.Wrap(err, "deleting cache entry")
}

// Purge removes all expired entries and returns how many were removed
func (s *sqlRepository) Purge(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM cache_entries WHERE expires_at <> 0 AND expires_at <= ?"), s.now().UnixNano())
	if err != nil {
		return 0, errors.Wrap(err, "purging expired cache entries")
	}
	return res.RowsAffected()
}
