package group

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dewey/group-reminder/reminder"
	"github.com/go-kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapCache is a minimal cache.Repository for tests
type mapCache struct {
	mu sync.Mutex
	m  map[string][]byte
}

func (c *mapCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.m[key]
	return b, ok, nil
}

func (c *mapCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = value
	return nil
}

func (c *mapCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, key)
	return nil
}

// countingRepository counts GroupExists lookups that reach the database
type countingRepository struct {
	Repository
	lookups int
}

func (r *countingRepository) GroupExists(ctx context.Context, chatID int64) (int64, error) {
	r.lookups++
	return r.Repository.GroupExists(ctx, chatID)
}

func TestCachedRepository_GroupExists(t *testing.T) {
	ctx := context.Background()
	base := &countingRepository{Repository: newTestRepository(t)}
	kv := &mapCache{m: make(map[string][]byte)}
	r := NewCachedRepository(log.NewNopLogger(), base, kv, time.Hour)

	id, err := r.GroupExists(ctx, -100)
	require.NoError(t, err)
	assert.Zero(t, id)
	assert.Equal(t, []byte("0"), kv.m["group_exist:-100"])

	// The negative result is cached, a direct insert isn't seen until the entry is refreshed
	created, err := base.Repository.AddGroup(ctx, Group{ChatID: -100, Title: "standup", NewDayTime: reminder.TimeOfDay{Hour: 20}})
	require.NoError(t, err)
	id, err = r.GroupExists(ctx, -100)
	require.NoError(t, err)
	assert.Zero(t, id)
	assert.Equal(t, 1, base.lookups)

	id, err = r.RefreshGroupExists(ctx, -100)
	require.NoError(t, err)
	assert.Equal(t, created, id)
	id, err = r.GroupExists(ctx, -100)
	require.NoError(t, err)
	assert.Equal(t, created, id)
	assert.Equal(t, 2, base.lookups)
}

func TestCachedRepository_AddGroupRefreshesLookup(t *testing.T) {
	ctx := context.Background()
	kv := &mapCache{m: make(map[string][]byte)}
	r := NewCachedRepository(log.NewNopLogger(), newTestRepository(t), kv, time.Hour)

	id, err := r.GroupExists(ctx, -300)
	require.NoError(t, err)
	assert.Zero(t, id)

	created, err := r.AddGroup(ctx, Group{ChatID: -300, Title: "new", NewDayTime: reminder.TimeOfDay{Hour: 8}})
	require.NoError(t, err)
	id, err = r.GroupExists(ctx, -300)
	require.NoError(t, err)
	assert.Equal(t, created, id)
}
