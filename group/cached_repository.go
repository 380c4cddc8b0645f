package group

import (
	"context"
	"time"

	"github.com/dewey/group-reminder/cache"
	"github.com/go-kit/log"
)

// CachedRepository caches group lookups, everything else goes straight to the wrapped repository
type CachedRepository struct {
	Repository
	groupExists *cache.Cached[int64]
}

// NewCachedRepository wraps r with a cache stored in cr
func NewCachedRepository(l log.Logger, r Repository, cr cache.Repository, ttl time.Duration, opts ...cache.Option) *CachedRepository {
	return &CachedRepository{
		Repository: r,
		groupExists: cache.Wrap(l, cr, "group_exist", ttl, func(ctx context.Context, args cache.Args) (int64, error) {
			chatID, _ := args[0].Value.(int64)
			return r.GroupExists(ctx, chatID)
		}, opts...),
	}
}

// GroupExists returns the internal id of the group with the given chat id, or 0 if it's unknown
func (s *CachedRepository) GroupExists(ctx context.Context, chatID int64) (int64, error) {
	return s.groupExists.Call(ctx, cache.Args{cache.Positional(chatID)})
}

// RefreshGroupExists looks up the group in the database and overwrites the cached result
func (s *CachedRepository) RefreshGroupExists(ctx context.Context, chatID int64) (int64, error) {
	return s.groupExists.Call(ctx, cache.Args{cache.Positional(chatID), cache.Named(cache.UpdateCacheArg, true)})
}

// AddGroup stores the group and refreshes the cached lookup so a previously unknown group is seen right away
func (s *CachedRepository) AddGroup(ctx context.Context, g Group) (int64, error) {
	id, err := s.Repository.AddGroup(ctx, g)
	if err != nil {
		return 0, err
	}
	if _, err := s.RefreshGroupExists(ctx, g.ChatID); err != nil {
		return id, err
	}
	return id, nil
}
