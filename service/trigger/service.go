package trigger

import (
	"context"

	"github.com/dewey/group-reminder/cache"
	"github.com/go-kit/log"
)

// PassRunner runs a single scheduling pass
type PassRunner interface {
	RunOnce(ctx context.Context) (int, error)
}

// GroupLookup finds groups by their chat id
type GroupLookup interface {
	GroupExists(ctx context.Context, chatID int64) (int64, error)
	RefreshGroupExists(ctx context.Context, chatID int64) (int64, error)
}

// Service is an interface for the trigger service
type Service interface {
	ValidToken(token string) (bool, error)
}

type service struct {
	l         log.Logger
	pr        PassRunner
	gl        GroupLookup
	locales   *cache.Locales
	hookToken string
}

// NewService initializes a new trigger service
func NewService(l log.Logger, pr PassRunner, gl GroupLookup, locales *cache.Locales, hookToken string) *service {
	return &service{
		l:         l,
		pr:        pr,
		gl:        gl,
		locales:   locales,
		hookToken: hookToken,
	}
}

// ValidToken checks if the given token is a valid token. Only we can trigger a scheduling pass from the outside.
func (s *service) ValidToken(token string) (bool, error) {
	if token != "" && token == s.hookToken {
		return true, nil
	}
	return false, nil
}

// groupExists uses the cached lookup, refresh bypasses the cache and overwrites it
func (s *service) groupExists(ctx context.Context, chatID int64, refresh bool) (int64, error) {
	if refresh {
		return s.gl.RefreshGroupExists(ctx, chatID)
	}
	return s.gl.GroupExists(ctx, chatID)
}
