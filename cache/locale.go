package cache

import (
	"context"
	"strconv"
)

// Locales stores the preferred locale of a user. Entries never expire.
type Locales struct {
	r Repository
}

// NewLocales initializes a new locale store on top of the cache repository
func NewLocales(r Repository) *Locales {
	return &Locales{r: r}
}

func localeKey(userID int64) string {
	return "user:" + strconv.FormatInt(userID, 10) + ":locale"
}

// Get returns the locale of a user, ok is false if none is set
func (s *Locales) Get(ctx context.Context, userID int64) (string, bool, error) {
	b, ok, err := s.r.Get(ctx, localeKey(userID))
	if err != nil || !ok || len(b) == 0 {
		return "", false, err
	}
	return string(b), true, nil
}

// Set stores the locale of a user
func (s *Locales) Set(ctx context.Context, userID int64, locale string) error {
	return s.r.Set(ctx, localeKey(userID), []byte(locale), 0)
}
