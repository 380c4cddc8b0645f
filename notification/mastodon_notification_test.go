package notification

import (
	"context"
	"flag"
	"os"
	"testing"
	"time"

	"github.com/dewey/group-reminder/reminder"
	"github.com/go-kit/log"
	"github.com/mattn/go-mastodon"
	"github.com/peterbourgon/ff/v3"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePoster struct {
	toots []*mastodon.Toot
	err   error
}

func (f *fakePoster) PostStatus(ctx context.Context, toot *mastodon.Toot) (*mastodon.Status, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.toots = append(f.toots, toot)
	return &mastodon.Status{ID: "1", URL: "https://example.com/@bot/1"}, nil
}

var window = reminder.Window{
	GroupID:         7,
	ReportDeadline:  time.Date(2024, 3, 11, 20, 0, 0, 0, time.UTC),
	TaskDeadline:    time.Date(2024, 3, 11, 21, 0, 0, 0, time.UTC),
	EligibleUserIDs: []int64{1, 2},
}

func Test_mastodonRepository_Notify(t *testing.T) {
	tests := []struct {
		name    string
		poster  *fakePoster
		wantErr bool
	}{
		{"posts reminder", &fakePoster{}, false},
		{"returns client error", &fakePoster{err: errors.New("boom")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &mastodonRepository{l: log.NewNopLogger(), c: tt.poster, visibility: "unlisted"}
			err := s.Notify(context.Background(), window)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Len(t, tt.poster.toots, 1)
			assert.Equal(t, "unlisted", tt.poster.toots[0].Visibility)
			assert.Equal(t, "Reminder for group 7: 2 participant(s) still have to report until 2024-03-11 20:00. Next task is due 2024-03-11 21:00.", tt.poster.toots[0].Status)
		})
	}
}

func TestNotifiers_String(t *testing.T) {
	n := Notifiers{NewMockRepository(log.NewNopLogger(), "mock1"), NewMockRepository(log.NewNopLogger(), "mock2")}
	assert.Equal(t, "mock1,mock2", n.String())
	assert.Len(t, n.Reminders(), 2)
}

func Test_mastodonRepository_Live(t *testing.T) {
	// Only for local development to test posting
	t.SkipNow()
	fs := flag.NewFlagSet("group-reminder", flag.ExitOnError)
	var (
		mastodonClientKey    = fs.String("mastodon-client-key", "changeme", "the mastodon client key")
		mastodonClientSecret = fs.String("mastodon-client-secret", "changeme", "the mastodon client secret")
		mastodonAccessToken  = fs.String("mastodon-access-token", "changeme", "the mastodon access token")
		mastodonServer       = fs.String("mastodon-server", "changeme", "the mastodon instance you are using")
	)

	ff.Parse(fs, os.Args[1:],
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
		ff.WithEnvVarPrefix("RB"),
	)
	s := NewMastodonRepository(log.NewNopLogger(), mastodon.NewClient(&mastodon.Config{
		Server:       *mastodonServer,
		ClientID:     *mastodonClientKey,
		ClientSecret: *mastodonClientSecret,
		AccessToken:  *mastodonAccessToken,
	}), "direct")
	require.NoError(t, s.Notify(context.TODO(), window))
}
