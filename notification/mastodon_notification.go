package notification

import (
	"context"
	"fmt"

	"github.com/dewey/group-reminder/reminder"
	"github.com/mattn/go-mastodon"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
)

// statusPoster is the part of the Mastodon client we need, so it can be replaced in tests
type statusPoster interface {
	PostStatus(ctx context.Context, toot *mastodon.Toot) (*mastodon.Status, error)
}

type mastodonRepository struct {
	l          log.Logger
	c          statusPoster
	visibility string
}

// NewMastodonRepository initializes a new Mastodon notifier repository. Reminders are posted with the given visibility,
// an empty visibility uses the account default.
func NewMastodonRepository(l log.Logger, c *mastodon.Client, visibility string) *mastodonRepository {
	return &mastodonRepository{
		l:          l,
		c:          c,
		visibility: visibility,
	}
}

func (s *mastodonRepository) String() string {
	return "mastodon"
}

func (s *mastodonRepository) Notify(ctx context.Context, w reminder.Window) error {
	status, err := s.c.PostStatus(ctx, &mastodon.Toot{
		Status:     reminderText(w),
		Visibility: s.visibility,
	})
	if err != nil {
		return errors.Wrap(err, "posting status update")
	}

	level.Info(s.l).Log("msg", "toot successfully sent", "id", status.ID, "url", status.URL, "group_id", w.GroupID)
	return nil
}

func reminderText(w reminder.Window) string {
	return fmt.Sprintf("Reminder for group %d: %d participant(s) still have to report until %s. Next task is due %s.",
		w.GroupID, len(w.EligibleUserIDs), w.ReportDeadline.Format("2006-01-02 15:04"), w.TaskDeadline.Format("2006-01-02 15:04"))
}
