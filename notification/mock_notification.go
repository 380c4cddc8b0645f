package notification

import (
	"context"

	"github.com/dewey/group-reminder/reminder"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

type mockRepository struct {
	l    log.Logger
	name string
}

// NewMockRepository initializes a new mock notifier repository to test reminders locally
func NewMockRepository(l log.Logger, serviceName string) *mockRepository {
	return &mockRepository{
		l:    l,
		name: serviceName,
	}
}

func (s *mockRepository) String() string {
	return s.name
}

func (s *mockRepository) Notify(ctx context.Context, w reminder.Window) error {
	level.Info(s.l).Log("msg", "mocked reminder successfully sent", "notification_service", s.String(), "group_id", w.GroupID,
		"report_deadline", w.ReportDeadline.Format("2006-01-02 15:04"), "pending_users", len(w.EligibleUserIDs))
	return nil
}
