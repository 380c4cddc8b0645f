package reminder

import (
	"context"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
)

// taskDeadlineOffset is the time between the report deadline and the deadline for the next task
const taskDeadlineOffset = time.Hour

// ActiveGroup is a group with its participants that still have to report
type ActiveGroup struct {
	GroupID        int64
	NewDayTime     TimeOfDay
	ParticipantIDs []int64
}

// GroupQuerier is an interface for looking up groups that have participants who report
type GroupQuerier interface {
	// GroupsWithActiveReporters returns all groups with at least one participant that isn't excluded from reporting
	GroupsWithActiveReporters(ctx context.Context) ([]ActiveGroup, error)
}

// Window is the reporting window of a group for the current scheduling pass
type Window struct {
	GroupID         int64
	ReportDeadline  time.Time
	TaskDeadline    time.Time
	EligibleUserIDs []int64
}

// Deadlines returns the report and task deadline for a group that starts a new day at newDay. The report deadline is
// always on the day after now, even if newDay is still ahead today.
func Deadlines(now time.Time, newDay TimeOfDay) (report time.Time, task time.Time) {
	tomorrow := now.AddDate(0, 0, 1)
	report = time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), newDay.Hour, newDay.Minute, 0, 0, now.Location())
	return report, report.Add(taskDeadlineOffset)
}

// Scheduler computes the reminder windows of all groups
type Scheduler struct {
	l  log.Logger
	gq GroupQuerier
}

// NewScheduler initializes a new scheduler
func NewScheduler(l log.Logger, gq GroupQuerier) *Scheduler {
	return &Scheduler{
		l:  l,
		gq: gq,
	}
}

// ComputeReminderWindows returns one window per group with active reporters. Groups without eligible users are
// kept with an empty set, it's up to the caller to skip them.
func (s *Scheduler) ComputeReminderWindows(ctx context.Context, now time.Time) ([]Window, error) {
	groups, err := s.gq.GroupsWithActiveReporters(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying groups with active reporters")
	}
	windows := make([]Window, 0, len(groups))
	for _, g := range groups {
		report, task := Deadlines(now, g.NewDayTime)
		users := g.ParticipantIDs
		if users == nil {
			users = []int64{}
		}
		windows = append(windows, Window{
			GroupID:         g.GroupID,
			ReportDeadline:  report,
			TaskDeadline:    task,
			EligibleUserIDs: users,
		})
	}
	level.Debug(s.l).Log("msg", "computed reminder windows", "groups", len(windows))
	return windows, nil
}
