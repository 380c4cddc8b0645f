package reminder

import (
	"context"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// DefaultInterval is used when a runner is created without a positive interval
const DefaultInterval = time.Hour

// Notifier delivers a reminder for a window
type Notifier interface {
	Notify(ctx context.Context, w Window) error
	String() string
}

// Runner periodically runs a scheduling pass and hands the windows to the notifiers
type Runner struct {
	l         log.Logger
	s         *Scheduler
	notifiers []Notifier
	interval  time.Duration
	now       func() time.Time
}

// NewRunner initializes a new runner that runs a pass every interval
func NewRunner(l log.Logger, s *Scheduler, notifiers []Notifier, interval time.Duration) *Runner {
	if interval <= 0 {
		level.Warn(l).Log("msg", "non-positive reminder interval, using default", "interval", interval, "default", DefaultInterval)
		interval = DefaultInterval
	}
	return &Runner{
		l:         l,
		s:         s,
		notifiers: notifiers,
		interval:  interval,
		now:       time.Now,
	}
}

// Run blocks until ctx is done. A failing pass is logged and the next one is tried on the following tick.
func (r *Runner) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := r.RunOnce(ctx); err != nil {
				level.Error(r.l).Log("msg", "scheduling pass failed", "err", err)
			}
		}
	}
}

// RunOnce runs a single scheduling pass and returns the number of windows that were sent out. Windows without
// eligible users are skipped. A failing notifier doesn't stop the others.
func (r *Runner) RunOnce(ctx context.Context) (int, error) {
	windows, err := r.s.ComputeReminderWindows(ctx, r.now())
	if err != nil {
		return 0, err
	}
	var sent int
	for _, w := range windows {
		if len(w.EligibleUserIDs) == 0 {
			level.Debug(r.l).Log("msg", "no eligible users, skipping", "group_id", w.GroupID)
			continue
		}
		for _, n := range r.notifiers {
			if err := n.Notify(ctx, w); err != nil {
				level.Error(r.l).Log("msg", "sending reminder failed", "group_id", w.GroupID, "notification_service", n.String(), "err", err)
			}
		}
		sent++
	}
	level.Info(r.l).Log("msg", "scheduling pass done", "windows", len(windows), "sent", sent)
	return sent, nil
}
