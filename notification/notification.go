package notification

import (
	"context"
	"strings"

	"github.com/dewey/group-reminder/reminder"
)

// Repository is an interface for a notifier repository
type Repository interface {
	Notify(ctx context.Context, w reminder.Window) error
	String() string
}

// Notifiers is a list of notifiers
type Notifiers []Repository

// String returns a comma separated list of all notifiers
func (n Notifiers) String() string {
	var names []string
	for _, r := range n {
		names = append(names, r.String())
	}
	return strings.Join(names, ",")
}

// Reminders returns the notifiers as reminder.Notifier
func (n Notifiers) Reminders() []reminder.Notifier {
	out := make([]reminder.Notifier, 0, len(n))
	for _, r := range n {
		out = append(out, r)
	}
	return out
}
