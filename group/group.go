package group

import (
	"context"

	"github.com/dewey/group-reminder/reminder"
)

// User is a chat user known to the bot
type User struct {
	ID       int64  `db:"id"`
	FullName string `db:"full_name"`
	Username string `db:"username"`
	IsAdmin  bool   `db:"is_admin"`
}

// Group is a chat group that reports to the bot
type Group struct {
	ID         int64              `db:"id"`
	ChatID     int64              `db:"group_id"`
	Title      string             `db:"group_title"`
	NewDayTime reminder.TimeOfDay `db:"time_after_start_new_day"`
	Status     string             `db:"status"`
}

// Participant links a user to a group
type Participant struct {
	UserID               int64 `db:"user_id"`
	GroupID              int64 `db:"group_id"`
	ExcludeFromReporters bool  `db:"exclude_from_reporters"`
}

// Repository is an interface for the group store
type Repository interface {
	reminder.GroupQuerier

	AddUser(ctx context.Context, u User) error
	// AddGroup stores a group and returns its internal id
	AddGroup(ctx context.Context, g Group) (int64, error)
	// AddParticipant adds a user to a group, adding an existing participant again is a no-op
	AddParticipant(ctx context.Context, p Participant) error
	// SetExcluded marks a participant as (not) expected to report. It returns false if the user isn't part of the group.
	SetExcluded(ctx context.Context, userID int64, groupID int64, excluded bool) (bool, error)
	// GroupExists returns the internal id of the group with the given chat id, or 0 if it's unknown
	GroupExists(ctx context.Context, chatID int64) (int64, error)
}
