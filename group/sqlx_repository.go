package group

import (
	"context"
	"database/sql"

	"github.com/dewey/group-reminder/reminder"
	"github.com/go-kit/log"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

type repository struct {
	l  log.Logger
	db *sqlx.DB
}

// NewRepository initializes a new group repository. It works with the postgres and sqlite3 drivers.
func NewRepository(l log.Logger, db *sqlx.DB) *repository {
	return &repository{
		l:  l,
		db: db,
	}
}

func (s *repository) AddUser(ctx context.Context, u User) error {
	var username *string
	if u.Username != "" {
		username = &u.Username
	}
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`INSERT INTO users (id, full_name, username, is_admin) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET full_name = excluded.full_name, username = excluded.username`),
		u.ID, u.FullName, username, u.IsAdmin)
	return errors.Wrap(err, "inserting user")
}

func (s *repository) AddGroup(ctx context.Context, g Group) (int64, error) {
	status := g.Status
	if status == "" {
		status = "member"
	}
	var id int64
	err := s.db.QueryRowxContext(ctx, s.db.Rebind(`INSERT INTO "groups" (group_id, group_title, time_after_start_new_day, status) VALUES (?, ?, ?, ?)
		ON CONFLICT (group_id) DO UPDATE SET group_title = excluded.group_title, time_after_start_new_day = excluded.time_after_start_new_day, update_at = CURRENT_TIMESTAMP
		RETURNING id`),
		g.ChatID, g.Title, g.NewDayTime, status).Scan(&id)
	if err != nil {
		return 0, errors.Wrap(err, "inserting group")
	}
	return id, nil
}

func (s *repository) AddParticipant(ctx context.Context, p Participant) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`INSERT INTO group_participants (user_id, group_id, exclude_from_reporters) VALUES (?, ?, ?)
		ON CONFLICT (user_id, group_id) DO NOTHING`),
		p.UserID, p.GroupID, p.ExcludeFromReporters)
	return errors.Wrap(err, "inserting participant")
}

func (s *repository) SetExcluded(ctx context.Context, userID int64, groupID int64, excluded bool) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE group_participants SET exclude_from_reporters = ?, update_at = CURRENT_TIMESTAMP
		WHERE user_id = ? AND group_id = ?`),
		excluded, userID, groupID)
	if err != nil {
		return false, errors.Wrap(err, "updating participant")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "updating participant")
	}
	return n > 0, nil
}

func (s *repository) GroupExists(ctx context.Context, chatID int64) (int64, error) {
	var id int64
	err := s.db.GetContext(ctx, &id, s.db.Rebind(`SELECT id FROM "groups" WHERE group_id = ?`), chatID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, errors.Wrap(err, "selecting group")
	}
	return id, nil
}

// activeReporterRow is one eligible participant together with its group
type activeReporterRow struct {
	GroupID    int64              `db:"id"`
	NewDayTime reminder.TimeOfDay `db:"time_after_start_new_day"`
	UserID     int64              `db:"user_id"`
}

func (s *repository) GroupsWithActiveReporters(ctx context.Context) ([]reminder.ActiveGroup, error) {
	var rows []activeReporterRow
	err := s.db.SelectContext(ctx, &rows, `SELECT g.id, g.time_after_start_new_day, p.user_id
		FROM "groups" g
		JOIN group_participants p ON p.group_id = g.id
		WHERE p.exclude_from_reporters = FALSE
		ORDER BY g.id, p.user_id`)
	if err != nil {
		return nil, errors.Wrap(err, "selecting active reporters")
	}

	var groups []reminder.ActiveGroup
	for _, r := range rows {
		if len(groups) == 0 || groups[len(groups)-1].GroupID != r.GroupID {
			groups = append(groups, reminder.ActiveGroup{
				GroupID:    r.GroupID,
				NewDayTime: r.NewDayTime,
			})
		}
		last := &groups[len(groups)-1]
		last.ParticipantIDs = append(last.ParticipantIDs, r.UserID)
	}
	return groups, nil
}
