package db

import (
	"context"
	"database/sql"
	"strings"

	"github.com/heartsync/heartsync/internal/errors"
	"github.com/heartsync/heartsync/internal/wellbeing"
)

// wrapErr converts a driver error into a HeartError. A locked or unopenable
// database means the store is unreachable; anything else is internal.
func wrapErr(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*errors.HeartError); ok {
		return err
	}
	if isUnavailableError(err) {
		return errors.NewNetworkFailure(err)
	}
	return errors.NewInternal(err)
}

// isUnavailableError reports SQLite errors that mean the file can't be used right now.
func isUnavailableError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "unable to open") ||
		strings.Contains(msg, "sql: database is closed")
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	// SQLite reports primary-key clashes as UNIQUE violations too
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// isForeignKeyError checks if the error is a SQLite FOREIGN KEY violation.
func isForeignKeyError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// UpsertMoodLog stores the day's log for userID, overwriting any existing
// entry for the same day.
func UpsertMoodLog(ctx context.Context, q Querier, userID string, l *wellbeing.MoodLog) error {
	query := `
		INSERT INTO mood_logs (user_id, day, mood, emotion, activity, description, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, day) DO UPDATE SET
			mood = excluded.mood,
			emotion = excluded.emotion,
			activity = excluded.activity,
			description = excluded.description,
			updated_at = excluded.updated_at
	`
	_, err := q.ExecContext(ctx, query,
		userID, l.Date, l.Mood,
		toNullString(l.Emotion), toNullString(l.Activity), toNullString(l.Description),
		l.UpdatedAt,
	)
	return wrapErr(err)
}

// GetMoodLog retrieves userID's log for day.
func GetMoodLog(ctx context.Context, q Querier, userID, day string) (*wellbeing.MoodLog, error) {
	query := `
		SELECT day, mood, emotion, activity, description, updated_at
		FROM mood_logs
		WHERE user_id = ? AND day = ?
	`
	l, err := scanMoodLog(q.QueryRowContext(ctx, query, userID, day))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("mood log", day)
	}
	if err != nil {
		return nil, wrapErr(err)
	}
	return l, nil
}

// ListMoodLogs returns every log for userID, oldest day first.
func ListMoodLogs(ctx context.Context, q Querier, userID string) ([]wellbeing.MoodLog, error) {
	query := `
		SELECT day, mood, emotion, activity, description, updated_at
		FROM mood_logs
		WHERE user_id = ?
		ORDER BY day ASC
	`
	return queryMoodLogs(ctx, q, query, userID)
}

// DeleteMoodLog removes userID's log for day.
func DeleteMoodLog(ctx context.Context, q Querier, userID, day string) error {
	result, err := q.ExecContext(ctx, "DELETE FROM mood_logs WHERE user_id = ? AND day = ?", userID, day)
	if err != nil {
		return wrapErr(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return wrapErr(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound("mood log", day)
	}
	return nil
}

func queryMoodLogs(ctx context.Context, q Querier, query string, args ...any) ([]wellbeing.MoodLog, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr(err)
	}
	defer rows.Close()

	logs := []wellbeing.MoodLog{}
	for rows.Next() {
		l, err := scanMoodLog(rows)
		if err != nil {
			return nil, wrapErr(err)
		}
		logs = append(logs, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(err)
	}
	return logs, nil
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMoodLog(row rowScanner) (*wellbeing.MoodLog, error) {
	var (
		l           wellbeing.MoodLog
		emotion     sql.NullString
		activity    sql.NullString
		description sql.NullString
	)
	if err := row.Scan(&l.Date, &l.Mood, &emotion, &activity, &description, &l.UpdatedAt); err != nil {
		return nil, err
	}
	l.Emotion = emotion.String
	l.Activity = activity.String
	l.Description = description.String
	return &l, nil
}

// toNullString maps "" to NULL.
func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
