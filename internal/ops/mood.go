package ops

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/heartsync/heartsync/internal/db"
	"github.com/heartsync/heartsync/internal/errors"
	"github.com/heartsync/heartsync/internal/wellbeing"
)

// LogMoodInput contains parameters for the LogMood operation.
type LogMoodInput struct {
	UserID      string
	Date        string // default: today in the clock's zone
	Mood        int    // required, 1-5
	Emotion     string
	Activity    string
	Description string
}

// LogMood validates and stores the day's mood, replacing any earlier entry
// for the same day.
func LogMood(ctx context.Context, database *sql.DB, clock wellbeing.Clock, input LogMoodInput) (*wellbeing.MoodLog, error) {
	userID, err := requireUser(input.UserID)
	if err != nil {
		return nil, err
	}

	l := wellbeing.MoodLog{
		Date:        input.Date,
		Mood:        input.Mood,
		Emotion:     input.Emotion,
		Activity:    input.Activity,
		Description: input.Description,
	}
	wellbeing.NormalizeMoodLog(&l)
	if l.Date == "" {
		l.Date = clock.Today()
	}
	if err := wellbeing.ValidateMoodLog(l); err != nil {
		return nil, err
	}
	l.UpdatedAt = clock.Now().Unix()

	if err := db.UpsertMoodLog(ctx, database, userID, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

// GetMood returns the user's log for day.
func GetMood(ctx context.Context, database *sql.DB, userID, day string) (*wellbeing.MoodLog, error) {
	userID, err := requireUser(userID)
	if err != nil {
		return nil, err
	}
	day, err = requireDayKey(day)
	if err != nil {
		return nil, err
	}
	return db.GetMoodLog(ctx, database, userID, day)
}

// ListMoodsInput contains parameters for the ListMoods operation.
type ListMoodsInput struct {
	UserID string
	From   string // optional inclusive lower day key
	To     string // optional inclusive upper day key
}

// ListMoodsOutput contains the result of the ListMoods operation.
type ListMoodsOutput struct {
	Items []wellbeing.MoodLog `json:"items"`
	Total int                 `json:"total"`
}

// ListMoods returns the user's logs oldest first, optionally bounded by day.
func ListMoods(ctx context.Context, database *sql.DB, input ListMoodsInput) (*ListMoodsOutput, error) {
	userID, err := requireUser(input.UserID)
	if err != nil {
		return nil, err
	}
	for _, bound := range []string{input.From, input.To} {
		if bound != "" && !wellbeing.ValidDayKey(bound) {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("from/to must be YYYY-MM-DD, got %q", bound))
		}
	}
	if input.From != "" && input.To != "" && input.From > input.To {
		return nil, errors.NewInvalidRequest("from must not be after to")
	}

	logs, err := db.ListMoodLogs(ctx, database, userID)
	if err != nil {
		return nil, err
	}

	items := logs[:0]
	for _, l := range logs {
		if input.From != "" && l.Date < input.From {
			continue
		}
		if input.To != "" && l.Date > input.To {
			continue
		}
		items = append(items, l)
	}
	return &ListMoodsOutput{Items: items, Total: len(items)}, nil
}

// DeleteMood removes the user's log for day.
func DeleteMood(ctx context.Context, database *sql.DB, userID, day string) (*DeleteOutput, error) {
	userID, err := requireUser(userID)
	if err != nil {
		return nil, err
	}
	day, err = requireDayKey(day)
	if err != nil {
		return nil, err
	}
	if err := db.DeleteMoodLog(ctx, database, userID, day); err != nil {
		return nil, err
	}
	return &DeleteOutput{Key: day, Deleted: true}, nil
}

// TodayOutput reports whether the user has logged a mood today.
type TodayOutput struct {
	Date   string             `json:"date"`
	Logged bool               `json:"logged"`
	Log    *wellbeing.MoodLog `json:"log,omitempty"`
}

// MoodLoggedToday looks up today's log in the clock's zone.
func MoodLoggedToday(ctx context.Context, database *sql.DB, clock wellbeing.Clock, userID string) (*TodayOutput, error) {
	userID, err := requireUser(userID)
	if err != nil {
		return nil, err
	}
	today := clock.Today()
	l, err := db.GetMoodLog(ctx, database, userID, today)
	if errors.Is(err, errors.ErrNotFound) {
		return &TodayOutput{Date: today}, nil
	}
	if err != nil {
		return nil, err
	}
	return &TodayOutput{Date: today, Logged: true, Log: l}, nil
}
