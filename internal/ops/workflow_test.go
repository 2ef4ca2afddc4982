package ops

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/heartsync/heartsync/internal/config"
	"github.com/heartsync/heartsync/internal/db"
	"github.com/heartsync/heartsync/internal/errors"
	"github.com/heartsync/heartsync/internal/summary"
	"github.com/heartsync/heartsync/internal/wellbeing"
	"github.com/stretchr/testify/require"
)

// testClock is fixed at 2024-01-05 18:00 UTC.
var testClock = wellbeing.FixedClock(time.Date(2024, 1, 5, 18, 0, 0, 0, time.UTC), time.UTC)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.Init(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func intPtr(n int) *int { return &n }

func stringPtr(s string) *string { return &s }

// TestFullWorkflow exercises a user's day end to end:
// log moods → add contacts → check in → stats → summary → undo check-in → delete
func TestFullWorkflow(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)
	cfg := config.DefaultConfig()
	user := "user-1"

	// 1. Five consecutive days of mood 4, the last one defaulted to today
	for _, day := range []string{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04"} {
		_, err := LogMood(ctx, database, testClock, LogMoodInput{UserID: user, Date: day, Mood: 4, Emotion: "Calm"})
		require.NoError(t, err)
	}
	today, err := LogMood(ctx, database, testClock, LogMoodInput{UserID: user, Mood: 4, Emotion: "Happy"})
	require.NoError(t, err)
	require.Equal(t, "2024-01-05", today.Date)

	logged, err := MoodLoggedToday(ctx, database, testClock, user)
	require.NoError(t, err)
	require.True(t, logged.Logged)

	// 2. Two contacts
	ana, err := AddContact(ctx, database, testClock, AddContactInput{UserID: user, Name: "Ana", Relation: "Sister", ConnectionLevel: intPtr(8)})
	require.NoError(t, err)
	ben, err := AddContact(ctx, database, testClock, AddContactInput{UserID: user, Name: "Ben", Relation: "Friend"})
	require.NoError(t, err)
	require.Equal(t, wellbeing.DefaultConnectionLevel, ben.ConnectionLevel)

	// 3. Check in with Ana
	toggled, err := ToggleCheckIn(ctx, database, testClock, user, ana.ID)
	require.NoError(t, err)
	require.True(t, toggled.CheckedIn)
	require.Equal(t, "2024-01-05", toggled.Date)

	// 4. Stats
	stats, err := Stats(ctx, database, testClock, user)
	require.NoError(t, err)
	require.Equal(t, 5, stats.Streak)
	require.NotNil(t, stats.AverageMood)
	require.InDelta(t, 4.0, *stats.AverageMood, 1e-9)
	require.Equal(t, "Calm", stats.MostCommonEmotion)
	require.Equal(t, 1, stats.ContactsThisWeek)
	require.Len(t, stats.NeedsAttention, 1)
	require.Equal(t, "Ben", stats.NeedsAttention[0].Name)
	require.NotNil(t, stats.MostInteracted)
	require.Equal(t, ana.ID, stats.MostInteracted.ID)

	// 5. Summary through a stub completer
	var prompt string
	completer := summary.CompleterFunc(func(_ context.Context, p string, maxTokens int) (string, error) {
		prompt = p
		require.Equal(t, cfg.MaxOutputTokens, maxTokens)
		return "Your streak is 5 consecutive days.", nil
	})
	resp, err := Summary(ctx, database, testClock, completer, cfg, user)
	require.NoError(t, err)
	require.Equal(t, "Your streak is 5 consecutive days.", resp.Summary)
	require.Contains(t, prompt, "TOTAL LOG COUNT: 5")
	require.Contains(t, prompt, "CONNECTIONS THIS WEEK: 1")
	require.Contains(t, prompt, "REACH OUT TO: Ben")

	// 6. Undo the check-in
	toggled, err = ToggleCheckIn(ctx, database, testClock, user, ana.ID)
	require.NoError(t, err)
	require.False(t, toggled.CheckedIn)
	require.Nil(t, toggled.LastInteraction)

	stats, err = Stats(ctx, database, testClock, user)
	require.NoError(t, err)
	require.Equal(t, 0, stats.ContactsThisWeek)
	require.Nil(t, stats.MostInteracted)

	// 7. Delete a contact and a log
	_, err = DeleteContact(ctx, database, user, ben.ID)
	require.NoError(t, err)
	_, err = GetContact(ctx, database, user, ben.ID)
	require.True(t, errors.Is(err, errors.ErrNotFound))

	_, err = DeleteMood(ctx, database, user, "2024-01-03")
	require.NoError(t, err)
	stats, err = Stats(ctx, database, testClock, user)
	require.NoError(t, err)
	require.Equal(t, 2, stats.Streak)
	require.Equal(t, 4, stats.TotalLogs)
}

// TestSummary_RetryRecomputes checks that a failed summary followed by a retry
// sees store changes made in between.
func TestSummary_RetryRecomputes(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)
	user := "user-1"

	_, err := LogMood(ctx, database, testClock, LogMoodInput{UserID: user, Mood: 3})
	require.NoError(t, err)

	calls := 0
	var prompts []string
	completer := summary.CompleterFunc(func(_ context.Context, p string, _ int) (string, error) {
		calls++
		prompts = append(prompts, p)
		if calls == 1 {
			return "", &summary.StatusError{StatusCode: 503}
		}
		return "ok", nil
	})

	_, err = Summary(ctx, database, testClock, completer, config.DefaultConfig(), user)
	require.True(t, errors.Is(err, errors.ErrSummaryUnavailable))

	_, err = LogMood(ctx, database, testClock, LogMoodInput{UserID: user, Date: "2024-01-04", Mood: 5})
	require.NoError(t, err)

	resp, err := Summary(ctx, database, testClock, completer, config.DefaultConfig(), user)
	require.NoError(t, err)
	require.Equal(t, "ok", resp.Summary)
	require.Len(t, prompts, 2)
	require.Contains(t, prompts[0], "TOTAL LOG COUNT: 1")
	require.Contains(t, prompts[1], "TOTAL LOG COUNT: 2")
}

func TestUsersArePartitioned(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)

	_, err := LogMood(ctx, database, testClock, LogMoodInput{UserID: "a", Mood: 5})
	require.NoError(t, err)
	c, err := AddContact(ctx, database, testClock, AddContactInput{UserID: "a", Name: "Ana"})
	require.NoError(t, err)

	list, err := ListMoods(ctx, database, ListMoodsInput{UserID: "b"})
	require.NoError(t, err)
	require.Empty(t, list.Items)

	_, err = ToggleCheckIn(ctx, database, testClock, "b", c.ID)
	require.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestRequireUser(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)

	_, err := LogMood(ctx, database, testClock, LogMoodInput{UserID: "  ", Mood: 3})
	require.True(t, errors.Is(err, errors.ErrUnauthenticated))

	_, err = Stats(ctx, database, testClock, "")
	require.True(t, errors.Is(err, errors.ErrUnauthenticated))

	_, err = BuildSummaryRequest(ctx, database, testClock, "")
	require.True(t, errors.Is(err, errors.ErrUnauthenticated))
}

func TestGenerateULID(t *testing.T) {
	id, err := generateULID(time.Now())
	require.NoError(t, err)
	require.Len(t, id, 26)
	require.Equal(t, strings.ToUpper(id), id)
}
