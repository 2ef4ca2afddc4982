package ops

import (
	"context"
	"database/sql"
	"log"

	"github.com/heartsync/heartsync/internal/config"
	"github.com/heartsync/heartsync/internal/db"
	"github.com/heartsync/heartsync/internal/errors"
	"github.com/heartsync/heartsync/internal/summary"
	"github.com/heartsync/heartsync/internal/wellbeing"
)

// SummaryOptions maps config onto the prompt bounds.
func SummaryOptions(cfg *config.Config) summary.Options {
	if cfg == nil {
		return summary.DefaultOptions()
	}
	return summary.Options{
		MaxLogs:             cfg.MaxPromptLogs,
		MaxInteractionDates: cfg.MaxPromptInteractionDates,
		MaxOutputTokens:     cfg.MaxOutputTokens,
	}
}

// BuildSummaryRequest turns the user's current store state into a summary
// request. All logs are included so streak and averages cover the full
// history; the prompt builder keeps only the newest.
func BuildSummaryRequest(ctx context.Context, database *sql.DB, clock wellbeing.Clock, userID string) (*summary.Request, error) {
	userID, err := requireUser(userID)
	if err != nil {
		return nil, err
	}

	logs, err := db.ListMoodLogs(ctx, database, userID)
	if err != nil {
		return nil, err
	}
	contacts, err := db.ListContacts(ctx, database, userID)
	if err != nil {
		return nil, err
	}

	now := clock.Now()
	aggregates := make([]summary.ContactAggregate, 0, len(contacts))
	for _, c := range contacts {
		aggregates = append(aggregates, summary.Aggregate(c, now, clock.Location()))
	}
	total := len(logs)

	return &summary.Request{
		MoodLogs:      logs,
		Contacts:      aggregates,
		Today:         clock.Today(),
		TotalLogCount: &total,
	}, nil
}

// Summary runs the full pipeline for a user: read the store, build the
// prompt, call the completer. Each call recomputes from current state, so a
// manual retry is simply another call.
func Summary(ctx context.Context, database *sql.DB, clock wellbeing.Clock, completer summary.Completer, cfg *config.Config, userID string) (*summary.Response, error) {
	req, err := BuildSummaryRequest(ctx, database, clock, userID)
	if err != nil {
		return nil, err
	}

	if cfg != nil && cfg.SummaryTimeout() > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.SummaryTimeout())
		defer cancel()
	}

	resp, err := summary.Generate(ctx, completer, *req, clock.Now(), clock.Location(), SummaryOptions(cfg))
	if err != nil {
		if he, ok := err.(*errors.HeartError); ok {
			log.Printf("summary failed for user %s: %s: %s", userID, he.Code, he.Message)
		}
		return nil, err
	}
	return resp, nil
}
