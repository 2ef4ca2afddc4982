package ops

import (
	"context"
	"database/sql"

	"github.com/heartsync/heartsync/internal/db"
	"github.com/heartsync/heartsync/internal/wellbeing"
)

// Stats loads the user's logs and contacts and aggregates them as of now.
func Stats(ctx context.Context, database *sql.DB, clock wellbeing.Clock, userID string) (*wellbeing.Stats, error) {
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

	stats := wellbeing.ComputeStats(logs, contacts, clock.Now(), clock.Location())
	return &stats, nil
}
