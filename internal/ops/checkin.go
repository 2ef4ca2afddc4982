package ops

import (
	"context"
	"database/sql"
	"time"

	"github.com/heartsync/heartsync/internal/db"
	"github.com/heartsync/heartsync/internal/wellbeing"
)

// ToggleCheckInOutput contains the result of the ToggleCheckIn operation.
type ToggleCheckInOutput struct {
	ContactID       string             `json:"contact_id"`
	Date            string             `json:"date"`
	CheckedIn       bool               `json:"checked_in"`
	LastInteraction *time.Time         `json:"last_interaction"`
	Contact         *wellbeing.Contact `json:"contact"`
}

// ToggleCheckIn flips today's check-in for a contact. Checking in creates
// today's marker and stamps the last interaction; toggling again the same
// day removes the marker and clears it. Both writes share one transaction.
func ToggleCheckIn(ctx context.Context, database *sql.DB, clock wellbeing.Clock, userID, contactID string) (*ToggleCheckInOutput, error) {
	userID, err := requireUser(userID)
	if err != nil {
		return nil, err
	}
	contactID, err = requireID(contactID)
	if err != nil {
		return nil, err
	}

	now := clock.Now()
	var out *ToggleCheckInOutput
	err = db.WithTx(ctx, database, func(tx *sql.Tx) error {
		c, err := db.GetContact(ctx, tx, userID, contactID)
		if err != nil {
			return err
		}

		tr := wellbeing.Toggle(*c, now, clock.Location())
		if tr.CheckIn {
			if _, err := db.InsertInteraction(ctx, tx, userID, contactID, tr.Date, now.Unix()); err != nil {
				return err
			}
		} else {
			if _, err := db.DeleteInteraction(ctx, tx, userID, contactID, tr.Date); err != nil {
				return err
			}
		}
		if err := db.SetLastInteraction(ctx, tx, userID, contactID, tr.LastInteraction, now.Unix()); err != nil {
			return err
		}

		updated := tr.Apply(*c)
		updated.UpdatedAt = now.Unix()
		out = &ToggleCheckInOutput{
			ContactID:       contactID,
			Date:            tr.Date,
			CheckedIn:       tr.CheckIn,
			LastInteraction: tr.LastInteraction,
			Contact:         &updated,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
