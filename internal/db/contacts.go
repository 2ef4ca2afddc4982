package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/heartsync/heartsync/internal/errors"
	"github.com/heartsync/heartsync/internal/wellbeing"
)

// ContactPatch lists the contact fields a merge may change. Nil fields are
// left as stored.
type ContactPatch struct {
	Name            *string
	Relation        *string
	ConnectionLevel *int
	Photo           *string
}

const contactColumns = `id, name, relation, connection_level, last_interaction, photo, created_at, updated_at`

// InsertContact stores a new contact for userID. Markers on c are ignored.
func InsertContact(ctx context.Context, q Querier, userID string, c *wellbeing.Contact) error {
	query := `
		INSERT INTO contacts (user_id, ` + contactColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := q.ExecContext(ctx, query,
		userID, c.ID, c.Name, c.Relation, c.ConnectionLevel,
		toNullMillis(c.LastInteraction), toNullString(c.Photo),
		c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return errors.NewConflict("contact already exists: " + c.ID)
		}
		return wrapErr(err)
	}
	return nil
}

// GetContact retrieves one contact with its markers.
func GetContact(ctx context.Context, q Querier, userID, id string) (*wellbeing.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE user_id = ? AND id = ?`

	c, err := scanContact(q.QueryRowContext(ctx, query, userID, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("contact", id)
	}
	if err != nil {
		return nil, wrapErr(err)
	}

	c.Interactions, err = ListInteractions(ctx, q, userID, id)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListContacts returns every contact for userID in creation order, each with
// its markers.
func ListContacts(ctx context.Context, q Querier, userID string) ([]wellbeing.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE user_id = ? ORDER BY created_at ASC, id ASC`

	rows, err := q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, wrapErr(err)
	}
	contacts := []wellbeing.Contact{}
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			rows.Close()
			return nil, wrapErr(err)
		}
		contacts = append(contacts, *c)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, wrapErr(err)
	}
	rows.Close()

	markers, err := interactionsByContact(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	for i := range contacts {
		if dates, ok := markers[contacts[i].ID]; ok {
			contacts[i].Interactions = dates
		}
	}
	return contacts, nil
}

// MergeContact applies the non-nil fields of p to the stored contact.
func MergeContact(ctx context.Context, q Querier, userID, id string, p ContactPatch, updatedAt int64) error {
	var photo any
	if p.Photo != nil {
		photo = toNullString(*p.Photo)
	}
	query := `
		UPDATE contacts
		SET name = COALESCE(?, name),
			relation = COALESCE(?, relation),
			connection_level = COALESCE(?, connection_level),
			photo = CASE WHEN ? THEN ? ELSE photo END,
			updated_at = ?
		WHERE user_id = ? AND id = ?
	`
	result, err := q.ExecContext(ctx, query,
		p.Name, p.Relation, p.ConnectionLevel,
		p.Photo != nil, photo,
		updatedAt, userID, id,
	)
	return checkAffected(result, err, "contact", id)
}

// SetLastInteraction stores t (or NULL) as the contact's last interaction.
func SetLastInteraction(ctx context.Context, q Querier, userID, id string, t *time.Time, updatedAt int64) error {
	query := `
		UPDATE contacts
		SET last_interaction = ?, updated_at = ?
		WHERE user_id = ? AND id = ?
	`
	result, err := q.ExecContext(ctx, query, toNullMillis(t), updatedAt, userID, id)
	return checkAffected(result, err, "contact", id)
}

// DeleteContact removes a contact. Its markers go with it.
func DeleteContact(ctx context.Context, q Querier, userID, id string) error {
	result, err := q.ExecContext(ctx, "DELETE FROM contacts WHERE user_id = ? AND id = ?", userID, id)
	return checkAffected(result, err, "contact", id)
}

// InsertInteraction records a marker. It reports false when the marker
// already existed.
func InsertInteraction(ctx context.Context, q Querier, userID, contactID, day string, createdAt int64) (bool, error) {
	query := `
		INSERT INTO interactions (user_id, contact_id, day, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, contact_id, day) DO NOTHING
	`
	result, err := q.ExecContext(ctx, query, userID, contactID, day, createdAt)
	if err != nil {
		if isForeignKeyError(err) {
			return false, errors.NewNotFound("contact", contactID)
		}
		return false, wrapErr(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, wrapErr(err)
	}
	return n > 0, nil
}

// DeleteInteraction removes a marker. It reports false when there was none.
func DeleteInteraction(ctx context.Context, q Querier, userID, contactID, day string) (bool, error) {
	result, err := q.ExecContext(ctx,
		"DELETE FROM interactions WHERE user_id = ? AND contact_id = ? AND day = ?",
		userID, contactID, day)
	if err != nil {
		return false, wrapErr(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, wrapErr(err)
	}
	return n > 0, nil
}

// ListInteractions returns the marker days for one contact, ascending.
func ListInteractions(ctx context.Context, q Querier, userID, contactID string) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT day FROM interactions WHERE user_id = ? AND contact_id = ? ORDER BY day ASC",
		userID, contactID)
	if err != nil {
		return nil, wrapErr(err)
	}
	defer rows.Close()

	days := []string{}
	for rows.Next() {
		var day string
		if err := rows.Scan(&day); err != nil {
			return nil, wrapErr(err)
		}
		days = append(days, day)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(err)
	}
	return days, nil
}

// interactionsByContact loads all of userID's markers in one query.
func interactionsByContact(ctx context.Context, q Querier, userID string) (map[string][]string, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT contact_id, day FROM interactions WHERE user_id = ? ORDER BY contact_id, day ASC",
		userID)
	if err != nil {
		return nil, wrapErr(err)
	}
	defer rows.Close()

	out := make(map[string][]string)
	for rows.Next() {
		var contactID, day string
		if err := rows.Scan(&contactID, &day); err != nil {
			return nil, wrapErr(err)
		}
		out[contactID] = append(out[contactID], day)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(err)
	}
	return out, nil
}

func scanContact(row rowScanner) (*wellbeing.Contact, error) {
	var (
		c     wellbeing.Contact
		last  sql.NullInt64
		photo sql.NullString
	)
	err := row.Scan(
		&c.ID, &c.Name, &c.Relation, &c.ConnectionLevel, &last, &photo,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if last.Valid {
		t := time.UnixMilli(last.Int64).UTC()
		c.LastInteraction = &t
	}
	c.Photo = photo.String
	c.Interactions = []string{}
	return &c, nil
}

// checkAffected maps an Exec result onto NOT_FOUND when no row matched.
func checkAffected(result sql.Result, err error, kind, key string) error {
	if err != nil {
		return wrapErr(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return wrapErr(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound(kind, key)
	}
	return nil
}

// toNullMillis stores timestamps as Unix milliseconds.
func toNullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}
