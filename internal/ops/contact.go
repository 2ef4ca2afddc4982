package ops

import (
	"context"
	"database/sql"

	"github.com/heartsync/heartsync/internal/db"
	"github.com/heartsync/heartsync/internal/errors"
	"github.com/heartsync/heartsync/internal/wellbeing"
)

// AddContactInput contains parameters for the AddContact operation.
type AddContactInput struct {
	UserID          string
	Name            string // required
	Relation        string
	ConnectionLevel *int // default: wellbeing.DefaultConnectionLevel
	Photo           string
}

// AddContact validates and stores a new contact with a fresh ULID.
func AddContact(ctx context.Context, database *sql.DB, clock wellbeing.Clock, input AddContactInput) (*wellbeing.Contact, error) {
	userID, err := requireUser(input.UserID)
	if err != nil {
		return nil, err
	}

	level := wellbeing.DefaultConnectionLevel
	if input.ConnectionLevel != nil {
		level = *input.ConnectionLevel
	}

	now := clock.Now()
	c := wellbeing.Contact{
		Name:            input.Name,
		Relation:        input.Relation,
		ConnectionLevel: level,
		Photo:           input.Photo,
		CreatedAt:       now.Unix(),
		UpdatedAt:       now.Unix(),
		Interactions:    []string{},
	}
	wellbeing.NormalizeContact(&c)
	if err := wellbeing.ValidateContact(c); err != nil {
		return nil, err
	}

	c.ID, err = generateULID(now)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	if err := db.InsertContact(ctx, database, userID, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetContact returns one contact with its check-in markers.
func GetContact(ctx context.Context, database *sql.DB, userID, id string) (*wellbeing.Contact, error) {
	userID, err := requireUser(userID)
	if err != nil {
		return nil, err
	}
	id, err = requireID(id)
	if err != nil {
		return nil, err
	}
	return db.GetContact(ctx, database, userID, id)
}

// ListContactsOutput contains the result of the ListContacts operation.
type ListContactsOutput struct {
	Items []wellbeing.Contact `json:"items"`
	Total int                 `json:"total"`
}

// ListContacts returns the user's contacts in creation order.
func ListContacts(ctx context.Context, database *sql.DB, userID string) (*ListContactsOutput, error) {
	userID, err := requireUser(userID)
	if err != nil {
		return nil, err
	}
	contacts, err := db.ListContacts(ctx, database, userID)
	if err != nil {
		return nil, err
	}
	return &ListContactsOutput{Items: contacts, Total: len(contacts)}, nil
}

// UpdateContactInput contains parameters for the UpdateContact operation.
// Nil fields are left unchanged.
type UpdateContactInput struct {
	UserID          string
	ID              string
	Name            *string
	Relation        *string
	ConnectionLevel *int
	Photo           *string // "" clears the photo
}

// UpdateContact merges the provided fields into an existing contact.
func UpdateContact(ctx context.Context, database *sql.DB, clock wellbeing.Clock, input UpdateContactInput) (*wellbeing.Contact, error) {
	userID, err := requireUser(input.UserID)
	if err != nil {
		return nil, err
	}
	id, err := requireID(input.ID)
	if err != nil {
		return nil, err
	}
	if input.Name == nil && input.Relation == nil && input.ConnectionLevel == nil && input.Photo == nil {
		return nil, errors.NewInvalidRequest("at least one of name, relation, connection_level, photo is required")
	}

	existing, err := db.GetContact(ctx, database, userID, id)
	if err != nil {
		return nil, err
	}

	merged := *existing
	if input.Name != nil {
		merged.Name = *input.Name
	}
	if input.Relation != nil {
		merged.Relation = *input.Relation
	}
	if input.ConnectionLevel != nil {
		merged.ConnectionLevel = *input.ConnectionLevel
	}
	if input.Photo != nil {
		merged.Photo = *input.Photo
	}
	wellbeing.NormalizeContact(&merged)
	if err := wellbeing.ValidateContact(merged); err != nil {
		return nil, err
	}

	patch := db.ContactPatch{
		Name:            &merged.Name,
		Relation:        &merged.Relation,
		ConnectionLevel: &merged.ConnectionLevel,
	}
	if input.Photo != nil {
		patch.Photo = &merged.Photo
	}
	merged.UpdatedAt = clock.Now().Unix()
	if err := db.MergeContact(ctx, database, userID, id, patch, merged.UpdatedAt); err != nil {
		return nil, err
	}
	return &merged, nil
}

// DeleteContact removes a contact and its check-in markers.
func DeleteContact(ctx context.Context, database *sql.DB, userID, id string) (*DeleteOutput, error) {
	userID, err := requireUser(userID)
	if err != nil {
		return nil, err
	}
	id, err = requireID(id)
	if err != nil {
		return nil, err
	}
	if err := db.DeleteContact(ctx, database, userID, id); err != nil {
		return nil, err
	}
	return &DeleteOutput{Key: id, Deleted: true}, nil
}
