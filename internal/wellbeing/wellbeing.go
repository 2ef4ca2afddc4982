// Package wellbeing holds the HeartSync domain: mood logs, contacts and their
// check-in markers, day-key arithmetic, validation, aggregation, and the
// check-in toggle. Everything here is pure; callers supply the clock.
package wellbeing

import "time"

// Defaults and bounds for stored records.
const (
	MinMood = 1
	MaxMood = 5

	MinConnectionLevel     = 1
	MaxConnectionLevel     = 10
	DefaultConnectionLevel = 5

	MaxEmotionChars     = 40
	MaxActivityChars    = 50
	MaxDescriptionChars = 300
	MaxNameChars        = 100
	MaxRelationChars    = 100
	MaxPhotoBytes       = 1 << 20
)

// MoodLog is one day's self-reported mood. Date is the record key and the
// uniqueness constraint per user.
type MoodLog struct {
	// Date is the calendar day in the configured zone, YYYY-MM-DD
	Date string `json:"date"`

	// Mood is the 1-5 score
	Mood int `json:"mood"`

	// Emotion is an optional short label ("Happy", "Tired")
	Emotion string `json:"emotion,omitempty"`

	// Activity is optional free text, at most MaxActivityChars
	Activity string `json:"activity,omitempty"`

	// Description is optional free text, at most MaxDescriptionChars
	Description string `json:"description,omitempty"`

	// UpdatedAt is the Unix timestamp of the last write
	UpdatedAt int64 `json:"updated_at,omitempty"`
}

// Contact is a person the user keeps in touch with.
type Contact struct {
	// ID is a ULID assigned on creation
	ID string `json:"id"`

	Name     string `json:"name"`
	Relation string `json:"relation"`

	// ConnectionLevel is the 1-10 closeness rating
	ConnectionLevel int `json:"connection_level"`

	// LastInteraction follows the most recent check-in toggle, not the
	// newest marker: toggling today off clears it even if older markers exist.
	LastInteraction *time.Time `json:"last_interaction"`

	// Photo is an optional data URL
	Photo string `json:"photo,omitempty"`

	CreatedAt int64 `json:"created_at"`
	UpdatedAt int64 `json:"updated_at"`

	// Interactions holds the day keys of check-in markers, ascending
	Interactions []string `json:"interaction_dates"`
}

// InteractionMarker records that the user checked in with a contact on a day.
// Its existence is the whole signal.
type InteractionMarker struct {
	ContactID string `json:"contact_id"`
	Date      string `json:"date"`
}

// ContactRef identifies a contact in derived results.
type ContactRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Ref returns the contact's identifying fields.
func (c Contact) Ref() ContactRef {
	return ContactRef{ID: c.ID, Name: c.Name}
}
