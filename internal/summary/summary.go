// Package summary turns a user's mood logs and contact aggregates into a
// bounded prompt, sends it to a text-completion service, and returns the
// free-text reply.
package summary

import (
	"fmt"
	"time"

	"github.com/heartsync/heartsync/internal/errors"
	"github.com/heartsync/heartsync/internal/wellbeing"
)

// Prompt and completion defaults.
const (
	DefaultModel               = "gpt-4o-mini"
	DefaultMaxOutputTokens     = 500
	DefaultMaxLogs             = 20
	DefaultMaxInteractionDates = 5
)

// Request is the summary payload: recent mood logs, one aggregate per
// contact, today's day key and the total number of logs the user has.
type Request struct {
	MoodLogs []wellbeing.MoodLog `json:"moodLogs"`
	Contacts []ContactAggregate  `json:"contacts"`
	Today    string              `json:"today"`

	// TotalLogCount is the user's full log count. When nil, len(MoodLogs) is used.
	TotalLogCount *int `json:"totalLogCount,omitempty"`
}

// ContactAggregate is a contact flattened for the prompt.
type ContactAggregate struct {
	Name                 string     `json:"name"`
	Relation             string     `json:"relation"`
	ConnectionLevel      *int       `json:"connectionLevel,omitempty"`
	LastInteraction      *time.Time `json:"lastInteraction"`
	InteractionCount     int        `json:"interactionCount"`
	InteractionsThisWeek int        `json:"interactionsThisWeek"`
	InteractionDates     []string   `json:"interactionDates,omitempty"`
}

// Response is the summary reply.
type Response struct {
	Summary string `json:"summary"`
}

// Options bound the prompt and the completion.
type Options struct {
	MaxLogs             int
	MaxInteractionDates int
	MaxOutputTokens     int
}

// DefaultOptions returns the standard prompt bounds.
func DefaultOptions() Options {
	return Options{
		MaxLogs:             DefaultMaxLogs,
		MaxInteractionDates: DefaultMaxInteractionDates,
		MaxOutputTokens:     DefaultMaxOutputTokens,
	}
}

// withDefaults fills zero fields from DefaultOptions.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxLogs <= 0 {
		o.MaxLogs = d.MaxLogs
	}
	if o.MaxInteractionDates <= 0 {
		o.MaxInteractionDates = d.MaxInteractionDates
	}
	if o.MaxOutputTokens <= 0 {
		o.MaxOutputTokens = d.MaxOutputTokens
	}
	return o
}

// Validate rejects payloads with values no stored record could hold.
func (r Request) Validate() error {
	if r.Today != "" && !wellbeing.ValidDayKey(r.Today) {
		return errors.NewValidationFailure("today", fmt.Sprintf("must be YYYY-MM-DD, got %q", r.Today))
	}
	if r.TotalLogCount != nil && *r.TotalLogCount < 0 {
		return errors.NewValidationFailure("totalLogCount", "must not be negative")
	}
	for i, l := range r.MoodLogs {
		if err := wellbeing.ValidateMoodLog(l); err != nil {
			he := errors.As(err)
			he.Message = fmt.Sprintf("moodLogs[%d].%s", i, he.Message)
			return he
		}
	}
	for i, c := range r.Contacts {
		if c.ConnectionLevel != nil {
			if err := wellbeing.ValidateConnectionLevel(*c.ConnectionLevel); err != nil {
				he := errors.As(err)
				he.Message = fmt.Sprintf("contacts[%d].%s", i, he.Message)
				return he
			}
		}
		if c.InteractionCount < 0 || c.InteractionsThisWeek < 0 {
			return errors.NewValidationFailure(fmt.Sprintf("contacts[%d]", i), "interaction counts must not be negative")
		}
	}
	return nil
}

// LogCount is the effective total log count.
func (r Request) LogCount() int {
	if r.TotalLogCount != nil {
		return *r.TotalLogCount
	}
	return len(r.MoodLogs)
}

// Aggregate flattens a contact into the prompt view as of asOf.
func Aggregate(c wellbeing.Contact, asOf time.Time, loc *time.Location) ContactAggregate {
	level := c.ConnectionLevel
	today := wellbeing.DayKey(asOf, loc)
	thisWeek := 0
	for _, d := range c.Interactions {
		if wellbeing.MarkerWithin([]string{d}, today, wellbeing.WeekDays) {
			thisWeek++
		}
	}
	return ContactAggregate{
		Name:                 c.Name,
		Relation:             c.Relation,
		ConnectionLevel:      &level,
		LastInteraction:      c.LastInteraction,
		InteractionCount:     len(c.Interactions),
		InteractionsThisWeek: thisWeek,
		InteractionDates:     c.Interactions,
	}
}

// contact rebuilds enough of a wellbeing.Contact to reuse the stats helpers.
// A missing level is treated as the default so it never flags on its own.
func (a ContactAggregate) contact() wellbeing.Contact {
	level := wellbeing.DefaultConnectionLevel
	if a.ConnectionLevel != nil {
		level = *a.ConnectionLevel
	}
	return wellbeing.Contact{
		Name:            a.Name,
		Relation:        a.Relation,
		ConnectionLevel: level,
		LastInteraction: a.LastInteraction,
		Interactions:    a.InteractionDates,
	}
}
