package wellbeing

import (
	"slices"
	"time"
)

// Transition is the result of toggling a contact's check-in for today.
type Transition struct {
	// Date is today's day key, the marker being created or removed
	Date string

	// CheckIn is true for not-interacted -> interacted, false for the reverse
	CheckIn bool

	// LastInteraction is the value the contact must hold afterwards
	LastInteraction *time.Time
}

// InteractedToday reports whether c has a marker for now's day in loc.
func InteractedToday(c Contact, now time.Time, loc *time.Location) bool {
	return slices.Contains(c.Interactions, DayKey(now, loc))
}

// Toggle decides the check-in transition for c at now. Checking in creates
// today's marker and stamps LastInteraction; un-checking removes today's
// marker and clears LastInteraction.
func Toggle(c Contact, now time.Time, loc *time.Location) Transition {
	today := DayKey(now, loc)
	if InteractedToday(c, now, loc) {
		return Transition{Date: today, CheckIn: false}
	}
	stamp := now
	return Transition{Date: today, CheckIn: true, LastInteraction: &stamp}
}

// Apply returns c with the transition applied to its markers and LastInteraction.
func (t Transition) Apply(c Contact) Contact {
	dates := slices.Clone(c.Interactions)
	if t.CheckIn {
		if !slices.Contains(dates, t.Date) {
			dates = append(dates, t.Date)
			slices.Sort(dates)
		}
	} else {
		dates = slices.DeleteFunc(dates, func(d string) bool { return d == t.Date })
	}
	c.Interactions = dates
	c.LastInteraction = t.LastInteraction
	return c
}
