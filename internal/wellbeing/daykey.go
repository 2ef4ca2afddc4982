package wellbeing

import (
	"fmt"
	"time"
)

// DayKeyLayout is the layout of every day key.
const DayKeyLayout = "2006-01-02"

// Clock supplies "now" and the zone that day keys are computed in.
// It is passed explicitly to everything that needs the current time.
type Clock struct {
	loc *time.Location
	now func() time.Time
}

// NewClock returns a Clock that reads the wall clock in loc.
func NewClock(loc *time.Location) Clock {
	return Clock{loc: loc, now: time.Now}
}

// FixedClock returns a Clock frozen at t, for tests and replays.
func FixedClock(t time.Time, loc *time.Location) Clock {
	return Clock{loc: loc, now: func() time.Time { return t }}
}

// Now returns the current instant in the clock's zone.
// A zero Clock reads the wall clock in UTC.
func (c Clock) Now() time.Time {
	now := c.now
	if now == nil {
		now = time.Now
	}
	return now().In(c.Location())
}

// Location returns the clock's zone.
func (c Clock) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// Today returns the day key for Now.
func (c Clock) Today() string {
	return DayKey(c.Now(), c.Location())
}

// DayKey formats the calendar day of t in loc as YYYY-MM-DD.
// A nil loc uses t's own zone.
func DayKey(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(DayKeyLayout)
}

// ParseDayKey parses a strict YYYY-MM-DD key into midnight UTC of that date,
// so differences between parsed keys are whole days.
func ParseDayKey(key string) (time.Time, error) {
	t, err := time.Parse(DayKeyLayout, key)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day key %q: %w", key, err)
	}
	if t.Format(DayKeyLayout) != key {
		return time.Time{}, fmt.Errorf("invalid day key %q", key)
	}
	return t, nil
}

// ValidDayKey reports whether key parses as a day key.
func ValidDayKey(key string) bool {
	_, err := ParseDayKey(key)
	return err == nil
}

// AddDays shifts a day key by n calendar days.
func AddDays(key string, n int) (string, error) {
	t, err := ParseDayKey(key)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, n).Format(DayKeyLayout), nil
}

// DaysBetween returns b minus a in calendar days.
func DaysBetween(a, b string) (int, error) {
	ta, err := ParseDayKey(a)
	if err != nil {
		return 0, err
	}
	tb, err := ParseDayKey(b)
	if err != nil {
		return 0, err
	}
	return int(tb.Sub(ta).Hours() / 24), nil
}

// WeekStart returns the key of the Sunday that opens key's week.
func WeekStart(key string) (string, error) {
	t, err := ParseDayKey(key)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, -int(t.Weekday())).Format(DayKeyLayout), nil
}
