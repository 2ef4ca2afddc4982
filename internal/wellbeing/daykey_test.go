package wellbeing

import (
	"testing"
	"time"
)

func TestDayKey_UsesLocation(t *testing.T) {
	chicago := time.FixedZone("CST", -6*3600)
	tokyo := time.FixedZone("JST", 9*3600)

	tests := []struct {
		name string
		t    time.Time
		loc  *time.Location
		want string
	}{
		{"utc", time.Date(2024, 3, 10, 5, 30, 0, 0, time.UTC), time.UTC, "2024-03-10"},
		{"behind utc rolls back", time.Date(2024, 3, 10, 5, 30, 0, 0, time.UTC), chicago, "2024-03-09"},
		{"ahead of utc rolls forward", time.Date(2024, 1, 1, 15, 30, 0, 0, time.UTC), tokyo, "2024-01-02"},
		{"nil loc keeps own zone", time.Date(2024, 1, 1, 23, 59, 0, 0, chicago), nil, "2024-01-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DayKey(tt.t, tt.loc); got != tt.want {
				t.Errorf("DayKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFixedClock(t *testing.T) {
	loc := time.FixedZone("CST", -6*3600)
	instant := time.Date(2024, 3, 10, 3, 0, 0, 0, time.UTC)
	clock := FixedClock(instant, loc)

	if got := clock.Today(); got != "2024-03-09" {
		t.Errorf("Today() = %q, want 2024-03-09", got)
	}
	if !clock.Now().Equal(instant) {
		t.Errorf("Now() = %v, want %v", clock.Now(), instant)
	}
	if clock.Now().Location() != loc {
		t.Errorf("Now().Location() = %v, want %v", clock.Now().Location(), loc)
	}
	if clock.Location() != loc {
		t.Errorf("Location() = %v, want %v", clock.Location(), loc)
	}
}

func TestClock_ZeroValueUsesUTC(t *testing.T) {
	var clock Clock
	if clock.Location() != time.UTC {
		t.Errorf("Location() = %v, want UTC", clock.Location())
	}
	if clock.Now().IsZero() {
		t.Error("Now() should read the wall clock")
	}
}

func TestParseDayKey(t *testing.T) {
	valid := []string{"2024-01-01", "2024-02-29", "1999-12-31"}
	for _, k := range valid {
		if _, err := ParseDayKey(k); err != nil {
			t.Errorf("ParseDayKey(%q) error = %v", k, err)
		}
	}

	invalid := []string{"", "2024-1-1", "2024/01/01", "2023-02-29", "2024-01-01T00:00:00Z", "yesterday"}
	for _, k := range invalid {
		if _, err := ParseDayKey(k); err == nil {
			t.Errorf("ParseDayKey(%q) error = nil, want error", k)
		}
	}
}

func TestAddDaysAndDaysBetween(t *testing.T) {
	got, err := AddDays("2024-02-28", 2)
	if err != nil {
		t.Fatalf("AddDays() error = %v", err)
	}
	if got != "2024-03-01" {
		t.Errorf("AddDays() = %q, want 2024-03-01", got)
	}

	got, err = AddDays("2024-01-01", -6)
	if err != nil {
		t.Fatalf("AddDays() error = %v", err)
	}
	if got != "2023-12-26" {
		t.Errorf("AddDays() = %q, want 2023-12-26", got)
	}

	n, err := DaysBetween("2023-12-30", "2024-01-02")
	if err != nil {
		t.Fatalf("DaysBetween() error = %v", err)
	}
	if n != 3 {
		t.Errorf("DaysBetween() = %d, want 3", n)
	}

	if _, err := DaysBetween("bad", "2024-01-02"); err == nil {
		t.Error("DaysBetween() with bad key: error = nil")
	}
}

func TestWeekStart(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"2024-01-01", "2023-12-31"}, // Monday
		{"2024-01-06", "2023-12-31"}, // Saturday
		{"2024-01-07", "2024-01-07"}, // Sunday
		{"2024-03-10", "2024-03-10"}, // Sunday, US DST change
	}
	for _, tt := range tests {
		got, err := WeekStart(tt.key)
		if err != nil {
			t.Fatalf("WeekStart(%q) error = %v", tt.key, err)
		}
		if got != tt.want {
			t.Errorf("WeekStart(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}
