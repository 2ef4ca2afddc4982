package wellbeing

import (
	"slices"
	"sort"
	"time"
)

// Aggregation thresholds.
const (
	// WeekDays is the trailing window, today included, for "this week" counts.
	WeekDays = 7

	// NeedsAttentionLevel is the highest connection level that always needs attention.
	NeedsAttentionLevel = 2

	// NeedsAttentionAfter is how long since the last check-in before a contact needs attention.
	NeedsAttentionAfter = 21 * 24 * time.Hour
)

// BestWeek is the Sunday-anchored week with the highest average mood.
type BestWeek struct {
	WeekStart string  `json:"week_start"`
	Average   float64 `json:"average"`
	Count     int     `json:"count"`
}

// MostInteracted is the contact with the most check-in markers.
type MostInteracted struct {
	ContactRef
	Count int `json:"count"`
}

// Stats is the derived view over a user's logs and contacts.
// AverageMood and MostCommonEmotion cover every log passed in.
type Stats struct {
	Today                  string          `json:"today"`
	Streak                 int             `json:"streak"`
	AverageMood            *float64        `json:"average_mood"`
	MostCommonEmotion      string          `json:"most_common_emotion,omitempty"`
	TotalLogs              int             `json:"total_logs"`
	TotalContacts          int             `json:"total_contacts"`
	ContactsThisWeek       int             `json:"contacts_this_week"`
	NeedsAttention         []ContactRef    `json:"needs_attention"`
	MostInteracted         *MostInteracted `json:"most_interacted,omitempty"`
	BestWeek               *BestWeek       `json:"best_week,omitempty"`
	AverageConnectionLevel *float64        `json:"average_connection_level"`
}

// ComputeStats derives Stats from logs and contacts as of asOf. Day buckets
// are computed in loc. It never reads the wall clock.
func ComputeStats(logs []MoodLog, contacts []Contact, asOf time.Time, loc *time.Location) Stats {
	stats := Stats{
		Today:             DayKey(asOf, loc),
		Streak:            Streak(logs),
		AverageMood:       AverageMood(logs),
		MostCommonEmotion: MostCommonEmotion(logs),
		TotalLogs:         len(logs),
		TotalContacts:     len(contacts),
		NeedsAttention:    []ContactRef{},
		MostInteracted:    FindMostInteracted(contacts),
		BestWeek:          FindBestWeek(logs),
	}

	levelSum := 0
	for _, c := range contacts {
		levelSum += c.ConnectionLevel
		if InteractedWithin(c, asOf, loc, WeekDays) {
			stats.ContactsThisWeek++
		}
		if NeedsAttention(c, asOf) {
			stats.NeedsAttention = append(stats.NeedsAttention, c.Ref())
		}
	}
	if len(contacts) > 0 {
		avg := float64(levelSum) / float64(len(contacts))
		stats.AverageConnectionLevel = &avg
	}

	return stats
}

// SortLogs returns a copy of logs ordered by date ascending.
func SortLogs(logs []MoodLog) []MoodLog {
	sorted := slices.Clone(logs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date < sorted[j].Date
	})
	return sorted
}

// Streak counts consecutive days ending at the newest log date.
// Duplicate and unparseable dates are ignored.
func Streak(logs []MoodLog) int {
	days := make([]string, 0, len(logs))
	for _, l := range logs {
		if ValidDayKey(l.Date) {
			days = append(days, l.Date)
		}
	}
	if len(days) == 0 {
		return 0
	}
	slices.Sort(days)
	days = slices.Compact(days)

	streak := 1
	for i := len(days) - 1; i > 0; i-- {
		diff, err := DaysBetween(days[i-1], days[i])
		if err != nil || diff != 1 {
			break
		}
		streak++
	}
	return streak
}

// AverageMood returns the mean mood, or nil when there are no logs.
func AverageMood(logs []MoodLog) *float64 {
	if len(logs) == 0 {
		return nil
	}
	sum := 0
	for _, l := range logs {
		sum += l.Mood
	}
	avg := float64(sum) / float64(len(logs))
	return &avg
}

// MostCommonEmotion returns the most frequent non-empty emotion label.
// Ties go to the label that appears first in date order.
func MostCommonEmotion(logs []MoodLog) string {
	counts := make(map[string]int)
	var order []string
	for _, l := range SortLogs(logs) {
		if l.Emotion == "" {
			continue
		}
		if counts[l.Emotion] == 0 {
			order = append(order, l.Emotion)
		}
		counts[l.Emotion]++
	}

	best, bestCount := "", 0
	for _, e := range order {
		if counts[e] > bestCount {
			best, bestCount = e, counts[e]
		}
	}
	return best
}

// FindBestWeek groups logs by Sunday-anchored week and returns the week with
// the highest average. Ties go to the earliest week. Nil when there are no
// logs with a valid date.
func FindBestWeek(logs []MoodLog) *BestWeek {
	type acc struct{ sum, count int }
	weeks := make(map[string]*acc)
	for _, l := range logs {
		start, err := WeekStart(l.Date)
		if err != nil {
			continue
		}
		a := weeks[start]
		if a == nil {
			a = &acc{}
			weeks[start] = a
		}
		a.sum += l.Mood
		a.count++
	}
	if len(weeks) == 0 {
		return nil
	}

	starts := make([]string, 0, len(weeks))
	for s := range weeks {
		starts = append(starts, s)
	}
	slices.Sort(starts)

	var best *BestWeek
	for _, s := range starts {
		a := weeks[s]
		avg := float64(a.sum) / float64(a.count)
		if best == nil || avg > best.Average {
			best = &BestWeek{WeekStart: s, Average: avg, Count: a.count}
		}
	}
	return best
}

// InteractedWithin reports whether c has a marker dated in the trailing
// window of days (today included), or a LastInteraction no older than days.
func InteractedWithin(c Contact, asOf time.Time, loc *time.Location, days int) bool {
	if MarkerWithin(c.Interactions, DayKey(asOf, loc), days) {
		return true
	}
	if c.LastInteraction != nil {
		return asOf.Sub(*c.LastInteraction) <= time.Duration(days)*24*time.Hour
	}
	return false
}

// MarkerWithin reports whether any of dates falls in the days-long window
// ending on today, both ends inclusive.
func MarkerWithin(dates []string, today string, days int) bool {
	start, err := AddDays(today, -(days - 1))
	if err != nil {
		return false
	}
	for _, d := range dates {
		if d >= start && d <= today {
			return true
		}
	}
	return false
}

// NeedsAttention reports whether c should be flagged for follow-up: a low
// connection level, no recorded check-in, or none in NeedsAttentionAfter.
func NeedsAttention(c Contact, asOf time.Time) bool {
	if c.ConnectionLevel <= NeedsAttentionLevel {
		return true
	}
	if c.LastInteraction == nil {
		return true
	}
	return asOf.Sub(*c.LastInteraction) > NeedsAttentionAfter
}

// FindMostInteracted returns the contact with the most markers, first in
// input order on ties. Nil when nobody has a marker.
func FindMostInteracted(contacts []Contact) *MostInteracted {
	var best *MostInteracted
	for _, c := range contacts {
		n := len(c.Interactions)
		if n == 0 {
			continue
		}
		if best == nil || n > best.Count {
			best = &MostInteracted{ContactRef: c.Ref(), Count: n}
		}
	}
	return best
}
