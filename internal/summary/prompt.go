package summary

import (
	"fmt"
	"strings"
	"time"

	"github.com/heartsync/heartsync/internal/wellbeing"
)

// Facts are the numbers computed before prompting, so the model restates
// them instead of deriving its own.
type Facts struct {
	Today               string
	LogCount            int
	Streak              int
	AverageMood         *float64
	MostCommonEmotion   string
	BestWeek            *wellbeing.BestWeek
	TotalConnections    int
	ConnectionsThisWeek int
	ReachOut            []string

	// Location formats LastInteraction timestamps as day keys
	Location *time.Location
}

// DeriveFacts computes the prompt facts for req as of asOf. Today defaults to
// asOf's day in loc when the request leaves it empty.
func DeriveFacts(req Request, asOf time.Time, loc *time.Location) Facts {
	today := req.Today
	if today == "" {
		today = wellbeing.DayKey(asOf, loc)
	}

	facts := Facts{
		Today:             today,
		LogCount:          req.LogCount(),
		Streak:            wellbeing.Streak(req.MoodLogs),
		AverageMood:       wellbeing.AverageMood(req.MoodLogs),
		MostCommonEmotion: wellbeing.MostCommonEmotion(req.MoodLogs),
		BestWeek:          wellbeing.FindBestWeek(req.MoodLogs),
		TotalConnections:  len(req.Contacts),
		Location:          loc,
	}

	for _, a := range req.Contacts {
		if connectedThisWeek(a, today, asOf) {
			facts.ConnectionsThisWeek++
		}
		if wellbeing.NeedsAttention(a.contact(), asOf) {
			facts.ReachOut = append(facts.ReachOut, a.Name)
		}
	}
	return facts
}

func connectedThisWeek(a ContactAggregate, today string, asOf time.Time) bool {
	if a.InteractionsThisWeek > 0 {
		return true
	}
	if wellbeing.MarkerWithin(a.InteractionDates, today, wellbeing.WeekDays) {
		return true
	}
	return a.LastInteraction != nil &&
		asOf.Sub(*a.LastInteraction) <= wellbeing.WeekDays*24*time.Hour
}

// BuildPrompt renders req and facts into the completion prompt. Only the
// newest opts.MaxLogs logs and opts.MaxInteractionDates dates per contact
// are included.
func BuildPrompt(req Request, facts Facts, opts Options) string {
	opts = opts.withDefaults()
	var b strings.Builder

	fmt.Fprintf(&b, "You are a friendly wellness assistant for HeartSync. Today: %s. Use only real data.\n\n", facts.Today)

	b.WriteString("KEY CONTEXT:\n")
	fmt.Fprintf(&b, "- TOTAL LOG COUNT: %d (use for \"You logged X times\")\n", facts.LogCount)
	fmt.Fprintf(&b, "- STREAK: %d consecutive days\n", facts.Streak)
	if facts.AverageMood != nil {
		fmt.Fprintf(&b, "- AVERAGE MOOD: %.1f/5\n", *facts.AverageMood)
	} else {
		b.WriteString("- AVERAGE MOOD: none (no logs)\n")
	}
	if facts.MostCommonEmotion != "" {
		fmt.Fprintf(&b, "- MOST COMMON EMOTION: %s\n", facts.MostCommonEmotion)
	} else {
		b.WriteString("- MOST COMMON EMOTION: none\n")
	}
	fmt.Fprintf(&b, "- TOTAL CONNECTIONS: %d\n", facts.TotalConnections)
	fmt.Fprintf(&b, "- CONNECTIONS THIS WEEK: %d\n", facts.ConnectionsThisWeek)
	fmt.Fprintf(&b, "- BEST WEEK: %s\n", formatBestWeek(facts.BestWeek))
	b.WriteString("- Connection level 1-2=been awhile, 3-4=okay, 5-6=good, 7-10=great\n")
	if len(facts.ReachOut) > 0 {
		fmt.Fprintf(&b, "- REACH OUT TO: %s\n", strings.Join(facts.ReachOut, ", "))
	}
	if facts.TotalConnections == 1 {
		b.WriteString("- Note: 1 connection only, do not suggest reaching out to someone else\n")
	}

	b.WriteString("\nMOOD LOGS (date, mood 1-5, emotion, activity, description):\n")
	logs := wellbeing.SortLogs(req.MoodLogs)
	if len(logs) > opts.MaxLogs {
		logs = logs[len(logs)-opts.MaxLogs:]
	}
	if len(logs) == 0 {
		b.WriteString("No mood logs yet.\n")
	}
	for _, l := range logs {
		emotion := l.Emotion
		if emotion == "" {
			emotion = "none"
		}
		fmt.Fprintf(&b, "- %s: mood %d/5, emotion: %s", l.Date, l.Mood, emotion)
		if l.Activity != "" {
			fmt.Fprintf(&b, ", activity: %s", l.Activity)
		}
		if l.Description != "" {
			fmt.Fprintf(&b, ", description: %q", l.Description)
		}
		b.WriteByte('\n')
	}

	b.WriteString("\nCONTACTS & INTERACTIONS:\n")
	if len(req.Contacts) == 0 {
		b.WriteString("No contacts yet.\n")
	}
	for _, c := range req.Contacts {
		level := "?"
		if c.ConnectionLevel != nil {
			level = fmt.Sprint(*c.ConnectionLevel)
		}
		last := "never"
		if c.LastInteraction != nil {
			last = wellbeing.DayKey(*c.LastInteraction, facts.Location)
		}
		fmt.Fprintf(&b, "- %s (%s): connectionLevel %s/10, last interacted %s, total: %d, this week: %d",
			c.Name, c.Relation, level, last, c.InteractionCount, c.InteractionsThisWeek)
		dates := c.InteractionDates
		if len(dates) > opts.MaxInteractionDates {
			dates = dates[len(dates)-opts.MaxInteractionDates:]
		}
		if len(dates) > 0 {
			fmt.Fprintf(&b, ", interacted on: %s", strings.Join(dates, ", "))
		}
		b.WriteByte('\n')
	}

	b.WriteString("\nFORMAT (order 1-7; use exact numbers for 1-4; vary wording for 5-7):\n")
	fmt.Fprintf(&b, "1. Streak: \"Your streak is %d consecutive days.\"\n", facts.Streak)
	b.WriteString("2. Recent mood: mention the latest mood, emotion, activity and description\n")
	b.WriteString("3. \"Your average mood is X.\" \"Your most common emotion was X.\" Use the values above.\n")
	fmt.Fprintf(&b, "4. \"You logged %d times.\"\n", facts.LogCount)
	b.WriteString("5. Best week: use the data above or skip if none\n")
	fmt.Fprintf(&b, "6. \"You connected with %d of your %d connection(s) this week.\" Who they said hi to most, connection levels\n",
		facts.ConnectionsThisWeek, facts.TotalConnections)
	b.WriteString("7. Reach-out nudge if applicable\n\n")
	b.WriteString("Second person. Never invent data.")

	return b.String()
}

func formatBestWeek(w *wellbeing.BestWeek) string {
	if w == nil {
		return "Not enough data (need at least 1 mood log)"
	}
	label := w.WeekStart
	if t, err := wellbeing.ParseDayKey(w.WeekStart); err == nil {
		label = t.Format("Jan 2, 2006")
	}
	return fmt.Sprintf("Week of %s: avg mood %.1f/5 (%d logs)", label, w.Average, w.Count)
}
