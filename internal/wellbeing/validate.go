package wellbeing

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/heartsync/heartsync/internal/errors"
)

// whitespaceRegex matches one or more whitespace characters
var whitespaceRegex = regexp.MustCompile(`\s+`)

// CleanLabel trims a short single-line field and collapses internal whitespace.
func CleanLabel(s string) string {
	return whitespaceRegex.ReplaceAllString(strings.TrimSpace(s), " ")
}

// CountChars returns the character count as runes (not bytes).
func CountChars(text string) int {
	return utf8.RuneCountInString(text)
}

// NormalizeMoodLog trims text fields in place before validation.
func NormalizeMoodLog(l *MoodLog) {
	l.Date = strings.TrimSpace(l.Date)
	l.Emotion = CleanLabel(l.Emotion)
	l.Activity = strings.TrimSpace(l.Activity)
	l.Description = strings.TrimSpace(l.Description)
}

// ValidateMoodLog rejects a log that must not be persisted.
func ValidateMoodLog(l MoodLog) error {
	if !ValidDayKey(l.Date) {
		return errors.NewValidationFailure("date", fmt.Sprintf("must be YYYY-MM-DD, got %q", l.Date))
	}
	if l.Mood < MinMood || l.Mood > MaxMood {
		return errors.NewValidationFailure("mood", fmt.Sprintf("must be between %d and %d, got %d", MinMood, MaxMood, l.Mood))
	}
	if err := maxChars("emotion", l.Emotion, MaxEmotionChars); err != nil {
		return err
	}
	if err := maxChars("activity", l.Activity, MaxActivityChars); err != nil {
		return err
	}
	return maxChars("description", l.Description, MaxDescriptionChars)
}

// NormalizeContact trims text fields in place before validation.
func NormalizeContact(c *Contact) {
	c.Name = CleanLabel(c.Name)
	c.Relation = CleanLabel(c.Relation)
	c.Photo = strings.TrimSpace(c.Photo)
}

// ValidateContact rejects a contact that must not be persisted.
func ValidateContact(c Contact) error {
	if c.Name == "" {
		return errors.NewValidationFailure("name", "must not be empty")
	}
	if err := maxChars("name", c.Name, MaxNameChars); err != nil {
		return err
	}
	if err := maxChars("relation", c.Relation, MaxRelationChars); err != nil {
		return err
	}
	if err := ValidateConnectionLevel(c.ConnectionLevel); err != nil {
		return err
	}
	if len(c.Photo) > MaxPhotoBytes {
		return errors.NewValidationFailure("photo", fmt.Sprintf("exceeds %d bytes", MaxPhotoBytes))
	}
	return nil
}

// ValidateConnectionLevel checks the 1-10 range.
func ValidateConnectionLevel(level int) error {
	if level < MinConnectionLevel || level > MaxConnectionLevel {
		return errors.NewValidationFailure("connection_level",
			fmt.Sprintf("must be between %d and %d, got %d", MinConnectionLevel, MaxConnectionLevel, level))
	}
	return nil
}

func maxChars(field, value string, limit int) error {
	if n := CountChars(value); n > limit {
		return errors.NewValidationFailure(field, fmt.Sprintf("exceeds %d characters (got %d)", limit, n))
	}
	return nil
}
