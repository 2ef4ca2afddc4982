package ops

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/heartsync/heartsync/internal/errors"
	"github.com/heartsync/heartsync/internal/wellbeing"
)

// DeleteOutput contains the result of a delete operation.
type DeleteOutput struct {
	Key     string `json:"key"`
	Deleted bool   `json:"deleted"`
}

// requireUser trims userID and rejects it when empty. Every store row is
// partitioned by it.
func requireUser(userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", errors.NewUnauthenticated()
	}
	return userID, nil
}

// requireDayKey validates a day key taken from a path or argument.
func requireDayKey(day string) (string, error) {
	day = strings.TrimSpace(day)
	if !wellbeing.ValidDayKey(day) {
		return "", errors.NewInvalidRequest(fmt.Sprintf("date must be YYYY-MM-DD, got %q", day))
	}
	return day, nil
}

// requireID rejects an empty contact id.
func requireID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errors.NewInvalidRequest("id is required")
	}
	return id, nil
}

// generateULID generates a new ULID stamped with now.
func generateULID(now time.Time) (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(now), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
