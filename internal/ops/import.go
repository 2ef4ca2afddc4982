package ops

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"

	"github.com/heartsync/heartsync/internal/config"
	"github.com/heartsync/heartsync/internal/db"
	"github.com/heartsync/heartsync/internal/errors"
	"github.com/heartsync/heartsync/internal/wellbeing"
)

// ImportMode controls collision behavior during import.
type ImportMode string

const (
	ImportModeError   ImportMode = "error"   // fail on any collision or bad line, nothing written
	ImportModeReplace ImportMode = "replace" // overwrite collisions, skip bad lines
)

// maxBackupLine bounds one JSONL line; a contact photo alone may be 1 MiB.
const maxBackupLine = 4 << 20

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	UserID string
	Path   string     // required
	Mode   ImportMode // default: error
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	Errors   []ImportError `json:"errors"`
}

// ImportError describes one line that was not imported.
type ImportError struct {
	Line    int    `json:"line"`
	Key     string `json:"key,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// backupLine is a parsed data line and where it came from.
type backupLine struct {
	line   int
	record BackupRecord
}

func (b backupLine) key() string {
	if b.record.Mood != nil {
		return b.record.Mood.Date
	}
	return b.record.Contact.ID
}

// errCollision aborts the error-mode transaction.
var errCollision = stderrors.New("import collision")

// Import restores mood logs and contacts from a backup written by Export
// into userID's store. The backup's own user is irrelevant: data lands
// under the importing user.
func Import(ctx context.Context, database *sql.DB, clock wellbeing.Clock, cfg *config.Config, input ImportInput) (*ImportOutput, error) {
	userID, err := requireUser(input.UserID)
	if err != nil {
		return nil, err
	}
	if input.Mode == "" {
		input.Mode = ImportModeError
	}
	if input.Mode != ImportModeError && input.Mode != ImportModeReplace {
		return nil, errors.NewInvalidRequest("mode must be one of: error, replace")
	}
	if err := ValidatePath(input.Path, PathCheckRead, cfg); err != nil {
		return nil, err
	}

	file, err := openFileNoFollowRead(input.Path)
	if err != nil {
		if errors.Is(err, errors.ErrInvalidRequest) || errors.Is(err, errors.ErrNotFound) {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open import file: %w", err))
	}
	defer file.Close()

	lines, parseErrors := parseBackup(file)
	now := clock.Now().Unix()

	if input.Mode == ImportModeError {
		if len(parseErrors) > 0 {
			return &ImportOutput{Errors: parseErrors}, nil
		}
		return importAtomic(ctx, database, userID, lines, now)
	}
	return importReplace(ctx, database, userID, lines, parseErrors, now)
}

// parseBackup reads every line, normalizing and validating records. Lines
// that cannot be restored are reported rather than returned.
func parseBackup(r io.Reader) ([]backupLine, []ImportError) {
	var lines []backupLine
	var problems []ImportError

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxBackupLine)
	n := 0
	for scanner.Scan() {
		n++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var header BackupHeader
		if err := json.Unmarshal(raw, &header); err == nil && header.HeartSyncExport {
			continue
		}

		var rec BackupRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			problems = append(problems, ImportError{Line: n, Code: "PARSE_ERROR", Message: fmt.Sprintf("invalid JSON: %v", err)})
			continue
		}
		if err := checkRecord(&rec); err != nil {
			hErr := errors.As(err)
			problems = append(problems, ImportError{Line: n, Code: string(hErr.Code), Message: hErr.Message})
			continue
		}
		lines = append(lines, backupLine{line: n, record: rec})
	}
	if err := scanner.Err(); err != nil {
		problems = append(problems, ImportError{Line: n + 1, Code: "READ_ERROR", Message: fmt.Sprintf("failed to read file: %v", err)})
	}
	return lines, problems
}

// checkRecord applies the same rules a live write would.
func checkRecord(rec *BackupRecord) error {
	switch rec.Kind {
	case RecordKindMood:
		if rec.Mood == nil {
			return errors.NewInvalidRequest("mood record has no mood")
		}
		wellbeing.NormalizeMoodLog(rec.Mood)
		return wellbeing.ValidateMoodLog(*rec.Mood)
	case RecordKindContact:
		c := rec.Contact
		if c == nil {
			return errors.NewInvalidRequest("contact record has no contact")
		}
		if _, err := requireID(c.ID); err != nil {
			return err
		}
		wellbeing.NormalizeContact(c)
		if err := wellbeing.ValidateContact(*c); err != nil {
			return err
		}
		for _, day := range c.Interactions {
			if !wellbeing.ValidDayKey(day) {
				return errors.NewValidationFailure("interaction_dates", fmt.Sprintf("must be YYYY-MM-DD, got %q", day))
			}
		}
		return nil
	default:
		return errors.NewInvalidRequest(fmt.Sprintf("unknown record kind %q", rec.Kind))
	}
}

// importAtomic writes every line in one transaction. The first collision
// rolls everything back.
func importAtomic(ctx context.Context, database *sql.DB, userID string, lines []backupLine, now int64) (*ImportOutput, error) {
	var collision *ImportError
	err := db.WithTx(ctx, database, func(tx *sql.Tx) error {
		for _, l := range lines {
			exists, err := recordExists(ctx, tx, userID, l.record)
			if err != nil {
				return err
			}
			if exists {
				collision = &ImportError{
					Line:    l.line,
					Key:     l.key(),
					Code:    string(errors.ErrConflict),
					Message: fmt.Sprintf("%s %q already exists", l.record.Kind, l.key()),
				}
				return errCollision
			}
			if err := restoreRecord(ctx, tx, userID, l.record, now); err != nil {
				return err
			}
		}
		return nil
	})
	if stderrors.Is(err, errCollision) {
		return &ImportOutput{Errors: []ImportError{*collision}}, nil
	}
	if err != nil {
		return nil, err
	}
	return &ImportOutput{Imported: len(lines), Errors: []ImportError{}}, nil
}

// importReplace writes each line in its own transaction, overwriting
// existing moods for the same day and contacts with the same id.
func importReplace(ctx context.Context, database *sql.DB, userID string, lines []backupLine, parseErrors []ImportError, now int64) (*ImportOutput, error) {
	out := &ImportOutput{Skipped: len(parseErrors), Errors: append([]ImportError{}, parseErrors...)}
	for _, l := range lines {
		err := db.WithTx(ctx, database, func(tx *sql.Tx) error {
			if l.record.Kind == RecordKindContact {
				err := db.DeleteContact(ctx, tx, userID, l.record.Contact.ID)
				if err != nil && !errors.Is(err, errors.ErrNotFound) {
					return err
				}
			}
			return restoreRecord(ctx, tx, userID, l.record, now)
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			hErr := errors.As(err)
			if hErr.Code == errors.ErrInternal || hErr.Code == errors.ErrNetworkFailure {
				return nil, err
			}
			out.Errors = append(out.Errors, ImportError{Line: l.line, Key: l.key(), Code: string(hErr.Code), Message: hErr.Message})
			out.Skipped++
			continue
		}
		out.Imported++
	}
	return out, nil
}

func recordExists(ctx context.Context, q db.Querier, userID string, rec BackupRecord) (bool, error) {
	var err error
	if rec.Kind == RecordKindMood {
		_, err = db.GetMoodLog(ctx, q, userID, rec.Mood.Date)
	} else {
		_, err = db.GetContact(ctx, q, userID, rec.Contact.ID)
	}
	if errors.Is(err, errors.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// restoreRecord inserts one record as it appears in the backup. Missing
// timestamps are filled with now.
func restoreRecord(ctx context.Context, q db.Querier, userID string, rec BackupRecord, now int64) error {
	if rec.Kind == RecordKindMood {
		l := *rec.Mood
		if l.UpdatedAt == 0 {
			l.UpdatedAt = now
		}
		return db.UpsertMoodLog(ctx, q, userID, &l)
	}

	c := *rec.Contact
	if c.CreatedAt == 0 {
		c.CreatedAt = now
	}
	if c.UpdatedAt == 0 {
		c.UpdatedAt = c.CreatedAt
	}
	if err := db.InsertContact(ctx, q, userID, &c); err != nil {
		return err
	}
	for _, day := range c.Interactions {
		if _, err := db.InsertInteraction(ctx, q, userID, c.ID, day, now); err != nil {
			return err
		}
	}
	return nil
}
