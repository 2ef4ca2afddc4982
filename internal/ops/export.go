package ops

import (
	"bufio"
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/heartsync/heartsync/internal/config"
	"github.com/heartsync/heartsync/internal/db"
	"github.com/heartsync/heartsync/internal/errors"
	"github.com/heartsync/heartsync/internal/wellbeing"
)

// BackupSchemaVersion is written into every backup header.
const BackupSchemaVersion = "1"

// Backup record kinds.
const (
	RecordKindMood    = "mood"
	RecordKindContact = "contact"
)

// BackupHeader is the first line of a backup file.
type BackupHeader struct {
	HeartSyncExport bool   `json:"_heartsync_export"`
	SchemaVersion   string `json:"schema_version"`
	ExportedAt      int64  `json:"exported_at"`
}

// BackupRecord is one data line of a backup file. Exactly one of Mood and
// Contact is set, matching Kind. Contacts carry their check-in dates.
type BackupRecord struct {
	Kind    string             `json:"kind"`
	Mood    *wellbeing.MoodLog `json:"mood,omitempty"`
	Contact *wellbeing.Contact `json:"contact,omitempty"`
}

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	UserID string
	Path   string // optional, default: ~/.heartsync/exports/<user>-<timestamp>.jsonl
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string `json:"path"`
	Moods      int    `json:"moods"`
	Contacts   int    `json:"contacts"`
	ExportedAt int64  `json:"exported_at"`
}

// Export writes all of a user's mood logs and contacts to a JSONL backup.
// The file is written beside the destination and renamed into place, so an
// existing backup survives a failed export.
func Export(ctx context.Context, database *sql.DB, clock wellbeing.Clock, cfg *config.Config, input ExportInput) (*ExportOutput, error) {
	userID, err := requireUser(input.UserID)
	if err != nil {
		return nil, err
	}

	now := clock.Now()
	path := input.Path
	if path == "" {
		path, err = defaultExportPath(userID, now)
		if err != nil {
			return nil, err
		}
	}
	// Default paths are checked too: they embed the user id.
	if err := ValidatePath(path, PathCheckWrite, cfg); err != nil {
		return nil, err
	}

	// One read transaction gives a consistent snapshot of both tables.
	var logs []wellbeing.MoodLog
	var contacts []wellbeing.Contact
	err = db.WithTx(ctx, database, func(tx *sql.Tx) error {
		var err error
		if logs, err = db.ListMoodLogs(ctx, tx, userID); err != nil {
			return err
		}
		contacts, err = db.ListContacts(ctx, tx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	records := make([]any, 0, len(logs)+len(contacts)+1)
	records = append(records, BackupHeader{
		HeartSyncExport: true,
		SchemaVersion:   BackupSchemaVersion,
		ExportedAt:      now.Unix(),
	})
	for i := range logs {
		records = append(records, BackupRecord{Kind: RecordKindMood, Mood: &logs[i]})
	}
	for i := range contacts {
		if contacts[i].Interactions == nil {
			contacts[i].Interactions = []string{}
		}
		records = append(records, BackupRecord{Kind: RecordKindContact, Contact: &contacts[i]})
	}

	if err := writeJSONLAtomic(ctx, path, records); err != nil {
		return nil, err
	}

	return &ExportOutput{
		Path:       path,
		Moods:      len(logs),
		Contacts:   len(contacts),
		ExportedAt: now.Unix(),
	}, nil
}

// writeJSONLAtomic writes one JSON value per line to a temp file next to
// path and renames it over path.
func writeJSONLAtomic(ctx context.Context, path string, values []any) error {
	suffix := make([]byte, 8)
	if _, err := rand.Read(suffix); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := path + "." + hex.EncodeToString(suffix) + ".tmp"

	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		if errors.Is(err, errors.ErrInvalidRequest) {
			return err
		}
		return errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}
	done := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !done {
			os.Remove(tempPath)
		}
	}()

	w := bufio.NewWriter(file)
	enc := json.NewEncoder(w)
	for _, v := range values {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := enc.Encode(v); err != nil {
			return errors.NewInternal(err)
		}
	}
	if err := w.Flush(); err != nil {
		return errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		return errors.NewInternal(err)
	}
	if err := file.Close(); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	// os.Rename would follow a symlink planted after validation.
	if isSymlink(path) {
		return errors.NewInvalidRequest("path must not be a symlink")
	}
	if err := os.Rename(tempPath, path); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(path); statErr == nil {
				return errors.NewInvalidRequest("export destination already exists; choose a new path or delete the existing file")
			}
		}
		return errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}
	done = true
	return nil
}

// defaultExportPath returns ~/.heartsync/exports/<user>-<timestamp>.jsonl.
func defaultExportPath(userID string, now time.Time) (string, error) {
	dir, err := DefaultExportsDir()
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s-%s.jsonl", SanitizeForFilename(userID), now.UTC().Format("2006-01-02T150405"))
	return filepath.Join(dir, name), nil
}
