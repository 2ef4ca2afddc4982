package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/heartsync/heartsync/internal/config"
	"github.com/heartsync/heartsync/internal/db"
	"github.com/heartsync/heartsync/internal/ops"
	"github.com/heartsync/heartsync/internal/summary"
	"github.com/heartsync/heartsync/internal/wellbeing"
)

// setupTestEnv creates a temporary database and a clock fixed at
// 2024-01-05 18:00 UTC.
func setupTestEnv(t *testing.T) *appEnv {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("failed to init test db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return &appEnv{
		db:    database,
		cfg:   config.DefaultConfig(),
		clock: wellbeing.FixedClock(time.Date(2024, 1, 5, 18, 0, 0, 0, time.UTC), time.UTC),
	}
}

// runCLI runs the app with args and returns what it wrote to stdout and stderr.
func runCLI(t *testing.T, env *appEnv, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := newCLIApp(env)
	app.Writer = &stdout
	app.ErrWriter = &stderr
	err := app.Run(append([]string{"heartsync"}, args...))
	return stdout.String(), stderr.String(), err
}

// mustRun runs the app and fails the test on error.
func mustRun(t *testing.T, env *appEnv, args ...string) string {
	t.Helper()
	stdout, stderr, err := runCLI(t, env, args...)
	if err != nil {
		t.Fatalf("%v failed: %v (stderr %s)", args, err, stderr)
	}
	return stdout
}

func decodeJSON(t *testing.T, s string, v any) {
	t.Helper()
	if err := json.Unmarshal([]byte(s), v); err != nil {
		t.Fatalf("failed to parse output %q: %v", s, err)
	}
}

func expectErrorCode(t *testing.T, stderr string, code string) {
	t.Helper()
	var payload struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
			Status  int    `json:"status"`
		} `json:"error"`
	}
	decodeJSON(t, stderr, &payload)
	if payload.Error.Code != code || payload.Error.Status == 0 {
		t.Errorf("error = %+v, want code %s", payload.Error, code)
	}
}

// TestCLIMood tests the mood command group.
func TestCLIMood(t *testing.T) {
	env := setupTestEnv(t)

	out := mustRun(t, env, "--user", "u", "mood", "log", "--mood", "4", "--emotion", "Calm")
	var logged wellbeing.MoodLog
	decodeJSON(t, out, &logged)
	if logged.Date != "2024-01-05" || logged.Mood != 4 {
		t.Errorf("mood log = %+v", logged)
	}

	mustRun(t, env, "--user", "u", "mood", "log", "--mood", "2", "--date", "2024-01-04")

	out = mustRun(t, env, "--user", "u", "mood", "get")
	var today wellbeing.MoodLog
	decodeJSON(t, out, &today)
	if today.Emotion != "Calm" {
		t.Errorf("mood get = %+v", today)
	}

	out = mustRun(t, env, "--user", "u", "mood", "today")
	var todayOut ops.TodayOutput
	decodeJSON(t, out, &todayOut)
	if !todayOut.Logged || todayOut.Date != "2024-01-05" {
		t.Errorf("mood today = %+v", todayOut)
	}

	out = mustRun(t, env, "--user", "u", "mood", "list", "--to", "2024-01-04")
	var list struct {
		Total int `json:"total"`
	}
	decodeJSON(t, out, &list)
	if list.Total != 1 {
		t.Errorf("Total = %d, want 1", list.Total)
	}

	mustRun(t, env, "--user", "u", "mood", "delete", "2024-01-04")
	_, stderr, err := runCLI(t, env, "--user", "u", "mood", "get", "2024-01-04")
	if err == nil {
		t.Fatal("expected error for deleted log")
	}
	expectErrorCode(t, stderr, "NOT_FOUND")
}

func TestCLIMood_Errors(t *testing.T) {
	env := setupTestEnv(t)

	_, stderr, err := runCLI(t, env, "--user", "u", "mood", "log", "--mood", "7")
	if err == nil {
		t.Fatal("expected validation error")
	}
	expectErrorCode(t, stderr, "VALIDATION_FAILURE")

	t.Setenv("HEARTSYNC_USER", "")
	_, stderr, err = runCLI(t, env, "mood", "log", "--mood", "3")
	if err == nil {
		t.Fatal("expected error without a user")
	}
	expectErrorCode(t, stderr, "UNAUTHENTICATED")

	_, stderr, err = runCLI(t, env, "--user", "u", "mood", "delete")
	if err == nil {
		t.Fatal("expected error without a date")
	}
	expectErrorCode(t, stderr, "INVALID_REQUEST")
}

func TestCLIUserFromEnv(t *testing.T) {
	env := setupTestEnv(t)
	t.Setenv("HEARTSYNC_USER", "env-user")

	mustRun(t, env, "mood", "log", "--mood", "3")

	out := mustRun(t, env, "--user", "env-user", "mood", "list")
	var list struct {
		Total int `json:"total"`
	}
	decodeJSON(t, out, &list)
	if list.Total != 1 {
		t.Errorf("Total = %d, want 1", list.Total)
	}
}

// TestCLIContact tests the contact command group, including check-in.
func TestCLIContact(t *testing.T) {
	env := setupTestEnv(t)

	out := mustRun(t, env, "--user", "u", "contact", "add", "--name", "Ana", "--relation", "Sister", "--level", "8")
	var added wellbeing.Contact
	decodeJSON(t, out, &added)
	if added.ID == "" || added.ConnectionLevel != 8 {
		t.Fatalf("contact add = %+v", added)
	}

	out = mustRun(t, env, "--user", "u", "contact", "update", "--level", "6", added.ID)
	var updated wellbeing.Contact
	decodeJSON(t, out, &updated)
	if updated.ConnectionLevel != 6 || updated.Relation != "Sister" {
		t.Errorf("contact update = %+v", updated)
	}

	out = mustRun(t, env, "--user", "u", "contact", "checkin", added.ID)
	var toggled struct {
		CheckedIn bool `json:"checked_in"`
	}
	decodeJSON(t, out, &toggled)
	if !toggled.CheckedIn {
		t.Error("expected check-in")
	}

	out = mustRun(t, env, "--user", "u", "contact", "get", added.ID)
	var got wellbeing.Contact
	decodeJSON(t, out, &got)
	if len(got.Interactions) != 1 {
		t.Errorf("Interactions = %v", got.Interactions)
	}

	out = mustRun(t, env, "--user", "u", "contact", "list")
	var list struct {
		Total int `json:"total"`
	}
	decodeJSON(t, out, &list)
	if list.Total != 1 {
		t.Errorf("Total = %d, want 1", list.Total)
	}

	mustRun(t, env, "--user", "u", "contact", "delete", added.ID)
	_, stderr, err := runCLI(t, env, "--user", "u", "contact", "get", added.ID)
	if err == nil {
		t.Fatal("expected error for deleted contact")
	}
	expectErrorCode(t, stderr, "NOT_FOUND")
}

func TestCLIContactUpdate_NoFlags(t *testing.T) {
	env := setupTestEnv(t)

	_, stderr, err := runCLI(t, env, "--user", "u", "contact", "update", "some-id")
	if err == nil {
		t.Fatal("expected error for empty update")
	}
	expectErrorCode(t, stderr, "INVALID_REQUEST")
}

func TestCLIStats(t *testing.T) {
	env := setupTestEnv(t)

	for _, day := range []string{"2024-01-03", "2024-01-04", "2024-01-05"} {
		mustRun(t, env, "--user", "u", "mood", "log", "--mood", "5", "--date", day)
	}

	out := mustRun(t, env, "--user", "u", "stats")
	var stats wellbeing.Stats
	decodeJSON(t, out, &stats)
	if stats.Streak != 3 || stats.TotalLogs != 3 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestCLISummary(t *testing.T) {
	env := setupTestEnv(t)
	env.completer = summary.CompleterFunc(func(_ context.Context, prompt string, _ int) (string, error) {
		if !strings.Contains(prompt, "TOTAL LOG COUNT: 1") {
			t.Errorf("unexpected prompt:\n%s", prompt)
		}
		return "You logged **1** time.", nil
	})

	mustRun(t, env, "--user", "u", "mood", "log", "--mood", "4")

	out := mustRun(t, env, "--user", "u", "summary")
	var resp summary.Response
	decodeJSON(t, out, &resp)
	if resp.Summary != "You logged **1** time." {
		t.Errorf("summary = %q", resp.Summary)
	}

	out = mustRun(t, env, "--user", "u", "summary", "--html")
	if !strings.Contains(out, "<strong>1</strong>") {
		t.Errorf("html output = %q", out)
	}
}

func TestCLISummary_NoCompleter(t *testing.T) {
	env := setupTestEnv(t)

	_, stderr, err := runCLI(t, env, "--user", "u", "summary")
	if err == nil {
		t.Fatal("expected error without a completion service")
	}
	expectErrorCode(t, stderr, "SUMMARY_UNAVAILABLE")
}

func TestCLIExportImport(t *testing.T) {
	env := setupTestEnv(t)
	dir := t.TempDir()
	env.cfg.AllowedPaths = []string{dir}
	path := filepath.Join(dir, "backup.jsonl")

	mustRun(t, env, "--user", "u", "mood", "log", "--mood", "4")
	mustRun(t, env, "--user", "u", "contact", "add", "--name", "Ana")

	out := mustRun(t, env, "--user", "u", "export", "--path", path)
	var exported struct {
		Moods    int `json:"moods"`
		Contacts int `json:"contacts"`
	}
	decodeJSON(t, out, &exported)
	if exported.Moods != 1 || exported.Contacts != 1 {
		t.Errorf("export = %s", out)
	}

	out = mustRun(t, env, "--user", "v", "import", path)
	var imported struct {
		Imported int `json:"imported"`
	}
	decodeJSON(t, out, &imported)
	if imported.Imported != 2 {
		t.Errorf("import = %s", out)
	}

	out = mustRun(t, env, "--user", "v", "import", "--mode", "replace", path)
	decodeJSON(t, out, &imported)
	if imported.Imported != 2 {
		t.Errorf("replace import = %s", out)
	}

	_, stderr, err := runCLI(t, env, "--user", "v", "import")
	if err == nil {
		t.Fatal("expected error without a path")
	}
	expectErrorCode(t, stderr, "INVALID_REQUEST")
}

func TestServe_RejectsBadPort(t *testing.T) {
	env := setupTestEnv(t)

	_, stderr, err := runCLI(t, env, "serve", "--port", "70000")
	if err == nil {
		t.Fatal("expected error for out-of-range port")
	}
	expectErrorCode(t, stderr, "INVALID_REQUEST")
}

func TestNewEnv(t *testing.T) {
	baseDir := t.TempDir()
	t.Setenv(config.EnvAPIKey, "")
	t.Setenv(config.EnvTimezone, "UTC")

	env, err := newEnv(baseDir)
	if err != nil {
		t.Fatalf("newEnv failed: %v", err)
	}
	defer env.db.Close()

	if env.completer != nil {
		t.Error("completer should be nil without an API key")
	}
	if env.clock.Location() != time.UTC {
		t.Errorf("Location = %v, want UTC", env.clock.Location())
	}
	if _, err := os.Stat(filepath.Join(baseDir, "heartsync.db")); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}

func TestNewEnv_WithAPIKey(t *testing.T) {
	t.Setenv(config.EnvAPIKey, "sk-test")

	env, err := newEnv(t.TempDir())
	if err != nil {
		t.Fatalf("newEnv failed: %v", err)
	}
	defer env.db.Close()

	if env.completer == nil {
		t.Error("completer should be set when an API key is present")
	}
}

func TestIsHelpOrVersion(t *testing.T) {
	tests := []struct {
		args []string
		want bool
	}{
		{[]string{"heartsync"}, true},
		{[]string{"heartsync", "--help"}, true},
		{[]string{"heartsync", "-v"}, true},
		{[]string{"heartsync", "help"}, true},
		{[]string{"heartsync", "stats"}, false},
		{[]string{"heartsync", "--user", "u", "stats"}, false},
	}
	for _, tt := range tests {
		if got := isHelpOrVersion(tt.args); got != tt.want {
			t.Errorf("isHelpOrVersion(%v) = %v, want %v", tt.args, got, tt.want)
		}
	}
}
