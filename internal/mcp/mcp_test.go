package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/heartsync/heartsync/internal/config"
	"github.com/heartsync/heartsync/internal/db"
	"github.com/heartsync/heartsync/internal/errors"
	"github.com/heartsync/heartsync/internal/summary"
	"github.com/heartsync/heartsync/internal/wellbeing"
)

var testClock = wellbeing.FixedClock(time.Date(2024, 1, 5, 18, 0, 0, 0, time.UTC), time.UTC)

// testSetup creates a temporary database and config for testing.
func testSetup(t *testing.T) (*sql.DB, *config.Config) {
	t.Helper()

	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("failed to init db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	return database, config.DefaultConfig()
}

func testHandlers(t *testing.T, completer summary.Completer) *Handlers {
	t.Helper()
	database, cfg := testSetup(t)
	return NewHandlers(database, cfg, testClock, completer)
}

// makeRequest creates a CallToolRequest with the given arguments.
func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func TestHandleMoodLog(t *testing.T) {
	h := testHandlers(t, nil)
	ctx := context.Background()

	tests := []struct {
		name      string
		args      map[string]any
		wantError string
	}{
		{
			name: "defaults to today",
			args: map[string]any{"user_id": "u", "mood": float64(4), "emotion": "Calm"},
		},
		{
			name: "explicit date",
			args: map[string]any{"user_id": "u", "mood": float64(2), "date": "2024-01-02"},
		},
		{
			name:      "missing user",
			args:      map[string]any{"mood": float64(3)},
			wantError: "UNAUTHENTICATED",
		},
		{
			name:      "mood out of range",
			args:      map[string]any{"user_id": "u", "mood": float64(9)},
			wantError: "VALIDATION_FAILURE",
		},
		{
			name:      "fractional mood",
			args:      map[string]any{"user_id": "u", "mood": 3.5},
			wantError: "INVALID_REQUEST",
		},
		{
			name:      "unknown argument",
			args:      map[string]any{"user_id": "u", "mood": float64(3), "score": float64(3)},
			wantError: "INVALID_REQUEST",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := h.HandleMoodLog(ctx, makeRequest(tt.args))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantError != "" {
				assertErrorCode(t, result, tt.wantError)
				return
			}
			output := parseOutput(t, result)
			if output["date"] == "" {
				t.Error("expected a date in output")
			}
		})
	}

	result, _ := h.HandleMoodGet(ctx, makeRequest(map[string]any{"user_id": "u", "date": "2024-01-05"}))
	output := parseOutput(t, result)
	if output["mood"] != float64(4) || output["emotion"] != "Calm" {
		t.Errorf("mood_get = %v", output)
	}
}

func TestHandleMoodListAndDelete(t *testing.T) {
	h := testHandlers(t, nil)
	ctx := context.Background()

	for _, day := range []string{"2024-01-01", "2024-01-02", "2024-01-03"} {
		result, _ := h.HandleMoodLog(ctx, makeRequest(map[string]any{"user_id": "u", "mood": float64(3), "date": day}))
		parseOutput(t, result)
	}

	result, _ := h.HandleMoodList(ctx, makeRequest(map[string]any{"user_id": "u", "from": "2024-01-02"}))
	output := parseOutput(t, result)
	if output["total"] != float64(2) {
		t.Errorf("total = %v, want 2", output["total"])
	}

	result, _ = h.HandleMoodDelete(ctx, makeRequest(map[string]any{"user_id": "u", "date": "2024-01-02"}))
	output = parseOutput(t, result)
	if output["deleted"] != true {
		t.Errorf("mood_delete = %v", output)
	}

	result, _ = h.HandleMoodGet(ctx, makeRequest(map[string]any{"user_id": "u", "date": "2024-01-02"}))
	assertErrorCode(t, result, "NOT_FOUND")

	result, _ = h.HandleMoodList(ctx, makeRequest(map[string]any{"user_id": "u", "from": "2024-01-03", "to": "2024-01-01"}))
	assertErrorCode(t, result, "INVALID_REQUEST")
}

func TestHandleContactLifecycle(t *testing.T) {
	h := testHandlers(t, nil)
	ctx := context.Background()

	result, _ := h.HandleContactAdd(ctx, makeRequest(map[string]any{
		"user_id": "u", "name": "Ana", "relation": "Sister", "connection_level": float64(7),
	}))
	added := parseOutput(t, result)
	id, _ := added["id"].(string)
	if id == "" || added["connection_level"] != float64(7) {
		t.Fatalf("contact_add = %v", added)
	}

	result, _ = h.HandleContactUpdate(ctx, makeRequest(map[string]any{"user_id": "u", "id": id, "relation": "Cousin"}))
	updated := parseOutput(t, result)
	if updated["relation"] != "Cousin" || updated["name"] != "Ana" {
		t.Errorf("contact_update = %v", updated)
	}

	result, _ = h.HandleCheckinToggle(ctx, makeRequest(map[string]any{"user_id": "u", "contact_id": id}))
	toggled := parseOutput(t, result)
	if toggled["checked_in"] != true || toggled["date"] != "2024-01-05" {
		t.Errorf("checkin_toggle = %v", toggled)
	}

	result, _ = h.HandleContactGet(ctx, makeRequest(map[string]any{"user_id": "u", "id": id}))
	got := parseOutput(t, result)
	dates, _ := got["interaction_dates"].([]any)
	if len(dates) != 1 || dates[0] != "2024-01-05" {
		t.Errorf("interaction_dates = %v", got["interaction_dates"])
	}

	result, _ = h.HandleContactList(ctx, makeRequest(map[string]any{"user_id": "u"}))
	if parseOutput(t, result)["total"] != float64(1) {
		t.Error("expected one contact")
	}

	result, _ = h.HandleContactDelete(ctx, makeRequest(map[string]any{"user_id": "u", "id": id}))
	parseOutput(t, result)

	result, _ = h.HandleCheckinToggle(ctx, makeRequest(map[string]any{"user_id": "u", "contact_id": id}))
	assertErrorCode(t, result, "NOT_FOUND")
}

func TestHandleContactAdd_Validation(t *testing.T) {
	h := testHandlers(t, nil)
	ctx := context.Background()

	result, _ := h.HandleContactAdd(ctx, makeRequest(map[string]any{"user_id": "u", "name": " "}))
	assertErrorCode(t, result, "VALIDATION_FAILURE")

	result, _ = h.HandleContactAdd(ctx, makeRequest(map[string]any{"user_id": "u", "name": "A", "connection_level": float64(0)}))
	assertErrorCode(t, result, "VALIDATION_FAILURE")

	result, _ = h.HandleContactUpdate(ctx, makeRequest(map[string]any{"user_id": "u", "id": "x"}))
	assertErrorCode(t, result, "INVALID_REQUEST")
}

func TestHandleStatsCompute(t *testing.T) {
	h := testHandlers(t, nil)
	ctx := context.Background()

	for _, day := range []string{"2024-01-04", "2024-01-05"} {
		result, _ := h.HandleMoodLog(ctx, makeRequest(map[string]any{"user_id": "u", "mood": float64(4), "date": day}))
		parseOutput(t, result)
	}

	result, err := h.HandleStatsCompute(ctx, makeRequest(map[string]any{"user_id": "u"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	output := parseOutput(t, result)
	if output["streak"] != float64(2) || output["average_mood"] != float64(4) {
		t.Errorf("stats_compute = %v", output)
	}

	result, _ = h.HandleStatsCompute(ctx, makeRequest(map[string]any{}))
	assertErrorCode(t, result, "UNAUTHENTICATED")
}

func TestHandleBackupExportImport(t *testing.T) {
	database, cfg := testSetup(t)
	dir := t.TempDir()
	cfg.AllowedPaths = []string{dir}
	h := NewHandlers(database, cfg, testClock, nil)
	ctx := context.Background()

	result, _ := h.HandleMoodLog(ctx, makeRequest(map[string]any{"user_id": "u", "mood": float64(3)}))
	parseOutput(t, result)

	path := filepath.Join(dir, "u.jsonl")
	result, err := h.HandleBackupExport(ctx, makeRequest(map[string]any{"user_id": "u", "path": path}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	output := parseOutput(t, result)
	if output["path"] != path || output["moods"] != float64(1) {
		t.Errorf("backup_export = %v", output)
	}

	result, _ = h.HandleBackupImport(ctx, makeRequest(map[string]any{"user_id": "v", "path": path}))
	output = parseOutput(t, result)
	if output["imported"] != float64(1) {
		t.Errorf("backup_import = %v", output)
	}

	// A second error-mode import collides and writes nothing.
	result, _ = h.HandleBackupImport(ctx, makeRequest(map[string]any{"user_id": "v", "path": path, "mode": "error"}))
	output = parseOutput(t, result)
	if errs, _ := output["errors"].([]any); output["imported"] != float64(0) || len(errs) != 1 {
		t.Errorf("colliding backup_import = %v", output)
	}

	result, _ = h.HandleBackupImport(ctx, makeRequest(map[string]any{"user_id": "v", "path": path, "mode": "rename"}))
	assertErrorCode(t, result, "INVALID_REQUEST")

	result, _ = h.HandleBackupExport(ctx, makeRequest(map[string]any{"user_id": "u", "path": "/tmp/outside.jsonl"}))
	assertErrorCode(t, result, "INVALID_REQUEST")
}

func TestHandleSummaryGenerate(t *testing.T) {
	var prompt string
	h := testHandlers(t, summary.CompleterFunc(func(_ context.Context, p string, _ int) (string, error) {
		prompt = p
		return "You logged 1 time.", nil
	}))
	ctx := context.Background()

	result, _ := h.HandleMoodLog(ctx, makeRequest(map[string]any{"user_id": "u", "mood": float64(5)}))
	parseOutput(t, result)

	result, _ = h.HandleSummaryGenerate(ctx, makeRequest(map[string]any{"user_id": "u"}))
	output := parseOutput(t, result)
	if output["summary"] != "You logged 1 time." {
		t.Errorf("summary = %v", output["summary"])
	}
	if !strings.Contains(prompt, "TOTAL LOG COUNT: 1") {
		t.Errorf("prompt missing log count:\n%s", prompt)
	}
}

func TestHandleSummaryGenerate_NoCompleter(t *testing.T) {
	h := testHandlers(t, nil)

	result, _ := h.HandleSummaryGenerate(context.Background(), makeRequest(map[string]any{"user_id": "u"}))
	assertErrorCode(t, result, "SUMMARY_UNAVAILABLE")
}

func TestServerRegistration(t *testing.T) {
	database, cfg := testSetup(t)

	s := NewServer(database, cfg, testClock, nil, "test")
	tools := s.ListTools()

	expectedTools := []string{
		"mood_log", "mood_get", "mood_list", "mood_delete",
		"contact_add", "contact_get", "contact_list", "contact_update", "contact_delete",
		"checkin_toggle",
		"stats_compute",
		"summary_generate",
		"backup_export", "backup_import",
	}

	if len(tools) != len(expectedTools) {
		t.Errorf("registered tool count = %d, want %d", len(tools), len(expectedTools))
	}
	for _, name := range expectedTools {
		if _, ok := tools[name]; !ok {
			t.Errorf("missing registered tool: %s", name)
		}
	}
}

func TestServerRegistration_WithDisabledTools(t *testing.T) {
	database, cfg := testSetup(t)

	cfg.DisabledTools = []string{"mood_delete", "contact_delete", "contact_delete", "no_such_tool"}
	s := NewServer(database, cfg, testClock, nil, "test")
	tools := s.ListTools()

	if len(tools) != 12 {
		t.Errorf("registered tool count = %d, want 12", len(tools))
	}
	for _, name := range []string{"mood_delete", "contact_delete"} {
		if _, ok := tools[name]; ok {
			t.Errorf("disabled tool %q should not be registered", name)
		}
	}
}

func TestServerRegistration_WithDisabledTypes(t *testing.T) {
	database, cfg := testSetup(t)

	cfg.DisabledTypes = []string{"contact", "summary"}
	s := NewServer(database, cfg, testClock, nil, "test")
	tools := s.ListTools()

	// 14 - 5 contact tools - 1 summary tool
	if len(tools) != 8 {
		t.Errorf("registered tool count = %d, want 8", len(tools))
	}
	for name := range tools {
		if typ := GetTypeForTool(name); typ == "contact" || typ == "summary" {
			t.Errorf("tool %q of a disabled type was registered", name)
		}
	}
}

func TestServerRegistration_AllToolsDisabled(t *testing.T) {
	database, cfg := testSetup(t)

	cfg.DisabledTools = AllToolNames()
	s := NewServer(database, cfg, testClock, nil, "test")

	if tools := s.ListTools(); len(tools) != 0 {
		t.Errorf("registered tool count = %d, want 0 (all disabled)", len(tools))
	}
}

func TestValidateDisabledTools(t *testing.T) {
	tests := []struct {
		name    string
		input   []string
		wantLen int
	}{
		{"all valid", []string{"mood_log", "stats_compute"}, 0},
		{"one unknown", []string{"mood_log", "fake_tool"}, 1},
		{"all unknown", []string{"foo", "bar", "baz"}, 3},
		{"empty list", []string{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if unknown := ValidateDisabledTools(tt.input); len(unknown) != tt.wantLen {
				t.Errorf("ValidateDisabledTools() returned %d unknown, want %d", len(unknown), tt.wantLen)
			}
		})
	}
}

func TestValidateDisabledTypes(t *testing.T) {
	if unknown := ValidateDisabledTypes([]string{"mood", "checkin", "journal"}); len(unknown) != 1 || unknown[0] != "journal" {
		t.Errorf("ValidateDisabledTypes() = %v, want [journal]", unknown)
	}
}

func TestAllToolNames(t *testing.T) {
	names := AllToolNames()
	if len(names) != 14 {
		t.Errorf("AllToolNames() returned %d names, want 14", len(names))
	}
	for _, name := range names {
		found := false
		for _, typ := range KnownTypes {
			if GetTypeForTool(name) == typ {
				found = true
			}
		}
		if !found {
			t.Errorf("tool %q has no known type", name)
		}
	}
}

func TestErrorResult_InternalDoesNotExposeDetails(t *testing.T) {
	r := errorResult(errors.NewInternal(fmt.Errorf("sql error: open /tmp/secret.db: permission denied")))
	if !r.IsError {
		t.Fatal("expected IsError=true")
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(r.Content[0].(mcp.TextContent).Text), &payload); err != nil {
		t.Fatalf("failed to unmarshal error payload: %v", err)
	}
	errObj := payload["error"].(map[string]any)

	if errObj["code"] != string(errors.ErrInternal) {
		t.Fatalf("code=%v, want %v", errObj["code"], errors.ErrInternal)
	}
	if _, ok := errObj["details"]; ok {
		t.Fatal("expected INTERNAL errors to omit details")
	}
}

func TestErrorResult_WrappedErrorKeepsCode(t *testing.T) {
	r := errorResult(fmt.Errorf("contacts[2]: %w", errors.NewNotFound("contact", "abc")))

	var payload map[string]any
	if err := json.Unmarshal([]byte(r.Content[0].(mcp.TextContent).Text), &payload); err != nil {
		t.Fatalf("failed to unmarshal error payload: %v", err)
	}
	errObj := payload["error"].(map[string]any)

	if errObj["code"] != string(errors.ErrNotFound) {
		t.Errorf("code=%v, want %v", errObj["code"], errors.ErrNotFound)
	}
	if _, ok := errObj["details"]; !ok {
		t.Error("expected non-INTERNAL errors to include details when present")
	}
}

// Helper functions

// parseOutput extracts and unmarshals the JSON output from an MCP result.
func parseOutput(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	if result.IsError {
		t.Fatalf("expected success, got error: %v", extractErrorMessage(result))
	}
	var output map[string]any
	if err := json.Unmarshal([]byte(result.Content[0].(mcp.TextContent).Text), &output); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return output
}

func assertErrorCode(t *testing.T, result *mcp.CallToolResult, expectedCode string) {
	t.Helper()

	if !result.IsError {
		t.Errorf("expected error %s, got success", expectedCode)
		return
	}
	if len(result.Content) == 0 {
		t.Errorf("no content in error result")
		return
	}

	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Errorf("content is not TextContent")
		return
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(text.Text), &payload); err != nil {
		t.Errorf("failed to unmarshal error payload: %v", err)
		return
	}

	errorObj, ok := payload["error"].(map[string]any)
	if !ok {
		t.Errorf("no error object in payload")
		return
	}

	if code, _ := errorObj["code"].(string); code != expectedCode {
		t.Errorf("got error code %q, want %q", code, expectedCode)
	}
}

func extractErrorMessage(result *mcp.CallToolResult) string {
	if len(result.Content) == 0 {
		return "<no content>"
	}

	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		return "<not text content>"
	}

	return text.Text
}
