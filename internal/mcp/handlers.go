package mcp

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/heartsync/heartsync/internal/config"
	"github.com/heartsync/heartsync/internal/errors"
	"github.com/heartsync/heartsync/internal/ops"
	"github.com/heartsync/heartsync/internal/summary"
	"github.com/heartsync/heartsync/internal/wellbeing"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db        *sql.DB
	cfg       *config.Config
	clock     wellbeing.Clock
	completer summary.Completer
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *sql.DB, cfg *config.Config, clock wellbeing.Clock, completer summary.Completer) *Handlers {
	return &Handlers{db: db, cfg: cfg, clock: clock, completer: completer}
}

// Request types for each tool

// UserRequest carries only the caller identity.
type UserRequest struct {
	UserID string `json:"user_id"`
}

// MoodLogRequest represents the arguments for mood_log.
type MoodLogRequest struct {
	UserID      string `json:"user_id"`
	Date        string `json:"date,omitempty"`
	Mood        int    `json:"mood"`
	Emotion     string `json:"emotion,omitempty"`
	Activity    string `json:"activity,omitempty"`
	Description string `json:"description,omitempty"`
}

// MoodDayRequest represents the arguments for mood_get and mood_delete.
type MoodDayRequest struct {
	UserID string `json:"user_id"`
	Date   string `json:"date"`
}

// MoodListRequest represents the arguments for mood_list.
type MoodListRequest struct {
	UserID string `json:"user_id"`
	From   string `json:"from,omitempty"`
	To     string `json:"to,omitempty"`
}

// ContactAddRequest represents the arguments for contact_add.
type ContactAddRequest struct {
	UserID          string `json:"user_id"`
	Name            string `json:"name"`
	Relation        string `json:"relation,omitempty"`
	ConnectionLevel *int   `json:"connection_level,omitempty"`
	Photo           string `json:"photo,omitempty"`
}

// ContactRequest represents the arguments for contact_get and contact_delete.
type ContactRequest struct {
	UserID string `json:"user_id"`
	ID     string `json:"id"`
}

// ContactUpdateRequest represents the arguments for contact_update.
type ContactUpdateRequest struct {
	UserID          string  `json:"user_id"`
	ID              string  `json:"id"`
	Name            *string `json:"name,omitempty"`
	Relation        *string `json:"relation,omitempty"`
	ConnectionLevel *int    `json:"connection_level,omitempty"`
	Photo           *string `json:"photo,omitempty"`
}

// CheckinToggleRequest represents the arguments for checkin_toggle.
type CheckinToggleRequest struct {
	UserID    string `json:"user_id"`
	ContactID string `json:"contact_id"`
}

// BackupExportRequest is the input for backup_export.
type BackupExportRequest struct {
	UserID string `json:"user_id"`
	Path   string `json:"path,omitempty"`
}

// BackupImportRequest is the input for backup_import.
type BackupImportRequest struct {
	UserID string `json:"user_id"`
	Path   string `json:"path"`
	Mode   string `json:"mode,omitempty"`
}

// Handler implementations

// HandleMoodLog handles the mood_log tool call.
func (h *Handlers) HandleMoodLog(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[MoodLogRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.LogMood(ctx, h.db, h.clock, ops.LogMoodInput{
		UserID:      input.UserID,
		Date:        input.Date,
		Mood:        input.Mood,
		Emotion:     input.Emotion,
		Activity:    input.Activity,
		Description: input.Description,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleMoodGet handles the mood_get tool call.
func (h *Handlers) HandleMoodGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[MoodDayRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.GetMood(ctx, h.db, input.UserID, input.Date)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleMoodList handles the mood_list tool call.
func (h *Handlers) HandleMoodList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[MoodListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ListMoods(ctx, h.db, ops.ListMoodsInput{
		UserID: input.UserID,
		From:   input.From,
		To:     input.To,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleMoodDelete handles the mood_delete tool call.
func (h *Handlers) HandleMoodDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[MoodDayRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.DeleteMood(ctx, h.db, input.UserID, input.Date)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleContactAdd handles the contact_add tool call.
func (h *Handlers) HandleContactAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ContactAddRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.AddContact(ctx, h.db, h.clock, ops.AddContactInput{
		UserID:          input.UserID,
		Name:            input.Name,
		Relation:        input.Relation,
		ConnectionLevel: input.ConnectionLevel,
		Photo:           input.Photo,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleContactGet handles the contact_get tool call.
func (h *Handlers) HandleContactGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ContactRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.GetContact(ctx, h.db, input.UserID, input.ID)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleContactList handles the contact_list tool call.
func (h *Handlers) HandleContactList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[UserRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ListContacts(ctx, h.db, input.UserID)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleContactUpdate handles the contact_update tool call.
func (h *Handlers) HandleContactUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ContactUpdateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.UpdateContact(ctx, h.db, h.clock, ops.UpdateContactInput{
		UserID:          input.UserID,
		ID:              input.ID,
		Name:            input.Name,
		Relation:        input.Relation,
		ConnectionLevel: input.ConnectionLevel,
		Photo:           input.Photo,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleContactDelete handles the contact_delete tool call.
func (h *Handlers) HandleContactDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ContactRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.DeleteContact(ctx, h.db, input.UserID, input.ID)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleCheckinToggle handles the checkin_toggle tool call.
func (h *Handlers) HandleCheckinToggle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CheckinToggleRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ToggleCheckIn(ctx, h.db, h.clock, input.UserID, input.ContactID)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleStatsCompute handles the stats_compute tool call.
func (h *Handlers) HandleStatsCompute(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[UserRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Stats(ctx, h.db, h.clock, input.UserID)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleSummaryGenerate handles the summary_generate tool call.
func (h *Handlers) HandleSummaryGenerate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[UserRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Summary(ctx, h.db, h.clock, h.completer, h.cfg, input.UserID)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleBackupExport handles the backup_export tool call.
func (h *Handlers) HandleBackupExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[BackupExportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Export(ctx, h.db, h.clock, h.cfg, ops.ExportInput{
		UserID: input.UserID,
		Path:   input.Path,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleBackupImport handles the backup_import tool call.
func (h *Handlers) HandleBackupImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[BackupImportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Import(ctx, h.db, h.clock, h.cfg, ops.ImportInput{
		UserID: input.UserID,
		Path:   input.Path,
		Mode:   ops.ImportMode(input.Mode),
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are not exposed.
func errorResult(err error) *mcp.CallToolResult {
	hErr := errors.As(err)

	errorObj := map[string]any{
		"code":    hErr.Code,
		"message": hErr.Message,
		"status":  hErr.Status,
	}
	if hErr.Code != errors.ErrInternal && hErr.Details != nil {
		errorObj["details"] = hErr.Details
	}

	content, _ := json.Marshal(map[string]any{"error": errorObj})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
