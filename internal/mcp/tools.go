package mcp

import "github.com/mark3labs/mcp-go/mcp"

func userIDParam() mcp.ToolOption {
	return mcp.WithString("user_id", mcp.Required(), mcp.Description("The user whose data is read or written."))
}

var moodLogToolDef = mcp.NewTool("mood_log",
	mcp.WithDescription("Log the day's mood (1-5). Replaces any earlier log for the same day."),
	userIDParam(),
	mcp.WithNumber("mood", mcp.Required(), mcp.Min(1), mcp.Max(5), mcp.Description("Mood score, 1 (low) to 5 (high).")),
	mcp.WithString("date", mcp.Description("Day key YYYY-MM-DD. Defaults to today in the configured timezone.")),
	mcp.WithString("emotion", mcp.Description("Short emotion label, e.g. Happy.")),
	mcp.WithString("activity", mcp.Description("What the user was doing, at most 50 characters.")),
	mcp.WithString("description", mcp.Description("Free-text note, at most 300 characters.")),
)

var moodGetToolDef = mcp.NewTool("mood_get",
	mcp.WithDescription("Get the mood log for one day."),
	userIDParam(),
	mcp.WithString("date", mcp.Required(), mcp.Description("Day key YYYY-MM-DD.")),
)

var moodListToolDef = mcp.NewTool("mood_list",
	mcp.WithDescription("List mood logs oldest first, optionally bounded by an inclusive day range."),
	userIDParam(),
	mcp.WithString("from", mcp.Description("First day key to include.")),
	mcp.WithString("to", mcp.Description("Last day key to include.")),
)

var moodDeleteToolDef = mcp.NewTool("mood_delete",
	mcp.WithDescription("Delete the mood log for one day."),
	userIDParam(),
	mcp.WithString("date", mcp.Required(), mcp.Description("Day key YYYY-MM-DD.")),
)

var contactAddToolDef = mcp.NewTool("contact_add",
	mcp.WithDescription("Add a contact to keep in touch with."),
	userIDParam(),
	mcp.WithString("name", mcp.Required(), mcp.Description("Contact name.")),
	mcp.WithString("relation", mcp.Description("Relation, e.g. Sister or Friend.")),
	mcp.WithNumber("connection_level", mcp.Min(1), mcp.Max(10), mcp.Description("Closeness rating 1-10. Defaults to 5.")),
	mcp.WithString("photo", mcp.Description("Optional photo as a data URL.")),
)

var contactGetToolDef = mcp.NewTool("contact_get",
	mcp.WithDescription("Get a contact with its check-in dates."),
	userIDParam(),
	mcp.WithString("id", mcp.Required(), mcp.Description("Contact ID.")),
)

var contactListToolDef = mcp.NewTool("contact_list",
	mcp.WithDescription("List all contacts in creation order."),
	userIDParam(),
)

var contactUpdateToolDef = mcp.NewTool("contact_update",
	mcp.WithDescription("Update a contact. Omitted fields are left unchanged."),
	userIDParam(),
	mcp.WithString("id", mcp.Required(), mcp.Description("Contact ID.")),
	mcp.WithString("name", mcp.Description("New name.")),
	mcp.WithString("relation", mcp.Description("New relation.")),
	mcp.WithNumber("connection_level", mcp.Min(1), mcp.Max(10), mcp.Description("New closeness rating 1-10.")),
	mcp.WithString("photo", mcp.Description("New photo data URL; empty string clears it.")),
)

var contactDeleteToolDef = mcp.NewTool("contact_delete",
	mcp.WithDescription("Delete a contact and its check-in history."),
	userIDParam(),
	mcp.WithString("id", mcp.Required(), mcp.Description("Contact ID.")),
)

var checkinToggleToolDef = mcp.NewTool("checkin_toggle",
	mcp.WithDescription("Toggle today's check-in with a contact. Calling it twice in a day undoes the check-in."),
	userIDParam(),
	mcp.WithString("contact_id", mcp.Required(), mcp.Description("Contact ID.")),
)

var statsComputeToolDef = mcp.NewTool("stats_compute",
	mcp.WithDescription("Compute streak, average mood, best week and connection stats."),
	userIDParam(),
)

var summaryGenerateToolDef = mcp.NewTool("summary_generate",
	mcp.WithDescription("Generate a short natural-language wellbeing summary from the user's logs and contacts."),
	userIDParam(),
)

var backupExportToolDef = mcp.NewTool("backup_export",
	mcp.WithDescription("Write the user's mood logs and contacts to a JSONL backup file. The file must be directly in ~/.heartsync/exports or a configured allowed path."),
	userIDParam(),
	mcp.WithString("path",
		mcp.Description("Output .jsonl path (default ~/.heartsync/exports/<user>-<timestamp>.jsonl)"),
	),
)

var backupImportToolDef = mcp.NewTool("backup_import",
	mcp.WithDescription("Restore mood logs and contacts from a JSONL backup into the user's store."),
	userIDParam(),
	mcp.WithString("path",
		mcp.Required(),
		mcp.Description("Backup .jsonl path"),
	),
	mcp.WithString("mode",
		mcp.Description("error (default): abort on any collision or bad line, nothing written. replace: overwrite collisions and skip bad lines."),
		mcp.Enum("error", "replace"),
	),
)
