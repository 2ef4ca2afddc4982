package mcp

import (
	"database/sql"
	"log"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/heartsync/heartsync/internal/config"
	"github.com/heartsync/heartsync/internal/summary"
	"github.com/heartsync/heartsync/internal/wellbeing"
)

// KnownTypes lists all valid type names.
var KnownTypes = []string{"mood", "contact", "checkin", "stats", "summary", "backup"}

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"mood_log": {
		def:     moodLogToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleMoodLog },
	},
	"mood_get": {
		def:     moodGetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleMoodGet },
	},
	"mood_list": {
		def:     moodListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleMoodList },
	},
	"mood_delete": {
		def:     moodDeleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleMoodDelete },
	},
	"contact_add": {
		def:     contactAddToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleContactAdd },
	},
	"contact_get": {
		def:     contactGetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleContactGet },
	},
	"contact_list": {
		def:     contactListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleContactList },
	},
	"contact_update": {
		def:     contactUpdateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleContactUpdate },
	},
	"contact_delete": {
		def:     contactDeleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleContactDelete },
	},
	"checkin_toggle": {
		def:     checkinToggleToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCheckinToggle },
	},
	"stats_compute": {
		def:     statsComputeToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStatsCompute },
	},
	"summary_generate": {
		def:     summaryGenerateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSummaryGenerate },
	},
	"backup_export": {
		def:     backupExportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleBackupExport },
	},
	"backup_import": {
		def:     backupImportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleBackupImport },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// ValidateDisabledTypes returns a list of unknown type names from the given list.
func ValidateDisabledTypes(names []string) []string {
	known := make(map[string]bool, len(KnownTypes))
	for _, t := range KnownTypes {
		known[t] = true
	}

	unknown := make([]string, 0)
	for _, name := range names {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// GetTypeForTool extracts the type name from a tool name.
// Tool names follow the pattern "type_action" (e.g., "mood_log" → "mood").
func GetTypeForTool(toolName string) string {
	if idx := strings.Index(toolName, "_"); idx > 0 {
		return toolName[:idx]
	}
	return ""
}

// ExpandTypesToTools returns all tool names belonging to the given types.
func ExpandTypesToTools(types []string) []string {
	if len(types) == 0 {
		return nil
	}

	typeSet := make(map[string]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	tools := make([]string, 0)
	for name := range toolRegistry {
		if typeSet[GetTypeForTool(name)] {
			tools = append(tools, name)
		}
	}
	return tools
}

// NewServer creates a new MCP server with HeartSync tools registered.
// Tools listed in cfg.DisabledTools or belonging to cfg.DisabledTypes
// are excluded from registration.
func NewServer(db *sql.DB, cfg *config.Config, clock wellbeing.Clock, completer summary.Completer, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"heartsync",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(db, cfg, clock, completer)

	if unknown := ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		log.Printf("warning: unknown disabled_tools ignored: %s", strings.Join(unknown, ", "))
	}
	if unknown := ValidateDisabledTypes(cfg.DisabledTypes); len(unknown) > 0 {
		log.Printf("warning: unknown disabled_types ignored: %s", strings.Join(unknown, ", "))
	}

	// Build set of disabled tools: first expand types, then add individual tools
	disabled := make(map[string]bool)
	for _, tool := range ExpandTypesToTools(cfg.DisabledTypes) {
		disabled[tool] = true
	}
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(db *sql.DB, cfg *config.Config, clock wellbeing.Clock, completer summary.Completer, version string) error {
	s := NewServer(db, cfg, clock, completer, version)
	return server.ServeStdio(s)
}
