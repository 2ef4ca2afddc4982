package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Environment variables consulted by ApplyEnv.
const (
	EnvAPIKey   = "OPENAI_API_KEY"
	EnvTimezone = "HEARTSYNC_TIMEZONE"
	EnvModel    = "HEARTSYNC_MODEL"
	EnvBaseURL  = "HEARTSYNC_OPENAI_BASE_URL"
)

// Config holds application configuration.
type Config struct {
	// Timezone is the IANA zone used for every day-key computation
	// (mood log keys, check-in markers, week boundaries). Default "Local".
	Timezone string `json:"timezone,omitempty"`

	// Model is the completion model used for summaries
	Model string `json:"model,omitempty"`

	// MaxOutputTokens bounds the summary length requested from the completion service.
	MaxOutputTokens int `json:"max_output_tokens,omitempty"`

	// MaxPromptLogs is how many of the most recent mood logs go into the prompt.
	MaxPromptLogs int `json:"max_prompt_logs,omitempty"`

	// MaxPromptInteractionDates is how many recent check-in dates are listed per contact.
	MaxPromptInteractionDates int `json:"max_prompt_interaction_dates,omitempty"`

	// SummaryTimeoutSeconds bounds a single completion call. 0 disables the bound.
	SummaryTimeoutSeconds int `json:"summary_timeout_seconds,omitempty"`

	// OpenAIBaseURL overrides the completion endpoint (proxies, local gateways).
	OpenAIBaseURL string `json:"openai_base_url,omitempty"`

	// APIKey is never read from the config file; it comes from OPENAI_API_KEY.
	APIKey string `json:"-"`

	// Bind and Port are the defaults for `heartsync serve`.
	Bind string `json:"bind,omitempty"`
	Port int    `json:"port,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// If set to 1, all database access is serialized (reduces "database is locked" errors).
	// 0 means use sql.DB default (unlimited). Only set if you experience contention.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	// 0 means use sql.DB default. Typically set equal to DBMaxOpenConns.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// AllowedPaths lists extra absolute directories export and import may use,
	// besides ~/.heartsync/exports. Files must sit directly in one of them.
	AllowedPaths []string `json:"allowed_paths,omitempty"`

	// AllowUnsafePaths lifts the directory restriction on export and import.
	// Symlinks are still refused.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DisabledTypes is a list of tool type names to disable entirely
	// ("mood", "contact", "checkin", "stats", "summary", "backup").
	DisabledTypes []string `json:"disabled_types,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Timezone:                  "Local",
		Model:                     "gpt-4o-mini",
		MaxOutputTokens:           500,
		MaxPromptLogs:             20,
		MaxPromptInteractionDates: 5,
		SummaryTimeoutSeconds:     60,
		Bind:                      "127.0.0.1",
		Port:                      8080,
	}
}

// Load loads configuration from baseDir/config.json and applies environment overrides.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.heartsync.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFile(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	ApplyEnv(cfg, os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overlays environment variables onto cfg. getenv is injected so
// tests do not depend on the process environment.
func ApplyEnv(cfg *Config, getenv func(string) string) {
	if v := strings.TrimSpace(getenv(EnvAPIKey)); v != "" {
		cfg.APIKey = v
	}
	if v := strings.TrimSpace(getenv(EnvTimezone)); v != "" {
		cfg.Timezone = v
	}
	if v := strings.TrimSpace(getenv(EnvModel)); v != "" {
		cfg.Model = v
	}
	if v := strings.TrimSpace(getenv(EnvBaseURL)); v != "" {
		cfg.OpenAIBaseURL = v
	}
}

// Validate checks values that would otherwise fail later at first use.
func (c *Config) Validate() error {
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.MaxOutputTokens < 0 {
		return errors.New("max_output_tokens must be >= 0")
	}
	if c.MaxPromptLogs < 0 || c.MaxPromptInteractionDates < 0 {
		return errors.New("prompt limits must be >= 0")
	}
	if c.SummaryTimeoutSeconds < 0 {
		return errors.New("summary_timeout_seconds must be >= 0")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port out of range: %d", c.Port)
	}
	return nil
}

// Location resolves Timezone. Empty and "Local" mean the host zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// SummaryTimeout returns the per-call completion timeout, or 0 for none.
func (c *Config) SummaryTimeout() time.Duration {
	return time.Duration(c.SummaryTimeoutSeconds) * time.Second
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.Timezone = firstString(overlay.Timezone, base.Timezone)
	result.Model = firstString(overlay.Model, base.Model)
	result.OpenAIBaseURL = firstString(overlay.OpenAIBaseURL, base.OpenAIBaseURL)
	result.APIKey = firstString(overlay.APIKey, base.APIKey)
	result.Bind = firstString(overlay.Bind, base.Bind)

	result.MaxOutputTokens = firstInt(overlay.MaxOutputTokens, base.MaxOutputTokens)
	result.MaxPromptLogs = firstInt(overlay.MaxPromptLogs, base.MaxPromptLogs)
	result.MaxPromptInteractionDates = firstInt(overlay.MaxPromptInteractionDates, base.MaxPromptInteractionDates)
	result.SummaryTimeoutSeconds = firstInt(overlay.SummaryTimeoutSeconds, base.SummaryTimeoutSeconds)
	result.Port = firstInt(overlay.Port, base.Port)
	result.DBMaxOpenConns = firstInt(overlay.DBMaxOpenConns, base.DBMaxOpenConns)
	result.DBMaxIdleConns = firstInt(overlay.DBMaxIdleConns, base.DBMaxIdleConns)

	result.AllowUnsafePaths = overlay.AllowUnsafePaths || base.AllowUnsafePaths

	// Arrays: merge and deduplicate
	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.DisabledTypes = mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes)

	return result
}

func firstString(overlay, base string) string {
	if overlay != "" {
		return overlay
	}
	return base
}

func firstInt(overlay, base int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
