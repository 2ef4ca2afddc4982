package main

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/heartsync/heartsync/internal/config"
	"github.com/heartsync/heartsync/internal/db"
	"github.com/heartsync/heartsync/internal/summary"
	"github.com/heartsync/heartsync/internal/wellbeing"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion(args []string) bool {
	if len(args) < 2 {
		return true
	}
	arg := args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// newEnv loads config and opens the store under baseDir.
func newEnv(baseDir string) (*appEnv, error) {
	cfg, err := config.Load(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	database, err := db.Init(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	db.ConfigurePool(database, cfg)

	env := &appEnv{
		db:    database,
		cfg:   cfg,
		clock: wellbeing.NewClock(loc),
	}
	// A nil interface, not a nil *OpenAICompleter, keeps the
	// "no completion service" error path intact.
	if cfg.APIKey != "" {
		env.completer = summary.NewOpenAICompleter(cfg.APIKey, cfg.OpenAIBaseURL, cfg.Model)
	}
	return env, nil
}

func main() {
	// Help and version need no database
	if isHelpOrVersion(os.Args) {
		if err := newCLIApp(&appEnv{}).Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not determine home directory: %v\n", err)
		os.Exit(1)
	}

	env, err := newEnv(filepath.Join(homeDir, ".heartsync"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	err = newCLIApp(env).Run(os.Args)
	env.db.Close()
	if err != nil {
		var exitErr cli.ExitCoder
		if stderrors.As(err, &exitErr) {
			// The JSON error was already written to stderr
			os.Exit(exitErr.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
