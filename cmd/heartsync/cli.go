package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"

	"github.com/urfave/cli/v2"

	"github.com/heartsync/heartsync/internal/config"
	"github.com/heartsync/heartsync/internal/errors"
	"github.com/heartsync/heartsync/internal/mcp"
	"github.com/heartsync/heartsync/internal/ops"
	"github.com/heartsync/heartsync/internal/summary"
	"github.com/heartsync/heartsync/internal/web"
	"github.com/heartsync/heartsync/internal/wellbeing"
)

// appEnv carries what every command needs. db and cfg are nil when only
// help or version output is requested.
type appEnv struct {
	db        *sql.DB
	cfg       *config.Config
	clock     wellbeing.Clock
	completer summary.Completer
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp(env *appEnv) *cli.App {
	app := &cli.App{
		Name:    "heartsync",
		Usage:   "Mood and connection tracker with AI summaries",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "user", Aliases: []string{"u"}, EnvVars: []string{"HEARTSYNC_USER"}, Usage: "User ID that owns the data"},
		},
		Commands: []*cli.Command{
			serveCmd(env),
			mcpCmd(env),
			moodCmd(env),
			contactCmd(env),
			statsCmd(env),
			summaryCmd(env),
			exportCmd(env),
			importCmd(env),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// serveCmd creates the serve command.
func serveCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Usage: "Address to bind (default from config, 127.0.0.1)"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "Port to listen on (default from config, 8080)"},
		},
		Action: func(c *cli.Context) error {
			bind, port := env.cfg.Bind, env.cfg.Port
			if c.IsSet("bind") {
				bind = c.String("bind")
			}
			if c.IsSet("port") {
				port = c.Int("port")
			}
			if port < 1 || port > 65535 {
				return outputError(c, errors.NewInvalidRequest(fmt.Sprintf("port out of range: %d", port)))
			}
			return web.Run(web.NewServer(env.db, env.cfg, env.clock, env.completer, bind, port))
		},
	}
}

// mcpCmd creates the mcp command.
func mcpCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Run the MCP server on stdio",
		Action: func(c *cli.Context) error {
			return mcp.Run(env.db, env.cfg, env.clock, env.completer, Version)
		},
	}
}

// moodCmd creates the mood command group.
func moodCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "mood",
		Usage: "Log and review daily moods",
		Subcommands: []*cli.Command{
			{
				Name:  "log",
				Usage: "Log a mood (replaces the day's earlier log)",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "mood", Aliases: []string{"m"}, Required: true, Usage: "Mood score 1-5"},
					&cli.StringFlag{Name: "date", Aliases: []string{"d"}, Usage: "Day YYYY-MM-DD (default today)"},
					&cli.StringFlag{Name: "emotion", Aliases: []string{"e"}, Usage: "Emotion label"},
					&cli.StringFlag{Name: "activity", Aliases: []string{"a"}, Usage: "Activity (max 50 chars)"},
					&cli.StringFlag{Name: "description", Usage: "Note (max 300 chars)"},
				},
				Action: func(c *cli.Context) error {
					output, err := ops.LogMood(c.Context, env.db, env.clock, ops.LogMoodInput{
						UserID:      c.String("user"),
						Date:        c.String("date"),
						Mood:        c.Int("mood"),
						Emotion:     c.String("emotion"),
						Activity:    c.String("activity"),
						Description: c.String("description"),
					})
					if err != nil {
						return outputError(c, err)
					}
					return outputJSON(c, output)
				},
			},
			{
				Name:      "get",
				Usage:     "Show the log for a day (default today)",
				ArgsUsage: "[date]",
				Action: func(c *cli.Context) error {
					day := c.Args().First()
					if day == "" {
						day = env.clock.Today()
					}
					output, err := ops.GetMood(c.Context, env.db, c.String("user"), day)
					if err != nil {
						return outputError(c, err)
					}
					return outputJSON(c, output)
				},
			},
			{
				Name:  "today",
				Usage: "Report whether today's mood has been logged",
				Action: func(c *cli.Context) error {
					output, err := ops.MoodLoggedToday(c.Context, env.db, env.clock, c.String("user"))
					if err != nil {
						return outputError(c, err)
					}
					return outputJSON(c, output)
				},
			},
			{
				Name:  "list",
				Usage: "List logs oldest first",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "from", Usage: "First day to include"},
					&cli.StringFlag{Name: "to", Usage: "Last day to include"},
				},
				Action: func(c *cli.Context) error {
					output, err := ops.ListMoods(c.Context, env.db, ops.ListMoodsInput{
						UserID: c.String("user"),
						From:   c.String("from"),
						To:     c.String("to"),
					})
					if err != nil {
						return outputError(c, err)
					}
					return outputJSON(c, output)
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete the log for a day",
				ArgsUsage: "<date>",
				Action: func(c *cli.Context) error {
					if c.NArg() == 0 {
						return outputError(c, errors.NewInvalidRequest("date argument is required"))
					}
					output, err := ops.DeleteMood(c.Context, env.db, c.String("user"), c.Args().First())
					if err != nil {
						return outputError(c, err)
					}
					return outputJSON(c, output)
				},
			},
		},
	}
}

// contactCmd creates the contact command group.
func contactCmd(env *appEnv) *cli.Command {
	contactFlags := func(nameRequired bool) []cli.Flag {
		return []cli.Flag{
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Required: nameRequired, Usage: "Contact name"},
			&cli.StringFlag{Name: "relation", Aliases: []string{"r"}, Usage: "Relation, e.g. Sister"},
			&cli.IntFlag{Name: "level", Aliases: []string{"l"}, Usage: "Connection level 1-10"},
			&cli.StringFlag{Name: "photo", Usage: "Photo data URL (empty clears on update)"},
		}
	}

	return &cli.Command{
		Name:  "contact",
		Usage: "Manage contacts and check-ins",
		Subcommands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Add a contact",
				Flags: contactFlags(true),
				Action: func(c *cli.Context) error {
					input := ops.AddContactInput{
						UserID:   c.String("user"),
						Name:     c.String("name"),
						Relation: c.String("relation"),
						Photo:    c.String("photo"),
					}
					if c.IsSet("level") {
						level := c.Int("level")
						input.ConnectionLevel = &level
					}
					output, err := ops.AddContact(c.Context, env.db, env.clock, input)
					if err != nil {
						return outputError(c, err)
					}
					return outputJSON(c, output)
				},
			},
			{
				Name:      "get",
				Usage:     "Show a contact",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					output, err := ops.GetContact(c.Context, env.db, c.String("user"), c.Args().First())
					if err != nil {
						return outputError(c, err)
					}
					return outputJSON(c, output)
				},
			},
			{
				Name:  "list",
				Usage: "List contacts",
				Action: func(c *cli.Context) error {
					output, err := ops.ListContacts(c.Context, env.db, c.String("user"))
					if err != nil {
						return outputError(c, err)
					}
					return outputJSON(c, output)
				},
			},
			{
				Name:      "update",
				Usage:     "Update a contact (only the given flags change)",
				ArgsUsage: "<id>",
				Flags:     contactFlags(false),
				Action: func(c *cli.Context) error {
					input := ops.UpdateContactInput{
						UserID: c.String("user"),
						ID:     c.Args().First(),
					}
					if c.IsSet("name") {
						input.Name = ptrString(c.String("name"))
					}
					if c.IsSet("relation") {
						input.Relation = ptrString(c.String("relation"))
					}
					if c.IsSet("level") {
						level := c.Int("level")
						input.ConnectionLevel = &level
					}
					if c.IsSet("photo") {
						input.Photo = ptrString(c.String("photo"))
					}
					output, err := ops.UpdateContact(c.Context, env.db, env.clock, input)
					if err != nil {
						return outputError(c, err)
					}
					return outputJSON(c, output)
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete a contact and its check-ins",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					output, err := ops.DeleteContact(c.Context, env.db, c.String("user"), c.Args().First())
					if err != nil {
						return outputError(c, err)
					}
					return outputJSON(c, output)
				},
			},
			{
				Name:      "checkin",
				Usage:     "Toggle today's check-in with a contact",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					output, err := ops.ToggleCheckIn(c.Context, env.db, env.clock, c.String("user"), c.Args().First())
					if err != nil {
						return outputError(c, err)
					}
					return outputJSON(c, output)
				},
			},
		},
	}
}

// statsCmd creates the stats command.
func statsCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show streak, averages and connection stats",
		Action: func(c *cli.Context) error {
			output, err := ops.Stats(c.Context, env.db, env.clock, c.String("user"))
			if err != nil {
				return outputError(c, err)
			}
			return outputJSON(c, output)
		},
	}
}

// summaryCmd creates the summary command.
func summaryCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "summary",
		Usage: "Generate an AI summary of your moods and connections",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "html", Usage: "Print the summary rendered as HTML"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Summary(c.Context, env.db, env.clock, env.completer, env.cfg, c.String("user"))
			if err != nil {
				return outputError(c, err)
			}
			if c.Bool("html") {
				_, err := io.WriteString(c.App.Writer, web.RenderMarkdown(output.Summary))
				return err
			}
			return outputJSON(c, output)
		},
	}
}

// exportCmd creates the export command.
func exportCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Back up your moods and contacts to a JSONL file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Usage: "Output .jsonl path (default ~/.heartsync/exports/<user>-<timestamp>.jsonl)"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Export(c.Context, env.db, env.clock, env.cfg, ops.ExportInput{
				UserID: c.String("user"),
				Path:   c.String("path"),
			})
			if err != nil {
				return outputError(c, err)
			}
			return outputJSON(c, output)
		},
	}
}

// importCmd creates the import command.
func importCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Restore moods and contacts from a JSONL backup",
		ArgsUsage: "<path>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "mode", Value: string(ops.ImportModeError), Usage: "Collision handling: error or replace"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return outputError(c, errors.NewInvalidRequest("path argument is required"))
			}
			output, err := ops.Import(c.Context, env.db, env.clock, env.cfg, ops.ImportInput{
				UserID: c.String("user"),
				Path:   c.Args().First(),
				Mode:   ops.ImportMode(c.String("mode")),
			})
			if err != nil {
				return outputError(c, err)
			}
			return outputJSON(c, output)
		},
	}
}

// Helper functions

// outputJSON marshals result to the app's writer as JSON.
func outputJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError writes err as JSON to the app's error writer and returns an
// exit error with status 1.
func outputError(c *cli.Context, err error) error {
	hErr := errors.As(err)
	payload := map[string]any{
		"error": map[string]any{
			"code":    hErr.Code,
			"message": hErr.Message,
			"status":  hErr.Status,
		},
	}
	_ = json.NewEncoder(c.App.ErrWriter).Encode(payload)
	return cli.Exit("", 1)
}

// ptrString returns a pointer to s.
func ptrString(s string) *string {
	return &s
}

