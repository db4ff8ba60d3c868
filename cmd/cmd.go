// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// setupCommand handles setup operations for database and configuration.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupDatabase,
			},
		},
	}
}

// scanCommand walks the library and records directory changes.
func scanCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "scan",
		Usage: "Walk the library and record changed directories",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "root"},
		},
		Flags: []cli.Flag{
			configFlag(),
			&cli.IntFlag{
				Name:  "max-depth",
				Usage: "Limit scan depth (0 = unlimited)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
				Value: true,
			},
		},
		Action: r.Scan,
	}
}

// importCommand imports metadata from files in pending directories.
func importCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import track metadata from changed directories",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "root"},
		},
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:    "mode",
				Aliases: []string{"m"},
				Usage:   "Sync mode: once, modified, modified-resync, always",
				Value:   "modified-resync",
			},
			&cli.BoolFlag{
				Name:  "artwork",
				Usage: "Extract embedded artwork references",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
				Value: true,
			},
		},
		Action: r.Import,
	}
}

// statusCommand summarizes tracked directories per status.
func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Summarize tracked directories",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "root"},
		},
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
				Value: true,
			},
		},
		Action: r.Status,
	}
}

// untrackCommand drops tracking records under a root.
func untrackCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "untrack",
		Usage: "Drop directory tracking records under a root",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "root"},
		},
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringSliceFlag{
				Name:  "status",
				Usage: "Only untrack directories with these statuses",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Untrack,
	}
}

// purgeCommand removes media sources that no longer belong to the library.
func purgeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "purge",
		Usage: "Remove media sources and their tracks",
		Commands: []*cli.Command{
			{
				Name:  "orphaned",
				Usage: "Purge sources whose directories vanished from disk",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "root"},
				},
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.PurgeOrphaned,
			},
			{
				Name:  "untracked",
				Usage: "Purge sources whose directories are no longer tracked",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "root"},
				},
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.PurgeUntracked,
			},
		},
	}
}

// relocateCommand moves tracked state to a new path prefix.
func relocateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "relocate",
		Usage: "Move tracking and source records to a new path prefix",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "from"},
			&cli.StringArg{Name: "to"},
		},
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Relocate,
	}
}

// serveCommand starts the HTTP server.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the library HTTP server",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "host",
				Usage: "Host to bind (overrides config)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Port to bind (overrides config)",
			},
		},
		Action: r.Serve,
	}
}

// tuiCommand returns the top-level TUI command for interactive library management.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch interactive TUI for library synchronization",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:    "mode",
				Aliases: []string{"m"},
				Usage:   "Sync mode: once, modified, modified-resync, always",
				Value:   "modified-resync",
			},
		},
		Action: r.TUI,
	}
}
