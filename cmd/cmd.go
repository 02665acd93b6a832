// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func albumFlag(required bool) cli.Flag {
	return &cli.StringSliceFlag{
		Name:     "album",
		Aliases:  []string{"a"},
		Usage:    "Archive.org identifier or JSON catalog file (repeat to merge recordings)",
		Required: required,
	}
}

func trackFlag() cli.Flag {
	return &cli.IntFlag{
		Name:    "track",
		Aliases: []string{"t"},
		Usage:   "Track number to start from (1-based)",
		Value:   1,
	}
}

func muteFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "mute",
		Usage: "Play on a silent clock instead of the speaker",
	}
}

func formatFlag(value string) cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format (text, markdown, csv)",
		Value:   value,
	}
}

// playCommand plays a show from the terminal.
func playCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "play",
		Usage: "Play a show, printing each song as it starts",
		Flags: []cli.Flag{
			albumFlag(true),
			trackFlag(),
			muteFlag(),
			&cli.StringFlag{
				Name:    "quality",
				Aliases: []string{"q"},
				Usage:   "Preferred quality (high, medium, low)",
			},
			&cli.IntFlag{
				Name:  "crossfade",
				Usage: "Crossfade between songs in seconds (0-12)",
				Value: -1,
			},
			&cli.BoolFlag{
				Name:  "shuffle",
				Usage: "Shuffle the upcoming songs",
			},
			&cli.StringFlag{
				Name:  "repeat",
				Usage: "Repeat mode (off, all, one)",
			},
		},
		Action: r.Play,
	}
}

// resumeCommand resumes the saved playback snapshot.
func resumeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "resume",
		Usage:  "Resume the last song from where it stopped",
		Flags:  []cli.Flag{muteFlag()},
		Action: r.Resume,
	}
}

// queueCommand previews the queue a show would build.
func queueCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "queue",
		Usage: "Queue operations",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Show the queue built from a show",
				Flags: []cli.Flag{
					albumFlag(true),
					trackFlag(),
					formatFlag("text"),
					&cli.BoolFlag{
						Name:  "shuffle",
						Usage: "Shuffle the upcoming songs",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write to a file instead of stdout",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.QueueShow,
			},
		},
	}
}

// catalogCommand fetches and exports show metadata.
func catalogCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "catalog",
		Aliases: []string{"cat"},
		Usage:   "Archive.org show metadata",
		Commands: []*cli.Command{
			{
				Name:      "fetch",
				Usage:     "Fetch one or more identifiers and merge them into one show",
				ArgsUsage: "<identifier>...",
				Flags: []cli.Flag{
					formatFlag("text"),
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Save the show as a JSON catalog file",
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
				Action: r.CatalogFetch,
			},
			{
				Name:      "export",
				Usage:     "Export a show as Markdown (with cover art) or CSV",
				ArgsUsage: "<identifier>...",
				Flags: []cli.Flag{
					formatFlag("markdown"),
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output directory (markdown) or base path (csv)",
					},
				},
				Action: r.CatalogExport,
			},
			{
				Name:  "open",
				Usage: "Open a show's Archive.org page in the browser",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "identifier"},
				},
				Action: r.CatalogOpen,
			},
		},
	}
}

// historyCommand lists recorded playback events.
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show recorded playback events",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "event",
				Usage: "Only show this event (e.g. song_play, song_complete)",
			},
			&cli.StringFlag{
				Name:  "song",
				Usage: "Only show events for this song id",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of events to show",
				Value: 50,
			},
			formatFlag("text"),
		},
		Action: r.History,
		Commands: []*cli.Command{
			{
				Name:   "stats",
				Usage:  "Count recorded events by name",
				Action: r.HistoryStats,
			},
			{
				Name:  "purge",
				Usage: "Delete events older than a number of days",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "days",
						Usage: "Keep events newer than this many days",
						Value: 90,
					},
				},
				Action: r.HistoryPurge,
			},
		},
	}
}

// serveCommand plays a show and exposes the local remote-control API.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Play a show and serve the remote-control API",
		Flags: []cli.Flag{
			albumFlag(false),
			trackFlag(),
			muteFlag(),
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address",
				Value: "127.0.0.1:8719",
			},
		},
		Action: r.Serve,
	}
}

// setupCommand handles setup operations for the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "database",
				Usage: "Initialize database and run migrations",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

// configCommand manages the configuration file.
func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration file commands",
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Write the default config.toml",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.ConfigInit,
			},
			{
				Name:   "show",
				Usage:  "Print the effective configuration",
				Action: r.ConfigShow,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for interactive playback.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive player",
		Flags: []cli.Flag{
			albumFlag(false),
			trackFlag(),
			muteFlag(),
		},
		Action: r.TUI,
	}
}
