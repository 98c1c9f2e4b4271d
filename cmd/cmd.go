// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// uploadCommand submits images in one batch
func uploadCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "upload",
		Aliases:   []string{"up"},
		Usage:     "Upload images or folders of images as one batch",
		ArgsUsage: "[paths...]",
		Description: "Each file argument is uploaded on its own; each folder argument becomes one group.\n" +
			"--dir treats a library folder as the root: every sub-folder becomes a group and loose files go to General.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"d"},
				Usage:   "Library folder whose sub-folders are uploaded as separate books",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Show the grouping without uploading",
			},
			&cli.BoolFlag{
				Name:  "no-history",
				Usage: "Do not record the upload in the local history",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print created books as JSON",
			},
		},
		Action: r.Upload,
	}
}

// booksCommand handles review queue operations
func booksCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "books",
		Aliases: []string{"queue"},
		Usage:   "Browse books in the review queue",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List books in the queue",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "status",
						Aliases: []string{"s"},
						Usage:   "Filter by status (new, auto, needs_review, approved, exported)",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.BooksList,
			},
			{
				Name:  "show",
				Usage: "Show one book and its image addresses",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.BooksShow,
			},
			{
				Name:  "open",
				Usage: "Open a book image in the browser",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "image",
						Aliases: []string{"i"},
						Usage:   "Image number, starting at 1",
						Value:   1,
					},
				},
				Action: r.BooksOpen,
			},
			{
				Name:  "update",
				Usage: "Edit a book's metadata",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "status", Usage: "Review status (new, auto, needs_review, approved, exported)"},
					&cli.StringFlag{Name: "title", Usage: "Title"},
					&cli.StringFlag{Name: "author", Usage: "Author"},
					&cli.StringFlag{Name: "publisher", Usage: "Publisher"},
					&cli.StringFlag{Name: "year", Usage: "Publication year"},
					&cli.StringFlag{Name: "isbn", Usage: "ISBN-13"},
					&cli.StringFlag{Name: "condition", Usage: "Condition grade"},
					&cli.FloatFlag{Name: "price", Usage: "Suggested price"},
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				},
				Action: r.BooksUpdate,
			},
			{
				Name:  "images",
				Usage: "Download every image of a book",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "out",
						Aliases: []string{"o"},
						Usage:   "Directory to write images into",
						Value:   "./images",
					},
				},
				Action: r.BooksImages,
			},
			{
				Name:      "download",
				Usage:     "Download the images of many books concurrently",
				ArgsUsage: "[book ids...]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "status",
						Usage: "Queue status to download when no ids are given",
					},
					&cli.StringFlag{
						Name:    "out",
						Aliases: []string{"o"},
						Usage:   "Base output directory (default: booklister_images_{epoch})",
					},
					&cli.IntFlag{
						Name:    "workers",
						Aliases: []string{"w"},
						Usage:   "Concurrent workers (max 10)",
						Value:   4,
					},
					&cli.FloatFlag{
						Name:  "rate",
						Usage: "Book fetches per second",
						Value: 5,
					},
				},
				Action: r.BooksDownload,
			},
		},
	}
}

// historyCommand handles the local upload history
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Local history of submitted batches",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List recorded uploads, newest first",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "status",
						Usage: "Filter by outcome (succeeded, failed)",
					},
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Maximum number of uploads to show",
						Value:   20,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.HistoryList,
			},
			{
				Name:  "show",
				Usage: "Show one recorded upload with its books",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.HistoryShow,
			},
			{
				Name:  "delete",
				Usage: "Remove an upload from the history",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.HistoryDelete,
			},
		},
	}
}

// exportCommand writes the queue to a file
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export queue books to csv, json, yaml, markdown, or parquet",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format (defaults to export.format from the config)",
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Output file path (defaults to a timestamped file in export.dir)",
			},
			&cli.StringFlag{
				Name:    "status",
				Aliases: []string{"s"},
				Usage:   "Only export books with this status",
			},
		},
		Action: r.Export,
	}
}

// statusCommand reports server health and limits
func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "status",
		Usage:  "Check the API and show its upload limits",
		Action: r.Status,
	}
}

// setupCommand handles setup operations for configuration and the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "Write a config.toml with default values",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   defaultConfigPath,
					},
				},
				Action: r.SetupConfig,
			},
			{
				Name:  "database",
				Usage: "Initialize database and run migrations",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   defaultConfigPath,
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

// devServerCommand runs the in-memory ingest API
func devServerCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "dev-server",
		Usage: "Run an in-memory BookLister API for local development",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Interface to listen on (defaults to dev_server.host)",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to listen on (defaults to dev_server.port)",
			},
			&cli.DurationFlag{
				Name:  "delay",
				Usage: "Artificial latency added to uploads",
			},
			&cli.IntFlag{
				Name:  "max-files",
				Usage: "Maximum files per upload request",
			},
		},
		Action: r.DevServer,
	}
}

// apiCommand handles direct API calls
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct calls to the BookLister API",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Direct GET, prints the response",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output compact JSON",
					},
				},
				Action: r.APIGet,
			},
			{
				Name:  "post",
				Usage: "Direct POST with JSON body",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "JSON body to send",
						Required: true,
					},
				},
				Action: r.APIPost,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive terminal UI",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "page",
				Usage: "Starting page (/review, /upload, /export, /settings)",
				Value: "/upload",
			},
		},
		Action: r.TUI,
	}
}
