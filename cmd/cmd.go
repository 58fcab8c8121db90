// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create the config file and initialize the database",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write config.toml from the bundled template",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
		},
	}
}

func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the webhook and API server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address, overrides server.host and server.port",
			},
			&cli.BoolFlag{
				Name:  "no-sweep",
				Usage: "Disable the periodic account health sweep",
			},
		},
		Action: r.Serve,
	}
}

func accountsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "accounts",
		Aliases: []string{"acc"},
		Usage:   "Manage linked Plex accounts",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List linked accounts and their health",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.AccountsList,
			},
			{
				Name:  "add",
				Usage: "Link an account from a Plex token",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "label",
						Aliases:  []string{"l"},
						Usage:    "Unique account label",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "token",
						Aliases:  []string{"t"},
						Usage:    "Plex account token",
						Sources:  cli.EnvVars("PLEX_TOKEN"),
						Required: true,
					},
				},
				Action: r.AccountsAdd,
			},
			{
				Name:  "remove",
				Usage: "Unlink an account by id or label",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "account",
					},
				},
				Action: r.AccountsRemove,
			},
			{
				Name:  "check",
				Usage: "Revalidate one account, or all of them",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "account",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.AccountsCheck,
			},
		},
	}
}

func linkCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "link",
		Usage: "Interactive account manager with Plex login",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "no-browser",
				Usage: "Print the login URL instead of opening a browser",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where logs go while the UI is running",
				Value: "./tmp/removarr-link.log",
			},
		},
		Action: r.Link,
	}
}

func processCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "process",
		Usage: "Reconcile one title against every linked watchlist",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "title",
				Usage:    "Title of the imported movie or series",
				Required: true,
			},
			&cli.IntFlag{
				Name:  "year",
				Usage: "Release year",
			},
			&cli.StringFlag{
				Name:  "tmdb",
				Usage: "TMDB id",
			},
			&cli.StringFlag{
				Name:  "tvdb",
				Usage: "TVDB id",
			},
			&cli.StringFlag{
				Name:  "source",
				Usage: "Event source recorded in the activity log (radarr, sonarr, manual)",
				Value: "manual",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "Skip progress output",
			},
		},
		Action: r.Process,
	}
}

// serverFlags are shared by the commands that talk to a running server.
func serverFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "Base URL of the removarr server",
			Value:   "http://localhost:8787",
			Sources: cli.EnvVars("REMOVARR_URL"),
		},
		&cli.StringFlag{
			Name:  "token",
			Usage: "API bearer token, defaults to server.api_token",
		},
	}
}

func logsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "logs",
		Usage: "Show recent activity from a running server",
		Flags: append(serverFlags(),
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format (text, markdown, csv, json)",
				Value:   "text",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the export to a file instead of stdout",
			},
		),
		Action: r.Logs,
	}
}

func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct calls to a running removarr server",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "GET a path, prints the JSON response",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: append(serverFlags(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output compact JSON",
					},
				),
				Action: r.APIGet,
			},
			{
				Name:  "post",
				Usage: "POST a path with an optional JSON body",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: append(serverFlags(),
					&cli.StringFlag{
						Name:    "data",
						Aliases: []string{"d"},
						Usage:   "JSON body to send",
					},
				),
				Action: r.APIPost,
			},
		},
	}
}
