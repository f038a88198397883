// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

func userFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "user",
		Aliases: []string{"u"},
		Usage:   "User identity the command acts for",
		Value:   "local",
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

// authCommand handles provider connection operations.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage provider connections",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Authorize a provider; prints the consent URL, then exchanges the code",
				Flags: []cli.Flag{
					configFlag(),
					userFlag(),
					&cli.StringFlag{
						Name:     "provider",
						Aliases:  []string{"p"},
						Usage:    "Provider to connect (spotify or youtube)",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "code",
						Usage: "Authorization code from the consent redirect",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Show connection status for every provider",
				Flags:  []cli.Flag{configFlag(), userFlag()},
				Action: r.AuthStatus,
			},
			{
				Name:  "disconnect",
				Usage: "Remove a stored provider connection",
				Flags: []cli.Flag{
					configFlag(),
					userFlag(),
					&cli.StringFlag{
						Name:     "provider",
						Aliases:  []string{"p"},
						Usage:    "Provider to disconnect (spotify or youtube)",
						Required: true,
					},
				},
				Action: r.AuthDisconnect,
			},
		},
	}
}

// playlistsCommand handles catalog operations.
func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlists",
		Aliases: []string{"pl"},
		Usage:   "Browse provider playlists",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List a provider's playlists (cached)",
				Flags: []cli.Flag{
					configFlag(),
					userFlag(),
					&cli.StringFlag{
						Name:     "provider",
						Aliases:  []string{"p"},
						Usage:    "Provider to list (spotify or youtube)",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "refresh",
						Usage: "Bypass the cache and refetch from the provider",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.PlaylistsList,
			},
		},
	}
}

// convertCommand handles playlist conversion operations.
func convertCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "convert",
		Usage: "Convert playlists between providers",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Convert a playlist and wait for the report",
				Flags: []cli.Flag{
					configFlag(),
					userFlag(),
					&cli.StringFlag{
						Name:     "from",
						Usage:    "Source provider (spotify or youtube)",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "playlist",
						Usage:    "Source playlist ID",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "to",
						Usage:    "Target provider (spotify or youtube)",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "csv",
						Usage: "Write the per-track report to a CSV file",
					},
				},
				Action: r.ConvertRun,
			},
			{
				Name:  "status",
				Usage: "Show a conversion job and its report",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Job ID",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.ConvertStatus,
			},
			{
				Name:  "list",
				Usage: "List recent conversion jobs, newest first",
				Flags: []cli.Flag{
					configFlag(),
					userFlag(),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of jobs to return",
						Value: 20,
					},
				},
				Action: r.ConvertList,
			},
		},
	}
}

// serveCommand starts the HTTP API.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API server",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "host",
				Usage: "Host to bind",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Port to bind",
			},
		},
		Action: r.Serve,
	}
}
