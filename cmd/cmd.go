// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			Value:   "config.toml",
		},
		&cli.StringFlag{
			Name:  "env-file",
			Usage: "Path to a dotenv file loaded before environment overrides",
			Value: ".env",
		},
	}
}

// serveCommand starts the HTTP API
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the HTTP server",
		Flags: append(configFlags(),
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address, overrides [server] host and port",
			},
		),
		Action: r.Serve,
	}
}

// songsCommand reads the recommendation table
func songsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "songs",
		Usage: "Print every recommendation row, or one page of a genre",
		Flags: append(configFlags(),
			&cli.StringFlag{
				Name:    "genre",
				Aliases: []string{"g"},
				Usage:   "Genre column to page through (e.g. sad_music)",
			},
			&cli.IntFlag{
				Name:  "offset",
				Usage: "Number of values to skip",
				Value: 0,
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Page size (capped at 100)",
				Value: 10,
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: json, csv or txt",
				Value:   "json",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write to this file instead of stdout",
			},
		),
		Action: r.Songs,
	}
}

// tokenCommand fetches the app-level token
func tokenCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Fetch an app-level token with the client-credentials grant",
		Flags: append(configFlags(),
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print the token and its expiry as JSON",
			},
		),
		Action: r.Token,
	}
}

// configCommand manages the configuration file
func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Write the example configuration to disk",
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
		},
	}
}
