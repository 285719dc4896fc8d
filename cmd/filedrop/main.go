package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

// Set with -ldflags "-X main.version=... -X main.commit=...".
var (
	version = ""
	commit  = ""
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, styles.Err("error: "+err.Error()))
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "filedrop",
		Usage:   "Local file upload server and client",
		Version: buildInfo().Version,
		Flags:   serveFlags(),
		Action:  runServe,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the upload server (default)",
				Flags:  serveFlags(),
				Action: runServe,
			},
			{
				Name:      "push",
				Usage:     "Upload local files one at a time",
				ArgsUsage: "FILE...",
				Flags:     clientFlags(),
				Action:    runPush,
			},
			{
				Name:   "ls",
				Usage:  "List files stored on the server",
				Flags:  clientFlags(),
				Action: runList,
			},
		},
	}
}

func serveFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file (yaml, toml or json)",
			Sources: cli.EnvVars("FILEDROP_CONFIG"),
		},
		&cli.StringFlag{
			Name:  "addr",
			Usage: "Listen address, overrides the config file",
		},
		&cli.StringFlag{
			Name:  "dir",
			Usage: "Upload directory, overrides the config file",
		},
	}
}

func clientFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "Base URL of the File Drop server",
			Value:   "http://localhost:8090",
			Sources: cli.EnvVars("FILEDROP_SERVER"),
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Per-request timeout (0 for none)",
		},
	}
}

// getenvDefault reads an environment variable and returns a default value if not set.
func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}
