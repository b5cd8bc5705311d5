// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	charmlog "github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

const configKey = "config"

func main() {
	// A missing .env file is fine
	_ = godotenv.Load()

	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	spaceFlag := &cli.StringFlag{
		Name:     "space",
		Aliases:  []string{"s"},
		Usage:    "Space to operate on",
		Required: true,
	}
	jsonFlag := &cli.BoolFlag{
		Name:  "json",
		Usage: "Print the result as JSON",
	}

	return &cli.App{
		Name:  "graphrag",
		Usage: "Space-scoped graph RAG over your documents",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "Set logging format (text, json, pretty)",
				Value: "text",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML config file",
				Value:   "graphrag.yaml",
			},
			&cli.StringFlag{
				Name:    "data-dir",
				Aliases: []string{"d"},
				Usage:   "Directory for the Badger database and uploaded files",
			},
			&cli.StringFlag{
				Name:  "store",
				Usage: "Graph store backend (badger, neo4j)",
			},
			&cli.StringFlag{
				Name:  "metrics-file",
				Usage: "Write Prometheus metrics to this file on exit",
			},
		},
		Before: func(c *cli.Context) error {
			if err := setupLogger(c); err != nil {
				return err
			}
			return loadSettings(c)
		},
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Add files to a space and rebuild it from all of its files",
				ArgsUsage: "FILE...",
				Action:    ingestCommand,
				Flags:     []cli.Flag{spaceFlag},
			},
			{
				Name:      "add",
				Usage:     "Add one file to a space without rebuilding it",
				ArgsUsage: "FILE",
				Action:    addCommand,
				Flags:     []cli.Flag{spaceFlag},
			},
			{
				Name:      "remove",
				Usage:     "Remove a file from a space and rebuild it from the remaining files",
				ArgsUsage: "NAME",
				Action:    removeCommand,
				Flags:     []cli.Flag{spaceFlag},
			},
			{
				Name:   "files",
				Usage:  "List the files of a space",
				Action: filesCommand,
				Flags:  []cli.Flag{spaceFlag},
			},
			{
				Name:      "ask",
				Usage:     "Answer a question from the documents of a space",
				ArgsUsage: "QUESTION",
				Action:    askCommand,
				Flags: []cli.Flag{
					spaceFlag,
					jsonFlag,
					&cli.BoolFlag{
						Name:  "sources",
						Usage: "Print the documents the answer is based on",
					},
				},
			},
			{
				Name:      "retrieve",
				Usage:     "Show the hybrid retrieval candidates for a query",
				ArgsUsage: "QUERY",
				Action:    retrieveCommand,
				Flags:     []cli.Flag{spaceFlag, jsonFlag},
			},
			{
				Name:   "stats",
				Usage:  "Count the chunks, concepts and relationships of a space",
				Action: statsCommand,
				Flags:  []cli.Flag{spaceFlag, jsonFlag},
			},
			{
				Name:   "reembed",
				Usage:  "Recompute the embeddings of a space with the configured model",
				Action: reembedCommand,
				Flags: []cli.Flag{
					spaceFlag,
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Chunks per embedding request",
						Value: 100,
					},
				},
			},
			{
				Name:   "clear",
				Usage:  "Delete all data and files of a space",
				Action: clearCommand,
				Flags:  []cli.Flag{spaceFlag},
			},
		},
	}
}

func parseLevel(s string) (slog.Level, error) {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(s)

	switch levelStr {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}
}

func setupLogger(c *cli.Context) error {
	level, err := parseLevel(c.String("log-level"))
	if err != nil {
		return err
	}

	var handler slog.Handler
	switch format := strings.ToLower(c.String("log-format")); format {
	case "", "text":
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	case "pretty":
		handler = charmlog.NewWithOptions(os.Stderr, charmlog.Options{
			ReportTimestamp: true,
			Level:           charmlog.Level(level),
		})
	default:
		return fmt.Errorf("invalid log format %q: must be one of text, json, pretty", format)
	}

	slog.SetDefault(slog.New(handler))
	return nil
}

// loadSettings layers the config file, GRAPHRAG_* variables and global flags.
func loadSettings(c *cli.Context) error {
	cfg, err := loadConfig(c.String("config"), c.IsSet("config"))
	if err != nil {
		return err
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return err
	}

	if c.IsSet("data-dir") {
		cfg.DataDir = c.String("data-dir")
	}
	if c.IsSet("store") {
		cfg.Store = c.String("store")
	}
	if c.IsSet("metrics-file") {
		cfg.MetricsFile = c.String("metrics-file")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if c.App.Metadata == nil {
		c.App.Metadata = map[string]any{}
	}
	c.App.Metadata[configKey] = cfg
	return nil
}

func settings(c *cli.Context) *Config {
	if cfg, ok := c.App.Metadata[configKey].(*Config); ok {
		return cfg
	}
	return defaultConfig()
}
