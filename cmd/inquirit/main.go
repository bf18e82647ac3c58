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
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/poiesic/inquirit"
	"github.com/poiesic/inquirit/config"
	"github.com/poiesic/inquirit/server"
	"github.com/poiesic/inquirit/storage"
	"github.com/poiesic/inquirit/storage/badger"
	"github.com/urfave/cli/v2"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "inquirit",
		Usage: "Answer questions from the live web with cited sources",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "warn",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML configuration file",
				EnvVars: []string{"INQUIRIT_CONFIG"},
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ask",
				Usage:     "Answer a question",
				ArgsUsage: "<question...>",
				Action:    askCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "conversation",
						Aliases: []string{"n"},
						Usage:   "Conversation to continue; empty runs without history",
						Value:   "default",
					},
					&cli.BoolFlag{
						Name:  "no-history",
						Usage: "Neither read nor write conversation history",
					},
					&cli.BoolFlag{
						Name:    "verbose",
						Aliases: []string{"v"},
						Usage:   "Print pipeline progress to stderr",
					},
				},
			},
			{
				Name:   "serve",
				Usage:  "Run the HTTP API",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "host",
						Usage: "Listen host (overrides config)",
					},
					&cli.IntFlag{
						Name:  "port",
						Usage: "Listen port (overrides config)",
					},
				},
			},
			{
				Name:  "history",
				Usage: "Inspect stored conversations",
				Subcommands: []*cli.Command{
					{
						Name:   "list",
						Usage:  "List conversations, most recent first",
						Action: historyListCommand,
					},
					{
						Name:      "show",
						Usage:     "Print the turns of a conversation",
						ArgsUsage: "<conversation>",
						Action:    historyShowCommand,
						Flags: []cli.Flag{
							&cli.IntFlag{
								Name:  "limit",
								Usage: "Show only the most recent N turns (0 for all)",
							},
						},
					},
					{
						Name:      "clear",
						Usage:     "Delete a conversation",
						ArgsUsage: "<conversation>",
						Action:    historyClearCommand,
					},
				},
			},
		},
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func askCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return errors.New("a question is required")
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	opts := []inquirit.AssistantOption{inquirit.WithConfig(cfg)}
	if c.Bool("no-history") {
		opts = append(opts, inquirit.WithoutHistory())
	}
	if c.Bool("verbose") {
		opts = append(opts, inquirit.WithMonitor(newProgressMonitor(c.App.ErrWriter)))
	}

	assistant, err := inquirit.NewAssistant(opts...)
	if err != nil {
		return err
	}
	defer assistant.Close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	conversation := c.String("conversation")
	if c.Bool("no-history") {
		conversation = ""
	}
	answer, err := assistant.Ask(ctx, conversation, query)
	if answer != nil {
		printAnswer(c.App.Writer, answer)
	}
	return err
}

func serveCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if c.IsSet("host") {
		cfg.Server.Host = c.String("host")
	}
	if c.IsSet("port") {
		cfg.Server.Port = c.Int("port")
	}

	assistant, err := inquirit.NewAssistant(inquirit.WithConfig(cfg))
	if err != nil {
		return err
	}
	defer assistant.Close()

	var opts []server.Option
	if repo, err := assistant.History(); err == nil {
		opts = append(opts, server.WithHistory(repo))
	}
	srv, err := server.NewServer(assistant, cfg.Server, opts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Stop(shutdownCtx)
	}
}

// openHistory opens the configured conversation store without building the
// model provider or search clients.
func openHistory(c *cli.Context) (storage.ConversationRepository, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	if !cfg.History.EnabledOrDefault() {
		return nil, inquirit.ErrHistoryDisabled
	}
	return badger.OpenRepository(cfg.History.Path)
}

func historyListCommand(c *cli.Context) error {
	repo, err := openHistory(c)
	if err != nil {
		return err
	}
	defer repo.Close()

	list, err := repo.ListConversations(c.Context)
	if err != nil {
		return err
	}
	printConversations(c.App.Writer, list)
	return nil
}

func historyShowCommand(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return errors.New("a conversation name is required")
	}
	repo, err := openHistory(c)
	if err != nil {
		return err
	}
	defer repo.Close()

	turns, err := repo.GetTurns(c.Context, id, c.Int("limit"))
	if err != nil {
		return err
	}
	printTurns(c.App.Writer, turns)
	return nil
}

func historyClearCommand(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return errors.New("a conversation name is required")
	}
	repo, err := openHistory(c)
	if err != nil {
		return err
	}
	defer repo.Close()

	if err := repo.DeleteConversation(c.Context, id); err != nil {
		return fmt.Errorf("clear %q: %w", id, err)
	}
	fmt.Fprintf(c.App.Writer, "Cleared conversation %q\n", id)
	return nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
