// @title			askwidget API
// @version		1.0
// @description	Question-answering chat widget: submits questions to the answering service and serves sanitized Markdown answers.
// @BasePath		/api/v1

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/mtlprog/askwidget/internal/backend"
	"github.com/mtlprog/askwidget/internal/config"
	"github.com/mtlprog/askwidget/internal/database"
	"github.com/mtlprog/askwidget/internal/domain"
	"github.com/mtlprog/askwidget/internal/handler"
	"github.com/mtlprog/askwidget/internal/logger"
	"github.com/mtlprog/askwidget/internal/render"
	"github.com/mtlprog/askwidget/internal/repository"
	"github.com/mtlprog/askwidget/internal/service"
	"github.com/urfave/cli/v2"
)

const configKey = "config"

func main() {
	app := &cli.App{
		Name:  "askwidget",
		Usage: "Question-answering chat widget",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "backend-url",
				Aliases: []string{"b"},
				Value:   config.DefaultBackendURL,
				Usage:   "Base URL of the answering service (POST {url}/ask)",
				EnvVars: []string{"BACKEND_URL"},
			},
			&cli.StringFlag{
				Name:    "database-url",
				Aliases: []string{"d"},
				Value:   config.DefaultDatabaseURL,
				Usage:   "PostgreSQL database URL for the exchange journal (optional)",
				EnvVars: []string{"DATABASE_URL"},
			},
			&cli.DurationFlag{
				Name:    "request-timeout",
				Value:   config.DefaultRequestTimeout,
				Usage:   "Timeout for one question/answer round trip",
				EnvVars: []string{"REQUEST_TIMEOUT"},
			},
		},
		Before: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			if c.IsSet("log-level") {
				cfg.LogLevel = c.String("log-level")
			}
			if c.IsSet("backend-url") {
				cfg.BackendURL = c.String("backend-url")
			}
			if c.IsSet("database-url") {
				cfg.DatabaseURL = c.String("database-url")
			}
			if c.IsSet("request-timeout") {
				cfg.RequestTimeout = c.Duration("request-timeout")
			}

			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			// stdout is reserved for command output.
			logger.Setup(logger.ParseLevel(cfg.LogLevel), os.Stderr)

			c.App.Metadata = map[string]interface{}{configKey: cfg}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the widget server",
				Flags:  []cli.Flag{portFlag()},
				Action: runServe,
			},
			{
				Name:      "ask",
				Usage:     "Ask one question and print the answer",
				ArgsUsage: "<question...>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "html",
						Usage: "Print the sanitized HTML instead of the Markdown answer",
					},
				},
				Action: runAsk,
			},
			{
				Name:  "faq",
				Usage: "List the FAQ shortcuts, or ask one with --select",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "select",
						Aliases: []string{"s"},
						Usage:   "FAQ number to ask (1-5)",
					},
					&cli.BoolFlag{
						Name:  "html",
						Usage: "Print the sanitized HTML instead of the Markdown answer",
					},
				},
				Action: runFAQ,
			},
			{
				Name:   "migrate",
				Usage:  "Apply exchange journal migrations",
				Action: runMigrate,
			},
			{
				Name:  "history",
				Usage: "Show the most recent journal entries",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Value:   20,
						Usage:   "Number of entries to show",
					},
				},
				Action: runHistory,
			},
		},
		Action: runServe,
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func configFrom(c *cli.Context) *config.Config {
	return c.App.Metadata[configKey].(*config.Config)
}

// journal is the optional Postgres exchange journal.
type journal struct {
	db   *database.DB
	repo *repository.ExchangeRepository
}

// openJournal connects and migrates the journal, or returns nil when no database is configured.
func openJournal(ctx context.Context, cfg *config.Config) (*journal, error) {
	if !cfg.JournalEnabled() {
		return nil, nil
	}

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := database.RunMigrations(ctx, db.Pool()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &journal{db: db, repo: repository.NewExchangeRepository(db.Pool())}, nil
}

func portFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "port",
		Aliases: []string{"p"},
		Value:   config.DefaultPort,
		Usage:   "HTTP server port",
		EnvVars: []string{"PORT"},
	}
}

// servePort prefers an explicit --port (or PORT in the process environment)
// over the loaded config, which also covers PORT from .env.
func servePort(c *cli.Context, cfg *config.Config) string {
	if c.IsSet("port") {
		return c.String("port")
	}
	return cfg.Port
}

func newBackend(cfg *config.Config) (*backend.Client, error) {
	client, err := backend.New(cfg.BackendURL, backend.WithMaxResponseBytes(cfg.MaxAnswerBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create backend client: %w", err)
	}
	return client, nil
}

func runServe(c *cli.Context) error {
	ctx := c.Context
	cfg := configFrom(c)

	port := servePort(c, cfg)

	client, err := newBackend(cfg)
	if err != nil {
		return err
	}

	opts := handler.Options{
		Title:      cfg.Title,
		SessionTTL: cfg.SessionTTL,
	}

	var recorder service.Recorder
	j, err := openJournal(ctx, cfg)
	if err != nil {
		return err
	}
	if j != nil {
		defer j.db.Close()
		recorder = j.repo
		opts.Stats = j.repo
		opts.DB = j.db
		slog.Info("exchange journal enabled")
	}

	renderer := render.New()
	sessions := service.NewSessions(cfg.SessionTTL, func(sessionID string) *service.Exchange {
		return service.NewExchange(client, renderer, service.ExchangeOptions{
			SessionID: sessionID,
			Timeout:   cfg.RequestTimeout,
			Recorder:  recorder,
		})
	})
	defer sessions.Close()
	opts.Sessions = sessions

	h, err := handler.New(opts)
	if err != nil {
		return fmt.Errorf("failed to create handler: %w", err)
	}

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           h.Routes(),
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      handler.DefaultMaxWait + 5*time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErr := make(chan error, 1)
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server",
			"server_addr", "http://localhost:"+port,
			"backend_url", client.AskURL(),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-done:
		slog.Info("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("server stopped", "open_sessions", sessions.Len())
	return nil
}

func runAsk(c *cli.Context) error {
	question := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(question) == "" {
		return cli.ShowSubcommandHelp(c)
	}

	return runExchange(c, func(ex *service.Exchange) error {
		ex.SetQuestion(question)
		_, err := ex.Submit(question)
		return err
	})
}

func runFAQ(c *cli.Context) error {
	faqs := service.NewFAQShortcuts()

	if !c.IsSet("select") {
		for _, faq := range faqs.List() {
			fmt.Fprintf(c.App.Writer, "%d. %s\n", faq.Index, faq.Text)
		}
		return nil
	}

	index := c.Int("select")
	if _, err := faqs.Get(index); err != nil {
		return err
	}

	return runExchange(c, func(ex *service.Exchange) error {
		_, err := faqs.Select(ex, index)
		return err
	})
}

// runExchange runs one exchange started by submit and prints its answer.
// Interrupting the command aborts the request.
func runExchange(c *cli.Context, submit func(ex *service.Exchange) error) error {
	cfg := configFrom(c)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := newBackend(cfg)
	if err != nil {
		return err
	}

	opts := service.ExchangeOptions{
		SessionID: "cli",
		Timeout:   cfg.RequestTimeout,
	}
	j, err := openJournal(ctx, cfg)
	if err != nil {
		return err
	}
	if j != nil {
		defer j.db.Close()
		opts.Recorder = j.repo
	}

	ex := service.NewExchange(client, render.New(), opts)
	defer ex.Close()

	if err := submit(ex); err != nil {
		return err
	}

	snap, err := ex.WaitIdle(ctx)
	if err != nil {
		return fmt.Errorf("exchange interrupted: %w", err)
	}

	if c.Bool("html") {
		fmt.Fprintln(c.App.Writer, string(snap.AnswerHTML))
	} else {
		fmt.Fprintln(c.App.Writer, snap.Answer)
	}
	return nil
}

func runMigrate(c *cli.Context) error {
	cfg := configFrom(c)
	if !cfg.JournalEnabled() {
		return fmt.Errorf("migrate: %w", domain.ErrJournalDisabled)
	}

	j, err := openJournal(c.Context, cfg)
	if err != nil {
		return err
	}
	defer j.db.Close()

	slog.Info("migrations applied")
	return nil
}

func runHistory(c *cli.Context) error {
	cfg := configFrom(c)
	if !cfg.JournalEnabled() {
		return fmt.Errorf("history: %w", domain.ErrJournalDisabled)
	}

	j, err := openJournal(c.Context, cfg)
	if err != nil {
		return err
	}
	defer j.db.Close()

	records, err := j.repo.ListRecent(c.Context, c.Int("limit"))
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tOUTCOME\tLATENCY\tQUESTION")
	for _, rec := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			rec.CreatedAt.Local().Format(time.DateTime),
			rec.Outcome,
			rec.Latency.Round(time.Millisecond),
			rec.Question,
		)
	}
	return tw.Flush()
}
