// Copyright (c) 2026 John Earle
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

// Booking Calendar Sync
//
// Reads flight and car-share booking emails from Gmail, extracts the
// bookings with an LLM and reconciles them into a calendar. Intended to run
// from cron or a scheduled job; each run processes the configured window
// and exits.
//
// Usage:
//
//	go run ./cmd/calsync/ [--config config.yaml] [--hours 8 | --days 30 | --start-date 2025-07-01 --end-date 2025-08-01] [--dry-run]
//	go run ./cmd/calsync/ --unmark id1,id2
//	go run ./cmd/calsync/ --validate
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"google.golang.org/api/option"

	"github.com/bcem/bookingsync/internal/calendar"
	"github.com/bcem/bookingsync/internal/config"
	"github.com/bcem/bookingsync/internal/extract"
	"github.com/bcem/bookingsync/internal/filter"
	"github.com/bcem/bookingsync/internal/mail"
	"github.com/bcem/bookingsync/internal/metrics"
	"github.com/bcem/bookingsync/internal/notify"
	"github.com/bcem/bookingsync/internal/pipeline"
	"github.com/bcem/bookingsync/internal/processor"
	"github.com/bcem/bookingsync/internal/queue"
	"github.com/bcem/bookingsync/internal/runlock"
)

func main() {
	os.Exit(run())
}

func run() int {
	// --- CLI Flags ---
	configFlag := flag.String("config", "", "Path to config.yaml (default: $CONFIG_PATH or ./config.yaml)")
	startFlag := flag.String("start-date", "", "Process emails on or after this date (YYYY-MM-DD)")
	endFlag := flag.String("end-date", "", "Process emails before this date (YYYY-MM-DD)")
	hoursFlag := flag.Int("hours", 0, "Process emails from the last N hours")
	daysFlag := flag.Int("days", 0, "Process emails from the last N days")
	dryRunFlag := flag.Bool("dry-run", false, "Extract and reconcile against an in-memory calendar without labelling emails")
	unmarkFlag := flag.String("unmark", "", "Comma-separated message ids to remove the processed label from, then exit")
	validateFlag := flag.Bool("validate", false, "Check configuration and credentials, then exit")
	flag.Parse()

	// --- Load Configuration ---
	cfg, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	// Structured JSON logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	window, err := resolveWindow(cfg, windowFlags{
		StartDate: *startFlag,
		EndDate:   *endFlag,
		Hours:     *hoursFlag,
		Days:      *daysFlag,
		Set:       setFlags(),
	})
	if err != nil {
		slog.Error("invalid sync window", "error", err)
		return 1
	}

	if *validateFlag {
		return validate(cfg, window)
	}

	// --- Gmail ---
	gmailCreds, err := cfg.GmailCredentials()
	if err != nil {
		slog.Error("gmail credentials", "error", err)
		return 1
	}
	source, err := mail.NewGmailSource(ctx, mail.GmailConfig{
		Label:      cfg.Label,
		MaxResults: int64(cfg.MaxResults),
	}, logger, option.WithTokenSource(gmailCreds.TokenSource(ctx, mail.Scope)))
	if err != nil {
		slog.Error("failed to create gmail client", "error", err)
		return 1
	}

	if *unmarkFlag != "" {
		return unmark(ctx, source, splitList(*unmarkFlag))
	}

	if cfg.OpenAIAPIKey == "" {
		slog.Error("OPENAI_API_KEY is not configured")
		return 1
	}

	// --- Redis (optional): run lock and result feed ---
	var publisher *queue.Publisher
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			slog.Error("invalid REDIS_URL", "error", err)
			return 1
		}
		rdb := redis.NewClient(opt)
		defer rdb.Close()

		publisher = queue.NewPublisher(rdb, cfg.ResultsQueue, logger)
		if err := publisher.Ping(ctx); err != nil {
			slog.Error("failed to connect to Redis", "error", err)
			return 1
		}
		slog.Info("connected to Redis")

		if !*dryRunFlag {
			lock, err := runlock.NewLocker(rdb, cfg.LockTTL).Acquire(ctx, cfg.CalendarID)
			if errors.Is(err, runlock.ErrHeld) {
				slog.Warn("another sync run is in progress, exiting", "calendar_id", cfg.CalendarID)
				return 0
			}
			if err != nil {
				slog.Error("failed to acquire run lock", "error", err)
				return 1
			}
			defer func() {
				if err := lock.Release(context.Background()); err != nil {
					slog.Warn("failed to release run lock", "error", err)
				}
			}()
		}
	}

	// --- Calendar store ---
	store, closeStore, err := openStore(ctx, cfg, *dryRunFlag, logger)
	if err != nil {
		slog.Error("failed to open calendar store", "backend", cfg.CalendarBackend, "error", err)
		return 1
	}
	defer closeStore()

	// --- Processors ---
	collector := metrics.NewCollector()
	engine := extract.NewOpenAIEngine(extract.OpenAIConfig{
		APIKey:  cfg.OpenAIAPIKey,
		Model:   cfg.OpenAIModel,
		BaseURL: cfg.OpenAIBaseURL,
	})
	classifier := filter.New()
	reconciler := processor.NewReconciler(store, logger)

	factory := processor.NewFactory(
		processor.NewFlightProcessor(cfg.FlightDomains, classifier,
			extract.NewFlightExtractor(engine, collector, logger), reconciler, logger),
		processor.NewCarShareProcessor(cfg.ForwardingAddresses, classifier,
			extract.NewCarShareExtractor(engine, collector, logger), reconciler, logger),
	)

	runnerCfg := pipeline.RunnerConfig{
		Source:  source,
		Factory: factory,
		DryRun:  *dryRunFlag,
		Logger:  logger,
	}
	if publisher != nil {
		runnerCfg.Publisher = publisher
	}

	// --- Run ---
	result, err := pipeline.NewRunner(runnerCfg).Run(ctx, pipeline.Request{Window: window})
	if err != nil {
		slog.Error("sync run failed", "error", err)
		return 1
	}

	collector.LogSummary(logger)

	if publisher != nil {
		if err := publisher.PublishSummary(ctx, result.RunID, result.Summary); err != nil {
			slog.Warn("failed to publish run summary", "error", err)
		}
	}

	if cfg.SlackWebhookURL != "" {
		if err := notify.NewSlack(cfg.SlackWebhookURL, nil, logger).NotifySummary(ctx, result.Summary); err != nil {
			slog.Error("failed to send slack notification", "error", err)
		}
	}

	if result.Summary.HasFailures() {
		slog.Warn("some emails failed to process", "failed_count", result.Summary.Failed)
	}
	return 0
}

// openStore builds the configured calendar backend. Dry runs always use an
// in-memory calendar.
func openStore(ctx context.Context, cfg *config.Config, dryRun bool, logger *slog.Logger) (processor.CalendarStore, func(), error) {
	noop := func() {}

	backend := cfg.CalendarBackend
	if dryRun {
		backend = config.BackendMemory
	}

	switch backend {
	case config.BackendMemory:
		logger.Info("using in-memory calendar store", "dry_run", dryRun)
		return calendar.NewMemoryStore(), noop, nil

	case config.BackendPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, noop, fmt.Errorf("connect to postgres: %w", err)
		}
		store, err := calendar.NewPostgresStore(ctx, pool, logger)
		if err != nil {
			pool.Close()
			return nil, noop, err
		}
		return store, pool.Close, nil

	default:
		creds, err := cfg.CalendarCredentials()
		if err != nil {
			return nil, noop, err
		}
		store, err := calendar.NewGoogleStore(ctx, cfg.CalendarID, logger,
			option.WithTokenSource(creds.TokenSource(ctx, calendar.Scope)))
		if err != nil {
			return nil, noop, err
		}
		return store, noop, nil
	}
}

// validate checks everything a sync run needs without contacting any service.
func validate(cfg *config.Config, window mail.Window) int {
	if err := cfg.Preflight(); err != nil {
		slog.Error("configuration invalid", "error", err)
		return 1
	}
	slog.Info("configuration valid",
		"backend", cfg.CalendarBackend,
		"calendar_id", cfg.CalendarID,
		"window", window.String(),
	)
	return 0
}

// unmark removes the processed label so the messages are picked up again.
func unmark(ctx context.Context, source *mail.GmailSource, ids []string) int {
	failed := 0
	for _, id := range ids {
		if err := source.RemoveMark(ctx, id); err != nil {
			slog.Error("failed to remove processed label", "email_id", id, "error", err)
			failed++
			continue
		}
		slog.Info("removed processed label", "email_id", id, "label", source.Label())
	}
	if failed > 0 {
		return 1
	}
	return 0
}
