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

// Package pipeline drives one sync run: fetch booking emails, process them
// oldest first, mark the successful ones and report a summary.
//
// At most one run is assumed to be active at a time. The calendar store is
// not locked; the optional Redis run lock in package runlock enforces the
// assumption when configured.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/bcem/bookingsync/internal/mail"
	"github.com/bcem/bookingsync/internal/models"
	"github.com/bcem/bookingsync/internal/processor"
	"github.com/google/uuid"
)

// MailSource lists candidate emails and marks processed ones.
type MailSource interface {
	Fetch(ctx context.Context, senders []string, w mail.Window) ([]*models.InboundEmail, error)
	MarkProcessed(ctx context.Context, id string) error
}

// Dispatcher picks the processor for an email.
type Dispatcher interface {
	Get(email *models.InboundEmail) processor.Processor
	Senders() []string
}

// ResultPublisher receives every processing result of a run.
type ResultPublisher interface {
	PublishResult(ctx context.Context, runID string, r models.ProcessingResult) error
}

// Request defines the scope of a run.
type Request struct {
	Window mail.Window
}

// Result summarises a completed run.
type Result struct {
	RunID   string
	Window  mail.Window
	Fetched int
	Skipped int // emails no processor accepted
	Results []models.ProcessingResult
	Summary Summary
	Elapsed time.Duration
}

// Runner performs sync runs.
type Runner struct {
	source    MailSource
	factory   Dispatcher
	publisher ResultPublisher
	dryRun    bool
	logger    *slog.Logger
}

// RunnerConfig holds dependencies for the runner.
type RunnerConfig struct {
	Source    MailSource
	Factory   Dispatcher
	Publisher ResultPublisher // optional
	DryRun    bool            // process without marking emails
	Logger    *slog.Logger
}

// NewRunner creates a runner.
func NewRunner(cfg RunnerConfig) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		source:    cfg.Source,
		factory:   cfg.Factory,
		publisher: cfg.Publisher,
		dryRun:    cfg.DryRun,
		logger:    logger,
	}
}

// Run fetches and processes every email in the window. Only a fetch failure
// is returned as an error; per-email failures end up in the results.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	runID := uuid.New().String()
	logger := r.logger.With("run_id", runID)

	senders := r.factory.Senders()
	logger.Info("starting sync run",
		"window", req.Window.String(),
		"senders", len(senders),
		"dry_run", r.dryRun,
	)

	emails, err := r.source.Fetch(ctx, senders, req.Window)
	if err != nil {
		return nil, fmt.Errorf("fetch emails: %w", err)
	}

	// Amendments and cancellations must be applied after the booking
	// they modify.
	sort.SliceStable(emails, func(i, j int) bool {
		return emails[i].ReceivedAt.Before(emails[j].ReceivedAt)
	})

	result := &Result{
		RunID:   runID,
		Window:  req.Window,
		Fetched: len(emails),
	}

	for _, email := range emails {
		if err := ctx.Err(); err != nil {
			logger.Warn("sync run interrupted", "processed", len(result.Results), "error", err)
			break
		}

		p := r.factory.Get(email)
		if p == nil {
			logger.Info("no processor for email",
				"email_id", email.ID,
				"sender", email.Sender,
				"subject", email.ShortSubject(),
			)
			result.Skipped++
			continue
		}

		res := r.process(ctx, logger, p, email)
		result.Results = append(result.Results, res)

		if res.Success {
			logger.Info("email processed",
				"email_id", email.ID,
				"email_type", res.Kind,
				"calendar_event_id", res.CalendarEventID,
			)
			if !r.dryRun {
				if err := r.source.MarkProcessed(ctx, email.ID); err != nil {
					logger.Warn("mark processed failed", "email_id", email.ID, "error", err)
				}
			}
		} else {
			logger.Info("email not synced",
				"email_id", email.ID,
				"email_type", res.Kind,
				"failure", res.Failure,
				"reason", res.ErrorMessage,
			)
		}

		if r.publisher != nil {
			if err := r.publisher.PublishResult(ctx, runID, res); err != nil {
				logger.Warn("publish result failed", "email_id", email.ID, "error", err)
			}
		}
	}

	result.Summary = Summarize(result.Results)
	result.Elapsed = time.Since(start)

	logger.Info("sync run complete",
		"fetched", result.Fetched,
		"skipped", result.Skipped,
		"elapsed", result.Elapsed,
	)
	result.Summary.Log(logger)

	return result, nil
}

// process runs one processor and converts a panic into a failure result of
// the processor's kind.
func (r *Runner) process(ctx context.Context, logger *slog.Logger, p processor.Processor, email *models.InboundEmail) (res models.ProcessingResult) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("processor panicked",
				"email_id", email.ID,
				"email_type", p.Kind(),
				"panic", rec,
			)
			res = models.UnexpectedError(email.ID, p.Kind(), rec)
		}
	}()
	return p.Process(ctx, email)
}
