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

package processor

import (
	"context"
	"log/slog"

	"github.com/bcem/bookingsync/internal/models"
)

// FlightProcessor handles airline booking emails.
type FlightProcessor struct {
	domains    []string
	classifier Classifier
	extractor  FlightExtractor
	reconciler *Reconciler
	logger     *slog.Logger
}

// NewFlightProcessor creates a processor accepting mail from the given
// airline domains.
func NewFlightProcessor(domains []string, c Classifier, x FlightExtractor, r *Reconciler, logger *slog.Logger) *FlightProcessor {
	return &FlightProcessor{
		domains:    domains,
		classifier: c,
		extractor:  x,
		reconciler: r,
		logger:     logger,
	}
}

func (p *FlightProcessor) Kind() models.BookingKind { return models.KindFlight }

// Senders returns the mail source queries for this processor.
func (p *FlightProcessor) Senders() []string {
	return append([]string(nil), p.domains...)
}

// CanProcess matches the sender domain against the airline allow-list.
func (p *FlightProcessor) CanProcess(email *models.InboundEmail) bool {
	domain := email.Domain()
	for _, d := range p.domains {
		if models.MatchesDomain(domain, d) {
			return true
		}
	}
	return false
}

// Process runs filter, extraction and reconciliation for one email.
func (p *FlightProcessor) Process(ctx context.Context, email *models.InboundEmail) models.ProcessingResult {
	log := p.logger.With("email_id", email.ID, "email_type", models.KindFlight)
	log.Info("processing flight email", "subject", email.ShortSubject(), "sender", email.Sender)

	if res, ok := screen(p.classifier, email, models.KindFlight); !ok {
		log.Info("email skipped", "reason", res.Failure)
		return res
	}

	booking, err := p.extractor.Extract(ctx, email)
	if err != nil {
		log.Error("flight extraction failed", "error", err)
		return models.ProcessingError(email.ID, models.KindFlight, err)
	}
	if booking == nil {
		return models.Failed(email.ID, models.KindFlight, models.FailureNoExtraction, models.MsgNoFlightInfo)
	}

	data := models.Payload(booking)
	outcome, err := p.reconciler.ReconcileFlight(ctx, booking, email.ID)
	if err != nil {
		log.Error("flight reconciliation failed",
			"confirmation_code", booking.ConfirmationCode,
			"error", err,
		)
		return reconcileFailure(email, models.KindFlight, data)
	}

	log.Info("flight email processed",
		"confirmation_code", booking.ConfirmationCode,
		"segments", booking.SegmentCount(),
		"mutations", outcome.Mutations(),
	)
	return models.Succeeded(email.ID, models.KindFlight, data, outcome.PrimaryEventID())
}
