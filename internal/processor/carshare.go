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
	"strings"

	"github.com/bcem/bookingsync/internal/models"
)

// forwardKeywords identifies the provider of a manually forwarded email.
// Times Car is checked first.
var forwardKeywords = []struct {
	provider models.CarShareProvider
	keywords []string
}{
	{models.ProviderTimesCar, []string{"タイムズカー", "times car"}},
	{models.ProviderMitsui, []string{"三井のカーシェアーズ", "カレコ", "careco"}},
}

// SniffProvider sniffs subject and body for a known provider.
func SniffProvider(subject, body string) (models.CarShareProvider, bool) {
	text := strings.ToLower(subject + "\n" + body)
	for _, fk := range forwardKeywords {
		for _, kw := range fk.keywords {
			if strings.Contains(text, kw) {
				return fk.provider, true
			}
		}
	}
	return "", false
}

// CarShareProcessor handles car-share booking emails, direct from a provider
// or forwarded from a trusted address.
type CarShareProcessor struct {
	forwarders []string
	classifier Classifier
	extractor  CarShareExtractor
	reconciler *Reconciler
	logger     *slog.Logger
}

// NewCarShareProcessor creates a processor. forwarders are sender addresses
// whose mail is sniffed for provider keywords.
func NewCarShareProcessor(forwarders []string, c Classifier, x CarShareExtractor, r *Reconciler, logger *slog.Logger) *CarShareProcessor {
	normalized := make([]string, 0, len(forwarders))
	for _, f := range forwarders {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			normalized = append(normalized, f)
		}
	}
	return &CarShareProcessor{
		forwarders: normalized,
		classifier: c,
		extractor:  x,
		reconciler: r,
		logger:     logger,
	}
}

func (p *CarShareProcessor) Kind() models.BookingKind { return models.KindCarShare }

// Senders returns the provider domains followed by the forwarding addresses.
func (p *CarShareProcessor) Senders() []string {
	return append(models.ProviderDomains(), p.forwarders...)
}

// CanProcess reports whether a provider can be determined for the email.
func (p *CarShareProcessor) CanProcess(email *models.InboundEmail) bool {
	_, ok := p.provider(email)
	return ok
}

func (p *CarShareProcessor) provider(email *models.InboundEmail) (models.CarShareProvider, bool) {
	if prov, ok := models.ProviderFromDomain(email.Domain()); ok {
		return prov, true
	}
	if p.isForwarded(email) {
		return SniffProvider(email.Subject, email.Body)
	}
	return "", false
}

func (p *CarShareProcessor) isForwarded(email *models.InboundEmail) bool {
	addr := email.SenderAddress()
	for _, f := range p.forwarders {
		if addr == f {
			return true
		}
	}
	return false
}

// Process runs filter, extraction and reconciliation for one email.
func (p *CarShareProcessor) Process(ctx context.Context, email *models.InboundEmail) models.ProcessingResult {
	log := p.logger.With("email_id", email.ID, "email_type", models.KindCarShare)

	provider, ok := p.provider(email)
	if !ok {
		return models.Failed(email.ID, models.KindCarShare, models.FailureNotBooking, models.MsgNoCarShareInfo)
	}
	log.Info("processing car share email",
		"subject", email.ShortSubject(),
		"sender", email.Sender,
		"provider", provider,
	)

	if res, ok := screen(p.classifier, email, models.KindCarShare); !ok {
		log.Info("email skipped", "reason", res.Failure)
		return res
	}

	booking, err := p.extractor.Extract(ctx, email, provider)
	if err != nil {
		log.Error("car share extraction failed", "error", err)
		return models.ProcessingError(email.ID, models.KindCarShare, err)
	}
	if booking == nil {
		return models.Failed(email.ID, models.KindCarShare, models.FailureNoExtraction, models.MsgNoCarShareInfo)
	}

	data := models.Payload(booking)
	outcome, err := p.reconciler.ReconcileCarShare(ctx, booking, email.ID)
	if err != nil {
		log.Error("car share reconciliation failed",
			"station", booking.Station.Name,
			"status", booking.Status,
			"error", err,
		)
		return reconcileFailure(email, models.KindCarShare, data)
	}

	log.Info("car share email processed",
		"status", booking.Status,
		"station", booking.Station.Name,
		"created", len(outcome.Created),
		"deleted", len(outcome.Deleted),
	)
	return models.Succeeded(email.ID, models.KindCarShare, data, outcome.PrimaryEventID())
}
