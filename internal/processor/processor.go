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

// Package processor turns one inbound email into a ProcessingResult: it
// classifies the email, extracts the booking and reconciles the calendar.
// A Factory dispatches each email to the first processor that accepts it.
package processor

import (
	"context"
	"time"

	"github.com/bcem/bookingsync/internal/calendar"
	"github.com/bcem/bookingsync/internal/filter"
	"github.com/bcem/bookingsync/internal/models"
)

// Processor handles one booking kind.
type Processor interface {
	Kind() models.BookingKind
	CanProcess(email *models.InboundEmail) bool
	Process(ctx context.Context, email *models.InboundEmail) models.ProcessingResult
}

// CalendarStore is the calendar collaborator used by the reconcilers.
type CalendarStore interface {
	Create(ctx context.Context, ev models.CalendarEvent) (string, error)
	Update(ctx context.Context, id string, ev models.CalendarEvent) error
	Delete(ctx context.Context, id string) error
	FindByTag(ctx context.Context, key, value string) ([]calendar.Event, error)
	ListInWindow(ctx context.Context, start, end time.Time, tagKey, tagValue string) ([]calendar.Event, error)
}

// Classifier runs the subject and body heuristics.
type Classifier interface {
	Classify(subject, body string) filter.Classification
}

// FlightExtractor extracts a flight booking; nil means none was found.
type FlightExtractor interface {
	Extract(ctx context.Context, email *models.InboundEmail) (*models.FlightBooking, error)
}

// CarShareExtractor extracts a car-share booking; nil means none was found.
type CarShareExtractor interface {
	Extract(ctx context.Context, email *models.InboundEmail, provider models.CarShareProvider) (*models.CarShareBooking, error)
}

// Factory holds processors in registration order.
type Factory struct {
	processors []Processor
}

// NewFactory creates a factory with the given processors, first match wins.
func NewFactory(processors ...Processor) *Factory {
	return &Factory{processors: processors}
}

// Register appends a processor.
func (f *Factory) Register(p Processor) {
	f.processors = append(f.processors, p)
}

// Get returns the first processor that accepts the email, or nil.
func (f *Factory) Get(email *models.InboundEmail) Processor {
	for _, p := range f.processors {
		if p.CanProcess(email) {
			return p
		}
	}
	return nil
}

// Processors returns the registered processors in order.
func (f *Factory) Processors() []Processor {
	out := make([]Processor, len(f.processors))
	copy(out, f.processors)
	return out
}

// screen applies the two filter steps shared by every processor. It returns
// a failure result and false when the email must not reach extraction.
func screen(c Classifier, email *models.InboundEmail, kind models.BookingKind) (models.ProcessingResult, bool) {
	cls := c.Classify(email.Subject, email.Body)
	if !cls.LikelyBooking {
		return models.Failed(email.ID, kind, models.FailureNotBooking, models.NoInfoMessage(kind)), false
	}
	if cls.Promotional {
		return models.Failed(email.ID, kind, models.FailurePromotional, models.MsgPromotional), false
	}
	return models.ProcessingResult{}, true
}

// reconcileFailure is the result for a booking that was extracted but could
// not be written to the calendar.
func reconcileFailure(email *models.InboundEmail, kind models.BookingKind, data map[string]any) models.ProcessingResult {
	r := models.Failed(email.ID, kind, models.FailureReconciliation, models.MsgCalendarFailure)
	r.ExtractedData = data
	return r
}

// Senders collects the mail source queries of every processor that exposes
// them, without duplicates, in registration order.
func (f *Factory) Senders() []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range f.processors {
		sp, ok := p.(interface{ Senders() []string })
		if !ok {
			continue
		}
		for _, s := range sp.Senders() {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}
