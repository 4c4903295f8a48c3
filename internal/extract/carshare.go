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

package extract

import (
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"time"

	"github.com/bcem/bookingsync/internal/models"
)

// subjectStatus lists subject patterns per status in precedence order.
// English keywords match whole words only.
var subjectStatus = []struct {
	status  models.BookingStatus
	pattern *regexp.Regexp
}{
	{models.StatusCancelled, regexp.MustCompile(`(?i)キャンセル|取り消し|取消|\bcancel(?:l?ed|lation)?\b`)},
	{models.StatusChanged, regexp.MustCompile(`(?i)変更|\bchang(?:e|ed|es)\b`)},
	{models.StatusCompleted, regexp.MustCompile(`(?i)利用終了|利用完了|返却|\bcompleted\b`)},
	{models.StatusReserved, regexp.MustCompile(`(?i)予約を受付けました|予約を受け付けました|予約開始|予約完了|\breserved\b|\breservation confirmed\b`)},
}

// StatusFromSubject infers the booking status from the email subject. ok is
// false when the subject names no status.
func StatusFromSubject(subject string) (status models.BookingStatus, ok bool) {
	for _, entry := range subjectStatus {
		if entry.pattern.MatchString(subject) {
			return entry.status, true
		}
	}
	return "", false
}

// CarShareExtractor extracts car-share bookings.
type CarShareExtractor struct {
	engine  Engine
	metrics MetricsSink
	logger  *slog.Logger
}

// NewCarShareExtractor creates a car-share extractor. A nil sink discards
// metrics.
func NewCarShareExtractor(engine Engine, sink MetricsSink, logger *slog.Logger) *CarShareExtractor {
	if sink == nil {
		sink = discardSink{}
	}
	return &CarShareExtractor{engine: engine, metrics: sink, logger: logger}
}

// Extract returns the car-share booking described by the email for the given
// provider, or nil when there is none. The status inferred from the subject
// wins over the one read from the body.
func (x *CarShareExtractor) Extract(ctx context.Context, email *models.InboundEmail, provider models.CarShareProvider) (*models.CarShareBooking, error) {
	x.logger.Info("extracting car share info",
		"email_id", email.ID,
		"provider", provider,
		"subject", email.ShortSubject(),
		"content_length", len(email.Body),
	)

	content, err := complete(ctx, x.engine, x.metrics, Request{
		Kind:   models.KindCarShare,
		System: carShareSystemPrompt,
		User:   carShareUserPrompt(email.Subject, string(provider), email.Body),
	})
	if err != nil {
		return nil, err
	}

	booking := x.parse(content, provider, email.ReceivedAt)
	if booking == nil {
		x.logger.Info("no car share information found", "email_id", email.ID)
		return nil, nil
	}

	if status, ok := StatusFromSubject(email.Subject); ok && status != booking.Status {
		x.logger.Info("status overridden by subject",
			"email_id", email.ID,
			"extracted", booking.Status,
			"subject_status", status,
		)
		booking = booking.WithStatus(status)
	}
	x.logger.Info("extracted car share booking",
		"email_id", email.ID,
		"provider", booking.Provider,
		"status", booking.Status,
		"station", booking.Station.Name,
	)
	return booking, nil
}

func (x *CarShareExtractor) parse(content string, provider models.CarShareProvider, receivedAt time.Time) *models.CarShareBooking {
	if _, ok := models.ParseProvider(string(provider)); !ok {
		x.logger.Warn("unknown car share provider", "provider", provider)
		return nil
	}

	raw, ok := ParseResponse(content)
	if !ok {
		return nil
	}

	var doc carShareDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		x.logger.Warn("malformed car share extraction output", "error", err)
		return nil
	}

	if doc.Station.Name == "" {
		x.logger.Warn("no station name found in car share data")
		return nil
	}

	start, err := models.ParseTimestamp(doc.StartTime.String())
	if err != nil {
		x.logger.Warn("invalid or missing start time", "error", err)
		return nil
	}
	end, err := models.ParseTimestamp(doc.EndTime.String())
	if err != nil {
		x.logger.Warn("invalid or missing end time", "error", err)
		return nil
	}

	booking := &models.CarShareBooking{
		BookingReference: doc.BookingReference.String(),
		ConfirmationCode: doc.ConfirmationCode.String(),
		Provider:         provider,
		Status:           models.ParseBookingStatus(doc.Status.String()),
		UserName:         doc.UserName.String(),
		StartTime:        start,
		EndTime:          end,
		Station: models.Station{
			Name:    doc.Station.Name.String(),
			Address: doc.Station.Address.String(),
			Code:    doc.Station.Code.String(),
		},
		BookingDate: parseOptionalTime(x.logger, "booking_date", doc.BookingDate),
		TotalPrice:  doc.TotalPrice.String(),
	}
	if c := doc.Car; c != nil && (c.Type != "" || c.Number != "" || c.Name != "") {
		booking.Car = &models.Car{Type: c.Type.String(), Number: c.Number.String(), Name: c.Name.String()}
	}
	if !receivedAt.IsZero() {
		booking.EmailReceivedAt = &receivedAt
	}

	if err := booking.Validate(); err != nil {
		x.logger.Warn("invalid car share booking", "error", err)
		return nil
	}
	return booking
}
