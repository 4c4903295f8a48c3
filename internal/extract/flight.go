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
	"time"

	"github.com/bcem/bookingsync/internal/models"
)

// FlightExtractor extracts flight bookings.
type FlightExtractor struct {
	engine  Engine
	metrics MetricsSink
	logger  *slog.Logger
}

// NewFlightExtractor creates a flight extractor. A nil sink discards metrics.
func NewFlightExtractor(engine Engine, sink MetricsSink, logger *slog.Logger) *FlightExtractor {
	if sink == nil {
		sink = discardSink{}
	}
	return &FlightExtractor{engine: engine, metrics: sink, logger: logger}
}

// Extract returns the flight booking described by the email, or nil when the
// email does not contain a usable one. The error is non-nil only when the
// engine could not be reached.
func (x *FlightExtractor) Extract(ctx context.Context, email *models.InboundEmail) (*models.FlightBooking, error) {
	x.logger.Info("extracting flight info",
		"email_id", email.ID,
		"subject", email.ShortSubject(),
		"content_length", len(email.Body),
	)

	content, err := complete(ctx, x.engine, x.metrics, Request{
		Kind:   models.KindFlight,
		System: flightSystemPrompt,
		User:   flightUserPrompt(email.Subject, email.Body),
	})
	if err != nil {
		return nil, err
	}

	booking := x.parse(content)
	if booking == nil {
		x.logger.Info("no flight information found", "email_id", email.ID)
		return nil, nil
	}

	x.logger.Info("extracted flight booking",
		"email_id", email.ID,
		"confirmation_code", booking.ConfirmationCode,
		"outbound_segments", len(booking.OutboundSegments),
		"return_segments", len(booking.ReturnSegments),
	)
	return booking, nil
}

func (x *FlightExtractor) parse(content string) *models.FlightBooking {
	raw, ok := ParseResponse(content)
	if !ok {
		return nil
	}

	var doc flightDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		x.logger.Warn("malformed flight extraction output", "error", err)
		return nil
	}

	booking := &models.FlightBooking{
		ConfirmationCode: doc.ConfirmationCode.String(),
		PassengerName:    doc.PassengerName.String(),
		BookingReference: doc.BookingReference.String(),
		OutboundSegments: x.segments(doc.OutboundSegments),
		ReturnSegments:   x.segments(doc.ReturnSegments),
		BookingDate:      x.optionalTime("booking_date", doc.BookingDate),
		TotalPrice:       doc.TotalPrice.String(),
		CheckinURL:       doc.CheckinURL.String(),
		CheckinOpens:     x.optionalTime("checkin_opens", doc.CheckinOpens),
	}
	if booking.ReturnSegments == nil {
		booking.ReturnSegments = []models.FlightSegment{}
	}

	if len(booking.OutboundSegments) == 0 {
		x.logger.Warn("no valid outbound segments found")
		return nil
	}
	if err := booking.Validate(); err != nil {
		x.logger.Warn("invalid flight booking", "error", err)
		return nil
	}
	return booking
}

// segments converts every valid segment and drops the rest.
func (x *FlightExtractor) segments(docs []segmentDoc) []models.FlightSegment {
	var out []models.FlightSegment
	for i, d := range docs {
		seg, err := toSegment(d)
		if err != nil {
			x.logger.Warn("dropping invalid flight segment",
				"index", i,
				"flight_number", d.FlightNumber.String(),
				"error", err,
			)
			continue
		}
		out = append(out, seg)
	}
	return out
}

func toSegment(d segmentDoc) (models.FlightSegment, error) {
	dep, err := models.ParseTimestamp(d.DepartureTime.String())
	if err != nil {
		return models.FlightSegment{}, err
	}
	arr, err := models.ParseTimestamp(d.ArrivalTime.String())
	if err != nil {
		return models.FlightSegment{}, err
	}

	seg := models.FlightSegment{
		Airline:      d.Airline.String(),
		FlightNumber: d.FlightNumber.String(),
		DepartureAirport: models.Airport{
			Code: d.DepartureAirport.Code.String(),
			Name: d.DepartureAirport.Name.String(),
			City: d.DepartureAirport.City.String(),
		},
		ArrivalAirport: models.Airport{
			Code: d.ArrivalAirport.Code.String(),
			Name: d.ArrivalAirport.Name.String(),
			City: d.ArrivalAirport.City.String(),
		},
		DepartureTime: dep,
		ArrivalTime:   arr,
		AircraftType:  d.AircraftType.String(),
		SeatNumber:    d.SeatNumber.String(),
	}
	return seg, seg.Validate()
}

// optionalTime parses an optional timestamp, logging and dropping bad values.
func (x *FlightExtractor) optionalTime(field string, v text) *time.Time {
	return parseOptionalTime(x.logger, field, v)
}

func parseOptionalTime(logger *slog.Logger, field string, v text) *time.Time {
	if v == "" {
		return nil
	}
	t, err := models.ParseTimestamp(v.String())
	if err != nil {
		logger.Warn("ignoring invalid timestamp", "field", field, "value", v.String(), "error", err)
		return nil
	}
	return &t
}
