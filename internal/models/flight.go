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

package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMissingTimezone is returned for timestamps without an explicit offset.
var ErrMissingTimezone = errors.New("timestamp has no timezone offset")

var (
	zonedLayouts = []string{
		time.RFC3339,
		"2006-01-02T15:04Z07:00",
		"2006-01-02 15:04:05Z07:00",
		"2006-01-02 15:04Z07:00",
		"2006-01-02T15:04:05Z0700",
		"2006-01-02T15:04Z0700",
	}
	naiveLayouts = []string{
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
	}
)

// ParseTimestamp parses an ISO-8601 timestamp that must carry a zone offset
// ("Z", "+09:00" or "+0900"). A well-formed timestamp without an offset yields
// ErrMissingTimezone.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	for _, layout := range naiveLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return time.Time{}, fmt.Errorf("%q: %w", s, ErrMissingTimezone)
		}
	}
	return time.Time{}, fmt.Errorf("invalid ISO-8601 timestamp %q", s)
}

// Airport identifies a departure or arrival airport.
type Airport struct {
	Code string `json:"code"`
	Name string `json:"name,omitempty"`
	City string `json:"city,omitempty"`
}

// FlightSegment is a single leg of an itinerary.
type FlightSegment struct {
	Airline          string    `json:"airline"`
	FlightNumber     string    `json:"flight_number"`
	DepartureAirport Airport   `json:"departure_airport"`
	ArrivalAirport   Airport   `json:"arrival_airport"`
	DepartureTime    time.Time `json:"departure_time"`
	ArrivalTime      time.Time `json:"arrival_time"`
	AircraftType     string    `json:"aircraft_type,omitempty"`
	SeatNumber       string    `json:"seat_number,omitempty"`
}

// Validate checks the fields every segment must carry.
func (s FlightSegment) Validate() error {
	switch {
	case s.Airline == "":
		return errors.New("segment: airline is required")
	case s.FlightNumber == "":
		return errors.New("segment: flight number is required")
	case s.DepartureAirport.Code == "" || s.ArrivalAirport.Code == "":
		return errors.New("segment: airport codes are required")
	case s.DepartureTime.IsZero() || s.ArrivalTime.IsZero():
		return errors.New("segment: departure and arrival times are required")
	}
	return nil
}

// FlightBooking is a complete itinerary extracted from one email.
type FlightBooking struct {
	ConfirmationCode string          `json:"confirmation_code,omitempty"`
	PassengerName    string          `json:"passenger_name"`
	BookingReference string          `json:"booking_reference,omitempty"`
	OutboundSegments []FlightSegment `json:"outbound_segments"`
	ReturnSegments   []FlightSegment `json:"return_segments"`
	BookingDate      *time.Time      `json:"booking_date,omitempty"`
	TotalPrice       string          `json:"total_price,omitempty"`
	CheckinURL       string          `json:"checkin_url,omitempty"`
	CheckinOpens     *time.Time      `json:"checkin_opens,omitempty"`
}

// Validate enforces the booking invariants: a passenger and at least one
// valid outbound segment.
func (b *FlightBooking) Validate() error {
	if strings.TrimSpace(b.PassengerName) == "" {
		return errors.New("flight booking: passenger name is required")
	}
	if len(b.OutboundSegments) == 0 {
		return errors.New("flight booking: at least one outbound segment is required")
	}
	for i, seg := range b.OutboundSegments {
		if err := seg.Validate(); err != nil {
			return fmt.Errorf("outbound %d: %w", i, err)
		}
	}
	for i, seg := range b.ReturnSegments {
		if err := seg.Validate(); err != nil {
			return fmt.Errorf("return %d: %w", i, err)
		}
	}
	return nil
}

// Identity returns the tag key and value used to find earlier events for this
// booking: the confirmation code, else the booking reference. Both empty when
// the booking carries neither.
func (b *FlightBooking) Identity() (key, value string) {
	if b.ConfirmationCode != "" {
		return TagConfirmationCode, b.ConfirmationCode
	}
	if b.BookingReference != "" {
		return TagBookingReference, b.BookingReference
	}
	return "", ""
}

// IsRoundTrip reports whether the booking has return segments.
func (b *FlightBooking) IsRoundTrip() bool {
	return len(b.ReturnSegments) > 0
}

// SegmentCount is the number of calendar events the booking maps to.
func (b *FlightBooking) SegmentCount() int {
	return len(b.OutboundSegments) + len(b.ReturnSegments)
}
