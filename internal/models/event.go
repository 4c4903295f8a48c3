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
	"fmt"
	"strings"
	"time"
)

// Private tag keys attached to every event this pipeline writes. They are the
// only lookup mechanism for later runs and must round-trip through the store.
const (
	TagSource           = "source"
	TagSourceEmailID    = "source_email_id"
	TagConfirmationCode = "confirmation_code"
	TagBookingReference = "booking_reference"
	TagSeatNumber       = "seat_number"

	// SourceValue marks events owned by this pipeline.
	SourceValue = "gmail-calendar-sync"
)

// SeatUnassigned is the placeholder airlines print before seat selection.
const SeatUnassigned = "未指定"

// CalendarEvent describes a desired calendar entry.
type CalendarEvent struct {
	Summary          string
	Description      string
	Start            time.Time
	End              time.Time
	Location         string
	SourceEmailID    string
	ConfirmationCode string
	BookingReference string
	SeatNumber       string
}

// Tags returns the private tag bag for the event.
func (e *CalendarEvent) Tags() map[string]string {
	tags := map[string]string{
		TagSource:        SourceValue,
		TagSourceEmailID: e.SourceEmailID,
	}
	if e.ConfirmationCode != "" {
		tags[TagConfirmationCode] = e.ConfirmationCode
	}
	if e.BookingReference != "" {
		tags[TagBookingReference] = e.BookingReference
	}
	if e.SeatNumber != "" {
		tags[TagSeatNumber] = e.SeatNumber
	}
	return tags
}

// StartISO formats the start time as RFC 3339 in its original offset.
func (e *CalendarEvent) StartISO() string { return e.Start.Format(time.RFC3339) }

// EndISO formats the end time as RFC 3339 in its original offset.
func (e *CalendarEvent) EndISO() string { return e.End.Format(time.RFC3339) }

// FlightEvents builds one event per outbound segment followed by one per
// return segment, preserving segment order.
func FlightEvents(b *FlightBooking, sourceEmailID string) []CalendarEvent {
	events := make([]CalendarEvent, 0, b.SegmentCount())
	for _, seg := range b.OutboundSegments {
		events = append(events, flightEvent(b, seg, sourceEmailID))
	}
	for _, seg := range b.ReturnSegments {
		events = append(events, flightEvent(b, seg, sourceEmailID))
	}
	return events
}

func flightEvent(b *FlightBooking, seg FlightSegment, sourceEmailID string) CalendarEvent {
	summary := fmt.Sprintf("✈️ %s → %s (%s %s)",
		displayAirport(seg.DepartureAirport), displayAirport(seg.ArrivalAirport),
		seg.Airline, seg.FlightNumber)

	lines := []string{
		fmt.Sprintf("Flight: %s %s", seg.Airline, seg.FlightNumber),
		fmt.Sprintf("Route: %s → %s", seg.DepartureAirport.Code, seg.ArrivalAirport.Code),
		fmt.Sprintf("Passenger: %s", b.PassengerName),
	}
	if b.ConfirmationCode != "" {
		lines = append(lines, fmt.Sprintf("Confirmation: %s", b.ConfirmationCode))
	}
	if b.BookingReference != "" {
		lines = append(lines, fmt.Sprintf("Booking Reference: %s", b.BookingReference))
	}
	if seg.SeatNumber != "" {
		lines = append(lines, fmt.Sprintf("Seat: %s", seg.SeatNumber))
	}
	if b.CheckinURL != "" {
		lines = append(lines, fmt.Sprintf("Check-in: %s", b.CheckinURL))
	}

	location := seg.DepartureAirport.Name
	if location == "" {
		location = seg.DepartureAirport.Code
	}
	if seg.DepartureAirport.City != "" {
		location += ", " + seg.DepartureAirport.City
	}

	return CalendarEvent{
		Summary:          summary,
		Description:      strings.Join(lines, "\n"),
		Start:            seg.DepartureTime,
		End:              seg.ArrivalTime,
		Location:         location,
		SourceEmailID:    sourceEmailID,
		ConfirmationCode: b.ConfirmationCode,
		BookingReference: b.BookingReference,
		SeatNumber:       seg.SeatNumber,
	}
}

// displayAirport prefers city, then name, then code, without airport suffixes.
func displayAirport(a Airport) string {
	name := a.City
	if name == "" {
		name = a.Name
	}
	if name == "" {
		name = a.Code
	}
	name = strings.ReplaceAll(name, " Airport", "")
	return strings.ReplaceAll(name, "空港", "")
}

// CarShareEvent builds the single event for a car-share booking.
func CarShareEvent(b *CarShareBooking, sourceEmailID string) CalendarEvent {
	summary := fmt.Sprintf("%s %s", b.Status.Emoji(), b.Station.Name)
	if b.Car != nil && b.Car.Type != "" {
		summary += fmt.Sprintf(" (%s)", b.Car.Type)
	}

	lines := []string{
		fmt.Sprintf("サービス: %s", b.Provider.DisplayName()),
		fmt.Sprintf("ステーション: %s", b.Station.Name),
		fmt.Sprintf("利用者: %s", b.UserName),
		fmt.Sprintf("利用時間: %.1f時間", b.DurationHours()),
		fmt.Sprintf("ステータス: %s", b.Status),
	}
	if b.Station.Address != "" {
		lines = append(lines, fmt.Sprintf("住所: %s", b.Station.Address))
	}
	if b.Car != nil {
		if b.Car.Type != "" {
			lines = append(lines, fmt.Sprintf("車種: %s", b.Car.Type))
		}
		if b.Car.Number != "" {
			lines = append(lines, fmt.Sprintf("車両番号: %s", b.Car.Number))
		}
	}
	if b.BookingReference != "" {
		lines = append(lines, fmt.Sprintf("予約番号: %s", b.BookingReference))
	}
	if b.ConfirmationCode != "" {
		lines = append(lines, fmt.Sprintf("確認番号: %s", b.ConfirmationCode))
	}
	if b.TotalPrice != "" {
		lines = append(lines, fmt.Sprintf("料金: %s", b.TotalPrice))
	}

	location := b.Station.Name
	if b.Station.Address != "" {
		location += ", " + b.Station.Address
	}

	return CalendarEvent{
		Summary:          summary,
		Description:      strings.Join(lines, "\n"),
		Start:            b.StartTime,
		End:              b.EndTime,
		Location:         location,
		SourceEmailID:    sourceEmailID,
		ConfirmationCode: b.ConfirmationCode,
		BookingReference: b.BookingReference,
	}
}
