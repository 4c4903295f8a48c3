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
	"bytes"
	"encoding/json"
	"strings"
)

// ParseResponse normalises raw engine output into a JSON document. ok is
// false when the engine reported no booking: an empty answer or the literal
// null, bare or inside a code fence.
func ParseResponse(raw string) (doc []byte, ok bool) {
	s := stripFences(raw)
	if s == "" || strings.EqualFold(s, "null") {
		return nil, false
	}
	return []byte(s), true
}

// stripFences removes a surrounding markdown code fence with an optional
// language tag.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// text decodes a JSON string, number or null into a trimmed string. Numeric
// confirmation codes are accepted unquoted.
type text string

func (t *text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*t = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = text(strings.TrimSpace(s))
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		*t = text(n.String())
	}
	return nil
}

func (t text) String() string { return string(t) }

type airportDoc struct {
	Code text `json:"code"`
	Name text `json:"name"`
	City text `json:"city"`
}

type segmentDoc struct {
	Airline          text       `json:"airline"`
	FlightNumber     text       `json:"flight_number"`
	DepartureAirport airportDoc `json:"departure_airport"`
	ArrivalAirport   airportDoc `json:"arrival_airport"`
	DepartureTime    text       `json:"departure_time"`
	ArrivalTime      text       `json:"arrival_time"`
	AircraftType     text       `json:"aircraft_type"`
	SeatNumber       text       `json:"seat_number"`
}

type flightDoc struct {
	ConfirmationCode text         `json:"confirmation_code"`
	PassengerName    text         `json:"passenger_name"`
	BookingReference text         `json:"booking_reference"`
	OutboundSegments []segmentDoc `json:"outbound_segments"`
	ReturnSegments   []segmentDoc `json:"return_segments"`
	BookingDate      text         `json:"booking_date"`
	TotalPrice       text         `json:"total_price"`
	CheckinURL       text         `json:"checkin_url"`
	CheckinOpens     text         `json:"checkin_opens"`
}

type carShareDoc struct {
	BookingReference text `json:"booking_reference"`
	ConfirmationCode text `json:"confirmation_code"`
	Status           text `json:"status"`
	UserName         text `json:"user_name"`
	StartTime        text `json:"start_time"`
	EndTime          text `json:"end_time"`
	Station          struct {
		Name    text `json:"station_name"`
		Address text `json:"station_address"`
		Code    text `json:"station_code"`
	} `json:"station"`
	Car *struct {
		Type   text `json:"car_type"`
		Number text `json:"car_number"`
		Name   text `json:"car_name"`
	} `json:"car"`
	BookingDate text `json:"booking_date"`
	TotalPrice  text `json:"total_price"`
}
