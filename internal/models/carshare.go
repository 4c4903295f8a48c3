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

// CarShareProvider is one of the supported car-sharing services.
type CarShareProvider string

const (
	ProviderMitsui   CarShareProvider = "mitsui_carshares"
	ProviderTimesCar CarShareProvider = "times_car"
)

const (
	providerNameMitsui = "三井のカーシェアーズ"
	providerNameTimes  = "Times Car"
)

// providerDomains maps sender domains to providers. Matching is exact or by
// dot-suffix.
var providerDomains = []struct {
	domain   string
	provider CarShareProvider
}{
	{"carshares.jp", ProviderMitsui},
	{"share.timescar.jp", ProviderTimesCar},
}

// ProviderDomains returns the sender domains of all known providers.
func ProviderDomains() []string {
	out := make([]string, 0, len(providerDomains))
	for _, pd := range providerDomains {
		out = append(out, pd.domain)
	}
	return out
}

// ProviderFromDomain resolves a sender domain to a provider. ok is false for
// unknown domains.
func ProviderFromDomain(domain string) (CarShareProvider, bool) {
	for _, pd := range providerDomains {
		if MatchesDomain(domain, pd.domain) {
			return pd.provider, true
		}
	}
	return "", false
}

// ParseProvider maps the wire value back to a provider.
func ParseProvider(s string) (CarShareProvider, bool) {
	switch CarShareProvider(s) {
	case ProviderMitsui, ProviderTimesCar:
		return CarShareProvider(s), true
	}
	return "", false
}

// DisplayName is the name shown in event descriptions and titles.
func (p CarShareProvider) DisplayName() string {
	switch p {
	case ProviderMitsui:
		return providerNameMitsui
	case ProviderTimesCar:
		return providerNameTimes
	}
	return string(p)
}

// ProviderDisplayNames lists every provider display name. Reconciliation uses
// it to recognise events this pipeline wrote.
func ProviderDisplayNames() []string {
	return []string{providerNameTimes, providerNameMitsui}
}

// BookingStatus is the lifecycle state reported by a car-share email.
type BookingStatus string

const (
	StatusReserved  BookingStatus = "reserved"
	StatusChanged   BookingStatus = "changed"
	StatusCancelled BookingStatus = "cancelled"
	StatusCompleted BookingStatus = "completed"
)

// ParseBookingStatus maps the wire value to a status. Unknown or empty values
// are treated as reserved.
func ParseBookingStatus(s string) BookingStatus {
	switch st := BookingStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusReserved, StatusChanged, StatusCancelled, StatusCompleted:
		return st
	}
	return StatusReserved
}

// Emoji is the title prefix for the status.
func (s BookingStatus) Emoji() string {
	switch s {
	case StatusChanged:
		return "🔄"
	case StatusCancelled:
		return "❌"
	case StatusCompleted:
		return "✅"
	}
	return "🚗"
}

// Station is the pickup and return location.
type Station struct {
	Name    string `json:"station_name"`
	Address string `json:"station_address,omitempty"`
	Code    string `json:"station_code,omitempty"`
}

// Car describes the reserved vehicle.
type Car struct {
	Type   string `json:"car_type,omitempty"`
	Number string `json:"car_number,omitempty"`
	Name   string `json:"car_name,omitempty"`
}

// CarShareBooking is a single-interval car-share reservation.
type CarShareBooking struct {
	BookingReference string           `json:"booking_reference,omitempty"`
	ConfirmationCode string           `json:"confirmation_code,omitempty"`
	Provider         CarShareProvider `json:"provider"`
	Status           BookingStatus    `json:"status"`
	UserName         string           `json:"user_name"`
	StartTime        time.Time        `json:"start_time"`
	EndTime          time.Time        `json:"end_time"`
	Station          Station          `json:"station"`
	Car              *Car             `json:"car,omitempty"`
	BookingDate      *time.Time       `json:"booking_date,omitempty"`
	TotalPrice       string           `json:"total_price,omitempty"`
	EmailReceivedAt  *time.Time       `json:"email_received_at,omitempty"`
}

// Validate enforces the required fields and a positive interval.
func (b *CarShareBooking) Validate() error {
	switch {
	case b.Provider == "":
		return errors.New("car share booking: provider is required")
	case strings.TrimSpace(b.Station.Name) == "":
		return errors.New("car share booking: station name is required")
	case strings.TrimSpace(b.UserName) == "":
		return errors.New("car share booking: user name is required")
	case b.StartTime.IsZero() || b.EndTime.IsZero():
		return errors.New("car share booking: start and end times are required")
	case !b.EndTime.After(b.StartTime):
		return fmt.Errorf("car share booking: end %s is not after start %s",
			b.EndTime.Format(time.RFC3339), b.StartTime.Format(time.RFC3339))
	}
	return nil
}

// WithStatus returns a copy of the booking in the given status.
func (b *CarShareBooking) WithStatus(s BookingStatus) *CarShareBooking {
	c := *b
	c.Status = s
	return &c
}

// DurationHours is the rental length in hours.
func (b *CarShareBooking) DurationHours() float64 {
	return b.EndTime.Sub(b.StartTime).Hours()
}

// IsActive reports whether the booking has not been cancelled.
func (b *CarShareBooking) IsActive() bool {
	return b.Status != StatusCancelled
}

// DedupKey identifies a reservation by provider, station and start minute.
func (b *CarShareBooking) DedupKey() string {
	station := b.Station.Code
	if station == "" {
		station = b.Station.Name
	}
	return fmt.Sprintf("%s_%s_%s", b.Provider, station, b.StartTime.Format("200601021504"))
}
