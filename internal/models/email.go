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

// Package models defines the data structures shared across the booking sync
// pipeline: inbound mail, typed booking records, desired calendar events and
// per-message processing results.
package models

import (
	"strings"
	"time"
)

// BookingKind selects the extraction and reconciliation rules for a message.
type BookingKind string

const (
	KindFlight   BookingKind = "flight"
	KindCarShare BookingKind = "car_share"
)

// InboundEmail is a message as delivered by the mail source. It is never
// mutated once fetched.
type InboundEmail struct {
	ID         string    `json:"id"`
	ThreadID   string    `json:"thread_id"`
	Subject    string    `json:"subject"`
	Sender     string    `json:"sender"`
	Body       string    `json:"body"`
	ReceivedAt time.Time `json:"received_at"`
	Labels     []string  `json:"labels,omitempty"`
}

// Domain returns the lower-cased sender domain, e.g. "mail.carshares.jp" for
// "Mitsui <no-reply@mail.carshares.jp>". Empty when the sender has no "@".
func (e *InboundEmail) Domain() string {
	at := strings.LastIndex(e.Sender, "@")
	if at < 0 {
		return ""
	}
	domain := strings.ToLower(e.Sender[at+1:])
	if i := strings.Index(domain, ">"); i >= 0 {
		domain = domain[:i]
	}
	return strings.TrimSpace(domain)
}

// SenderAddress returns the bare lower-cased sender address.
func (e *InboundEmail) SenderAddress() string {
	s := e.Sender
	if lt := strings.LastIndex(s, "<"); lt >= 0 {
		s = s[lt+1:]
	}
	if gt := strings.Index(s, ">"); gt >= 0 {
		s = s[:gt]
	}
	return strings.ToLower(strings.TrimSpace(s))
}

// ShortSubject truncates the subject for log lines.
func (e *InboundEmail) ShortSubject() string {
	r := []rune(e.Subject)
	if len(r) > 100 {
		return string(r[:100])
	}
	return e.Subject
}

// MatchesDomain reports whether domain equals suffix or is a subdomain of it.
func MatchesDomain(domain, suffix string) bool {
	domain = strings.ToLower(domain)
	suffix = strings.ToLower(suffix)
	return domain == suffix || strings.HasSuffix(domain, "."+suffix)
}
