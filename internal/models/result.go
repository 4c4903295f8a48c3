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
	"encoding/json"
	"fmt"
)

// FailureKind classifies an unsuccessful ProcessingResult. None of them abort
// a batch.
type FailureKind string

const (
	FailureNone           FailureKind = ""
	FailureNotBooking     FailureKind = "not_booking"
	FailurePromotional    FailureKind = "promotional"
	FailureNoExtraction   FailureKind = "no_extraction"
	FailureReconciliation FailureKind = "reconciliation"
	FailureProcessing     FailureKind = "processing"
	FailureUnexpected     FailureKind = "unexpected"
)

// Fixed result messages. Reports and notifications count outcomes by them.
const (
	MsgNoFlightInfo    = "No flight information found in email"
	MsgNoCarShareInfo  = "No car sharing information found in email"
	MsgPromotional     = "Skipped promotional email"
	MsgCalendarFailure = "Failed to create calendar events"
)

// NoInfoMessage returns the kind-specific "nothing found" message.
func NoInfoMessage(kind BookingKind) string {
	if kind == KindCarShare {
		return MsgNoCarShareInfo
	}
	return MsgNoFlightInfo
}

// ProcessingResult is the outcome of processing one email.
type ProcessingResult struct {
	EmailID         string         `json:"email_id"`
	Kind            BookingKind    `json:"email_type"`
	Success         bool           `json:"success"`
	ExtractedData   map[string]any `json:"extracted_data,omitempty"`
	Failure         FailureKind    `json:"failure,omitempty"`
	ErrorMessage    string         `json:"error_message,omitempty"`
	CalendarEventID string         `json:"calendar_event_id,omitempty"`
}

// Succeeded builds a success result.
func Succeeded(emailID string, kind BookingKind, data map[string]any, eventID string) ProcessingResult {
	return ProcessingResult{
		EmailID:         emailID,
		Kind:            kind,
		Success:         true,
		ExtractedData:   data,
		CalendarEventID: eventID,
	}
}

// Failed builds a failure result with the given taxonomy kind and message.
func Failed(emailID string, kind BookingKind, failure FailureKind, msg string) ProcessingResult {
	return ProcessingResult{
		EmailID:      emailID,
		Kind:         kind,
		Failure:      failure,
		ErrorMessage: msg,
	}
}

// ProcessingError wraps an error raised inside a processor.
func ProcessingError(emailID string, kind BookingKind, err error) ProcessingResult {
	return Failed(emailID, kind, FailureProcessing, fmt.Sprintf("Processing error: %v", err))
}

// UnexpectedError wraps a failure caught at the driver boundary.
func UnexpectedError(emailID string, kind BookingKind, cause any) ProcessingResult {
	return Failed(emailID, kind, FailureUnexpected, fmt.Sprintf("Unexpected error: %v", cause))
}

// Payload converts a typed booking into the opaque map carried by results.
func Payload(v any) map[string]any {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}
