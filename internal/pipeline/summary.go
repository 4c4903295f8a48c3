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

package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/bcem/bookingsync/internal/models"
)

// Summary counts the outcomes of a run by category.
type Summary struct {
	Total              int      `json:"total_processed"`
	Successful         int      `json:"successful"`
	PromotionalSkipped int      `json:"promotional_skipped"`
	NoFlightInfo       int      `json:"no_flight_info"`
	NoCarShareInfo     int      `json:"no_car_share_info"`
	Failed             int      `json:"failed"`
	Errors             []string `json:"errors,omitempty"`
}

// Summarize counts results. Emails that were not bookings or yielded no
// extraction count as "no info" for their kind; promotional ones are
// skipped; everything else unsuccessful is a failure and listed in Errors.
func Summarize(results []models.ProcessingResult) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		if r.Success {
			s.Successful++
			continue
		}
		switch r.Failure {
		case models.FailurePromotional:
			s.PromotionalSkipped++
		case models.FailureNotBooking, models.FailureNoExtraction:
			if r.Kind == models.KindCarShare {
				s.NoCarShareInfo++
			} else {
				s.NoFlightInfo++
			}
		default:
			s.Failed++
			s.Errors = append(s.Errors, fmt.Sprintf("%s: %s", r.EmailID, r.ErrorMessage))
		}
	}
	return s
}

// HasFailures reports whether any email failed outright.
func (s Summary) HasFailures() bool {
	return s.Failed > 0
}

// Log writes the summary and one line per failure.
func (s Summary) Log(logger *slog.Logger) {
	logger.Info("processing summary",
		"total_processed", s.Total,
		"successful", s.Successful,
		"promotional_skipped", s.PromotionalSkipped,
		"no_flight_info", s.NoFlightInfo,
		"no_car_share_info", s.NoCarShareInfo,
		"failed", s.Failed,
	)
	for _, e := range s.Errors {
		logger.Warn("processing error", "error", e)
	}
}
