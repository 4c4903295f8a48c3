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

// Package filter separates booking notifications from promotional and
// account mail before any extraction call is spent on them.
//
// Two heuristics run in order. IsLikelyBooking is a cheap subject-only
// pre-filter. IsPromotional counts independent promotional pattern matches in
// subject and body, but any confirmation-style language wins over promotional
// signals.
package filter

import (
	"log/slog"
	"regexp"
)

// Classification is the combined verdict for one message.
type Classification struct {
	LikelyBooking bool
	Promotional   bool
}

// EmailFilter holds the compiled pattern lists. The zero value is not usable;
// construct with New.
type EmailFilter struct {
	nonBookingSubject   []*regexp.Regexp
	bookingSubject      []*regexp.Regexp
	promotionalSubject  []*regexp.Regexp
	promotionalBody     []*regexp.Regexp
	bookingConfirmation []*regexp.Regexp
}

// New compiles the default Japanese and English pattern lists.
func New() *EmailFilter {
	return &EmailFilter{
		nonBookingSubject:   compile(nonBookingSubjectPatterns),
		bookingSubject:      compile(bookingSubjectPatterns),
		promotionalSubject:  compile(promotionalSubjectPatterns),
		promotionalBody:     compile(promotionalBodyPatterns),
		bookingConfirmation: compile(bookingConfirmationPatterns),
	}
}

// Classify runs both heuristics.
func (f *EmailFilter) Classify(subject, body string) Classification {
	return Classification{
		LikelyBooking: f.IsLikelyBooking(subject),
		Promotional:   f.IsPromotional(subject, body),
	}
}

// IsLikelyBooking rejects subjects that are obviously not booking mail.
// Ambiguous subjects are accepted and left to the promotional classifier and
// the extraction step.
func (f *EmailFilter) IsLikelyBooking(subject string) bool {
	if re := firstMatch(f.nonBookingSubject, subject); re != nil {
		slog.Debug("subject matches non-booking pattern",
			"subject", subject,
			"pattern", re.String(),
		)
		return false
	}
	if re := firstMatch(f.bookingSubject, subject); re != nil {
		slog.Debug("subject matches booking pattern",
			"subject", subject,
			"pattern", re.String(),
		)
		return true
	}
	return true
}

// IsPromotional reports whether the message is marketing mail.
//
// Confirmation language in the subject, or at least two confirmation patterns
// in the body, makes a message non-promotional regardless of promotional
// signals. Otherwise it is promotional when the subject matches two or more
// promotional patterns, when the subject matches one and the body two or
// more, or when the body alone matches three or more.
func (f *EmailFilter) IsPromotional(subject, body string) bool {
	if f.isBookingConfirmation(subject, body) {
		slog.Debug("email identified as booking confirmation", "subject", subject)
		return false
	}

	subjectMatches := countMatches(f.promotionalSubject, subject)
	bodyMatches := countMatches(f.promotionalBody, body)

	var reason string
	switch {
	case subjectMatches >= 2:
		reason = "multiple subject patterns"
	case subjectMatches >= 1 && bodyMatches >= 2:
		reason = "subject and multiple body patterns"
	case bodyMatches >= 3:
		reason = "many body patterns"
	default:
		slog.Debug("email passed promotional filter",
			"subject", subject,
			"subject_matches", subjectMatches,
			"body_matches", bodyMatches,
		)
		return false
	}

	slog.Info("email identified as promotional",
		"reason", reason,
		"subject", subject,
		"subject_matches", subjectMatches,
		"body_matches", bodyMatches,
	)
	return true
}

func (f *EmailFilter) isBookingConfirmation(subject, body string) bool {
	if firstMatch(f.bookingConfirmation, subject) != nil {
		return true
	}
	return countMatches(f.bookingConfirmation, body) >= 2
}

func compile(patterns []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile("(?i)"+p))
	}
	return out
}

func firstMatch(patterns []*regexp.Regexp, s string) *regexp.Regexp {
	for _, re := range patterns {
		if re.MatchString(s) {
			return re
		}
	}
	return nil
}

func countMatches(patterns []*regexp.Regexp, s string) int {
	n := 0
	for _, re := range patterns {
		if re.MatchString(s) {
			n++
		}
	}
	return n
}
