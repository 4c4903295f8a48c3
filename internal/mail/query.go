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

// Package mail reads booking notifications from Gmail and marks them
// processed with a label so later runs skip them.
package mail

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Window selects which messages a run reads. Absolute dates win over
// SinceHours, which wins over SinceDays.
type Window struct {
	StartDate  string // YYYY-MM-DD, inclusive
	EndDate    string // YYYY-MM-DD, exclusive
	SinceHours int
	SinceDays  int
}

// Validate checks the absolute dates.
func (w Window) Validate() error {
	if err := checkDate("start date", w.StartDate); err != nil {
		return err
	}
	return checkDate("end date", w.EndDate)
}

func checkDate(name, v string) error {
	if v == "" {
		return nil
	}
	if _, err := time.Parse(dateLayout, v); err != nil {
		return fmt.Errorf("invalid %s %q: use YYYY-MM-DD", name, v)
	}
	return nil
}

// Filter renders the window as Gmail search operators relative to now.
func (w Window) Filter(now time.Time) (string, error) {
	switch {
	case w.StartDate != "" || w.EndDate != "":
		if err := w.Validate(); err != nil {
			return "", err
		}
		var parts []string
		if w.StartDate != "" {
			t, _ := time.Parse(dateLayout, w.StartDate)
			parts = append(parts, "after:"+t.Format("2006/01/02"))
		}
		if w.EndDate != "" {
			t, _ := time.Parse(dateLayout, w.EndDate)
			parts = append(parts, "before:"+t.Format("2006/01/02"))
		}
		return strings.Join(parts, " "), nil

	case w.SinceHours > 0:
		since := now.Add(-time.Duration(w.SinceHours) * time.Hour)
		return fmt.Sprintf("after:%d", since.Unix()), nil

	case w.SinceDays > 0:
		since := now.AddDate(0, 0, -w.SinceDays)
		return "after:" + since.Format("2006/01/02"), nil
	}
	return "", nil
}

// String describes the window for log lines.
func (w Window) String() string {
	switch {
	case w.StartDate != "" || w.EndDate != "":
		return fmt.Sprintf("%s..%s", w.StartDate, w.EndDate)
	case w.SinceHours > 0:
		return fmt.Sprintf("last %dh", w.SinceHours)
	case w.SinceDays > 0:
		return fmt.Sprintf("last %dd", w.SinceDays)
	}
	return "all"
}

// BuildQuery returns the Gmail search for one sender (a domain or an
// address), excluding messages that already carry label.
func BuildQuery(sender, label string, w Window, now time.Time) (string, error) {
	parts := []string{"from:" + sender}
	if label != "" {
		parts = append(parts, "-label:"+label)
	}
	filter, err := w.Filter(now)
	if err != nil {
		return "", err
	}
	if filter != "" {
		parts = append(parts, filter)
	}
	return strings.Join(parts, " "), nil
}
