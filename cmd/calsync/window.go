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

package main

import (
	"flag"
	"strings"

	"github.com/bcem/bookingsync/internal/config"
	"github.com/bcem/bookingsync/internal/mail"
)

// windowFlags are the window-related command line values. Set holds the
// names of flags given explicitly.
type windowFlags struct {
	StartDate string
	EndDate   string
	Hours     int
	Days      int
	Set       map[string]bool
}

// resolveWindow merges configuration and flags. Any explicit window flag
// replaces the configured window entirely.
func resolveWindow(cfg *config.Config, f windowFlags) (mail.Window, error) {
	var w mail.Window
	switch {
	case f.Set["start-date"] || f.Set["end-date"]:
		w = mail.Window{StartDate: f.StartDate, EndDate: f.EndDate}
	case f.Set["hours"]:
		w = mail.Window{SinceHours: f.Hours}
	case f.Set["days"]:
		w = mail.Window{SinceDays: f.Days}
	default:
		w = mail.Window{
			StartDate:  cfg.SyncStartDate,
			EndDate:    cfg.SyncEndDate,
			SinceHours: cfg.SyncPeriodHours,
			SinceDays:  cfg.SyncPeriodDays,
		}
	}
	if err := w.Validate(); err != nil {
		return mail.Window{}, err
	}
	return w, nil
}

func setFlags() map[string]bool {
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
