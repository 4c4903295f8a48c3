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

// Package calendar provides the calendar stores the reconciler writes to:
// Google Calendar, a Postgres table and an in-memory store. All three keep
// the private tag bag of every event and return start and end as the ISO
// strings they were written with.
package calendar

import (
	"time"

	"github.com/bcem/bookingsync/internal/models"
)

// Event is a stored calendar entry.
type Event struct {
	ID          string
	Summary     string
	Description string
	Location    string
	Start       string // RFC 3339
	End         string // RFC 3339
	Tags        map[string]string
}

// Tag returns the value of a private tag, or "".
func (e Event) Tag(key string) string {
	return e.Tags[key]
}

// StartTime parses Start.
func (e Event) StartTime() (time.Time, error) {
	return time.Parse(time.RFC3339, e.Start)
}

// EndTime parses End.
func (e Event) EndTime() (time.Time, error) {
	return time.Parse(time.RFC3339, e.End)
}

// fromDesired builds the stored form of a desired event.
func fromDesired(id string, ev models.CalendarEvent) Event {
	return Event{
		ID:          id,
		Summary:     ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		Start:       ev.StartISO(),
		End:         ev.EndISO(),
		Tags:        ev.Tags(),
	}
}

// overlapsWindow reports whether [start, end) intersects [from, to).
func overlapsWindow(start, end, from, to time.Time) bool {
	return start.Before(to) && end.After(from)
}
