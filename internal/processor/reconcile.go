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

package processor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bcem/bookingsync/internal/calendar"
	"github.com/bcem/bookingsync/internal/models"
)

// carShareSearchMargin widens the overlap query around a car-share booking.
const carShareSearchMargin = 2 * time.Hour

// Outcome lists the calendar mutations made for one booking.
type Outcome struct {
	Created   []string
	Updated   []string
	Deleted   []string
	Unchanged int
}

// PrimaryEventID is the first created or updated event, or "".
func (o Outcome) PrimaryEventID() string {
	if len(o.Created) > 0 {
		return o.Created[0]
	}
	if len(o.Updated) > 0 {
		return o.Updated[0]
	}
	return ""
}

// Mutations is the number of store writes made.
func (o Outcome) Mutations() int {
	return len(o.Created) + len(o.Updated) + len(o.Deleted)
}

// NeedsUpdate reports whether an existing flight event should be overwritten
// with the desired one: a seat was assigned, the times moved, or the new
// description is longer.
func NeedsUpdate(existing calendar.Event, desired models.CalendarEvent) bool {
	oldSeat := existing.Tag(models.TagSeatNumber)
	newSeat := desired.SeatNumber
	if newSeat != oldSeat && newSeat != "" && newSeat != models.SeatUnassigned {
		return true
	}
	if existing.Start != desired.StartISO() || existing.End != desired.EndISO() {
		return true
	}
	return len(desired.Description) > len(existing.Description)
}

// Reconciler brings the calendar in line with an extracted booking.
type Reconciler struct {
	store  CalendarStore
	logger *slog.Logger
}

// NewReconciler creates a reconciler over the given store.
func NewReconciler(store CalendarStore, logger *slog.Logger) *Reconciler {
	return &Reconciler{store: store, logger: logger}
}

// ReconcileFlight aligns existing events carrying the booking identity with
// the desired segment events by position. Pairs are updated in place only
// when NeedsUpdate holds, surplus desired events are created and surplus
// existing events are left alone.
func (r *Reconciler) ReconcileFlight(ctx context.Context, b *models.FlightBooking, sourceEmailID string) (Outcome, error) {
	var out Outcome
	desired := models.FlightEvents(b, sourceEmailID)

	var existing []calendar.Event
	if key, value := b.Identity(); key != "" {
		found, err := r.store.FindByTag(ctx, key, value)
		if err != nil {
			return out, fmt.Errorf("find existing flight events: %w", err)
		}
		existing = found
		r.logger.Info("existing flight events", "identity_key", key, "identity", value, "count", len(existing))
	}

	for i, ev := range desired {
		if i < len(existing) {
			if !NeedsUpdate(existing[i], ev) {
				out.Unchanged++
				continue
			}
			if err := r.store.Update(ctx, existing[i].ID, ev); err != nil {
				return out, fmt.Errorf("update flight event %s: %w", existing[i].ID, err)
			}
			out.Updated = append(out.Updated, existing[i].ID)
			continue
		}

		id, err := r.store.Create(ctx, ev)
		if err != nil {
			return out, fmt.Errorf("create flight event: %w", err)
		}
		out.Created = append(out.Created, id)
	}

	r.logger.Info("flight reconciled",
		"source_email_id", sourceEmailID,
		"created", len(out.Created),
		"updated", len(out.Updated),
		"unchanged", out.Unchanged,
	)
	return out, nil
}

// ReconcileCarShare replaces every own event overlapping the booking at the
// same station with a single new event. A cancelled booking only deletes.
func (r *Reconciler) ReconcileCarShare(ctx context.Context, b *models.CarShareBooking, sourceEmailID string) (Outcome, error) {
	var out Outcome

	candidates, err := r.store.ListInWindow(ctx,
		b.StartTime.Add(-carShareSearchMargin), b.EndTime.Add(carShareSearchMargin),
		models.TagSource, models.SourceValue)
	if err != nil {
		return out, fmt.Errorf("list car share events: %w", err)
	}

	for _, ev := range candidates {
		if !sameReservation(ev, b) {
			continue
		}
		if err := r.store.Delete(ctx, ev.ID); err != nil {
			return out, fmt.Errorf("delete car share event %s: %w", ev.ID, err)
		}
		out.Deleted = append(out.Deleted, ev.ID)
	}

	if b.Status == models.StatusCancelled {
		r.logger.Info("car share booking cancelled",
			"source_email_id", sourceEmailID,
			"station", b.Station.Name,
			"deleted", len(out.Deleted),
		)
		return out, nil
	}

	id, err := r.store.Create(ctx, models.CarShareEvent(b, sourceEmailID))
	if err != nil {
		return out, fmt.Errorf("create car share event: %w", err)
	}
	out.Created = append(out.Created, id)

	r.logger.Info("car share reconciled",
		"source_email_id", sourceEmailID,
		"status", b.Status,
		"deleted", len(out.Deleted),
		"event_id", id,
	)
	return out, nil
}

// sameReservation reports whether a stored event strictly overlaps the
// booking and belongs to the same station or provider.
func sameReservation(ev calendar.Event, b *models.CarShareBooking) bool {
	start, err := ev.StartTime()
	if err != nil {
		return false
	}
	end, err := ev.EndTime()
	if err != nil {
		return false
	}
	if !start.Before(b.EndTime) || !end.After(b.StartTime) {
		return false
	}

	if b.Station.Name != "" && strings.Contains(ev.Location, b.Station.Name) {
		return true
	}
	for _, name := range models.ProviderDisplayNames() {
		if strings.Contains(ev.Summary, name) {
			return true
		}
	}
	return false
}
