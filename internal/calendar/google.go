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

package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/bcem/bookingsync/internal/models"
)

// Scope is the OAuth scope the Google store needs.
const Scope = calendar.CalendarScope

const listPageSize = 250

// GoogleStore writes events to a Google Calendar. Tags live in the event's
// private extended properties.
type GoogleStore struct {
	svc        *calendar.Service
	calendarID string
	logger     *slog.Logger
}

// NewGoogleStore creates a store for the given calendar ("primary" when
// empty). Credentials come from opts, normally option.WithTokenSource.
func NewGoogleStore(ctx context.Context, calendarID string, logger *slog.Logger, opts ...option.ClientOption) (*GoogleStore, error) {
	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	if calendarID == "" {
		calendarID = "primary"
	}
	return &GoogleStore{svc: svc, calendarID: calendarID, logger: logger}, nil
}

// Create inserts the event and returns its id.
func (s *GoogleStore) Create(ctx context.Context, ev models.CalendarEvent) (string, error) {
	created, err := s.svc.Events.Insert(s.calendarID, toAPI(ev)).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("insert event: %w", err)
	}
	s.logger.Info("calendar event created",
		"event_id", created.Id,
		"summary", ev.Summary,
		"start", ev.StartISO(),
	)
	return created.Id, nil
}

// Update patches the fields and tags this store owns. Fields it does not
// send, such as colour, reminders or attendees, keep their current values.
func (s *GoogleStore) Update(ctx context.Context, id string, ev models.CalendarEvent) error {
	if _, err := s.svc.Events.Patch(s.calendarID, id, toAPI(ev)).Context(ctx).Do(); err != nil {
		return fmt.Errorf("update event %s: %w", id, err)
	}
	s.logger.Info("calendar event updated", "event_id", id, "summary", ev.Summary)
	return nil
}

// Delete removes the event. An event that is already gone is not an error.
func (s *GoogleStore) Delete(ctx context.Context, id string) error {
	err := s.svc.Events.Delete(s.calendarID, id).Context(ctx).Do()
	if isGone(err) {
		s.logger.Info("calendar event already deleted", "event_id", id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete event %s: %w", id, err)
	}
	s.logger.Info("calendar event deleted", "event_id", id)
	return nil
}

// FindByTag returns events carrying the private tag key=value.
func (s *GoogleStore) FindByTag(ctx context.Context, key, value string) ([]Event, error) {
	call := s.svc.Events.List(s.calendarID).
		PrivateExtendedProperty(key + "=" + value)
	events, err := s.list(ctx, call)
	if err != nil {
		return nil, fmt.Errorf("find events by %s: %w", key, err)
	}
	return events, nil
}

// ListInWindow returns tagged events overlapping [start, end).
func (s *GoogleStore) ListInWindow(ctx context.Context, start, end time.Time, tagKey, tagValue string) ([]Event, error) {
	call := s.svc.Events.List(s.calendarID).
		TimeMin(start.Format(time.RFC3339)).
		TimeMax(end.Format(time.RFC3339))
	if tagKey != "" {
		call = call.PrivateExtendedProperty(tagKey + "=" + tagValue)
	}
	events, err := s.list(ctx, call)
	if err != nil {
		return nil, fmt.Errorf("list events in window: %w", err)
	}
	return events, nil
}

func (s *GoogleStore) list(ctx context.Context, call *calendar.EventsListCall) ([]Event, error) {
	var out []Event
	err := call.
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(listPageSize).
		Pages(ctx, func(page *calendar.Events) error {
			for _, item := range page.Items {
				if item.Status == "cancelled" {
					continue
				}
				out = append(out, fromAPI(item))
			}
			return nil
		})
	return out, err
}

func toAPI(ev models.CalendarEvent) *calendar.Event {
	return &calendar.Event{
		Summary:     ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		Start:       &calendar.EventDateTime{DateTime: ev.StartISO()},
		End:         &calendar.EventDateTime{DateTime: ev.EndISO()},
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: ev.Tags(),
		},
	}
}

func fromAPI(item *calendar.Event) Event {
	e := Event{
		ID:          item.Id,
		Summary:     item.Summary,
		Description: item.Description,
		Location:    item.Location,
		Start:       dateTime(item.Start),
		End:         dateTime(item.End),
		Tags:        map[string]string{},
	}
	if item.ExtendedProperties != nil {
		for k, v := range item.ExtendedProperties.Private {
			e.Tags[k] = v
		}
	}
	return e
}

func dateTime(dt *calendar.EventDateTime) string {
	if dt == nil {
		return ""
	}
	if dt.DateTime != "" {
		return dt.DateTime
	}
	return dt.Date
}

func isGone(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone
	}
	return false
}
