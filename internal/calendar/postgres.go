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
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bcem/bookingsync/internal/models"
)

// PostgresStore keeps events in a calendar_events table. Tags are a JSONB
// column; the ISO strings are stored verbatim next to TIMESTAMPTZ columns
// used for window queries.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgresStore creates a store backed by the given pool. It ensures the
// calendar_events table exists on creation.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) (*PostgresStore, error) {
	s := &PostgresStore{pool: pool, logger: logger}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure calendar schema: %w", err)
	}
	logger.Info("postgres calendar store initialised")
	return s, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS calendar_events (
			id          TEXT PRIMARY KEY,
			summary     TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			location    TEXT NOT NULL DEFAULT '',
			start_iso   TEXT NOT NULL,
			end_iso     TEXT NOT NULL,
			starts_at   TIMESTAMPTZ NOT NULL,
			ends_at     TIMESTAMPTZ NOT NULL,
			tags        JSONB NOT NULL DEFAULT '{}'::jsonb,
			created_at  TIMESTAMPTZ DEFAULT NOW(),
			updated_at  TIMESTAMPTZ DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_events_tags ON calendar_events USING GIN (tags);
		CREATE INDEX IF NOT EXISTS idx_events_window ON calendar_events(starts_at, ends_at);
	`)
	return err
}

// Create inserts the event under a new id.
func (s *PostgresStore) Create(ctx context.Context, ev models.CalendarEvent) (string, error) {
	id := uuid.NewString()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO calendar_events
			(id, summary, description, location, start_iso, end_iso, starts_at, ends_at, tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, id, ev.Summary, ev.Description, ev.Location, ev.StartISO(), ev.EndISO(), ev.Start, ev.End, ev.Tags())
	if err != nil {
		return "", fmt.Errorf("insert event: %w", err)
	}
	s.logger.Info("calendar event created", "event_id", id, "summary", ev.Summary)
	return id, nil
}

// Update replaces the event's fields and tags.
func (s *PostgresStore) Update(ctx context.Context, id string, ev models.CalendarEvent) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE calendar_events
		SET summary = $2, description = $3, location = $4,
		    start_iso = $5, end_iso = $6, starts_at = $7, ends_at = $8,
		    tags = $9, updated_at = NOW()
		WHERE id = $1
	`, id, ev.Summary, ev.Description, ev.Location, ev.StartISO(), ev.EndISO(), ev.Start, ev.End, ev.Tags())
	if err != nil {
		return fmt.Errorf("update event %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update event %s: not found", id)
	}
	s.logger.Info("calendar event updated", "event_id", id, "summary", ev.Summary)
	return nil
}

// Delete removes the event. Unknown ids are ignored.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM calendar_events WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete event %s: %w", id, err)
	}
	s.logger.Info("calendar event deleted", "event_id", id)
	return nil
}

// Get retrieves a single event, or nil when it does not exist.
func (s *PostgresStore) Get(ctx context.Context, id string) (*Event, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, summary, description, location, start_iso, end_iso, tags
		FROM calendar_events
		WHERE id = $1
	`, id)
	return scanEvent(row)
}

// FindByTag returns events whose tag key equals value, ordered by start.
func (s *PostgresStore) FindByTag(ctx context.Context, key, value string) ([]Event, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, summary, description, location, start_iso, end_iso, tags
		FROM calendar_events
		WHERE tags ->> $1::text = $2::text
		ORDER BY starts_at, id
	`, key, value)
	if err != nil {
		return nil, fmt.Errorf("find events by %s: %w", key, err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

// ListInWindow returns tagged events overlapping [start, end), ordered by
// start.
func (s *PostgresStore) ListInWindow(ctx context.Context, start, end time.Time, tagKey, tagValue string) ([]Event, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, summary, description, location, start_iso, end_iso, tags
		FROM calendar_events
		WHERE starts_at < $2 AND ends_at > $1
		  AND ($3::text = '' OR tags ->> $3::text = $4::text)
		ORDER BY starts_at, id
	`, start, end, tagKey, tagValue)
	if err != nil {
		return nil, fmt.Errorf("list events in window: %w", err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

// scanEvent scans a single row into an Event.
func scanEvent(row pgx.Row) (*Event, error) {
	var e Event
	err := row.Scan(&e.ID, &e.Summary, &e.Description, &e.Location, &e.Start, &e.End, &e.Tags)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// collectEvents scans multiple rows into a slice of Events.
func collectEvents(rows pgx.Rows) ([]Event, error) {
	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.Summary, &e.Description, &e.Location, &e.Start, &e.End, &e.Tags); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
