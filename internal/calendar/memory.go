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
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bcem/bookingsync/internal/models"
)

// MemoryStore keeps events in process. It backs dry runs and tests.
type MemoryStore struct {
	mu     sync.Mutex
	events map[string]Event
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{events: make(map[string]Event)}
}

// Create stores the event under a new id.
func (m *MemoryStore) Create(_ context.Context, ev models.CalendarEvent) (string, error) {
	id := uuid.NewString()
	m.mu.Lock()
	m.events[id] = fromDesired(id, ev)
	m.mu.Unlock()
	return id, nil
}

// Update replaces the stored event.
func (m *MemoryStore) Update(_ context.Context, id string, ev models.CalendarEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[id]; !ok {
		return fmt.Errorf("event %s not found", id)
	}
	m.events[id] = fromDesired(id, ev)
	return nil
}

// Delete removes the event. Unknown ids are ignored.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.events, id)
	m.mu.Unlock()
	return nil
}

// FindByTag returns events whose tag key equals value, ordered by start.
func (m *MemoryStore) FindByTag(_ context.Context, key, value string) ([]Event, error) {
	return m.filter(func(e Event) bool {
		return e.Tags[key] == value
	}), nil
}

// ListInWindow returns tagged events overlapping [start, end), ordered by
// start.
func (m *MemoryStore) ListInWindow(_ context.Context, start, end time.Time, tagKey, tagValue string) ([]Event, error) {
	return m.filter(func(e Event) bool {
		if tagKey != "" && e.Tags[tagKey] != tagValue {
			return false
		}
		s, err1 := e.StartTime()
		f, err2 := e.EndTime()
		return err1 == nil && err2 == nil && overlapsWindow(s, f, start, end)
	}), nil
}

// Get returns a stored event by id.
func (m *MemoryStore) Get(id string) (Event, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	return e, ok
}

// All returns every stored event ordered by start.
func (m *MemoryStore) All() []Event {
	return m.filter(func(Event) bool { return true })
}

// Len is the number of stored events.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

func (m *MemoryStore) filter(keep func(Event) bool) []Event {
	m.mu.Lock()
	var out []Event
	for _, e := range m.events {
		if keep(e) {
			out = append(out, copyEvent(e))
		}
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		si, _ := out[i].StartTime()
		sj, _ := out[j].StartTime()
		if !si.Equal(sj) {
			return si.Before(sj)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func copyEvent(e Event) Event {
	tags := make(map[string]string, len(e.Tags))
	for k, v := range e.Tags {
		tags[k] = v
	}
	e.Tags = tags
	return e
}
