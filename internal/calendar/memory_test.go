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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcem/bookingsync/internal/models"
)

var jst = time.FixedZone("JST", 9*3600)

func desired(summary string, start time.Time, hours int, code string) models.CalendarEvent {
	return models.CalendarEvent{
		Summary:          summary,
		Description:      "desc",
		Start:            start,
		End:              start.Add(time.Duration(hours) * time.Hour),
		Location:         "渋谷駅前",
		SourceEmailID:    "msg-1",
		ConfirmationCode: code,
	}
}

// TestMemoryStore_TagRoundTrip verifies an event is found by its tag and
// keeps its offset.
func TestMemoryStore_TagRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	id, err := s.Create(ctx, desired("✈️ NH123", time.Date(2025, 7, 10, 8, 0, 0, 0, jst), 1, "ABC123"))
	require.NoError(t, err)

	found, err := s.FindByTag(ctx, models.TagConfirmationCode, "ABC123")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, id, found[0].ID)
	assert.Equal(t, "ABC123", found[0].Tag(models.TagConfirmationCode))
	assert.Equal(t, models.SourceValue, found[0].Tag(models.TagSource))
	assert.Equal(t, "2025-07-10T08:00:00+09:00", found[0].Start)

	none, err := s.FindByTag(ctx, models.TagConfirmationCode, "XYZ")
	require.NoError(t, err)
	assert.Empty(t, none)
}

// TestMemoryStore_FindByTagOrdered verifies results come back by start time.
func TestMemoryStore_FindByTagOrdered(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Create(ctx, desired("return", time.Date(2025, 7, 12, 18, 0, 0, 0, jst), 1, "C1"))
	require.NoError(t, err)
	_, err = s.Create(ctx, desired("outbound", time.Date(2025, 7, 10, 8, 0, 0, 0, jst), 1, "C1"))
	require.NoError(t, err)

	found, err := s.FindByTag(ctx, models.TagConfirmationCode, "C1")
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "outbound", found[0].Summary)
	assert.Equal(t, "return", found[1].Summary)
}

// TestMemoryStore_UpdateDelete verifies replacement and idempotent deletion.
func TestMemoryStore_UpdateDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	id, err := s.Create(ctx, desired("old", time.Date(2025, 7, 10, 8, 0, 0, 0, jst), 1, "C1"))
	require.NoError(t, err)

	require.NoError(t, s.Update(ctx, id, desired("new", time.Date(2025, 7, 10, 9, 0, 0, 0, jst), 1, "C1")))
	ev, ok := s.Get(id)
	require.True(t, ok)
	assert.Equal(t, "new", ev.Summary)
	assert.Equal(t, "2025-07-10T09:00:00+09:00", ev.Start)

	assert.Error(t, s.Update(ctx, "missing", desired("x", time.Now(), 1, "")))

	require.NoError(t, s.Delete(ctx, id))
	require.NoError(t, s.Delete(ctx, id))
	assert.Equal(t, 0, s.Len())
}

// TestMemoryStore_ListInWindow verifies overlap and tag filtering.
func TestMemoryStore_ListInWindow(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	base := time.Date(2025, 7, 15, 10, 0, 0, 0, jst)

	_, err := s.Create(ctx, desired("inside", base, 4, ""))
	require.NoError(t, err)
	_, err = s.Create(ctx, desired("touching", base.Add(-3*time.Hour), 3, ""))
	require.NoError(t, err)
	_, err = s.Create(ctx, desired("later", base.Add(24*time.Hour), 2, ""))
	require.NoError(t, err)

	got, err := s.ListInWindow(ctx, base, base.Add(4*time.Hour), models.TagSource, models.SourceValue)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "inside", got[0].Summary)

	got, err = s.ListInWindow(ctx, base, base.Add(4*time.Hour), models.TagSource, "someone-else")
	require.NoError(t, err)
	assert.Empty(t, got)
}

// TestMemoryStore_ReturnsCopies verifies callers cannot mutate stored tags.
func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_, err := s.Create(ctx, desired("x", time.Date(2025, 7, 10, 8, 0, 0, 0, jst), 1, "C1"))
	require.NoError(t, err)

	found, err := s.FindByTag(ctx, models.TagConfirmationCode, "C1")
	require.NoError(t, err)
	found[0].Tags[models.TagConfirmationCode] = "mutated"

	again, err := s.FindByTag(ctx, models.TagConfirmationCode, "C1")
	require.NoError(t, err)
	assert.Len(t, again, 1)
}
