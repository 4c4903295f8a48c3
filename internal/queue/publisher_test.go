// Copyright (c) 2026 John Earle
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://github.com/yourusername/bcem/blob/main/LICENSE
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package queue

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bcem/bookingsync/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPublisher(t *testing.T, queue string) (*Publisher, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	p := NewPublisher(rdb, queue, slog.New(slog.NewTextHandler(io.Discard, nil)))
	p.now = func() time.Time { return time.Date(2025, 7, 15, 3, 0, 0, 0, time.UTC) }
	return p, mr
}

func TestPublisher_PublishResult(t *testing.T) {
	p, mr := newTestPublisher(t, "")
	ctx := context.Background()

	require.NoError(t, p.PublishResult(ctx, "run-1", models.Succeeded("msg-1", models.KindFlight, map[string]any{"confirmation_code": "887525617"}, "evt-1")))
	require.NoError(t, p.PublishResult(ctx, "run-1", models.Failed("msg-2", models.KindCarShare, models.FailurePromotional, models.MsgPromotional)))

	items, err := mr.List(DefaultQueue)
	require.NoError(t, err)
	require.Len(t, items, 2)

	// LPUSH puts the newest at the head.
	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(items[1]), &env))
	assert.Equal(t, TypeResult, env.Type)
	assert.Equal(t, "run-1", env.RunID)
	assert.NotEmpty(t, env.ID)
	assert.Equal(t, "2025-07-15T03:00:00Z", env.PublishedAt.Format(time.RFC3339))

	var r models.ProcessingResult
	require.NoError(t, json.Unmarshal(env.Payload, &r))
	assert.Equal(t, "msg-1", r.EmailID)
	assert.Equal(t, "evt-1", r.CalendarEventID)
	assert.Equal(t, "887525617", r.ExtractedData["confirmation_code"])
}

func TestPublisher_PublishSummary(t *testing.T) {
	p, mr := newTestPublisher(t, "custom:queue")

	summary := map[string]int{"total_processed": 3, "successful": 2}
	require.NoError(t, p.PublishSummary(context.Background(), "run-7", summary))

	items, err := mr.List("custom:queue")
	require.NoError(t, err)
	require.Len(t, items, 1)

	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(items[0]), &env))
	assert.Equal(t, TypeSummary, env.Type)
	assert.JSONEq(t, `{"total_processed":3,"successful":2}`, string(env.Payload))
}

func TestPublisher_Ping(t *testing.T) {
	p, mr := newTestPublisher(t, "")
	require.NoError(t, p.Ping(context.Background()))

	mr.Close()
	assert.Error(t, p.Ping(context.Background()))
}

func TestPublisher_MarshalError(t *testing.T) {
	p, _ := newTestPublisher(t, "")
	err := p.PublishSummary(context.Background(), "run-1", map[string]any{"bad": make(chan int)})
	assert.ErrorContains(t, err, "marshal summary payload")
}
