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

// Package queue publishes sync-run reports to a Redis list. Each processing
// result and the final run summary are pushed as JSON envelopes so that
// dashboards or notifiers can consume them with BRPOP.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/bcem/bookingsync/internal/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultQueue is the list the reports are pushed to.
const DefaultQueue = "calsync:results"

// Envelope types.
const (
	TypeResult  = "result"
	TypeSummary = "summary"
)

// Publisher sends run reports to Redis.
type Publisher struct {
	rdb       *redis.Client
	queueName string
	logger    *slog.Logger
	now       func() time.Time
}

// NewPublisher creates a new Redis publisher targeting the specified queue.
func NewPublisher(rdb *redis.Client, queueName string, logger *slog.Logger) *Publisher {
	if queueName == "" {
		queueName = DefaultQueue
	}
	return &Publisher{
		rdb:       rdb,
		queueName: queueName,
		logger:    logger,
		now:       time.Now,
	}
}

// Envelope wraps every report pushed to the queue.
type Envelope struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	RunID       string          `json:"run_id"`
	PublishedAt time.Time       `json:"published_at"`
	Payload     json.RawMessage `json:"payload"`
}

// PublishResult pushes one processing result.
func (p *Publisher) PublishResult(ctx context.Context, runID string, r models.ProcessingResult) error {
	id, err := p.publish(ctx, TypeResult, runID, r)
	if err != nil {
		return err
	}

	p.logger.Debug("published result to queue",
		"envelope_id", id,
		"email_id", r.EmailID,
		"success", r.Success,
		"queue", p.queueName,
	)
	return nil
}

// PublishSummary pushes the end-of-run summary. Any JSON-serialisable value
// is accepted.
func (p *Publisher) PublishSummary(ctx context.Context, runID string, summary any) error {
	id, err := p.publish(ctx, TypeSummary, runID, summary)
	if err != nil {
		return err
	}

	p.logger.Info("published run summary to queue",
		"envelope_id", id,
		"run_id", runID,
		"queue", p.queueName,
	)
	return nil
}

func (p *Publisher) publish(ctx context.Context, typ, runID string, payload any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal %s payload: %w", typ, err)
	}

	env := Envelope{
		ID:          uuid.New().String(),
		Type:        typ,
		RunID:       runID,
		PublishedAt: p.now().UTC(),
		Payload:     body,
	}
	msg, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("marshal envelope: %w", err)
	}

	if err := p.rdb.LPush(ctx, p.queueName, string(msg)).Err(); err != nil {
		return "", fmt.Errorf("redis LPUSH: %w", err)
	}
	return env.ID, nil
}

// Ping checks the Redis connection.
func (p *Publisher) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return p.rdb.Ping(ctx).Err()
}
