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

// Package extract turns free-text booking emails into typed booking records
// through a free-text extraction engine (an LLM chat completion).
//
// The adapters own the prompt and schema contract. Whatever the engine
// returns is parsed leniently: the literal "null", malformed JSON or missing
// required fields all mean "no booking found" rather than an error. Only
// transport failures talking to the engine are returned as errors.
package extract

import (
	"context"
	"time"

	"github.com/bcem/bookingsync/internal/metrics"
	"github.com/bcem/bookingsync/internal/models"
)

// Request is one extraction call.
type Request struct {
	Kind   models.BookingKind
	System string
	User   string
}

// Usage is the token accounting reported by the engine.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Completion is the raw engine answer.
type Completion struct {
	Content string
	Model   string
	Usage   Usage
}

// Engine is the free-text extraction collaborator.
type Engine interface {
	Complete(ctx context.Context, req Request) (*Completion, error)
}

// MetricsSink receives one record per engine call.
type MetricsSink interface {
	Record(call metrics.Call)
}

type discardSink struct{}

func (discardSink) Record(metrics.Call) {}

// complete calls the engine and reports the outcome to the sink.
func complete(ctx context.Context, engine Engine, sink MetricsSink, req Request) (string, error) {
	start := time.Now()
	c, err := engine.Complete(ctx, req)

	call := metrics.Call{
		Kind:    string(req.Kind),
		Latency: time.Since(start),
		Success: err == nil,
		At:      start,
	}
	if err != nil {
		call.Error = err.Error()
		sink.Record(call)
		return "", err
	}

	call.Model = c.Model
	call.PromptTokens = c.Usage.PromptTokens
	call.CompletionTokens = c.Usage.CompletionTokens
	call.TotalTokens = c.Usage.TotalTokens
	call.CostUSD = metrics.Cost(c.Model, c.Usage.PromptTokens, c.Usage.CompletionTokens)
	sink.Record(call)

	return c.Content, nil
}
