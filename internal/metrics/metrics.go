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

// Package metrics collects extraction-engine usage for a single pipeline run.
// A Collector is created per run and handed to the extraction adapters; there
// is no process-wide instance.
package metrics

import (
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"
)

// price is the USD cost per 1K prompt and completion tokens.
type price struct {
	prompt     float64
	completion float64
}

var (
	defaultPrice = price{prompt: 0.0015, completion: 0.002}
	prices       = map[string]price{
		"gpt-3.5-turbo": defaultPrice,
	}
)

// Call is the outcome of one extraction-engine call.
type Call struct {
	Model            string
	Kind             string
	Latency          time.Duration
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	CostUSD          float64
	Success          bool
	Error            string
	At               time.Time
}

// Cost estimates the USD cost of a call. Unknown models are priced as
// gpt-3.5-turbo.
func Cost(model string, promptTokens, completionTokens int) float64 {
	p, ok := prices[model]
	if !ok {
		p = defaultPrice
	}
	return float64(promptTokens)/1000*p.prompt + float64(completionTokens)/1000*p.completion
}

// KindStats aggregates calls of one email kind.
type KindStats struct {
	Calls      int
	Successful int
	Failed     int
	CostUSD    float64
	Tokens     int
	Latency    time.Duration
}

// Summary aggregates every call recorded in a run.
type Summary struct {
	TotalCalls      int
	SuccessfulCalls int
	FailedCalls     int
	TotalCostUSD    float64
	TotalTokens     int
	TotalLatency    time.Duration
	AverageLatency  time.Duration
	AverageCostUSD  float64
	ByKind          map[string]KindStats
}

// Collector is a concurrency-safe in-memory metrics sink.
type Collector struct {
	mu    sync.Mutex
	calls []Call
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Record stores one call. A zero CostUSD is filled in from the token counts.
func (c *Collector) Record(call Call) {
	if call.CostUSD == 0 && (call.PromptTokens > 0 || call.CompletionTokens > 0) {
		call.CostUSD = Cost(call.Model, call.PromptTokens, call.CompletionTokens)
	}
	if call.At.IsZero() {
		call.At = time.Now()
	}

	c.mu.Lock()
	c.calls = append(c.calls, call)
	c.mu.Unlock()
}

// Calls returns a copy of everything recorded so far.
func (c *Collector) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Call, len(c.calls))
	copy(out, c.calls)
	return out
}

// Summary computes totals, averages and the per-kind breakdown.
func (c *Collector) Summary() Summary {
	calls := c.Calls()
	s := Summary{ByKind: make(map[string]KindStats)}

	for _, call := range calls {
		s.TotalCalls++
		s.TotalCostUSD += call.CostUSD
		s.TotalTokens += call.TotalTokens
		s.TotalLatency += call.Latency

		ks := s.ByKind[call.Kind]
		ks.Calls++
		ks.CostUSD += call.CostUSD
		ks.Tokens += call.TotalTokens
		ks.Latency += call.Latency
		if call.Success {
			s.SuccessfulCalls++
			ks.Successful++
		} else {
			s.FailedCalls++
			ks.Failed++
		}
		s.ByKind[call.Kind] = ks
	}

	if s.TotalCalls > 0 {
		s.AverageLatency = s.TotalLatency / time.Duration(s.TotalCalls)
		s.AverageCostUSD = round6(s.TotalCostUSD / float64(s.TotalCalls))
	}
	s.TotalCostUSD = round6(s.TotalCostUSD)
	return s
}

// LogSummary writes the run totals and one line per email kind.
func (c *Collector) LogSummary(logger *slog.Logger) {
	s := c.Summary()
	if s.TotalCalls == 0 {
		logger.Info("extraction usage summary", "total_calls", 0, "total_cost_usd", 0.0)
		return
	}

	logger.Info("extraction usage summary",
		"total_calls", s.TotalCalls,
		"successful_calls", s.SuccessfulCalls,
		"failed_calls", s.FailedCalls,
		"total_cost_usd", s.TotalCostUSD,
		"total_tokens", s.TotalTokens,
		"total_processing_time_ms", s.TotalLatency.Milliseconds(),
		"average_processing_time_ms", s.AverageLatency.Milliseconds(),
		"average_cost_per_call_usd", s.AverageCostUSD,
	)

	kinds := make([]string, 0, len(s.ByKind))
	for k := range s.ByKind {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)

	for _, k := range kinds {
		ks := s.ByKind[k]
		logger.Info("extraction usage by email type",
			"email_type", k,
			"calls", ks.Calls,
			"successful", ks.Successful,
			"failed", ks.Failed,
			"cost_usd", round6(ks.CostUSD),
			"tokens", ks.Tokens,
			"processing_time_ms", ks.Latency.Milliseconds(),
			"average_cost_per_call_usd", round6(ks.CostUSD/float64(ks.Calls)),
		)
	}
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
