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

package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
)

const (
	DefaultModel       = openai.GPT3Dot5Turbo
	defaultTemperature = 0.1
	defaultMaxTokens   = 2000
)

// OpenAIConfig configures the chat-completion engine.
type OpenAIConfig struct {
	APIKey     string
	Model      string
	BaseURL    string // optional, e.g. a proxy or a test server
	HTTPClient *http.Client
}

// OpenAIEngine is an Engine backed by the OpenAI chat completions API. Calls
// go through a circuit breaker that opens after three consecutive failures.
type OpenAIEngine struct {
	client *openai.Client
	model  string
	cb     *gobreaker.CircuitBreaker
}

// NewOpenAIEngine creates an engine with the given configuration.
func NewOpenAIEngine(cfg OpenAIConfig) *OpenAIEngine {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &OpenAIEngine{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "openai",
			MaxRequests: 1,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			IsSuccessful: func(err error) bool {
				return err == nil || isClientError(err)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				slog.Warn("circuit breaker state changed",
					"breaker", name,
					"from", from.String(),
					"to", to.String(),
				)
			},
		}),
	}
}

// Complete sends the system and user prompts and returns the first choice.
func (e *OpenAIEngine) Complete(ctx context.Context, req Request) (*Completion, error) {
	out, err := e.cb.Execute(func() (interface{}, error) {
		return e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: e.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: req.System},
				{Role: openai.ChatMessageRoleUser, Content: req.User},
			},
			Temperature: defaultTemperature,
			MaxTokens:   defaultMaxTokens,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}

	resp := out.(openai.ChatCompletionResponse)
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai chat completion: no choices returned")
	}

	model := resp.Model
	if model == "" {
		model = e.model
	}

	slog.Debug("extraction engine response",
		"kind", req.Kind,
		"model", model,
		"content", resp.Choices[0].Message.Content,
	)

	return &Completion{
		Content: resp.Choices[0].Message.Content,
		Model:   model,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// isClientError reports 4xx responses other than 429. These do not count as
// breaker failures.
func isClientError(err error) bool {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	return status >= 400 && status < 500 && status != http.StatusTooManyRequests
}
