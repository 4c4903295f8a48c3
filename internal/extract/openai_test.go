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
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcem/bookingsync/internal/models"
)

func newTestEngine(t *testing.T, handler http.HandlerFunc) *OpenAIEngine {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOpenAIEngine(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL + "/v1"})
}

// TestOpenAIEngine_Complete verifies the request shape and response mapping.
func TestOpenAIEngine_Complete(t *testing.T) {
	var got struct {
		Model       string  `json:"model"`
		Temperature float64 `json:"temperature"`
		MaxTokens   int     `json:"max_tokens"`
		Messages    []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	engine := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
		  "id": "chatcmpl-1",
		  "object": "chat.completion",
		  "created": 1,
		  "model": "gpt-3.5-turbo-0125",
		  "choices": [{"index": 0, "message": {"role": "assistant", "content": "null"}, "finish_reason": "stop"}],
		  "usage": {"prompt_tokens": 120, "completion_tokens": 1, "total_tokens": 121}
		}`))
	})

	c, err := engine.Complete(context.Background(), Request{Kind: models.KindFlight, System: "sys", User: "usr"})
	require.NoError(t, err)

	assert.Equal(t, "null", c.Content)
	assert.Equal(t, "gpt-3.5-turbo-0125", c.Model)
	assert.Equal(t, 121, c.Usage.TotalTokens)

	assert.Equal(t, DefaultModel, got.Model)
	assert.InDelta(t, 0.1, got.Temperature, 1e-6)
	assert.Equal(t, 2000, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "usr", got.Messages[1].Content)
}

// TestOpenAIEngine_BreakerOpensOnServerErrors verifies repeated 5xx responses
// short-circuit later calls.
func TestOpenAIEngine_BreakerOpensOnServerErrors(t *testing.T) {
	var hits atomic.Int32
	engine := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": {"message": "upstream failure", "type": "server_error"}}`))
	})

	for i := 0; i < 3; i++ {
		_, err := engine.Complete(context.Background(), Request{Kind: models.KindFlight})
		require.Error(t, err)
	}

	_, err := engine.Complete(context.Background(), Request{Kind: models.KindFlight})
	require.Error(t, err)
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
	assert.Equal(t, int32(3), hits.Load())
}

// TestOpenAIEngine_ClientErrorsKeepBreakerClosed verifies 4xx responses are
// returned without tripping the breaker.
func TestOpenAIEngine_ClientErrorsKeepBreakerClosed(t *testing.T) {
	var hits atomic.Int32
	engine := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"message": "context too long", "type": "invalid_request_error"}}`))
	})

	for i := 0; i < 5; i++ {
		_, err := engine.Complete(context.Background(), Request{Kind: models.KindCarShare})
		require.Error(t, err)
		assert.False(t, errors.Is(err, gobreaker.ErrOpenState))
	}
	assert.Equal(t, int32(5), hits.Load())
}
