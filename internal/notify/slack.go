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

// Package notify posts the run summary to a Slack incoming webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bcem/bookingsync/internal/pipeline"
)

// Slack sends messages to an incoming webhook.
type Slack struct {
	webhookURL string
	client     *http.Client
	logger     *slog.Logger
}

// NewSlack creates a notifier. A nil client gets a 10 second timeout.
func NewSlack(webhookURL string, client *http.Client, logger *slog.Logger) *Slack {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Slack{webhookURL: webhookURL, client: client, logger: logger}
}

// FormatSummary renders the run summary as the webhook text.
func FormatSummary(s pipeline.Summary) string {
	var b strings.Builder
	b.WriteString("📧 Gmail Calendar Sync Summary\n")
	fmt.Fprintf(&b, "✅ Processed: %d\n", s.Successful)
	fmt.Fprintf(&b, "🚫 Promotional skipped: %d\n", s.PromotionalSkipped)
	fmt.Fprintf(&b, "ℹ️ No flight info: %d\n", s.NoFlightInfo)
	fmt.Fprintf(&b, "ℹ️ No carshare info: %d\n", s.NoCarShareInfo)
	fmt.Fprintf(&b, "❌ Failed: %d\n", s.Failed)
	fmt.Fprintf(&b, "📊 Total emails: %d", s.Total)

	if s.Failed > 0 {
		b.WriteString("\n\nErrors:\n")
		for _, e := range s.Errors {
			fmt.Fprintf(&b, "• %s\n", e)
		}
	}
	return b.String()
}

// NotifySummary posts the summary.
func (n *Slack) NotifySummary(ctx context.Context, s pipeline.Summary) error {
	if err := n.post(ctx, FormatSummary(s)); err != nil {
		return err
	}
	n.logger.Info("sent slack notification", "successful", s.Successful, "failed", s.Failed)
	return nil
}

func (n *Slack) post(ctx context.Context, text string) error {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post slack webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack webhook returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}
