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

package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/bcem/bookingsync/internal/models"
)

// Scope is the OAuth scope the Gmail source needs to read and label mail.
const Scope = gmail.GmailModifyScope

const (
	defaultLabel      = "PROCESSED_BY_GMAIL_SYNC"
	defaultMaxResults = 100
	userID            = "me"
)

// GmailConfig configures the Gmail source.
type GmailConfig struct {
	Label      string // processed label, created on first use
	MaxResults int64  // page size for message listing
}

// GmailSource lists, reads and labels messages in the authenticated mailbox.
type GmailSource struct {
	svc        *gmail.Service
	label      string
	maxResults int64
	cb         *gobreaker.CircuitBreaker
	logger     *slog.Logger
	now        func() time.Time

	mu      sync.Mutex
	labelID string
}

// NewGmailSource creates a source. Credentials come from opts, normally
// option.WithTokenSource.
func NewGmailSource(ctx context.Context, cfg GmailConfig, logger *slog.Logger, opts ...option.ClientOption) (*GmailSource, error) {
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	if cfg.Label == "" {
		cfg.Label = defaultLabel
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = defaultMaxResults
	}

	return &GmailSource{
		svc:        svc,
		label:      cfg.Label,
		maxResults: cfg.MaxResults,
		logger:     logger,
		now:        time.Now,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "gmail-api",
			MaxRequests: 3,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 5
			},
			IsSuccessful: func(err error) bool {
				return err == nil || isClientError(err)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("circuit breaker state changed",
					"breaker", name,
					"from", from.String(),
					"to", to.String(),
				)
			},
		}),
	}, nil
}

// Label is the processed label name.
func (s *GmailSource) Label() string { return s.label }

// Fetch returns every unlabelled message from the given senders inside the
// window, de-duplicated and ordered oldest first. A message that cannot be
// read is logged and skipped; a failed search is an error.
func (s *GmailSource) Fetch(ctx context.Context, senders []string, w Window) ([]*models.InboundEmail, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var ids []string
	for _, sender := range senders {
		query, err := BuildQuery(sender, s.label, w, s.now())
		if err != nil {
			return nil, err
		}
		found, err := s.search(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("search %q: %w", query, err)
		}
		s.logger.Info("searched mailbox", "sender", sender, "query", query, "count", len(found))
		for _, id := range found {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}

	emails := make([]*models.InboundEmail, 0, len(ids))
	for _, id := range ids {
		email, err := s.get(ctx, id)
		if err != nil {
			s.logger.Error("failed to fetch message", "email_id", id, "error", err)
			continue
		}
		emails = append(emails, email)
	}

	sort.SliceStable(emails, func(i, j int) bool {
		return emails[i].ReceivedAt.Before(emails[j].ReceivedAt)
	})
	return emails, nil
}

func (s *GmailSource) search(ctx context.Context, query string) ([]string, error) {
	var ids []string
	err := s.execute(func() error {
		ids = ids[:0]
		return s.svc.Users.Messages.List(userID).
			Q(query).
			MaxResults(s.maxResults).
			Pages(ctx, func(page *gmail.ListMessagesResponse) error {
				for _, m := range page.Messages {
					ids = append(ids, m.Id)
				}
				return nil
			})
	})
	return ids, err
}

func (s *GmailSource) get(ctx context.Context, id string) (*models.InboundEmail, error) {
	var msg *gmail.Message
	err := s.execute(func() error {
		var err error
		msg, err = s.svc.Users.Messages.Get(userID, id).Format("full").Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, err
	}
	return parseMessage(msg)
}

// MarkProcessed adds the processed label to a message.
func (s *GmailSource) MarkProcessed(ctx context.Context, id string) error {
	return s.modify(ctx, id, true)
}

// RemoveMark removes the processed label from a message.
func (s *GmailSource) RemoveMark(ctx context.Context, id string) error {
	return s.modify(ctx, id, false)
}

func (s *GmailSource) modify(ctx context.Context, id string, add bool) error {
	labelID, err := s.ensureLabel(ctx)
	if err != nil {
		return err
	}

	req := &gmail.ModifyMessageRequest{}
	if add {
		req.AddLabelIds = []string{labelID}
	} else {
		req.RemoveLabelIds = []string{labelID}
	}

	err = s.execute(func() error {
		_, err := s.svc.Users.Messages.Modify(userID, id, req).Context(ctx).Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("modify labels on %s: %w", id, err)
	}
	s.logger.Debug("message labels modified", "email_id", id, "label", s.label, "added", add)
	return nil
}

// ensureLabel returns the processed label id, creating the label if the
// mailbox does not have it yet. The id is cached for the source's lifetime.
func (s *GmailSource) ensureLabel(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.labelID != "" {
		return s.labelID, nil
	}

	var labels *gmail.ListLabelsResponse
	err := s.execute(func() error {
		var err error
		labels, err = s.svc.Users.Labels.List(userID).Context(ctx).Do()
		return err
	})
	if err != nil {
		return "", fmt.Errorf("list labels: %w", err)
	}
	for _, l := range labels.Labels {
		if l.Name == s.label {
			s.labelID = l.Id
			return l.Id, nil
		}
	}

	var created *gmail.Label
	err = s.execute(func() error {
		var err error
		created, err = s.svc.Users.Labels.Create(userID, &gmail.Label{
			Name:                  s.label,
			LabelListVisibility:   "labelShow",
			MessageListVisibility: "show",
		}).Context(ctx).Do()
		return err
	})
	if err != nil {
		return "", fmt.Errorf("create label %q: %w", s.label, err)
	}
	s.logger.Info("created processed label", "label", s.label, "label_id", created.Id)
	s.labelID = created.Id
	return created.Id, nil
}

func (s *GmailSource) execute(fn func() error) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	return err
}

// isClientError reports 4xx responses other than 429.
func isClientError(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code >= 400 && apiErr.Code < 500 && apiErr.Code != http.StatusTooManyRequests
}
