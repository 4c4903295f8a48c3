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

package mail

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"mime"
	netmail "net/mail"
	"strings"
	"time"

	"github.com/emersion/go-message/charset"
	"github.com/jaytaylor/html2text"
	"google.golang.org/api/gmail/v1"

	"github.com/bcem/bookingsync/internal/models"
)

var headerDecoder = &mime.WordDecoder{CharsetReader: charset.Reader}

// parseMessage converts a full-format Gmail message into an InboundEmail.
func parseMessage(msg *gmail.Message) (*models.InboundEmail, error) {
	if msg.Payload == nil {
		return nil, fmt.Errorf("message %s has no payload", msg.Id)
	}

	email := &models.InboundEmail{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		Subject:  decodeHeader(header(msg.Payload.Headers, "Subject")),
		Sender:   decodeHeader(header(msg.Payload.Headers, "From")),
		Body:     extractBody(msg.Payload),
		Labels:   msg.LabelIds,
	}
	email.ReceivedAt = receivedAt(header(msg.Payload.Headers, "Date"), msg.InternalDate)
	return email, nil
}

// receivedAt parses the Date header, falling back to Gmail's internal date.
func receivedAt(date string, internalMillis int64) time.Time {
	if date != "" {
		if t, err := netmail.ParseDate(date); err == nil {
			return t
		}
		slog.Warn("unparseable date header", "date", date)
	}
	if internalMillis > 0 {
		return time.UnixMilli(internalMillis)
	}
	return time.Now()
}

func header(headers []*gmail.MessagePartHeader, name string) string {
	for _, h := range headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

func decodeHeader(v string) string {
	if !strings.Contains(v, "=?") {
		return v
	}
	decoded, err := headerDecoder.DecodeHeader(v)
	if err != nil {
		return v
	}
	return decoded
}

// extractBody prefers every text/plain part in document order and falls back
// to the first text/html part converted to text.
func extractBody(root *gmail.MessagePart) string {
	var plain []string
	var html string

	var walk func(p *gmail.MessagePart)
	walk = func(p *gmail.MessagePart) {
		if p == nil {
			return
		}
		mediaType, params, _ := mime.ParseMediaType(contentType(p))
		switch {
		case isAttachment(p):
		case mediaType == "text/plain":
			if text, ok := decodePart(p, params["charset"]); ok {
				plain = append(plain, text)
			}
		case mediaType == "text/html" && html == "":
			if text, ok := decodePart(p, params["charset"]); ok {
				html = text
			}
		}
		for _, child := range p.Parts {
			walk(child)
		}
	}
	walk(root)

	if len(plain) > 0 {
		return strings.TrimSpace(strings.Join(plain, "\n"))
	}
	if html == "" {
		return ""
	}
	text, err := html2text.FromString(html, html2text.Options{OmitLinks: true})
	if err != nil {
		slog.Warn("html to text conversion failed", "error", err)
		return strings.TrimSpace(html)
	}
	return strings.TrimSpace(text)
}

func contentType(p *gmail.MessagePart) string {
	if ct := header(p.Headers, "Content-Type"); ct != "" {
		return ct
	}
	return p.MimeType
}

func isAttachment(p *gmail.MessagePart) bool {
	return p.Filename != "" || (p.Body != nil && p.Body.AttachmentId != "")
}

// decodePart decodes the base64url body data and converts it to UTF-8.
func decodePart(p *gmail.MessagePart, cs string) (string, bool) {
	if p.Body == nil || p.Body.Data == "" {
		return "", false
	}
	raw, err := decodeBase64URL(p.Body.Data)
	if err != nil {
		slog.Warn("undecodable message part", "part_id", p.PartId, "error", err)
		return "", false
	}
	return toUTF8(raw, cs), true
}

func decodeBase64URL(s string) ([]byte, error) {
	if b, err := base64.URLEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}

func toUTF8(raw []byte, cs string) string {
	cs = strings.ToLower(strings.TrimSpace(cs))
	if cs == "" || cs == "utf-8" || cs == "us-ascii" {
		return string(raw)
	}
	r, err := charset.Reader(cs, bytes.NewReader(raw))
	if err != nil {
		slog.Debug("unknown charset, using raw bytes", "charset", cs)
		return string(raw)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return string(raw)
	}
	return string(out)
}
