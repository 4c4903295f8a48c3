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
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcem/bookingsync/internal/metrics"
	"github.com/bcem/bookingsync/internal/models"
)

type fakeEngine struct {
	content string
	err     error
	calls   []Request
}

func (f *fakeEngine) Complete(_ context.Context, req Request) (*Completion, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return nil, f.err
	}
	return &Completion{
		Content: f.content,
		Model:   "gpt-3.5-turbo",
		Usage:   Usage{PromptTokens: 1000, CompletionTokens: 200, TotalTokens: 1200},
	}, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const anaResponse = "```json\n" + `{
  "confirmation_code": 887525617,
  "passenger_name": "YAMADA TARO",
  "booking_reference": "0709",
  "outbound_segments": [{
    "airline": "ANA",
    "flight_number": "NH123",
    "departure_airport": {"code": "HND", "name": "Haneda Airport", "city": "Tokyo"},
    "arrival_airport": {"code": "ITM", "name": "Itami Airport", "city": "Osaka"},
    "departure_time": "2025-07-10T08:00:00+09:00",
    "arrival_time": "2025-07-10T09:10:00+09:00",
    "seat_number": "12A"
  }],
  "return_segments": [{
    "airline": "ANA",
    "flight_number": "NH124",
    "departure_airport": {"code": "ITM", "city": "Osaka"},
    "arrival_airport": {"code": "HND", "city": "Tokyo"},
    "departure_time": "2025-07-12T18:00:00+09:00",
    "arrival_time": "2025-07-12T19:10:00+09:00",
    "seat_number": null
  }],
  "total_price": "¥35,000",
  "booking_date": "not a date"
}` + "\n```"

func flightEmail() *models.InboundEmail {
	return &models.InboundEmail{
		ID:         "msg-1",
		Subject:    "ANA 予約確認",
		Sender:     "ANA <noreply@ana.co.jp>",
		Body:       "確認番号 887525617",
		ReceivedAt: time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC),
	}
}

// TestParseResponse verifies fence stripping and the null answers.
func TestParseResponse(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   string
		wantOK bool
	}{
		{"plain", `{"a":1}`, `{"a":1}`, true},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`, true},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`, true},
		{"single line fence", "```json {\"a\":1}```", `{"a":1}`, true},
		{"null", "null", "", false},
		{"null upper", "  NULL \n", "", false},
		{"fenced null", "```json\nnull\n```", "", false},
		{"empty", "   ", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, ok := ParseResponse(tt.raw)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, string(doc))
		})
	}
}

// TestStatusFromSubject verifies keyword precedence.
func TestStatusFromSubject(t *testing.T) {
	tests := []struct {
		subject string
		want    models.BookingStatus
		ok      bool
	}{
		{"【タイムズカー】予約を受付けました", models.StatusReserved, true},
		{"【タイムズカー】予約変更を受付けました", models.StatusChanged, true},
		{"【カレコ】予約キャンセルのお知らせ", models.StatusCancelled, true},
		{"予約を取り消しました", models.StatusCancelled, true},
		{"ご利用終了のお知らせ", models.StatusCompleted, true},
		{"Your reservation has been cancelled", models.StatusCancelled, true},
		{"Reservation changed", models.StatusChanged, true},
		{"Times Car: points exchange campaign", "", false},
		{"Exchanged: reservation confirmed", models.StatusReserved, true},
		{"お知らせ", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.subject, func(t *testing.T) {
			got, ok := StatusFromSubject(tt.subject)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestFlightExtractor_Extract verifies conversion of a fenced round-trip answer.
func TestFlightExtractor_Extract(t *testing.T) {
	engine := &fakeEngine{content: anaResponse}
	collector := metrics.NewCollector()
	x := NewFlightExtractor(engine, collector, quietLogger())

	booking, err := x.Extract(context.Background(), flightEmail())
	require.NoError(t, err)
	require.NotNil(t, booking)

	assert.Equal(t, "887525617", booking.ConfirmationCode)
	assert.Equal(t, "0709", booking.BookingReference)
	assert.Equal(t, "YAMADA TARO", booking.PassengerName)
	require.Len(t, booking.OutboundSegments, 1)
	require.Len(t, booking.ReturnSegments, 1)
	assert.Equal(t, "12A", booking.OutboundSegments[0].SeatNumber)
	assert.Equal(t, "", booking.ReturnSegments[0].SeatNumber)
	assert.Nil(t, booking.BookingDate)
	assert.True(t, booking.IsRoundTrip())

	_, offset := booking.OutboundSegments[0].DepartureTime.Zone()
	assert.Equal(t, 9*3600, offset)

	require.Len(t, engine.calls, 1)
	assert.Equal(t, models.KindFlight, engine.calls[0].Kind)
	assert.Contains(t, engine.calls[0].User, "Email Subject: ANA 予約確認")

	calls := collector.Calls()
	require.Len(t, calls, 1)
	assert.True(t, calls[0].Success)
	assert.Equal(t, "flight", calls[0].Kind)
	assert.Equal(t, 1200, calls[0].TotalTokens)
}

// TestFlightExtractor_BasicFormatOffset verifies "+0900" offsets are kept.
func TestFlightExtractor_BasicFormatOffset(t *testing.T) {
	content := `{"passenger_name": "A", "outbound_segments": [{"airline": "ANA", "flight_number": "NH1", "departure_airport": {"code": "HND"}, "arrival_airport": {"code": "ITM"}, "departure_time": "2025-07-10T08:00:00+0900", "arrival_time": "2025-07-10T09:10:00+0900"}]}`
	x := NewFlightExtractor(&fakeEngine{content: content}, nil, quietLogger())

	booking, err := x.Extract(context.Background(), flightEmail())
	require.NoError(t, err)
	require.NotNil(t, booking)
	require.Len(t, booking.OutboundSegments, 1)

	_, offset := booking.OutboundSegments[0].ArrivalTime.Zone()
	assert.Equal(t, 9*3600, offset)
}

// TestFlightExtractor_NoBooking verifies the answers that mean "nothing found".
func TestFlightExtractor_NoBooking(t *testing.T) {
	tests := map[string]string{
		"null":          "null",
		"malformed":     `{"confirmation_code": "1",`,
		"no segments":   `{"passenger_name": "A", "outbound_segments": []}`,
		"naive times":   `{"passenger_name": "A", "outbound_segments": [{"airline": "ANA", "flight_number": "NH1", "departure_airport": {"code": "HND"}, "arrival_airport": {"code": "ITM"}, "departure_time": "2025-07-10T08:00:00", "arrival_time": "2025-07-10T09:00:00"}]}`,
		"no passenger":  `{"outbound_segments": [{"airline": "ANA", "flight_number": "NH1", "departure_airport": {"code": "HND"}, "arrival_airport": {"code": "ITM"}, "departure_time": "2025-07-10T08:00:00Z", "arrival_time": "2025-07-10T09:00:00Z"}]}`,
		"missing codes": `{"passenger_name": "A", "outbound_segments": [{"airline": "ANA", "flight_number": "NH1", "departure_airport": {}, "arrival_airport": {"code": "ITM"}, "departure_time": "2025-07-10T08:00:00Z", "arrival_time": "2025-07-10T09:00:00Z"}]}`,
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			x := NewFlightExtractor(&fakeEngine{content: content}, nil, quietLogger())
			booking, err := x.Extract(context.Background(), flightEmail())
			require.NoError(t, err)
			assert.Nil(t, booking)
		})
	}
}

// TestFlightExtractor_DropsInvalidSegments verifies one bad leg does not sink
// the booking.
func TestFlightExtractor_DropsInvalidSegments(t *testing.T) {
	content := `{"passenger_name": "A", "outbound_segments": [
	  {"airline": "ANA", "flight_number": "NH1", "departure_airport": {"code": "HND"}, "arrival_airport": {"code": "ITM"}, "departure_time": "2025-07-10T08:00:00Z", "arrival_time": "2025-07-10T09:00:00Z"},
	  {"airline": "ANA", "flight_number": "NH2", "departure_airport": {"code": "ITM"}, "arrival_airport": {"code": "HND"}, "departure_time": "tomorrow", "arrival_time": "2025-07-10T09:00:00Z"}
	]}`
	x := NewFlightExtractor(&fakeEngine{content: content}, nil, quietLogger())

	booking, err := x.Extract(context.Background(), flightEmail())
	require.NoError(t, err)
	require.NotNil(t, booking)
	require.Len(t, booking.OutboundSegments, 1)
	assert.Equal(t, "NH1", booking.OutboundSegments[0].FlightNumber)
	assert.Empty(t, booking.ReturnSegments)
}

// TestFlightExtractor_EngineError verifies transport failures surface and are
// recorded as failed calls.
func TestFlightExtractor_EngineError(t *testing.T) {
	collector := metrics.NewCollector()
	x := NewFlightExtractor(&fakeEngine{err: errors.New("connection refused")}, collector, quietLogger())

	booking, err := x.Extract(context.Background(), flightEmail())
	require.Error(t, err)
	assert.Nil(t, booking)

	calls := collector.Calls()
	require.Len(t, calls, 1)
	assert.False(t, calls[0].Success)
	assert.Equal(t, "connection refused", calls[0].Error)
}

const timesResponse = `{
  "booking_reference": "TC-001",
  "status": "reserved",
  "user_name": "山田太郎",
  "start_time": "2025-07-15T10:00:00+09:00",
  "end_time": "2025-07-15T14:00:00+09:00",
  "station": {"station_name": "渋谷駅前", "station_address": "東京都渋谷区1-1"},
  "car": {"car_type": null, "car_number": "", "car_name": null},
  "total_price": 3200
}`

func carShareEmail(subject string) *models.InboundEmail {
	return &models.InboundEmail{
		ID:         "msg-2",
		Subject:    subject,
		Sender:     "noreply@share.timescar.jp",
		Body:       "ご予約内容",
		ReceivedAt: time.Date(2025, 7, 14, 12, 0, 0, 0, time.UTC),
	}
}

// TestCarShareExtractor_Extract verifies conversion and the received-at stamp.
func TestCarShareExtractor_Extract(t *testing.T) {
	engine := &fakeEngine{content: timesResponse}
	x := NewCarShareExtractor(engine, nil, quietLogger())

	booking, err := x.Extract(context.Background(), carShareEmail("【タイムズカー】予約を受付けました"), models.ProviderTimesCar)
	require.NoError(t, err)
	require.NotNil(t, booking)

	assert.Equal(t, models.ProviderTimesCar, booking.Provider)
	assert.Equal(t, models.StatusReserved, booking.Status)
	assert.Equal(t, "渋谷駅前", booking.Station.Name)
	assert.Equal(t, "3200", booking.TotalPrice)
	assert.Nil(t, booking.Car)
	assert.Equal(t, 4.0, booking.DurationHours())
	require.NotNil(t, booking.EmailReceivedAt)
	assert.True(t, booking.EmailReceivedAt.Equal(time.Date(2025, 7, 14, 12, 0, 0, 0, time.UTC)))

	require.Len(t, engine.calls, 1)
	assert.Contains(t, engine.calls[0].User, "Provider: times_car")
}

// TestCarShareExtractor_SubjectOverridesStatus verifies the subject wins over
// the body status.
func TestCarShareExtractor_SubjectOverridesStatus(t *testing.T) {
	x := NewCarShareExtractor(&fakeEngine{content: timesResponse}, nil, quietLogger())

	booking, err := x.Extract(context.Background(), carShareEmail("【タイムズカー】予約キャンセルのお知らせ"), models.ProviderTimesCar)
	require.NoError(t, err)
	require.NotNil(t, booking)
	assert.Equal(t, models.StatusCancelled, booking.Status)
	assert.False(t, booking.IsActive())
	require.NotNil(t, booking.EmailReceivedAt, "received-at survives the status copy")
}

// TestCarShareExtractor_NoReceivedAt verifies an email without a timestamp
// leaves the field unset.
func TestCarShareExtractor_NoReceivedAt(t *testing.T) {
	x := NewCarShareExtractor(&fakeEngine{content: timesResponse}, nil, quietLogger())

	email := carShareEmail("【タイムズカー】予約を受付けました")
	email.ReceivedAt = time.Time{}

	booking, err := x.Extract(context.Background(), email, models.ProviderTimesCar)
	require.NoError(t, err)
	require.NotNil(t, booking)
	assert.Nil(t, booking.EmailReceivedAt)
}

// TestCarShareExtractor_NoBooking verifies rejected answers.
func TestCarShareExtractor_NoBooking(t *testing.T) {
	tests := map[string]struct {
		content  string
		provider models.CarShareProvider
	}{
		"null":             {"null", models.ProviderTimesCar},
		"unknown provider": {timesResponse, models.CarShareProvider("orix")},
		"no station":       {`{"user_name": "A", "start_time": "2025-07-15T10:00:00+09:00", "end_time": "2025-07-15T14:00:00+09:00", "station": {}}`, models.ProviderMitsui},
		"inverted":         {`{"user_name": "A", "start_time": "2025-07-15T14:00:00+09:00", "end_time": "2025-07-15T10:00:00+09:00", "station": {"station_name": "S"}}`, models.ProviderMitsui},
		"naive":            {`{"user_name": "A", "start_time": "2025-07-15T10:00:00", "end_time": "2025-07-15T14:00:00", "station": {"station_name": "S"}}`, models.ProviderMitsui},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			x := NewCarShareExtractor(&fakeEngine{content: tt.content}, nil, quietLogger())
			booking, err := x.Extract(context.Background(), carShareEmail("予約を受付けました"), tt.provider)
			require.NoError(t, err)
			assert.Nil(t, booking)
		})
	}
}
