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

package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads so the host environment does not
// leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CONFIG_PATH",
		"GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET", "GOOGLE_REFRESH_TOKEN",
		"GMAIL_CLIENT_ID", "GMAIL_CLIENT_SECRET", "GMAIL_REFRESH_TOKEN",
		"CALENDAR_CLIENT_ID", "CALENDAR_CLIENT_SECRET", "CALENDAR_REFRESH_TOKEN",
		"CALENDAR_ID", "CALENDAR_BACKEND",
		"OPENAI_API_KEY", "OPENAI_MODEL", "OPENAI_BASE_URL",
		"SYNC_PERIOD_HOURS", "SYNC_PERIOD_DAYS", "SYNC_START_DATE", "SYNC_END_DATE",
		"GMAIL_LABEL", "SYNC_MAX_RESULTS", "FLIGHT_DOMAINS", "FORWARDING_ADDRESSES",
		"SLACK_WEBHOOK_URL", "REDIS_URL", "RESULTS_QUEUE", "LOCK_TTL",
		"DATABASE_URL", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "primary", cfg.CalendarID)
	assert.Equal(t, BackendGoogle, cfg.CalendarBackend)
	assert.Equal(t, "gpt-3.5-turbo", cfg.OpenAIModel)
	assert.Equal(t, 8, cfg.SyncPeriodHours)
	assert.Equal(t, 30, cfg.SyncPeriodDays)
	assert.Equal(t, "PROCESSED_BY_GMAIL_SYNC", cfg.Label)
	assert.Equal(t, 100, cfg.MaxResults)
	assert.Equal(t, []string{"ana.co.jp", "booking.jal.com"}, cfg.FlightDomains)
	assert.Empty(t, cfg.ForwardingAddresses)
	assert.Equal(t, "calsync:results", cfg.ResultsQueue)
	assert.Equal(t, 30*time.Minute, cfg.LockTTL)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}

func TestLoad_YAMLWithExpansion(t *testing.T) {
	clearEnv(t)
	t.Setenv("TEST_OPENAI_KEY", "sk-from-env")

	path := writeConfig(t, `
google:
  client_id: cid
  client_secret: secret
  refresh_token: refresh
calendar:
  id: family@group.calendar.google.com
  backend: Memory
openai:
  api_key: ${TEST_OPENAI_KEY}
sync:
  period_hours: 12
  label: SYNCED
domains:
  flight: [ana.co.jp]
  forwarding_addresses: [me@example.com]
redis:
  lock_ttl: 5m
log_level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sk-from-env", cfg.OpenAIAPIKey)
	assert.Equal(t, "family@group.calendar.google.com", cfg.CalendarID)
	assert.Equal(t, BackendMemory, cfg.CalendarBackend)
	assert.Equal(t, 12, cfg.SyncPeriodHours)
	assert.Equal(t, 30, cfg.SyncPeriodDays)
	assert.Equal(t, "SYNCED", cfg.Label)
	assert.Equal(t, []string{"ana.co.jp"}, cfg.FlightDomains)
	assert.Equal(t, []string{"me@example.com"}, cfg.ForwardingAddresses)
	assert.Equal(t, 5*time.Minute, cfg.LockTTL)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.True(t, cfg.Google.Complete())
}

func TestLoad_EnvFallbacks(t *testing.T) {
	clearEnv(t)
	t.Setenv("SYNC_PERIOD_DAYS", "7")
	t.Setenv("FLIGHT_DOMAINS", " ana.co.jp , ,booking.jal.com")
	t.Setenv("FORWARDING_ADDRESSES", "a@example.com,b@example.com")
	t.Setenv("LOCK_TTL", "90s")
	t.Setenv("LOG_LEVEL", "warning")

	path := writeConfig(t, "sync:\n  period_hours: 4\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.SyncPeriodHours)
	assert.Equal(t, 7, cfg.SyncPeriodDays)
	assert.Equal(t, []string{"ana.co.jp", "booking.jal.com"}, cfg.FlightDomains)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.ForwardingAddresses)
	assert.Equal(t, 90*time.Second, cfg.LockTTL)
	assert.Equal(t, slog.LevelWarn, cfg.SlogLevel())
}

func TestLoad_ConfigPathEnv(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "sync:\n  label: FROM_ENV_PATH\n")
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "FROM_ENV_PATH", cfg.Label)
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err, "explicit path must exist")

	_, err = Load(writeConfig(t, "sync: [unclosed"))
	assert.ErrorContains(t, err, "parse config YAML")

	_, err = Load(writeConfig(t, "calendar:\n  backend: exchange\n"))
	assert.ErrorContains(t, err, "unknown calendar backend")

	_, err = Load(writeConfig(t, "calendar:\n  backend: postgres\n"))
	assert.ErrorContains(t, err, "DATABASE_URL")

	_, err = Load(writeConfig(t, "redis:\n  lock_ttl: soon\n"))
	assert.ErrorContains(t, err, "lock_ttl")
}

func TestResolveCredentials(t *testing.T) {
	shared := Credentials{ClientID: "shared", ClientSecret: "s", RefreshToken: "r"}
	specific := Credentials{ClientID: "gmail", ClientSecret: "s", RefreshToken: "r"}
	partial := Credentials{ClientID: "shared", ClientSecret: "s"}

	got, err := ResolveCredentials("gmail", shared, specific)
	require.NoError(t, err)
	assert.Equal(t, "shared", got.ClientID)

	got, err = ResolveCredentials("gmail", partial, specific)
	require.NoError(t, err)
	assert.Equal(t, "gmail", got.ClientID)

	_, err = ResolveCredentials("calendar", partial, Credentials{})
	assert.True(t, errors.Is(err, ErrMissingCredentials))
	assert.ErrorContains(t, err, "calendar")
}

func TestConfig_ServiceCredentials(t *testing.T) {
	cfg := &Config{
		Gmail:    Credentials{ClientID: "g", ClientSecret: "s", RefreshToken: "r"},
		Calendar: Credentials{ClientID: "c"},
	}

	got, err := cfg.GmailCredentials()
	require.NoError(t, err)
	assert.Equal(t, "g", got.ClientID)

	_, err = cfg.CalendarCredentials()
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestConfig_Preflight(t *testing.T) {
	complete := Credentials{ClientID: "id", ClientSecret: "secret", RefreshToken: "refresh"}
	base := func() *Config {
		return &Config{
			Google:          complete,
			CalendarBackend: BackendGoogle,
			OpenAIAPIKey:    "sk-test",
			FlightDomains:   []string{"ana.co.jp"},
			LockTTL:         time.Minute,
		}
	}

	require.NoError(t, base().Preflight())

	cfg := base()
	cfg.Google = Credentials{}
	cfg.OpenAIAPIKey = ""
	err := cfg.Preflight()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingCredentials)
	assert.ErrorContains(t, err, "OPENAI_API_KEY")
	assert.ErrorContains(t, err, "gmail")
	assert.ErrorContains(t, err, "calendar")

	// Non-Google backends need no calendar OAuth client.
	cfg = base()
	cfg.Google = Credentials{}
	cfg.Gmail = complete
	cfg.CalendarBackend = BackendMemory
	assert.NoError(t, cfg.Preflight())
}

func TestCredentials_OAuthConfig(t *testing.T) {
	c := Credentials{ClientID: "id", ClientSecret: "secret"}
	conf := c.OAuthConfig("http://localhost:8080/callback", "scope-a", "scope-b")

	assert.Equal(t, "id", conf.ClientID)
	assert.Equal(t, "http://localhost:8080/callback", conf.RedirectURL)
	assert.Equal(t, []string{"scope-a", "scope-b"}, conf.Scopes)
	assert.Contains(t, conf.Endpoint.TokenURL, "oauth2.googleapis.com")
}
