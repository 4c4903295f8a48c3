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

// Package config loads configuration from config.yaml and environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultConfigPath = "config.yaml"

// Calendar backends.
const (
	BackendGoogle   = "google"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config holds all configuration for a sync run.
type Config struct {
	// OAuth credentials: the shared Google client, with optional
	// per-service overrides.
	Google   Credentials
	Gmail    Credentials
	Calendar Credentials

	CalendarID      string
	CalendarBackend string

	// Extraction engine
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	// Sync window and mailbox
	SyncPeriodHours int
	SyncPeriodDays  int
	SyncStartDate   string
	SyncEndDate     string
	Label           string
	MaxResults      int

	FlightDomains       []string
	ForwardingAddresses []string

	SlackWebhookURL string

	// Redis (optional): result feed and run lock
	RedisURL     string
	ResultsQueue string
	LockTTL      time.Duration

	// Postgres (calendar backend "postgres")
	DatabaseURL string

	LogLevel string
}

// rawConfig mirrors the YAML structure for unmarshalling.
type rawConfig struct {
	Google   rawCredentials `yaml:"google"`
	Gmail    rawCredentials `yaml:"gmail"`
	Calendar struct {
		ClientID     string `yaml:"client_id"`
		ClientSecret string `yaml:"client_secret"`
		RefreshToken string `yaml:"refresh_token"`
		ID           string `yaml:"id"`
		Backend      string `yaml:"backend"`
	} `yaml:"calendar"`
	OpenAI struct {
		APIKey  string `yaml:"api_key"`
		Model   string `yaml:"model"`
		BaseURL string `yaml:"base_url"`
	} `yaml:"openai"`
	Sync struct {
		PeriodHours int    `yaml:"period_hours"`
		PeriodDays  int    `yaml:"period_days"`
		StartDate   string `yaml:"start_date"`
		EndDate     string `yaml:"end_date"`
		Label       string `yaml:"label"`
		MaxResults  int    `yaml:"max_results"`
	} `yaml:"sync"`
	Domains struct {
		Flight              []string `yaml:"flight"`
		ForwardingAddresses []string `yaml:"forwarding_addresses"`
	} `yaml:"domains"`
	Slack struct {
		WebhookURL string `yaml:"webhook_url"`
	} `yaml:"slack"`
	Redis struct {
		URL          string `yaml:"url"`
		ResultsQueue string `yaml:"results_queue"`
		LockTTL      string `yaml:"lock_ttl"`
	} `yaml:"redis"`
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
	LogLevel string `yaml:"log_level"`
}

type rawCredentials struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RefreshToken string `yaml:"refresh_token"`
}

// Load reads configuration from the YAML file at path (with env var
// expansion) and fills the gaps from environment variables. An empty path
// means CONFIG_PATH, else config.yaml; the default file may be absent.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = os.Getenv("CONFIG_PATH")
		explicit = path != ""
	}
	if path == "" {
		path = defaultConfigPath
	}

	var raw rawConfig
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		// Expand ${VAR} references in the YAML
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
			return nil, fmt.Errorf("parse config YAML: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		slog.Debug("no config file, using environment only", "path", path)
	default:
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	lockTTL := envOrDefaultDuration("LOCK_TTL", 30*time.Minute)
	if raw.Redis.LockTTL != "" {
		d, err := time.ParseDuration(raw.Redis.LockTTL)
		if err != nil {
			return nil, fmt.Errorf("parse redis.lock_ttl: %w", err)
		}
		lockTTL = d
	}

	cfg := &Config{
		Google:   credentialsFrom(raw.Google, "GOOGLE"),
		Gmail:    credentialsFrom(raw.Gmail, "GMAIL"),
		Calendar: credentialsFrom(rawCredentials{
			ClientID:     raw.Calendar.ClientID,
			ClientSecret: raw.Calendar.ClientSecret,
			RefreshToken: raw.Calendar.RefreshToken,
		}, "CALENDAR"),

		CalendarID:      firstNonEmpty(raw.Calendar.ID, envOrDefault("CALENDAR_ID", "primary")),
		CalendarBackend: strings.ToLower(firstNonEmpty(raw.Calendar.Backend, envOrDefault("CALENDAR_BACKEND", BackendGoogle))),

		OpenAIAPIKey:  firstNonEmpty(raw.OpenAI.APIKey, os.Getenv("OPENAI_API_KEY")),
		OpenAIModel:   firstNonEmpty(raw.OpenAI.Model, envOrDefault("OPENAI_MODEL", "gpt-3.5-turbo")),
		OpenAIBaseURL: firstNonEmpty(raw.OpenAI.BaseURL, os.Getenv("OPENAI_BASE_URL")),

		SyncPeriodHours: firstPositive(raw.Sync.PeriodHours, envOrDefaultInt("SYNC_PERIOD_HOURS", 8)),
		SyncPeriodDays:  firstPositive(raw.Sync.PeriodDays, envOrDefaultInt("SYNC_PERIOD_DAYS", 30)),
		SyncStartDate:   firstNonEmpty(raw.Sync.StartDate, os.Getenv("SYNC_START_DATE")),
		SyncEndDate:     firstNonEmpty(raw.Sync.EndDate, os.Getenv("SYNC_END_DATE")),
		Label:           firstNonEmpty(raw.Sync.Label, envOrDefault("GMAIL_LABEL", "PROCESSED_BY_GMAIL_SYNC")),
		MaxResults:      firstPositive(raw.Sync.MaxResults, envOrDefaultInt("SYNC_MAX_RESULTS", 100)),

		FlightDomains:       firstNonEmptyList(raw.Domains.Flight, envList("FLIGHT_DOMAINS"), []string{"ana.co.jp", "booking.jal.com"}),
		ForwardingAddresses: firstNonEmptyList(raw.Domains.ForwardingAddresses, envList("FORWARDING_ADDRESSES")),

		SlackWebhookURL: firstNonEmpty(raw.Slack.WebhookURL, os.Getenv("SLACK_WEBHOOK_URL")),

		RedisURL:     firstNonEmpty(raw.Redis.URL, os.Getenv("REDIS_URL")),
		ResultsQueue: firstNonEmpty(raw.Redis.ResultsQueue, envOrDefault("RESULTS_QUEUE", "calsync:results")),
		LockTTL:      lockTTL,

		DatabaseURL: firstNonEmpty(raw.Database.URL, os.Getenv("DATABASE_URL")),

		LogLevel: strings.ToUpper(firstNonEmpty(raw.LogLevel, envOrDefault("LOG_LEVEL", "INFO"))),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that would otherwise fail mid-run.
func (c *Config) Validate() error {
	switch c.CalendarBackend {
	case BackendGoogle, BackendMemory:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return errors.New("calendar backend postgres requires database.url or DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown calendar backend %q", c.CalendarBackend)
	}
	if c.LockTTL <= 0 {
		return fmt.Errorf("lock ttl must be positive, got %s", c.LockTTL)
	}
	if len(c.FlightDomains) == 0 {
		return errors.New("no flight domains configured")
	}
	return nil
}

// Preflight reports every setting a sync run needs that is missing: the
// extraction API key and resolvable credentials for Gmail and, with the
// google backend, for the calendar. It returns nil when the run can start.
func (c *Config) Preflight() error {
	var errs []error
	if err := c.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.OpenAIAPIKey == "" {
		errs = append(errs, errors.New("openai.api_key or OPENAI_API_KEY is not set"))
	}
	if _, err := c.GmailCredentials(); err != nil {
		errs = append(errs, err)
	}
	if c.CalendarBackend == BackendGoogle {
		if _, err := c.CalendarCredentials(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// GmailCredentials resolves the OAuth credentials for the mail source.
func (c *Config) GmailCredentials() (Credentials, error) {
	return ResolveCredentials("gmail", c.Google, c.Gmail)
}

// CalendarCredentials resolves the OAuth credentials for the Google
// calendar store.
func (c *Config) CalendarCredentials() (Credentials, error) {
	return ResolveCredentials("calendar", c.Google, c.Calendar)
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func credentialsFrom(raw rawCredentials, envPrefix string) Credentials {
	return Credentials{
		ClientID:     firstNonEmpty(raw.ClientID, os.Getenv(envPrefix+"_CLIENT_ID")),
		ClientSecret: firstNonEmpty(raw.ClientSecret, os.Getenv(envPrefix+"_CLIENT_SECRET")),
		RefreshToken: firstNonEmpty(raw.RefreshToken, os.Getenv(envPrefix+"_REFRESH_TOKEN")),
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envOrDefaultDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// envList splits a comma-separated variable, dropping blanks.
func envList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func firstNonEmptyList(lists ...[]string) []string {
	for _, l := range lists {
		if len(l) > 0 {
			return l
		}
	}
	return nil
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
