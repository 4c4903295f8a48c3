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

// Booking Calendar Sync: OAuth Bootstrap
//
// Runs the Google installed-app authorization flow once and prints the
// refresh token the sync command needs. The client id and secret come from
// the same configuration as calsync (google.client_id / GOOGLE_CLIENT_ID).
//
// Usage:
//
//	go run ./cmd/authtoken/ [--config config.yaml] [--port 8080]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/bcem/bookingsync/internal/calendar"
	"github.com/bcem/bookingsync/internal/config"
	"github.com/bcem/bookingsync/internal/mail"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// --- CLI Flags ---
	configFlag := flag.String("config", "", "Path to config.yaml (default: $CONFIG_PATH or ./config.yaml)")
	portFlag := flag.Int("port", 8080, "Local port for the OAuth redirect")
	timeoutFlag := flag.Duration("timeout", 5*time.Minute, "How long to wait for the browser callback")
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if cfg.Google.ClientID == "" || cfg.Google.ClientSecret == "" {
		slog.Error("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET must be set")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, *timeoutFlag)
	defer cancelTimeout()

	ln, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", *portFlag))
	if err != nil {
		slog.Error("failed to listen for OAuth redirect", "port", *portFlag, "error", err)
		os.Exit(1)
	}

	redirectURL := fmt.Sprintf("http://localhost:%d/callback", *portFlag)
	f := newFlow(cfg.Google.OAuthConfig(redirectURL, mail.Scope, calendar.Scope), uuid.NewString())

	srv := &http.Server{Handler: f.handler(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("callback server error", "error", err)
		}
	}()
	defer srv.Close()

	fmt.Fprintln(os.Stderr, "Open this URL in a browser and authorize the application:")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, f.authURL())
	fmt.Fprintln(os.Stderr)

	token, err := f.wait(ctx)
	if err != nil {
		slog.Error("authorization failed", "error", err)
		os.Exit(1)
	}

	fmt.Fprintln(os.Stderr, "Success! Add this to your environment or config.yaml:")
	fmt.Printf("GOOGLE_REFRESH_TOKEN=%s\n", token.RefreshToken)
}
