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
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// ErrMissingCredentials is returned when neither the shared nor the
// service-specific OAuth credentials are complete.
var ErrMissingCredentials = errors.New("missing OAuth credentials")

// Credentials is an installed-app OAuth client plus a long-lived refresh
// token.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// Complete reports whether all three fields are set.
func (c Credentials) Complete() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
}

// ResolveCredentials returns shared when complete, else specific when
// complete, else an error wrapping ErrMissingCredentials.
func ResolveCredentials(service string, shared, specific Credentials) (Credentials, error) {
	if shared.Complete() {
		return shared, nil
	}
	if specific.Complete() {
		return specific, nil
	}
	return Credentials{}, fmt.Errorf("%s: %w (set GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET and GOOGLE_REFRESH_TOKEN)", service, ErrMissingCredentials)
}

// OAuthConfig returns the Google OAuth client for these credentials.
// redirectURL is only needed for the authorization code flow.
func (c Credentials) OAuthConfig(redirectURL string, scopes ...string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  redirectURL,
		Scopes:       scopes,
	}
}

// TokenSource returns an auto-refreshing token source for the given scopes.
func (c Credentials) TokenSource(ctx context.Context, scopes ...string) oauth2.TokenSource {
	return c.OAuthConfig("", scopes...).TokenSource(ctx, &oauth2.Token{RefreshToken: c.RefreshToken})
}
