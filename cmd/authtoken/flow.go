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

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

// flow is one authorization code exchange. The first callback that carries
// the expected state ends it.
type flow struct {
	conf    *oauth2.Config
	state   string
	results chan flowResult
}

type flowResult struct {
	token *oauth2.Token
	err   error
}

func newFlow(conf *oauth2.Config, state string) *flow {
	return &flow{conf: conf, state: state, results: make(chan flowResult, 1)}
}

// authURL asks for offline access and forces the consent screen so Google
// always returns a refresh token.
func (f *flow) authURL() string {
	return f.conf.AuthCodeURL(f.state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

func (f *flow) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != f.state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}
		if e := q.Get("error"); e != "" {
			http.Error(w, "authorization denied: "+e, http.StatusBadRequest)
			f.finish(nil, fmt.Errorf("authorization denied: %s", e))
			return
		}
		code := q.Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}

		token, err := f.conf.Exchange(r.Context(), code)
		if err != nil {
			http.Error(w, "token exchange failed", http.StatusBadGateway)
			f.finish(nil, fmt.Errorf("exchange code: %w", err))
			return
		}
		if token.RefreshToken == "" {
			http.Error(w, "no refresh token returned", http.StatusBadGateway)
			f.finish(nil, errors.New("no refresh token returned; revoke the app's access and retry"))
			return
		}

		fmt.Fprintln(w, "Authorization complete. You can close this window.")
		f.finish(token, nil)
	})
	return mux
}

func (f *flow) finish(token *oauth2.Token, err error) {
	select {
	case f.results <- flowResult{token: token, err: err}:
	default:
	}
}

// wait blocks until the callback finishes the flow or ctx ends.
func (f *flow) wait(ctx context.Context) (*oauth2.Token, error) {
	select {
	case res := <-f.results:
		return res.token, res.err
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for OAuth callback: %w", ctx.Err())
	}
}
