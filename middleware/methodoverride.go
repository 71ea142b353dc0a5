// Copyright 2025 The Rivaas Authors
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

package middleware

import (
	"net/http"
	"strings"
)

// MethodOverrideOption configures MethodOverride.
type MethodOverrideOption func(*methodOverrideConfig)

type methodOverrideConfig struct {
	header string
	param  string
}

func defaultMethodOverrideConfig() *methodOverrideConfig {
	return &methodOverrideConfig{header: "X-HTTP-Method-Override", param: "_method"}
}

// WithMethodOverrideHeader overrides the header name consulted. Default:
// "X-HTTP-Method-Override".
func WithMethodOverrideHeader(header string) MethodOverrideOption {
	return func(cfg *methodOverrideConfig) { cfg.header = header }
}

// WithMethodOverrideParam overrides the form field consulted for POSTed
// forms (clients that cannot set a custom header). Default: "_method".
func WithMethodOverrideParam(param string) MethodOverrideOption {
	return func(cfg *methodOverrideConfig) { cfg.param = param }
}

var overridableVerbs = map[string]bool{
	"PUT": true, "PATCH": true, "DELETE": true,
}

// MethodOverride wraps next so a POST request carrying an override header
// or form field is dispatched as the overridden verb, for HTTP clients
// that cannot issue PUT/PATCH/DELETE directly. Only POST is eligible, and
// only to the destructive verbs above.
func MethodOverride(next http.Handler, opts ...MethodOverrideOption) http.Handler {
	cfg := defaultMethodOverrideConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			next.ServeHTTP(w, r)
			return
		}

		override := r.Header.Get(cfg.header)
		if override == "" {
			override = r.FormValue(cfg.param)
		}
		override = strings.ToUpper(strings.TrimSpace(override))

		if overridableVerbs[override] {
			r.Method = override
		}
		next.ServeHTTP(w, r)
	})
}
