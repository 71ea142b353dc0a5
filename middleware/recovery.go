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
	"log/slog"
	"net/http"
	"runtime/debug"
)

// RecoveryOption configures Recovery.
type RecoveryOption func(*recoveryConfig)

type recoveryConfig struct {
	logger     *slog.Logger
	stackTrace bool
	handler    func(w http.ResponseWriter, r *http.Request, recovered any)
}

func defaultRecoveryConfig() *recoveryConfig {
	return &recoveryConfig{
		logger:     slog.Default(),
		stackTrace: true,
		handler: func(w http.ResponseWriter, _ *http.Request, _ any) {
			w.WriteHeader(http.StatusInternalServerError)
		},
	}
}

// WithRecoveryLogger sets the logger used to report recovered panics. Pass
// nil to disable logging entirely (useful for quiet test output).
func WithRecoveryLogger(logger *slog.Logger) RecoveryOption {
	return func(cfg *recoveryConfig) { cfg.logger = logger }
}

// WithRecoveryStackTrace enables or disables stack trace capture in the
// logged record. Default: true.
func WithRecoveryStackTrace(enabled bool) RecoveryOption {
	return func(cfg *recoveryConfig) { cfg.stackTrace = enabled }
}

// WithRecoveryHandler sets a custom responder invoked after a panic is
// recovered, in place of the bare 500 default.
func WithRecoveryHandler(handler func(w http.ResponseWriter, r *http.Request, recovered any)) RecoveryOption {
	return func(cfg *recoveryConfig) { cfg.handler = handler }
}

// Recovery wraps next so a panic anywhere in the request pipeline — route
// resolution, middleware, or the handler itself — is caught, logged, and
// turned into a response instead of crashing the process. It should be the
// outermost middleware so it can catch panics from everything beneath it.
func Recovery(next http.Handler, opts ...RecoveryOption) http.Handler {
	cfg := defaultRecoveryConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}
			if cfg.logger != nil {
				attrs := []any{"panic", recovered, "method", r.Method, "path", r.URL.Path}
				if cfg.stackTrace {
					attrs = append(attrs, "stack", string(debug.Stack()))
				}
				cfg.logger.Error("recovered panic", attrs...)
			}
			cfg.handler(w, r, recovered)
		}()
		next.ServeHTTP(w, r)
	})
}
