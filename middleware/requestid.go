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
	"context"
	"net/http"

	"github.com/google/uuid"
)

type requestIDKey struct{}

// RequestIDOption configures RequestID.
type RequestIDOption func(*requestIDConfig)

type requestIDConfig struct {
	header        string
	generator     func() string
	allowClientID bool
}

func defaultRequestIDConfig() *requestIDConfig {
	return &requestIDConfig{
		header:        "X-Request-ID",
		generator:     func() string { return uuid.NewString() },
		allowClientID: true,
	}
}

// WithRequestIDHeader overrides the header name. Default: "X-Request-ID".
func WithRequestIDHeader(header string) RequestIDOption {
	return func(cfg *requestIDConfig) { cfg.header = header }
}

// WithRequestIDGenerator overrides the id generator. Default: a random UUID.
func WithRequestIDGenerator(fn func() string) RequestIDOption {
	return func(cfg *requestIDConfig) { cfg.generator = fn }
}

// WithAllowClientRequestID controls whether an inbound header value is
// trusted as-is. Default: true.
func WithAllowClientRequestID(allow bool) RequestIDOption {
	return func(cfg *requestIDConfig) { cfg.allowClientID = allow }
}

// RequestID wraps next so every request carries a request id: reused from
// the inbound header when present and allowed, otherwise generated. The id
// is echoed on the response header and stashed in the request context for
// downstream access via RequestIDFromContext.
func RequestID(next http.Handler, opts ...RequestIDOption) http.Handler {
	cfg := defaultRequestIDConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if cfg.allowClientID {
			id = r.Header.Get(cfg.header)
		}
		if id == "" {
			id = cfg.generator()
		}

		w.Header().Set(cfg.header, id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIDFromContext returns the request id stashed by RequestID, or ""
// if none is present.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
