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
	"fmt"
	"net/http"
)

// SecurityOption configures Security.
type SecurityOption func(*securityConfig)

type securityConfig struct {
	frameOptions          string
	contentTypeNosniff    bool
	xssProtection         string
	hstsMaxAge            int
	hstsIncludeSubdomains bool
	hstsPreload           bool
	contentSecurityPolicy string
	referrerPolicy        string
	permissionsPolicy     string
	customHeaders         map[string]string
}

func defaultSecurityConfig() *securityConfig {
	return &securityConfig{
		frameOptions:          "DENY",
		contentTypeNosniff:    true,
		xssProtection:         "1; mode=block",
		hstsMaxAge:            31536000,
		hstsIncludeSubdomains: true,
		contentSecurityPolicy: "default-src 'self'",
		referrerPolicy:        "strict-origin-when-cross-origin",
	}
}

// WithFrameOptions sets X-Frame-Options. Default: "DENY".
func WithFrameOptions(value string) SecurityOption {
	return func(cfg *securityConfig) { cfg.frameOptions = value }
}

// WithContentTypeNosniff toggles X-Content-Type-Options: nosniff. Default: true.
func WithContentTypeNosniff(enabled bool) SecurityOption {
	return func(cfg *securityConfig) { cfg.contentTypeNosniff = enabled }
}

// WithHSTS configures Strict-Transport-Security. maxAge of 0 disables the
// header entirely. Default: 1 year, includeSubDomains, no preload.
func WithHSTS(maxAge int, includeSubdomains, preload bool) SecurityOption {
	return func(cfg *securityConfig) {
		cfg.hstsMaxAge = maxAge
		cfg.hstsIncludeSubdomains = includeSubdomains
		cfg.hstsPreload = preload
	}
}

// WithContentSecurityPolicy sets the Content-Security-Policy header.
// Default: "default-src 'self'".
func WithContentSecurityPolicy(value string) SecurityOption {
	return func(cfg *securityConfig) { cfg.contentSecurityPolicy = value }
}

// WithReferrerPolicy sets the Referrer-Policy header. Default:
// "strict-origin-when-cross-origin".
func WithReferrerPolicy(value string) SecurityOption {
	return func(cfg *securityConfig) { cfg.referrerPolicy = value }
}

// WithPermissionsPolicy sets the Permissions-Policy header. Default: omitted.
func WithPermissionsPolicy(value string) SecurityOption {
	return func(cfg *securityConfig) { cfg.permissionsPolicy = value }
}

// WithSecurityHeader adds an arbitrary header not covered by the named
// options above.
func WithSecurityHeader(name, value string) SecurityOption {
	return func(cfg *securityConfig) {
		if cfg.customHeaders == nil {
			cfg.customHeaders = make(map[string]string)
		}
		cfg.customHeaders[name] = value
	}
}

// Security wraps next so every response carries a secure-by-default set of
// browser security headers (X-Frame-Options, X-Content-Type-Options,
// X-XSS-Protection, Strict-Transport-Security over TLS, Content-Security-
// Policy, Referrer-Policy). HSTS is only emitted over an already-TLS
// connection, since advertising it over plaintext HTTP has no effect and
// can mislead a client behind a terminating proxy.
func Security(next http.Handler, opts ...SecurityOption) http.Handler {
	cfg := defaultSecurityConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	var hstsHeader string
	if cfg.hstsMaxAge > 0 {
		hstsHeader = fmt.Sprintf("max-age=%d", cfg.hstsMaxAge)
		if cfg.hstsIncludeSubdomains {
			hstsHeader += "; includeSubDomains"
		}
		if cfg.hstsPreload {
			hstsHeader += "; preload"
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		if cfg.frameOptions != "" {
			h.Set("X-Frame-Options", cfg.frameOptions)
		}
		if cfg.contentTypeNosniff {
			h.Set("X-Content-Type-Options", "nosniff")
		}
		if cfg.xssProtection != "" {
			h.Set("X-XSS-Protection", cfg.xssProtection)
		}
		if hstsHeader != "" && r.TLS != nil {
			h.Set("Strict-Transport-Security", hstsHeader)
		}
		if cfg.contentSecurityPolicy != "" {
			h.Set("Content-Security-Policy", cfg.contentSecurityPolicy)
		}
		if cfg.referrerPolicy != "" {
			h.Set("Referrer-Policy", cfg.referrerPolicy)
		}
		if cfg.permissionsPolicy != "" {
			h.Set("Permissions-Policy", cfg.permissionsPolicy)
		}
		for name, value := range cfg.customHeaders {
			h.Set(name, value)
		}
		next.ServeHTTP(w, r)
	})
}
