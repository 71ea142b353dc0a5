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
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecoveryCatchesPanic(t *testing.T) {
	panics := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})

	srv := Recovery(panics, WithRecoveryLogger(nil))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	assert.NotPanics(t, func() { srv.ServeHTTP(rec, req) })
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRecoveryPassesThroughOnNoPanic(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	srv := Recovery(ok, WithRecoveryLogger(nil))

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestRequestIDGeneratesWhenAbsent(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	})
	srv := RequestID(next)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))
}

func TestRequestIDReusesClientHeader(t *testing.T) {
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	srv := RequestID(next)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "client-supplied")
	srv.ServeHTTP(rec, req)

	assert.Equal(t, "client-supplied", rec.Header().Get("X-Request-ID"))
}

func TestRequestIDRejectsClientHeaderWhenDisallowed(t *testing.T) {
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	srv := RequestID(next, WithAllowClientRequestID(false), WithRequestIDGenerator(func() string { return "generated" }))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "client-supplied")
	srv.ServeHTTP(rec, req)

	assert.Equal(t, "generated", rec.Header().Get("X-Request-ID"))
}

func TestCORSConfigAllowAnyOrigin(t *testing.T) {
	cfg := CORSConfig{}
	rec := httptest.NewRecorder()
	cfg.ApplyHeaders(rec, "https://example.com", []string{"GET", "POST"})

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST", rec.Header().Get("Access-Control-Allow-Methods"))
}

func TestCORSConfigCredentialsForbidsWildcard(t *testing.T) {
	cfg := CORSConfig{AllowCredentials: true}
	rec := httptest.NewRecorder()
	cfg.ApplyHeaders(rec, "https://example.com", []string{"GET"})

	assert.Equal(t, "https://example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORSConfigRejectsDisallowedOrigin(t *testing.T) {
	cfg := CORSConfig{AllowedOrigins: []string{"https://good.example.com"}}
	rec := httptest.NewRecorder()
	cfg.ApplyHeaders(rec, "https://evil.example.com", []string{"GET"})

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestIsPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	assert.False(t, IsPreflight(req))

	req.Header.Set("Access-Control-Request-Method", "POST")
	assert.True(t, IsPreflight(req))
}

func TestMethodOverrideViaHeader(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) { seen = r.Method })
	srv := MethodOverride(next)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("X-HTTP-Method-Override", "DELETE")
	srv.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, http.MethodDelete, seen)
}

func TestMethodOverrideViaFormField(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) { seen = r.Method })
	srv := MethodOverride(next)

	body := strings.NewReader(url.Values{"_method": {"put"}}.Encode())
	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	srv.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, http.MethodPut, seen)
}

func TestMethodOverrideIgnoresNonOverridableVerb(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) { seen = r.Method })
	srv := MethodOverride(next)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("X-HTTP-Method-Override", "TRACE")
	srv.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, http.MethodPost, seen)
}

func TestClampTimeout(t *testing.T) {
	assert.Equal(t, 1e9, float64(ClampTimeout(0, 1_000_000_000, 0)))
}

func TestSecurityAppliesDefaultHeaders(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	srv := Security(next)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "1; mode=block", rec.Header().Get("X-XSS-Protection"))
	assert.Equal(t, "default-src 'self'", rec.Header().Get("Content-Security-Policy"))
	assert.Equal(t, "strict-origin-when-cross-origin", rec.Header().Get("Referrer-Policy"))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"), "HSTS should not be set over plaintext")
}

func TestSecurityAppliesHSTSOverTLS(t *testing.T) {
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	srv := Security(next)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.TLS = &tls.ConnectionState{}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, "max-age=31536000; includeSubDomains", rec.Header().Get("Strict-Transport-Security"))
}

func TestSecurityCustomOptionsOverrideDefaults(t *testing.T) {
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	srv := Security(next,
		WithFrameOptions("SAMEORIGIN"),
		WithContentSecurityPolicy("default-src 'self' 'unsafe-inline'"),
		WithHSTS(0, false, false),
		WithPermissionsPolicy("geolocation=()"),
		WithSecurityHeader("X-Custom", "yes"),
	)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.TLS = &tls.ConnectionState{}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, "SAMEORIGIN", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "default-src 'self' 'unsafe-inline'", rec.Header().Get("Content-Security-Policy"))
	assert.Equal(t, "geolocation=()", rec.Header().Get("Permissions-Policy"))
	assert.Equal(t, "yes", rec.Header().Get("X-Custom"))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"), "maxAge 0 disables HSTS")
}
