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
	"strconv"
	"strings"
)

// CORSConfig controls the Access-Control-* headers a route with
// config.cors enabled responds with. The zero value allows any origin with
// no credentials, a permissive default.
type CORSConfig struct {
	AllowedOrigins   []string // empty = allow any origin ("*")
	AllowCredentials bool     // forbids "*" in Access-Control-Allow-Origin when true
	MaxAge           int      // seconds; 0 = omit Access-Control-Max-Age
	AllowOriginFunc  func(origin string) bool
}

// AllowOrigin reports whether origin is permitted, and the exact value the
// Access-Control-Allow-Origin header should carry for it (never "*" when
// AllowCredentials is set, per the CORS spec).
func (c CORSConfig) AllowOrigin(origin string) (string, bool) {
	if origin == "" {
		return "", false
	}
	if c.AllowOriginFunc != nil {
		if c.AllowOriginFunc(origin) {
			return origin, true
		}
		return "", false
	}
	if len(c.AllowedOrigins) == 0 {
		if c.AllowCredentials {
			return origin, true
		}
		return "*", true
	}
	for _, allowed := range c.AllowedOrigins {
		if allowed == origin || allowed == "*" {
			return origin, true
		}
	}
	return "", false
}

// ApplyHeaders writes the Access-Control-* response headers for origin
// given the route's allowed methods (Access-Control-Allow-Origin/Methods/
// Headers/Credentials/Max-Age).
func (c CORSConfig) ApplyHeaders(w http.ResponseWriter, origin string, allowedMethods []string) {
	value, ok := c.AllowOrigin(origin)
	if !ok {
		return
	}
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", value)
	h.Set("Vary", "Origin")
	if c.AllowCredentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
	if len(allowedMethods) > 0 {
		h.Set("Access-Control-Allow-Methods", strings.Join(allowedMethods, ", "))
	}
	if c.MaxAge > 0 {
		h.Set("Access-Control-Max-Age", strconv.Itoa(c.MaxAge))
	}
}

// IsPreflight reports whether r is a CORS preflight request.
func IsPreflight(r *http.Request) bool {
	return r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""
}
