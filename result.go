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

package runtime

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
	"net/http"

	"rivaas.dev/runtime/manifest"
)

// writeResult coerces a handler's Result into an actual HTTP response,
// applying route's Cache/ETag policy to 200 responses only. route may be nil
// for synthetic responses (e.g. a framework-generated 404) that carry no
// cache/etag policy. Header assembly happens on a local http.Header, and
// the result is written through rw.WriteResponse in one step, so this
// never touches rw's underlying header map outside the lock that also
// guards the request-timeout race.
func writeResult(rw *responseWriter, result manifest.Result, route *manifest.Route) error {
	status, header, body, err := renderResult(result)
	if err != nil {
		return err
	}

	httpHeader := make(http.Header, len(header)+1)
	for k, v := range header {
		httpHeader.Set(k, v)
	}

	if route != nil && route.CORS {
		httpHeader.Set("Access-Control-Allow-Origin", "*")
	}

	if route != nil && status == http.StatusOK {
		applyCachePolicy(httpHeader, route.Cache, result)
		applyETagPolicy(httpHeader, route.ETag, result, body)
	}

	return rw.WriteResponse(status, httpHeader, body)
}

// renderResult turns a Result's tagged variant into a (status, header,
// body) triple, independent of any route policy.
func renderResult(result manifest.Result) (int, map[string]string, []byte, error) {
	switch result.Kind() {
	case "empty":
		return http.StatusNoContent, nil, nil, nil

	case "text":
		return http.StatusOK, map[string]string{"Content-Type": "text/plain; charset=utf-8"}, result.Body(), nil

	case "json":
		body, err := json.Marshal(result.JSONValue())
		if err != nil {
			return 0, nil, nil, fmt.Errorf("runtime: encoding json result: %w", err)
		}
		return http.StatusOK, map[string]string{"Content-Type": "application/json"}, body, nil

	case "raw":
		return http.StatusOK, result.Header(), result.Body(), nil

	case "structured":
		status := result.Status()
		if status == 0 {
			status = http.StatusOK
		}
		return status, result.Header(), result.Body(), nil

	default:
		return http.StatusNoContent, nil, nil, nil
	}
}

// applyCachePolicy sets Cache-Control per a route's CachePolicy: Func takes
// precedence over Seconds; a zero value on both means no header. A
// user-supplied Cache-Control (already copied onto header above) is left
// alone.
func applyCachePolicy(header http.Header, policy manifest.CachePolicy, result manifest.Result) {
	if header.Get("Cache-Control") != "" {
		return
	}
	seconds := policy.Seconds
	if policy.Func != nil {
		seconds = policy.Func(result)
	}
	if seconds <= 0 {
		return
	}
	header.Set("Cache-Control", fmt.Sprintf("private, max-age=%d, must-revalidate", seconds))
}

// applyETagPolicy sets ETag per a route's ETagPolicy: Func > Value > Enabled,
// checked in that order. Enabled alone computes the ETag as the quoted
// hex MD5 of the rendered body. A user-supplied ETag (already copied onto
// header above) is left alone.
func applyETagPolicy(header http.Header, policy manifest.ETagPolicy, result manifest.Result, body []byte) {
	if header.Get("ETag") != "" {
		return
	}
	switch {
	case policy.Func != nil:
		if tag := policy.Func(result); tag != "" {
			header.Set("ETag", quoteETag(tag))
		}
	case policy.Value != "":
		header.Set("ETag", quoteETag(policy.Value))
	case policy.Enabled:
		sum := md5.Sum(body)
		header.Set("ETag", fmt.Sprintf("%q", fmt.Sprintf("%x", sum)))
	}
}

func quoteETag(tag string) string {
	if len(tag) > 0 && tag[0] == '"' {
		return tag
	}
	return fmt.Sprintf("%q", tag)
}
