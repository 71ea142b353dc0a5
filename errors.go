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

import "rivaas.dev/runtime/manifest"

// ResponseError is the vehicle a hook whose signature only returns error
// (onRequest, authenticate, a WebSocket lifecycle hook) uses to short-
// circuit the pipeline with an explicit response instead of failing with
// a logged error (a handler may throw a response object to short-circuit;
// an auth-thrown response maps directly to its status). A handler itself needs no
// such wrapper: its signature already returns a Result directly, so any
// status it wants is just a Result value.
type ResponseError struct {
	Result manifest.Result
}

func (e *ResponseError) Error() string { return "runtime: short-circuited with a response" }

// AsResponse reports whether err is a *ResponseError and returns its
// Result.
func AsResponse(err error) (manifest.Result, bool) {
	re, ok := err.(*ResponseError)
	if !ok {
		return manifest.Result{}, false
	}
	return re.Result, true
}
