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
	"bufio"
	"errors"
	"net"
	"net/http"
	"sync"
)

// ErrResponseWriterNotHijacker is returned by responseWriter.Hijack when
// the underlying http.ResponseWriter doesn't support hijacking (e.g. an
// h2c connection).
var ErrResponseWriterNotHijacker = errors.New("runtime: response writer does not support hijacking")

// responseWriter wraps http.ResponseWriter to capture the status code and
// body size the access-log middleware and the timeout race need, and to
// guard against a duplicate WriteHeader once the deadline and the handler
// both try to answer the same request. The mutex matters here: the request
// timeout races the handler goroutine against the deadline goroutine, and
// both may reach for this writer at once. WriteResponse/WriteError are the
// only safe way to answer a request from code that can run concurrently
// with the deadline branch: a bare Header().Set followed by WriteHeader
// would let the two goroutines touch the same header map unsynchronized.
type responseWriter struct {
	http.ResponseWriter

	mu         sync.Mutex
	statusCode int
	size       int64
	written    bool
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if !rw.written {
		rw.statusCode = code
		rw.ResponseWriter.WriteHeader(code)
		rw.written = true
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.mu.Lock()
	if !rw.written {
		rw.written = true
	}
	if rw.statusCode == 0 {
		rw.statusCode = http.StatusOK
	}
	rw.mu.Unlock()
	n, err := rw.ResponseWriter.Write(b)
	rw.mu.Lock()
	rw.size += int64(n)
	rw.mu.Unlock()
	return n, err
}

// WriteResponse atomically sets header, writes status, and writes body
// under the same mutex that guards written/statusCode/size, so the
// deadline branch in runRequestPipeline and a still-running handler
// goroutine never touch the underlying header map at the same time. A
// call arriving after the writer has already answered is a silent
// no-op: whichever side got here first wins.
func (rw *responseWriter) WriteResponse(status int, header http.Header, body []byte) error {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if rw.written {
		return nil
	}
	dst := rw.ResponseWriter.Header()
	for k, vs := range header {
		for _, v := range vs {
			dst.Add(k, v)
		}
	}
	rw.statusCode = status
	rw.written = true
	rw.ResponseWriter.WriteHeader(status)
	if status != http.StatusNoContent && len(body) > 0 {
		n, err := rw.ResponseWriter.Write(body)
		rw.size += int64(n)
		return err
	}
	return nil
}

// WriteError mirrors net/http.Error's headers and body shape but goes
// through WriteResponse so it can race safely against a handler goroutine
// still writing the same response.
func (rw *responseWriter) WriteError(status int, msg string) {
	header := http.Header{
		"Content-Type":           {"text/plain; charset=utf-8"},
		"X-Content-Type-Options": {"nosniff"},
	}
	_ = rw.WriteResponse(status, header, []byte(msg+"\n"))
}

// StatusCode returns the status code written so far, defaulting to 200
// before any explicit WriteHeader/Write call.
func (rw *responseWriter) StatusCode() int {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if rw.statusCode == 0 {
		return http.StatusOK
	}
	return rw.statusCode
}

// Size returns the number of response body bytes written so far.
func (rw *responseWriter) Size() int64 {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	return rw.size
}

// Written reports whether headers have already gone out.
func (rw *responseWriter) Written() bool {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	return rw.written
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := rw.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, ErrResponseWriterNotHijacker
}

func (rw *responseWriter) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
