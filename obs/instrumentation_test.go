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

package obs

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultsToPrometheus(t *testing.T) {
	in, err := New(WithServiceName("test-runtime"))
	require.NoError(t, err)
	require.NotNil(t, in.Handler())
	assert.Equal(t, "/metrics", in.Path())
	assert.NoError(t, in.Shutdown(context.Background()))
}

func TestHTTPRequestExposedOnPrometheusHandler(t *testing.T) {
	in, err := New()
	require.NoError(t, err)
	defer in.Shutdown(context.Background())

	in.HTTPRequest(context.Background(), "GET", "/users/:id", 200, 12*time.Millisecond)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	in.Handler().ServeHTTP(rec, req)

	assert.Contains(t, rec.Body.String(), "http_server_requests")
}

func TestWSEventAndQueueDispatchDoNotPanic(t *testing.T) {
	in, err := New(WithStdout())
	require.NoError(t, err)
	defer in.Shutdown(context.Background())

	in.WSEvent(context.Background(), "chat", "connect", 204, time.Millisecond)
	in.QueueDispatch(context.Background(), "orders.fifo", 1, 3, 5*time.Millisecond)
}

func TestShutdownIsIdempotent(t *testing.T) {
	in, err := New(WithStdout())
	require.NoError(t, err)

	require.NoError(t, in.Shutdown(context.Background()))
	require.NoError(t, in.Shutdown(context.Background()))
}

func TestNoopRecorderDiscardsEverything(t *testing.T) {
	r := Noop()
	r.HTTPRequest(context.Background(), "GET", "/x", 200, time.Millisecond)
	r.WSEvent(context.Background(), "chat", "message", 200, time.Millisecond)
	r.QueueDispatch(context.Background(), "q", 0, 1, time.Millisecond)
	assert.NoError(t, r.Shutdown(context.Background()))
}

func TestWithPrometheusCustomPath(t *testing.T) {
	in, err := New(WithPrometheus("/internal/metrics"))
	require.NoError(t, err)
	defer in.Shutdown(context.Background())

	assert.True(t, strings.HasPrefix(in.Path(), "/internal"))
}
