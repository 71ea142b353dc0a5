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

// Package obs wires the three engines (HTTP, WebSocket, queue) to
// OpenTelemetry metrics and an OTel tracer, generalizing a single-lifecycle
// observability recorder to three dispatch domains instead of one.
package obs

import (
	"context"
	"time"
)

// Recorder is the unified observability seam every engine dispatches
// through. Implementations typically combine metrics collection and
// distributed tracing, mirroring router.ObservabilityRecorder's
// OnRequestStart/OnRequestEnd pair but adapted to event domains that never
// hold a raw http.ResponseWriter (queue and WebSocket dispatch don't have
// one; only HTTP does).
//
// All methods must be safe for concurrent use.
type Recorder interface {
	// HTTPRequest records one completed HTTP dispatch: the matched route
	// template (not the raw path, to avoid cardinality explosion), the
	// final status code, and how long the pipeline took end to end.
	HTTPRequest(ctx context.Context, method, routeTemplate string, status int, dur time.Duration)

	// WSEvent records one completed WebSocket engine call. event is
	// "connect", "message", or "disconnect"; status follows the same
	// convention ServeHTTP's status would (e.g. 204/200/500).
	WSEvent(ctx context.Context, channel, event string, status int, dur time.Duration)

	// QueueDispatch records one completed batch dispatch: how many of the
	// batch's messages failed versus the total, and the wall-clock spent
	// on the batch.
	QueueDispatch(ctx context.Context, queueName string, failed, total int, dur time.Duration)

	// Shutdown flushes and releases any exporter resources. Idempotent.
	Shutdown(ctx context.Context) error
}

// noop implements Recorder by discarding everything. It is the default
// collaborator so Runtime never needs a nil check before recording.
type noop struct{}

// Noop returns a Recorder that does nothing, the default used when no
// Instrumentation is configured.
func Noop() Recorder { return noop{} }

func (noop) HTTPRequest(context.Context, string, string, int, time.Duration) {}
func (noop) WSEvent(context.Context, string, string, int, time.Duration)     {}
func (noop) QueueDispatch(context.Context, string, int, int, time.Duration)  {}
func (noop) Shutdown(context.Context) error                                  { return nil }
