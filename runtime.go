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
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"rivaas.dev/runtime/ambient"
	apperrors "rivaas.dev/runtime/errors"
	"rivaas.dev/runtime/manifest"
	"rivaas.dev/runtime/middleware"
	"rivaas.dev/runtime/obs"
	"rivaas.dev/runtime/queue"
	"rivaas.dev/runtime/rlog"
	"rivaas.dev/runtime/wsconn"
)

// noopLogger is a singleton no-op logger used when no logger is configured,
// backed by rlog.Config rather than a hand-rolled discard handler.
var noopLogger = rlog.MustNew(rlog.WithOutput(io.Discard), rlog.WithLevel(rlog.LevelError+1)).Logger()

// NoopLogger returns the singleton no-op logger.
func NoopLogger() *slog.Logger { return noopLogger }

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the structured logger used for diagnostics (programmer
// errors, dropped warmup failures, onError/onResponse panics). Default:
// NoopLogger().
func WithLogger(logger *slog.Logger) Option {
	return func(rt *Runtime) { rt.logger = logger }
}

// WithDefaultTimeout sets the per-request timeout applied when a route
// declares none. Default: 10s.
func WithDefaultTimeout(d time.Duration) Option {
	return func(rt *Runtime) { rt.defaultTimeout = d }
}

// WithMaxTimeout sets the ceiling a route's declared timeout is clamped to
// (route timeouts are clamped to [1, max]). Default: 30s.
func WithMaxTimeout(d time.Duration) Option {
	return func(rt *Runtime) { rt.maxTimeout = d }
}

// WithConnectionStore sets the collaborator backing getConnections/
// sendWebSocketMessage/closeWebSocket. Default: an in-memory wsconn.Memory.
func WithConnectionStore(store wsconn.Store) Option {
	return func(rt *Runtime) { rt.connStore = store }
}

// WithQueueDispatcher overrides how Runtime enqueues jobs for the ambient
// queueJob operation and how inbound batches are dispatched. Default: an
// in-process queue.LocalDispatcher that calls registered queue handlers
// directly (a dev-mode bypass entered through ambient.Escape).
func WithQueueDispatcher(d queue.Dispatcher) Option {
	return func(rt *Runtime) { rt.queueDispatcher = d }
}

// WithObservability sets the Recorder every engine dispatches metrics
// through. Default: obs.Noop(), so Runtime never needs a nil check before
// recording.
func WithObservability(r obs.Recorder) Option {
	return func(rt *Runtime) { rt.obs = r }
}

// WithErrorFormatter sets the Formatter used to render an HTTP response body
// when onRequest/authenticate/the handler/onResponse return an error.
// Default: nil, which keeps the engine's plain "internal error" text body.
func WithErrorFormatter(f apperrors.Formatter) Option {
	return func(rt *Runtime) { rt.errorFormatter = f }
}

// Runtime is the assembled dispatch core: a manifest.Services table, the
// middleware chain resolver built over it, and the collaborators (queue
// dispatcher, connection store) the ambient context brokers out to.
type Runtime struct {
	services *manifest.Services
	chain    *middleware.Chain

	logger          *slog.Logger
	defaultTimeout  time.Duration
	maxTimeout      time.Duration
	serverTimeouts  serverTimeouts
	connStore       wsconn.Store
	queueDispatcher queue.Dispatcher
	obs             obs.Recorder
	errorFormatter  apperrors.Formatter

	serverMu sync.Mutex
	server   *http.Server
}

// New assembles a Runtime over services (built by manifest.Loader) and a
// middleware.Resolver supplying `_middleware` exports.
func New(services *manifest.Services, mwResolver middleware.Resolver, opts ...Option) *Runtime {
	rt := &Runtime{
		services:       services,
		chain:          middleware.NewChain(mwResolver),
		logger:         noopLogger,
		defaultTimeout: 10 * time.Second,
		maxTimeout:     30 * time.Second,
		serverTimeouts: defaultServerTimeouts(),
		connStore:      wsconn.NewMemory(),
		obs:            obs.Noop(),
	}
	for _, opt := range opts {
		opt(rt)
	}
	if rt.queueDispatcher == nil {
		rt.queueDispatcher = queue.NewLocalDispatcher(rt.services, rt.ambientOperations(), queue.WithRecorder(rt.obs))
	}
	return rt
}

// ambientOperations returns the Operations implementation the HTTP and
// WebSocket engines install into every ambient.Open call.
func (rt *Runtime) ambientOperations() ambient.Operations {
	return &runtimeOps{rt: rt}
}

// Services exposes the loaded manifest, e.g. for diagnostics or a
// /__routes introspection endpoint.
func (rt *Runtime) Services() *manifest.Services { return rt.services }

// runtimeOps implements ambient.Operations by delegating queueJob to the
// configured queue.Dispatcher and WebSocket operations to the configured
// wsconn.Store.
type runtimeOps struct {
	rt *Runtime
}

func (o *runtimeOps) QueueJob(ctx context.Context, queueName string, payload any) (string, error) {
	return o.rt.queueDispatcher.Enqueue(ctx, queueName, payload)
}

func (o *runtimeOps) SendWebSocketMessage(ctx context.Context, connectionID string, payload []byte) error {
	return o.rt.connStore.Send(ctx, connectionID, payload)
}

func (o *runtimeOps) CloseWebSocket(ctx context.Context, connectionID string) error {
	return o.rt.connStore.Close(ctx, connectionID)
}

func (o *runtimeOps) GetConnections(ctx context.Context) ([]string, error) {
	return o.rt.connStore.ConnectionsFor(ctx, "")
}
