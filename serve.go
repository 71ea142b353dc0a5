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
	"fmt"
	"net/http"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"rivaas.dev/runtime/ambient"
	"rivaas.dev/runtime/middleware"
)

// serverTimeouts are the stdlib http.Server timeouts applied by Serve/
// ServeTLS (slowloris protection: header read, body read, write, and idle
// bounds).
type serverTimeouts struct {
	readHeader, read, write, idle time.Duration
}

func defaultServerTimeouts() serverTimeouts {
	return serverTimeouts{
		readHeader: 5 * time.Second,
		read:       30 * time.Second,
		write:      30 * time.Second,
		idle:       120 * time.Second,
	}
}

// handler assembles the engine-level middleware stack (recovery, request
// id, access log, method override, security headers) around
// Runtime.ServeHTTP, applied in that layering order.
func (rt *Runtime) handler() http.Handler {
	var h http.Handler = http.HandlerFunc(rt.ServeHTTP)
	h = middleware.Security(h)
	h = middleware.MethodOverride(h)
	h = middleware.AccessLog(h, middleware.WithAccessLogger(rt.logger))
	h = middleware.RequestID(h)
	h = middleware.Recovery(h, middleware.WithRecoveryLogger(rt.logger))
	return h
}

// Serve starts a plaintext HTTP server on addr, blocking until it exits.
// h2c is applied unconditionally, since cleartext HTTP/2 is safe to offer
// here, to accept prior-knowledge HTTP/2 alongside HTTP/1.1.
func (rt *Runtime) Serve(addr string) error {
	h := h2c.NewHandler(rt.handler(), &http2.Server{})

	timeouts := rt.serverTimeouts
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: timeouts.readHeader,
		ReadTimeout:       timeouts.read,
		WriteTimeout:      timeouts.write,
		IdleTimeout:       timeouts.idle,
	}

	rt.serverMu.Lock()
	rt.server = srv
	rt.serverMu.Unlock()

	return srv.ListenAndServe()
}

// ServeTLS starts an HTTPS server on addr; HTTP/2 is negotiated
// automatically via ALPN.
func (rt *Runtime) ServeTLS(addr, certFile, keyFile string) error {
	timeouts := rt.serverTimeouts
	srv := &http.Server{
		Addr:              addr,
		Handler:           rt.handler(),
		ReadHeaderTimeout: timeouts.readHeader,
		ReadTimeout:       timeouts.read,
		WriteTimeout:      timeouts.write,
		IdleTimeout:       timeouts.idle,
	}

	rt.serverMu.Lock()
	rt.server = srv
	rt.serverMu.Unlock()

	return srv.ListenAndServeTLS(certFile, keyFile)
}

// Warmup invokes the project's warmup.{ext} hook, if one was discovered,
// before Serve/ServeTLS starts accepting traffic. The hook runs with the
// same ambient context machinery a request handler gets (queueJob,
// WebSocket operations), opened and released around the single call. A
// project with no warmup file makes this a no-op.
func (rt *Runtime) Warmup(ctx context.Context) error {
	mod, source, ok := rt.services.Warmup()
	if !ok {
		return nil
	}

	ambientCtx, release, err := ambient.Open(ctx, rt.ambientOperations())
	if err != nil {
		return fmt.Errorf("runtime: opening ambient scope for warmup: %w", err)
	}
	defer release()

	if err := mod.Handler(ambientCtx); err != nil {
		rt.logger.Error("warmup hook failed", "error", err, "source", source)
		return fmt.Errorf("runtime: warmup hook %s failed: %w", source, err)
	}
	return nil
}

// Shutdown gracefully stops the server started by Serve/ServeTLS.
func (rt *Runtime) Shutdown(ctx context.Context) error {
	rt.serverMu.Lock()
	srv := rt.server
	rt.server = nil
	rt.serverMu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
