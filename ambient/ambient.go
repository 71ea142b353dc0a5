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

package ambient

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"rivaas.dev/runtime/manifest"
)

var (
	// ErrNestedContext is returned by Open when the supplied context
	// already carries a live ambient scope. Opening a second scope on top
	// of a live one is a programmer error, not a runtime condition to
	// recover from.
	ErrNestedContext = errors.New("ambient: a context is already open for this event")

	// ErrUserAlreadySet is returned by Context.SetUser when the user cell
	// has already transitioned once: the authenticated principal may only
	// be set a single time per request scope.
	ErrUserAlreadySet = errors.New("ambient: user already pinned to this context")

	// ErrNoRuntime is returned by any ambient operation attempted outside
	// a live scope: "Runtime not available".
	ErrNoRuntime = errors.New("ambient: Runtime not available")
)

// Operations is the set of out-of-band side effects a handler may trigger
// through the ambient context. The engine that opens a scope supplies the
// concrete implementation (backed by a real queue, a connection store, or
// an in-process dev stand-in).
type Operations interface {
	QueueJob(ctx context.Context, queueName string, payload any) (jobID string, err error)
	SendWebSocketMessage(ctx context.Context, connectionID string, payload []byte) error
	CloseWebSocket(ctx context.Context, connectionID string) error
	GetConnections(ctx context.Context) ([]string, error)
}

type ambientKey struct{}

// Context is the per-event ambient value: the outbound operations
// collaborator, the current WebSocket connection id (empty outside a
// WebSocket event), and the set-once authenticated user cell.
type Context struct {
	ops          Operations
	connectionID string

	mu   sync.Mutex
	user *manifest.User
	set  bool

	released atomic.Bool
}

// OpenOption configures a scope created by Open.
type OpenOption func(*Context)

// WithConnectionID pins the current WebSocket connection id, made visible
// via Context.ConnectionID. Only meaningful for WebSocket events.
func WithConnectionID(id string) OpenOption {
	return func(c *Context) { c.connectionID = id }
}

// Open installs a fresh ambient scope on top of parent and returns the
// child context user code (and nested calls) should be given, along with a
// release function the opening engine must call exactly once when the
// event finishes. Opening a second scope on a context that already carries
// one returns ErrNestedContext and a no-op release.
func Open(parent context.Context, ops Operations, opts ...OpenOption) (context.Context, func(), error) {
	if existing, ok := parent.Value(ambientKey{}).(*Context); ok && existing != nil {
		return parent, func() {}, ErrNestedContext
	}

	c := &Context{ops: ops}
	for _, opt := range opts {
		opt(c)
	}

	child := context.WithValue(parent, ambientKey{}, c)
	release := func() { c.released.Store(true) }
	return child, release, nil
}

// Escape runs fn with the ambient scope temporarily hidden from ctx,
// allowing fn to Open a fresh scope of its own without tripping nested-entry
// detection. This is the seam a dev-mode simulated enqueue uses to
// re-enter the pipeline for a queue handler from inside an HTTP handler.
func Escape(ctx context.Context, fn func(ctx context.Context)) {
	cleared := context.WithValue(ctx, ambientKey{}, (*Context)(nil))
	fn(cleared)
}

// Current recovers the live ambient context from ctx, or ErrNoRuntime if
// none is open (either because ctx never passed through Open, or because
// it is inside an Escape callback).
func Current(ctx context.Context) (*Context, error) {
	c, _ := ctx.Value(ambientKey{}).(*Context)
	if c == nil {
		return nil, ErrNoRuntime
	}
	return c, nil
}

// ConnectionID returns the current WebSocket connection id, or "" outside
// a WebSocket event.
func (c *Context) ConnectionID() string { return c.connectionID }

// SetUser pins the authenticated user exactly once. A second call, even
// with an identical value, returns ErrUserAlreadySet.
func (c *Context) SetUser(u *manifest.User) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.set {
		return ErrUserAlreadySet
	}
	c.user = u
	c.set = true
	return nil
}

// User returns the authenticated principal, or nil if none has been set
// (anonymous request, or authentication not yet run).
func (c *Context) User() *manifest.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user
}

func (c *Context) checkLive() error {
	if c.released.Load() {
		return ErrNoRuntime
	}
	return nil
}

// QueueJob enqueues payload onto queueName and returns the assigned job id.
func (c *Context) QueueJob(ctx context.Context, queueName string, payload any) (string, error) {
	if err := c.checkLive(); err != nil {
		return "", err
	}
	return c.ops.QueueJob(ctx, queueName, payload)
}

// SendWebSocketMessage sends payload to the connection identified by
// connectionID.
func (c *Context) SendWebSocketMessage(ctx context.Context, connectionID string, payload []byte) error {
	if err := c.checkLive(); err != nil {
		return err
	}
	return c.ops.SendWebSocketMessage(ctx, connectionID, payload)
}

// CloseWebSocket forcibly disconnects connectionID.
func (c *Context) CloseWebSocket(ctx context.Context, connectionID string) error {
	if err := c.checkLive(); err != nil {
		return err
	}
	return c.ops.CloseWebSocket(ctx, connectionID)
}

// GetConnections returns the currently open WebSocket connection ids known
// to the connection store.
func (c *Context) GetConnections(ctx context.Context) ([]string, error) {
	if err := c.checkLive(); err != nil {
		return nil, err
	}
	return c.ops.GetConnections(ctx)
}

// QueueJob is the package-level convenience form of Context.QueueJob,
// resolving the live scope from ctx itself; this is the shape user code
// actually calls (mirroring the free-function queueJob/
// sendWebSocketMessage/closeWebSocket/getConnections style).
func QueueJob(ctx context.Context, queueName string, payload any) (string, error) {
	c, err := Current(ctx)
	if err != nil {
		return "", err
	}
	return c.QueueJob(ctx, queueName, payload)
}

// SendWebSocketMessage is the package-level form of Context.SendWebSocketMessage.
func SendWebSocketMessage(ctx context.Context, connectionID string, payload []byte) error {
	c, err := Current(ctx)
	if err != nil {
		return err
	}
	return c.SendWebSocketMessage(ctx, connectionID, payload)
}

// CloseWebSocket is the package-level form of Context.CloseWebSocket.
func CloseWebSocket(ctx context.Context, connectionID string) error {
	c, err := Current(ctx)
	if err != nil {
		return err
	}
	return c.CloseWebSocket(ctx, connectionID)
}

// GetConnections is the package-level form of Context.GetConnections.
func GetConnections(ctx context.Context) ([]string, error) {
	c, err := Current(ctx)
	if err != nil {
		return nil, err
	}
	return c.GetConnections(ctx)
}

// CurrentUser returns the authenticated user pinned to ctx's live scope, or
// nil if anonymous. Returns ErrNoRuntime outside any scope.
func CurrentUser(ctx context.Context) (*manifest.User, error) {
	c, err := Current(ctx)
	if err != nil {
		return nil, err
	}
	return c.User(), nil
}
