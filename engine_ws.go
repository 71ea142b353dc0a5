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
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"
	"time"

	"rivaas.dev/runtime/ambient"
	"rivaas.dev/runtime/manifest"
	"rivaas.dev/runtime/middleware"
	"rivaas.dev/runtime/wsconn"
)

// wsTimeout is both the default and the ceiling for a WebSocket channel's
// configured timeout; WebSocket channels get a 10s default but no separate max.
const wsTimeout = 10 * time.Second

// ErrWSChannelNotFound is returned when an event names a channel absent
// from the manifest.
var ErrWSChannelNotFound = errors.New("runtime: ws channel not found")

// WSConnectEvent is a host adapter's translation of an inbound upgrade
// request: event type Connect, connection id, request id, headers.
type WSConnectEvent struct {
	ChannelName  string
	ConnectionID string
	RequestID    string
	Header       map[string][]string
}

// WSMessageEvent is a host adapter's translation of one inbound frame.
type WSMessageEvent struct {
	ChannelName  string
	ConnectionID string
	RequestID    string
	Body         []byte
	Base64       bool
}

// WSDisconnectEvent is a host adapter's translation of a connection
// closing, cleanly or not.
type WSDisconnectEvent struct {
	ChannelName  string
	ConnectionID string
}

// Connect implements the Connect transition: synthesize a request
// from the upgrade headers, run authenticate if configured, bind the
// connection, and fire onOnline on a user's first accepted connection.
// Returns the status to answer the upgrade with: 204 on acceptance, an
// auth-thrown response's status, or 500.
func (rt *Runtime) Connect(ctx context.Context, ev WSConnectEvent) (status int, err error) {
	start := time.Now()
	defer func() { rt.obs.WSEvent(ctx, ev.ChannelName, "connect", status, time.Since(start)) }()

	route, ok := rt.services.WS(ev.ChannelName)
	if !ok {
		return http.StatusNotFound, ErrWSChannelNotFound
	}

	hooks, err := rt.resolveWSHooks(route)
	if err != nil {
		rt.logger.Error("ws middleware resolve failed", "error", err, "channel", ev.ChannelName)
		return http.StatusInternalServerError, nil
	}

	ambientCtx, release, err := ambient.Open(ctx, rt.ambientOperations(), ambient.WithConnectionID(ev.ConnectionID))
	if err != nil {
		rt.logger.Error("ws ambient scope open failed", "error", err)
		return http.StatusInternalServerError, nil
	}
	defer release()

	timeout := middleware.ClampTimeout(route.Timeout, wsTimeout, wsTimeout)
	budgetCtx, cancel := middleware.WithBudget(ambientCtx, timeout)
	defer cancel()

	req, cookies := buildConnectRequest(ev)

	var user *manifest.User
	if hooks.Authenticate != nil {
		u, err := hooks.Authenticate(budgetCtx, req, cookies)
		if err != nil {
			if result, isResponse := AsResponse(err); isResponse {
				return statusOrDefault(result.Status(), http.StatusForbidden), nil
			}
			rt.logger.Error("ws authenticate failed", "error", err, "channel", ev.ChannelName)
			return http.StatusInternalServerError, nil
		}
		if u != nil {
			if u.ID == "" {
				rt.logger.Error("ws authenticate returned a user with an empty id", "channel", ev.ChannelName)
				return http.StatusInternalServerError, nil
			}
			user = u
			if scope, scopeErr := ambient.Current(budgetCtx); scopeErr == nil {
				_ = scope.SetUser(user)
			}
		}
	}

	userID := ""
	if user != nil {
		userID = user.ID
	}

	firstConnection := false
	if userID != "" {
		existing, err := rt.connStore.ConnectionsFor(budgetCtx, userID)
		if err == nil {
			firstConnection = len(existing) == 0
		}
	}

	if err := rt.connStore.Bind(budgetCtx, ev.ConnectionID, userID); err != nil {
		rt.logger.Error("ws bind failed", "error", err, "connection", ev.ConnectionID)
		return http.StatusInternalServerError, nil
	}

	if firstConnection && hooks.OnOnline != nil {
		meta := &manifest.ConnectionMetadata{ConnectionID: ev.ConnectionID, User: user, Signal: budgetCtx}
		if err := rt.invokeOnOnline(budgetCtx, hooks.OnOnline, meta); err != nil {
			rt.logger.Error("ws onOnline failed", "error", err, "user", userID)
		}
	}

	return http.StatusNoContent, nil
}

// Message implements the Message transition: decode the frame per
// the channel's declared type, resolve the bound user, and invoke the
// default handler under a timeout.
func (rt *Runtime) Message(ctx context.Context, ev WSMessageEvent) (status int, err error) {
	start := time.Now()
	defer func() { rt.obs.WSEvent(ctx, ev.ChannelName, "message", status, time.Since(start)) }()

	route, ok := rt.services.WS(ev.ChannelName)
	if !ok {
		return http.StatusNotFound, ErrWSChannelNotFound
	}

	hooks, err := rt.resolveWSHooks(route)
	if err != nil {
		rt.logger.Error("ws middleware resolve failed", "error", err, "channel", ev.ChannelName)
		return http.StatusInternalServerError, nil
	}

	userID, err := rt.connStore.ResolveUser(ctx, ev.ConnectionID)
	if err != nil && !errors.Is(err, wsconn.ErrConnectionNotFound) {
		rt.logger.Error("ws resolve user failed", "error", err, "connection", ev.ConnectionID)
		return http.StatusInternalServerError, nil
	}

	raw := ev.Body
	if ev.Base64 {
		decoded, err := base64.StdEncoding.DecodeString(string(ev.Body))
		if err != nil {
			rt.logger.Error("ws base64 decode failed", "error", err, "channel", ev.ChannelName)
			return http.StatusInternalServerError, nil
		}
		raw = decoded
	}

	data, err := decodeWSBody(raw, route.Type)
	if err != nil {
		rt.logger.Error("ws body decode failed", "error", err, "channel", ev.ChannelName)
		return http.StatusInternalServerError, nil
	}

	ambientCtx, release, err := ambient.Open(ctx, rt.ambientOperations(), ambient.WithConnectionID(ev.ConnectionID))
	if err != nil {
		rt.logger.Error("ws ambient scope open failed", "error", err)
		return http.StatusInternalServerError, nil
	}
	defer release()

	var user *manifest.User
	if userID != "" {
		user = &manifest.User{ID: userID}
		if scope, scopeErr := ambient.Current(ambientCtx); scopeErr == nil {
			_ = scope.SetUser(user)
		}
	}

	timeout := middleware.ClampTimeout(route.Timeout, wsTimeout, wsTimeout)
	budgetCtx, cancel := middleware.WithBudget(ambientCtx, timeout)
	defer cancel()

	meta := &manifest.ConnectionMetadata{ConnectionID: ev.ConnectionID, User: user, Signal: budgetCtx}

	if hooks.OnMessageReceived != nil {
		if err := hooks.OnMessageReceived(budgetCtx, raw, meta); err != nil {
			rt.logger.Error("ws onMessageReceived failed", "error", err, "connection", ev.ConnectionID)
			return http.StatusInternalServerError, nil
		}
	}

	if err := rt.invokeWSHandler(budgetCtx, route.Module.Handler, data, meta); err != nil {
		rt.logger.Error("ws handler failed", "error", err, "connection", ev.ConnectionID)
		if hooks.OnError != nil {
			func() {
				defer func() {
					if r := recover(); r != nil {
						rt.logger.Error("ws onError panicked", "panic", r, "connection", ev.ConnectionID)
					}
				}()
				hooks.OnError(budgetCtx, err, nil)
			}()
		}
		return http.StatusInternalServerError, nil
	}

	if hooks.OnMessageSent != nil {
		hooks.OnMessageSent(budgetCtx, raw, meta)
	}

	return http.StatusOK, nil
}

// Disconnect implements the Disconnect transition: forget the
// connection and fire onOffline exactly once, when it was the user's last
// live connection.
func (rt *Runtime) Disconnect(ctx context.Context, ev WSDisconnectEvent) (err error) {
	start := time.Now()
	defer func() {
		status := http.StatusNoContent
		if err != nil {
			status = http.StatusInternalServerError
		}
		rt.obs.WSEvent(ctx, ev.ChannelName, "disconnect", status, time.Since(start))
	}()

	route, ok := rt.services.WS(ev.ChannelName)
	if !ok {
		return ErrWSChannelNotFound
	}

	hooks, err := rt.resolveWSHooks(route)
	if err != nil {
		return err
	}

	userID, _ := rt.connStore.ResolveUser(ctx, ev.ConnectionID)

	if err := rt.connStore.Unbind(ctx, ev.ConnectionID); err != nil {
		return err
	}

	if userID == "" || hooks.OnOffline == nil {
		return nil
	}

	remaining, err := rt.connStore.ConnectionsFor(ctx, userID)
	if err != nil || len(remaining) > 0 {
		return nil
	}

	meta := &manifest.ConnectionMetadata{ConnectionID: ev.ConnectionID, User: &manifest.User{ID: userID}, Signal: ctx}
	hooks.OnOffline(ctx, meta)
	return nil
}

// invokeOnOnline calls hooks.OnOnline, converting a panic to an error the
// same way a handler panic is converted elsewhere in the engine.
func (rt *Runtime) invokeOnOnline(ctx context.Context, fn manifest.OnOnlineFunc, meta *manifest.ConnectionMetadata) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("runtime: onOnline panicked: %v", r)
		}
	}()
	return fn(ctx, meta)
}

// invokeWSHandler calls a channel's default handler, racing it against
// ctx's deadline exactly like the queue engine races a message handler
// two races run: the handler, and the cancellation signal.
func (rt *Runtime) invokeWSHandler(ctx context.Context, handler manifest.WSHandlerFunc, data any, meta *manifest.ConnectionMetadata) error {
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("runtime: ws handler panicked: %v", r)
			}
		}()
		done <- handler(ctx, data, meta)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// resolveWSHooks merges the ancestor `_middleware` chain with the
// channel's own module-level hook exports, mirroring resolveHooks for
// HTTP routes but keyed by channel name under a synthetic "/ws" root
// rather than a route template.
func (rt *Runtime) resolveWSHooks(route *manifest.WSRoute) (manifest.Hooks, error) {
	dir := path.Join("/ws", route.Name)
	chain, err := rt.chain.Resolve(dir)
	if err != nil {
		return manifest.Hooks{}, err
	}
	own := manifest.Hooks{
		Authenticate:      route.Module.Authenticate,
		OnOnline:          route.Module.OnOnline,
		OnOffline:         route.Module.OnOffline,
		OnMessageReceived: route.Module.OnMessageReceived,
		OnMessageSent:     route.Module.OnMessageSent,
		OnError:           route.Module.OnError,
	}
	return middleware.Merge(chain, own), nil
}

// buildConnectRequest synthesizes a manifest.Request and cookie map from
// an upgrade event's headers.
func buildConnectRequest(ev WSConnectEvent) (*manifest.Request, map[string]string) {
	header := http.Header(ev.Header)
	req := &manifest.Request{
		Method:      http.MethodGet,
		URL:         ev.RequestID,
		Path:        path.Join("/ws", ev.ChannelName),
		Header:      ev.Header,
		ContentType: header.Get("Content-Type"),
	}

	cookies := map[string]string{}
	if raw := header.Get("Cookie"); raw != "" {
		parser := &http.Request{Header: http.Header{"Cookie": []string{raw}}}
		for _, c := range parser.Cookies() {
			cookies[c.Name] = c.Value
		}
	}
	return req, cookies
}

// decodeWSBody interprets a frame's body per the channel's declared type
// (json, text, or binary). An empty/"" type defaults to
// best-effort JSON, mirroring the queue engine's payload decoding.
func decodeWSBody(body []byte, typ string) (any, error) {
	switch typ {
	case "text":
		return string(body), nil
	case "binary":
		return body, nil
	case "json":
		var v any
		if err := json.Unmarshal(body, &v); err != nil {
			return nil, err
		}
		return v, nil
	default:
		var v any
		if err := json.Unmarshal(body, &v); err != nil {
			return string(body), nil
		}
		return v, nil
	}
}

// statusOrDefault returns status if it is a valid, non-zero HTTP status,
// otherwise def.
func statusOrDefault(status, def int) int {
	if status == 0 {
		return def
	}
	return status
}
