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

package wsconn

import (
	"context"
	"errors"
)

// ErrConnectionNotFound is returned by Send/Close/ResolveUser for a
// connection id the store has no record of (already disconnected, or
// never bound).
var ErrConnectionNotFound = errors.New("wsconn: connection not found")

// Store tracks live WebSocket connections and brokers messages to them.
// The WebSocket engine Binds a connection when it is accepted and Unbinds
// it on every disconnect, before deciding whether onOffline runs.
// Send/Close/ConnectionsFor back the
// ambient sendWebSocketMessage/closeWebSocket/getConnections operations.
type Store interface {
	// Bind records connectionID as live, associated with userID (empty if
	// anonymous).
	Bind(ctx context.Context, connectionID, userID string) error

	// Unbind forgets connectionID.
	Unbind(ctx context.Context, connectionID string) error

	// ResolveUser returns the user id bound to connectionID, or "" if
	// anonymous. Returns ErrConnectionNotFound if unbound.
	ResolveUser(ctx context.Context, connectionID string) (string, error)

	// ConnectionsFor lists live connection ids. An empty userID lists
	// every live connection; a non-empty one filters to that user's
	// connections (a user may hold more than one, e.g. multiple tabs).
	ConnectionsFor(ctx context.Context, userID string) ([]string, error)

	// Send delivers payload to connectionID. A store with no local
	// transport to connectionID (e.g. it is bound on another process in a
	// fleet) must forward it through its broker.
	Send(ctx context.Context, connectionID string, payload []byte) error

	// Close forcibly disconnects connectionID.
	Close(ctx context.Context, connectionID string) error

	// Outbound returns the channel the local transport (the actual
	// WebSocket connection handling loop) should read frames to deliver
	// from. The store does not filter it to connections this process
	// holds: Redis surfaces frames for every connection in the fleet, so
	// dropping frames for connections held elsewhere is the transport's job.
	Outbound() <-chan Frame
}

// Frame is one outbound delivery or forced close instruction surfaced to
// the local transport loop via Store.Outbound.
type Frame struct {
	ConnectionID string
	Payload      []byte // nil when Close is true
	Close        bool
}
