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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBindAndResolve(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Bind(ctx, "conn-1", "user-1"))

	userID, err := m.ResolveUser(ctx, "conn-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestMemoryResolveUnboundFails(t *testing.T) {
	m := NewMemory()
	_, err := m.ResolveUser(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrConnectionNotFound)
}

func TestMemoryConnectionsForFiltersByUser(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Bind(ctx, "conn-1", "user-1"))
	require.NoError(t, m.Bind(ctx, "conn-2", "user-1"))
	require.NoError(t, m.Bind(ctx, "conn-3", "user-2"))

	conns, err := m.ConnectionsFor(ctx, "user-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"conn-1", "conn-2"}, conns)

	all, err := m.ConnectionsFor(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestMemoryUnbindRemovesFromUserIndex(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Bind(ctx, "conn-1", "user-1"))
	require.NoError(t, m.Unbind(ctx, "conn-1"))

	_, err := m.ResolveUser(ctx, "conn-1")
	assert.ErrorIs(t, err, ErrConnectionNotFound)

	conns, err := m.ConnectionsFor(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, conns)
}

func TestMemorySendDeliversFrame(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Bind(ctx, "conn-1", ""))
	require.NoError(t, m.Send(ctx, "conn-1", []byte("hello")))

	frame := <-m.Outbound()
	assert.Equal(t, "conn-1", frame.ConnectionID)
	assert.Equal(t, []byte("hello"), frame.Payload)
	assert.False(t, frame.Close)
}

func TestMemorySendToUnknownFails(t *testing.T) {
	m := NewMemory()
	err := m.Send(context.Background(), "ghost", []byte("x"))
	assert.ErrorIs(t, err, ErrConnectionNotFound)
}

func TestMemoryCloseDeliversCloseFrame(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Bind(ctx, "conn-1", ""))
	require.NoError(t, m.Close(ctx, "conn-1"))

	frame := <-m.Outbound()
	assert.True(t, frame.Close)
}
