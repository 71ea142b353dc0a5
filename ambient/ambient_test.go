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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rivaas.dev/runtime/manifest"
)

type fakeOps struct {
	jobID       string
	connections []string
	sent        [][]byte
	closed      []string
}

func (f *fakeOps) QueueJob(_ context.Context, _ string, _ any) (string, error) {
	return f.jobID, nil
}

func (f *fakeOps) SendWebSocketMessage(_ context.Context, connectionID string, payload []byte) error {
	f.sent = append(f.sent, payload)
	_ = connectionID
	return nil
}

func (f *fakeOps) CloseWebSocket(_ context.Context, connectionID string) error {
	f.closed = append(f.closed, connectionID)
	return nil
}

func (f *fakeOps) GetConnections(_ context.Context) ([]string, error) {
	return f.connections, nil
}

func TestCurrentOutsideScopeFails(t *testing.T) {
	_, err := Current(context.Background())
	assert.ErrorIs(t, err, ErrNoRuntime)
}

func TestOpenThenCurrent(t *testing.T) {
	ops := &fakeOps{jobID: "job-1"}
	ctx, release, err := Open(context.Background(), ops)
	require.NoError(t, err)
	defer release()

	c, err := Current(ctx)
	require.NoError(t, err)
	assert.NotNil(t, c)

	id, err := QueueJob(ctx, "emails", map[string]any{"n": 1})
	require.NoError(t, err)
	assert.Equal(t, "job-1", id)
}

func TestOpenRejectsNesting(t *testing.T) {
	ops := &fakeOps{}
	ctx, release, err := Open(context.Background(), ops)
	require.NoError(t, err)
	defer release()

	_, _, err = Open(ctx, ops)
	assert.ErrorIs(t, err, ErrNestedContext)
}

func TestEscapeAllowsReentry(t *testing.T) {
	outer := &fakeOps{jobID: "outer"}
	ctx, release, err := Open(context.Background(), outer)
	require.NoError(t, err)
	defer release()

	inner := &fakeOps{jobID: "inner"}
	Escape(ctx, func(escaped context.Context) {
		_, err := Current(escaped)
		assert.ErrorIs(t, err, ErrNoRuntime)

		nested, nestedRelease, err := Open(escaped, inner)
		require.NoError(t, err)
		defer nestedRelease()

		id, err := QueueJob(nested, "jobs", nil)
		require.NoError(t, err)
		assert.Equal(t, "inner", id)
	})

	// Outer scope is untouched after the escape returns.
	id, err := QueueJob(ctx, "jobs", nil)
	require.NoError(t, err)
	assert.Equal(t, "outer", id)
}

func TestSetUserOnceInvariant(t *testing.T) {
	ctx, release, err := Open(context.Background(), &fakeOps{})
	require.NoError(t, err)
	defer release()

	c, err := Current(ctx)
	require.NoError(t, err)

	assert.Nil(t, c.User())

	require.NoError(t, c.SetUser(&manifest.User{ID: "u1"}))
	assert.Equal(t, "u1", c.User().ID)

	err = c.SetUser(&manifest.User{ID: "u2"})
	assert.ErrorIs(t, err, ErrUserAlreadySet)
	assert.Equal(t, "u1", c.User().ID, "second assignment must not replace the pinned user")
}

func TestSetUserOnceAllowsNullToNull(t *testing.T) {
	ctx, release, err := Open(context.Background(), &fakeOps{})
	require.NoError(t, err)
	defer release()

	c, err := Current(ctx)
	require.NoError(t, err)

	require.NoError(t, c.SetUser(nil))
	assert.Nil(t, c.User())

	err = c.SetUser(nil)
	assert.ErrorIs(t, err, ErrUserAlreadySet)
}

func TestConnectionIDOption(t *testing.T) {
	ctx, release, err := Open(context.Background(), &fakeOps{}, WithConnectionID("conn-7"))
	require.NoError(t, err)
	defer release()

	c, err := Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "conn-7", c.ConnectionID())
}

func TestOperationsAfterReleaseFail(t *testing.T) {
	ctx, release, err := Open(context.Background(), &fakeOps{jobID: "x"})
	require.NoError(t, err)

	release()

	_, err = QueueJob(ctx, "q", nil)
	assert.ErrorIs(t, err, ErrNoRuntime)
}

func TestCurrentUserHelper(t *testing.T) {
	ctx, release, err := Open(context.Background(), &fakeOps{})
	require.NoError(t, err)
	defer release()

	c, err := Current(ctx)
	require.NoError(t, err)
	require.NoError(t, c.SetUser(&manifest.User{ID: "u1"}))

	u, err := CurrentUser(ctx)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "u1", u.ID)
}

func TestSendAndCloseAndGetConnections(t *testing.T) {
	ops := &fakeOps{connections: []string{"a", "b"}}
	ctx, release, err := Open(context.Background(), ops)
	require.NoError(t, err)
	defer release()

	require.NoError(t, SendWebSocketMessage(ctx, "a", []byte("hi")))
	require.NoError(t, CloseWebSocket(ctx, "b"))

	conns, err := GetConnections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, conns)
	assert.Equal(t, [][]byte{[]byte("hi")}, ops.sent)
	assert.Equal(t, []string{"b"}, ops.closed)
}
