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

package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rivaas.dev/runtime/ambient"
	"rivaas.dev/runtime/manifest"
)

type noopOps struct{}

func (noopOps) QueueJob(context.Context, string, any) (string, error)      { return "", nil }
func (noopOps) SendWebSocketMessage(context.Context, string, []byte) error { return nil }
func (noopOps) CloseWebSocket(context.Context, string) error               { return nil }
func (noopOps) GetConnections(context.Context) ([]string, error)           { return nil, nil }

func loadServicesFixture(t *testing.T, q *manifest.Queue) *manifest.Services {
	t.Helper()
	return manifest.NewServices(nil, map[string]*manifest.Queue{q.Name: q}, nil)
}

func newTestQueue(name string, fifo bool, handler manifest.QueueHandlerFunc) *manifest.Queue {
	return &manifest.Queue{
		Name:    name,
		FIFO:    fifo,
		Timeout: time.Second,
		Module:  manifest.QueueModule{Handler: handler},
	}
}

func TestDispatchStandardPartialFailure(t *testing.T) {
	var mu sync.Mutex
	succeeded := map[string]bool{}
	handler := func(_ context.Context, payload any, meta *manifest.QueueMetadata) error {
		if meta.MessageID == "bad" {
			return errors.New("boom")
		}
		mu.Lock()
		succeeded[meta.MessageID] = true
		mu.Unlock()
		return nil
	}
	q := newTestQueue("notify", false, handler)
	services := loadServicesFixture(t, q)
	engine := NewEngine(services, noopOps{})

	batch := Batch{
		QueueName: "notify",
		Messages: []Message{
			{MessageID: "a"},
			{MessageID: "bad"},
			{MessageID: "c"},
		},
		RemainingTime: func() time.Duration { return time.Second },
	}

	result, err := engine.Dispatch(context.Background(), batch)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"bad"}, result.Failed)
	assert.True(t, succeeded["a"])
	assert.True(t, succeeded["c"])
}

func TestDispatchFIFOCutoff(t *testing.T) {
	var mu sync.Mutex
	var order []string
	handler := func(_ context.Context, payload any, meta *manifest.QueueMetadata) error {
		mu.Lock()
		order = append(order, meta.MessageID)
		mu.Unlock()
		if meta.MessageID == "B" {
			return errors.New("boom")
		}
		return nil
	}
	q := newTestQueue("orders.fifo", true, handler)
	services := loadServicesFixture(t, q)
	engine := NewEngine(services, noopOps{})

	batch := Batch{
		QueueName: "orders.fifo",
		Messages: []Message{
			{MessageID: "A", GroupID: "group-1"},
			{MessageID: "B", GroupID: "group-1"},
			{MessageID: "C", GroupID: "group-1"},
		},
		RemainingTime: func() time.Duration { return time.Second },
	}

	result, err := engine.Dispatch(context.Background(), batch)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"B", "C"}, result.Failed)
	assert.Equal(t, []string{"A", "B"}, order) // C never dispatched after cutoff
}

func TestDispatchFIFODistinctGroupsIndependent(t *testing.T) {
	handler := func(_ context.Context, payload any, meta *manifest.QueueMetadata) error {
		if meta.GroupID == "fail-group" {
			return errors.New("boom")
		}
		return nil
	}
	q := newTestQueue("orders.fifo", true, handler)
	services := loadServicesFixture(t, q)
	engine := NewEngine(services, noopOps{})

	batch := Batch{
		QueueName: "orders.fifo",
		Messages: []Message{
			{MessageID: "ok-1", GroupID: "ok-group"},
			{MessageID: "bad-1", GroupID: "fail-group"},
		},
		RemainingTime: func() time.Duration { return time.Second },
	}

	result, err := engine.Dispatch(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, []string{"bad-1"}, result.Failed)
}

func TestDispatchQueueNotFound(t *testing.T) {
	services := loadServicesFixture(t, newTestQueue("known", false, func(context.Context, any, *manifest.QueueMetadata) error { return nil }))
	engine := NewEngine(services, noopOps{})

	_, err := engine.Dispatch(context.Background(), Batch{QueueName: "missing"})
	assert.ErrorIs(t, err, ErrQueueNotFound)
}

func TestDispatchTimeoutExhaustedLeavesMessagePending(t *testing.T) {
	q := newTestQueue("slow", false, func(context.Context, any, *manifest.QueueMetadata) error { return nil })
	services := loadServicesFixture(t, q)
	engine := NewEngine(services, noopOps{})

	batch := Batch{
		QueueName:     "slow",
		Messages:      []Message{{MessageID: "a"}},
		RemainingTime: func() time.Duration { return 0 },
	}

	result, err := engine.Dispatch(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, result.Failed)
}

func TestDispatchOneSetsUserOnAmbientScope(t *testing.T) {
	var seenUserID string
	handler := func(ctx context.Context, _ any, _ *manifest.QueueMetadata) error {
		if scope, err := ambient.Current(ctx); err == nil {
			seenUserID = scope.User().ID
		}
		return nil
	}
	q := newTestQueue("auth-queue", false, handler)
	services := loadServicesFixture(t, q)
	engine := NewEngine(services, noopOps{})

	batch := Batch{
		QueueName:     "auth-queue",
		Messages:      []Message{{MessageID: "a", UserID: "user-7"}},
		RemainingTime: func() time.Duration { return time.Second },
	}

	_, err := engine.Dispatch(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, "user-7", seenUserID)
}
