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
	"errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rivaas.dev/runtime/manifest"
)

// warmupResolver resolves every route/queue/ws file trivially and hands
// back a warmup handler that records whether it ran and what error (if
// any) to return.
type warmupResolver struct {
	called bool
	err    error
}

func (r *warmupResolver) ResolveRoute(_, _ string) (manifest.RouteModule, error) {
	return manifest.RouteModule{}, nil
}

func (r *warmupResolver) ResolveQueue(_, _ string) (manifest.QueueModule, error) {
	return manifest.QueueModule{}, nil
}

func (r *warmupResolver) ResolveWS(_, _ string) (manifest.WSModule, error) {
	return manifest.WSModule{}, nil
}

func (r *warmupResolver) ResolveWarmup(_ string) (manifest.WarmupModule, error) {
	return manifest.WarmupModule{
		Handler: func(context.Context) error {
			r.called = true
			return r.err
		},
	}, nil
}

func TestWarmupInvokesDiscoveredHook(t *testing.T) {
	fsys := fstest.MapFS{
		"warmup.go": &fstest.MapFile{Data: []byte("package main")},
	}
	resolver := &warmupResolver{}
	services, err := manifest.NewLoader().Load(fsys, resolver)
	require.NoError(t, err)

	rt := New(services, emptyMiddlewareResolver{})
	require.NoError(t, rt.Warmup(context.Background()))
	assert.True(t, resolver.called)
}

func TestWarmupNoHookIsNoop(t *testing.T) {
	fsys := fstest.MapFS{
		"api/posts/index.go": &fstest.MapFile{Data: []byte("package api")},
	}
	resolver := &warmupResolver{}
	services, err := manifest.NewLoader().Load(fsys, resolver)
	require.NoError(t, err)

	rt := New(services, emptyMiddlewareResolver{})
	require.NoError(t, rt.Warmup(context.Background()))
	assert.False(t, resolver.called)
}

func TestWarmupPropagatesHookError(t *testing.T) {
	fsys := fstest.MapFS{
		"warmup.go": &fstest.MapFile{Data: []byte("package main")},
	}
	resolver := &warmupResolver{err: errors.New("boom")}
	services, err := manifest.NewLoader().Load(fsys, resolver)
	require.NoError(t, err)

	rt := New(services, emptyMiddlewareResolver{})
	err = rt.Warmup(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "boom")
	assert.True(t, resolver.called)
}
