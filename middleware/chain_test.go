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

package middleware

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rivaas.dev/runtime/manifest"
)

type mapResolver struct {
	byDir map[string]manifest.Hooks
	calls map[string]int
}

func (m *mapResolver) ResolveMiddleware(dir string) (manifest.Hooks, bool, error) {
	if m.calls != nil {
		m.calls[dir]++
	}
	h, ok := m.byDir[dir]
	return h, ok, nil
}

func reqMW(tag string) manifest.RequestMiddlewareFunc {
	return func(_ context.Context, _ *manifest.Request) error { return errors.New(tag) }
}

func TestChainAncestorOverride(t *testing.T) {
	root := reqMW("root")
	nested := reqMW("nested")

	resolver := &mapResolver{byDir: map[string]manifest.Hooks{
		"/":           {OnRequest: root},
		"/posts/:id":  {OnRequest: nested},
	}}
	chain := NewChain(resolver)

	hooks, err := chain.Resolve("/posts/:id")
	require.NoError(t, err)
	assert.NotNil(t, hooks.OnRequest)

	// Nearest ancestor ("/posts/:id" itself) wins over "/".
	hooks2, err := chain.Resolve("/posts/:id")
	require.NoError(t, err)
	assert.NotNil(t, hooks2.OnRequest)
	assert.EqualError(t, hooks2.OnRequest(context.Background(), nil), "nested")
}

func TestChainInheritsFromRootWhenChildSilent(t *testing.T) {
	root := reqMW("root")
	resolver := &mapResolver{byDir: map[string]manifest.Hooks{
		"/": {OnRequest: root},
	}}
	chain := NewChain(resolver)

	hooks, err := chain.Resolve("/posts/:id")
	require.NoError(t, err)
	assert.NotNil(t, hooks.OnRequest, "child directory with no _middleware inherits the root's")
}

func TestChainMemoizesPerDirectory(t *testing.T) {
	calls := map[string]int{}
	resolver := &mapResolver{byDir: map[string]manifest.Hooks{}, calls: calls}
	chain := NewChain(resolver)

	_, err := chain.Resolve("/a/b")
	require.NoError(t, err)
	_, err = chain.Resolve("/a/b")
	require.NoError(t, err)

	assert.Equal(t, 1, calls["/a/b"], "second Resolve of the same dir must hit the cache, not the resolver")
}

func TestMergeOwnOverridesChain(t *testing.T) {
	chainHooks := manifest.Hooks{OnRequest: reqMW("chain")}
	own := manifest.Hooks{OnRequest: reqMW("own")}

	merged := Merge(chainHooks, own)
	assert.NotNil(t, merged.OnRequest)
	assert.EqualError(t, merged.OnRequest(context.Background(), nil), "own")
}

func TestAncestorDirsRoot(t *testing.T) {
	assert.Equal(t, []string{"/"}, ancestorDirs("/"))
	assert.Equal(t, []string{"/", "/posts"}, ancestorDirs("/posts"))
	assert.Equal(t, []string{"/", "/posts", "/posts/:id"}, ancestorDirs("/posts/:id"))
}
