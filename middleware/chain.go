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
	"path"
	"strings"
	"sync"

	"rivaas.dev/runtime/manifest"
)

// Resolver loads the `_middleware` export set for a single manifest
// directory (e.g. "/posts", "/posts/:id"), the seam a host embeds its own
// "load this file's exports" step behind, mirroring manifest.Resolver.
type Resolver interface {
	ResolveMiddleware(dir string) (hooks manifest.Hooks, present bool, err error)
}

// Chain resolves and memoizes the effective middleware hook set for any
// manifest directory by walking from the root down, each ancestor's
// `_middleware` overlaying the previous — the same accumulate-then-append
// shape as a router group's parent+own middleware concatenation, applied
// here to named hooks instead of an ordered handler slice.
type Chain struct {
	resolver Resolver

	mu    sync.RWMutex
	cache map[string]manifest.Hooks
}

// NewChain constructs a Chain backed by resolver.
func NewChain(resolver Resolver) *Chain {
	return &Chain{resolver: resolver, cache: make(map[string]manifest.Hooks)}
}

// Resolve returns the merged hook set in effect for dir. Results are cached
// per directory path; safe to call from any number of goroutines since the
// underlying manifest is immutable once built, the same route-freezing
// idiom applied here to middleware resolution.
func (c *Chain) Resolve(dir string) (manifest.Hooks, error) {
	c.mu.RLock()
	if h, ok := c.cache[dir]; ok {
		c.mu.RUnlock()
		return h, nil
	}
	c.mu.RUnlock()

	merged, err := c.resolveUncached(dir)
	if err != nil {
		return manifest.Hooks{}, err
	}

	c.mu.Lock()
	c.cache[dir] = merged
	c.mu.Unlock()
	return merged, nil
}

func (c *Chain) resolveUncached(dir string) (manifest.Hooks, error) {
	var merged manifest.Hooks
	for _, d := range ancestorDirs(dir) {
		hooks, present, err := c.resolver.ResolveMiddleware(d)
		if err != nil {
			return manifest.Hooks{}, err
		}
		if !present {
			continue
		}
		merged = overlay(merged, hooks)
	}
	return merged, nil
}

// overlay applies override on top of base: any non-nil field in override
// replaces the corresponding field in base.
func overlay(base, override manifest.Hooks) manifest.Hooks {
	if override.Authenticate != nil {
		base.Authenticate = override.Authenticate
	}
	if override.OnRequest != nil {
		base.OnRequest = override.OnRequest
	}
	if override.OnResponse != nil {
		base.OnResponse = override.OnResponse
	}
	if override.OnError != nil {
		base.OnError = override.OnError
	}
	if override.OnOnline != nil {
		base.OnOnline = override.OnOnline
	}
	if override.OnOffline != nil {
		base.OnOffline = override.OnOffline
	}
	if override.OnMessageReceived != nil {
		base.OnMessageReceived = override.OnMessageReceived
	}
	if override.OnMessageSent != nil {
		base.OnMessageSent = override.OnMessageSent
	}
	return base
}

// ancestorDirs returns dir's ancestor chain, root first and dir itself
// last, e.g. "/posts/:id" -> ["/", "/posts", "/posts/:id"].
func ancestorDirs(dir string) []string {
	clean := path.Clean("/" + dir)
	if clean == "/" {
		return []string{"/"}
	}

	parts := strings.Split(strings.Trim(clean, "/"), "/")
	dirs := make([]string, 0, len(parts)+1)
	dirs = append(dirs, "/")

	cur := ""
	for _, p := range parts {
		cur += "/" + p
		dirs = append(dirs, cur)
	}
	return dirs
}

// Merge overlays a module's own hook exports on top of a resolved ancestor
// chain, with the module's own exports overriding all ancestors.
func Merge(chain manifest.Hooks, own manifest.Hooks) manifest.Hooks {
	return overlay(chain, own)
}
