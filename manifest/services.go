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

package manifest

// Services is the immutable mapping of canonical path -> Route and
// logical name -> Queue produced once at startup. It is safe for
// concurrent read access from any number of goroutines; nothing mutates
// it after Load returns.
type Services struct {
	routes      []*Route // insertion order preserved for deterministic matching
	byCanonical map[string]*Route
	queues      map[string]*Queue
	ws          map[string]*WSRoute

	warmup       *WarmupModule
	warmupSource string
}

// NewServices builds a Services table directly from already-resolved
// routes, queues and WebSocket channels, bypassing the filesystem scan.
// Load is the normal construction path; this is for hosts that assemble
// routes programmatically (tests, or a generated manifest) and for
// package queue's unit tests, which need a *Services without a fs.FS
// fixture. ws may be nil.
func NewServices(routes []*Route, queues map[string]*Queue, ws map[string]*WSRoute) *Services {
	byCanonical := make(map[string]*Route, len(routes))
	for _, rt := range routes {
		byCanonical[rt.Template.String()] = rt
	}
	if queues == nil {
		queues = map[string]*Queue{}
	}
	if ws == nil {
		ws = map[string]*WSRoute{}
	}
	return &Services{routes: routes, byCanonical: byCanonical, queues: queues, ws: ws}
}

// Routes returns the registered routes in registration order.
func (s *Services) Routes() []*Route {
	return s.routes
}

// RouteByCanonical looks up a route by its exact canonical template
// string (e.g. "/posts/:id"), primarily useful for url.self()-style
// lookups where a handler knows its own declared route.
func (s *Services) RouteByCanonical(canonical string) (*Route, bool) {
	rt, ok := s.byCanonical[canonical]
	return rt, ok
}

// Match resolves an inbound request path to a route and its extracted
// parameters, or (nil, nil, false) on a miss.
func (s *Services) Match(path string) (*Route, map[string]string, bool) {
	for _, rt := range s.routes {
		if params, ok := rt.Template.Match(path); ok {
			return rt, params, true
		}
	}
	return nil, nil, false
}

// Queue looks up a queue descriptor by its logical name.
func (s *Services) Queue(name string) (*Queue, bool) {
	q, ok := s.queues[name]
	return q, ok
}

// Queues returns all registered queues.
func (s *Services) Queues() map[string]*Queue {
	return s.queues
}

// WS looks up a WebSocket channel descriptor by its logical name.
func (s *Services) WS(name string) (*WSRoute, bool) {
	ws, ok := s.ws[name]
	return ws, ok
}

// WSRoutes returns all registered WebSocket channels.
func (s *Services) WSRoutes() map[string]*WSRoute {
	return s.ws
}

// Warmup returns the discovered root-level warmup module, its source
// filename, and whether one was found at all.
func (s *Services) Warmup() (*WarmupModule, string, bool) {
	if s.warmup == nil || s.warmup.Handler == nil {
		return nil, "", false
	}
	return s.warmup, s.warmupSource, true
}
