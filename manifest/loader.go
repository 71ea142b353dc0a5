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

import (
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strings"
	"time"

	"rivaas.dev/runtime/pathspec"
)

// Resolver binds a discovered filesystem entry to the user-authored
// module behind it. Source compilation of user modules is out of scope
// for this runtime; Resolver is the seam a host embeds its own
// "load this file's exports" step behind.
type Resolver interface {
	// ResolveRoute returns the route module for a discovered api/ file.
	// canonical is the already-translated route path, for diagnostics.
	ResolveRoute(file, canonical string) (RouteModule, error)
	// ResolveQueue returns the queue module for a discovered queues/ file.
	// name is the already-derived logical queue name.
	ResolveQueue(file, name string) (QueueModule, error)
	// ResolveWS returns the WebSocket module for a discovered ws/ file.
	// name is the already-derived logical channel name.
	ResolveWS(file, name string) (WSModule, error)
	// ResolveWarmup returns the warmup module for a discovered root-level
	// warmup file.
	ResolveWarmup(file string) (WarmupModule, error)
}

// Loader scans a project tree and builds a Services table.
type Loader struct {
	extensions []string
}

// Option configures a Loader.
type Option func(*Loader)

// WithExtensions overrides the recognized handler file extensions.
// Default: [".go"].
func WithExtensions(exts ...string) Option {
	return func(l *Loader) { l.extensions = exts }
}

// NewLoader constructs a Loader with the given options.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{extensions: []string{".go"}}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

var nameSegmentRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

const maxQueueNameLen = 40

// Load scans fsys for an "api" directory tree (route handlers), a
// "queues" directory tree (queue handlers), and a "ws" directory tree
// (WebSocket channels), validating and assembling an immutable Services
// table. Any grammar violation or collision is reported as a
// *ManifestError.
func (l *Loader) Load(fsys fs.FS, resolver Resolver) (*Services, error) {
	queues, err := l.loadQueues(fsys, resolver)
	if err != nil {
		return nil, err
	}

	ws, err := l.loadWS(fsys, resolver)
	if err != nil {
		return nil, err
	}

	routes, err := l.loadRoutes(fsys, resolver)
	if err != nil {
		return nil, err
	}

	warmup, warmupSource, err := l.loadWarmup(fsys, resolver)
	if err != nil {
		return nil, err
	}

	byShape := make(map[string]string, len(routes))
	byCanonical := make(map[string]*Route, len(routes))
	for _, rt := range routes {
		shape := rt.Template.Shape()
		if existing, dup := byShape[shape]; dup {
			return nil, newManifestError(rt.Source,
				"duplicate route shape %q (also declared by %s)", shape, existing)
		}
		byShape[shape] = rt.Source
		byCanonical[rt.Template.String()] = rt
	}

	// Queue-backed routes: built one-directional (queues first, then
	// routes), to avoid a route and its backing queue racing to register.
	for _, name := range sortedQueueNames(queues) {
		q := queues[name]
		if q.URL == "" {
			continue
		}
		tpl, err := pathspec.Parse(q.URL)
		if err != nil {
			return nil, newManifestError(q.Source, "invalid queue url %q: %w", q.URL, err)
		}
		if q.FIFO {
			hasGroup := false
			for _, n := range tpl.ParamNames() {
				if n == "group" {
					hasGroup = true
				}
			}
			if !hasGroup {
				return nil, newManifestError(q.Source,
					"fifo queue %q binds url %q but does not declare a :group parameter", q.Name, q.URL)
			}
		}

		shape := tpl.Shape()
		if existing, dup := byShape[shape]; dup {
			return nil, newManifestError(q.Source,
				"queue url %q collides with existing route shape %q (also declared by %s)", q.URL, shape, existing)
		}
		byShape[shape] = q.Source

		synthesized := &Route{
			Template:  tpl,
			Methods:   map[Verb]bool{"POST": true},
			Accepts:   q.Accepts,
			Timeout:   q.Timeout,
			Source:    q.Source,
			FromQueue: q.Name,
		}
		routes = append(routes, synthesized)
		byCanonical[tpl.String()] = synthesized
	}

	return &Services{
		routes:       routes,
		byCanonical:  byCanonical,
		queues:       queues,
		ws:           ws,
		warmup:       warmup,
		warmupSource: warmupSource,
	}, nil
}

func sortedQueueNames(queues map[string]*Queue) []string {
	names := make([]string, 0, len(queues))
	for n := range queues {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (l *Loader) loadRoutes(fsys fs.FS, resolver Resolver) ([]*Route, error) {
	var routes []*Route

	if _, err := fs.Stat(fsys, "api"); err != nil {
		return routes, nil
	}

	err := fs.WalkDir(fsys, "api", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		base := path.Base(p)
		if strings.HasPrefix(base, "_") {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !l.hasRecognizedExtension(base) {
			return nil
		}

		rel := strings.TrimPrefix(p, "api/")
		canonical, err := l.translate(rel)
		if err != nil {
			return newManifestError(p, "%w", err)
		}
		tpl, err := pathspec.Parse(canonical)
		if err != nil {
			return newManifestError(p, "%w", err)
		}

		mod, err := resolver.ResolveRoute(p, tpl.String())
		if err != nil {
			return newManifestError(p, "resolving route module: %w", err)
		}

		rt, err := buildRoute(tpl, p, mod)
		if err != nil {
			return newManifestError(p, "%w", err)
		}
		routes = append(routes, rt)
		return nil
	})
	if err != nil {
		if me, ok := err.(*ManifestError); ok {
			return nil, me
		}
		return nil, err
	}

	return routes, nil
}

func buildRoute(tpl *pathspec.Template, file string, mod RouteModule) (*Route, error) {
	rt := &Route{
		Template: tpl,
		Accepts:  mod.Config.Accepts,
		CORS:     mod.Config.CORS,
		Cache:    mod.Config.Cache,
		ETag:     mod.Config.ETag,
		Timeout:  mod.Config.Timeout,
		Source:   file,
		Module:   mod,
	}

	if len(mod.Config.Methods) > 0 {
		rt.Methods = make(map[Verb]bool, len(mod.Config.Methods))
		for _, m := range mod.Config.Methods {
			if m == "*" {
				rt.AcceptAny = true
				continue
			}
			rt.Methods[m] = true
		}
	} else {
		rt.Methods = make(map[Verb]bool, len(mod.Handlers))
		for verb := range mod.Handlers {
			rt.Methods[Verb(strings.ToUpper(verbName(verb)))] = true
		}
	}

	if len(rt.Methods) == 0 && !rt.AcceptAny {
		return nil, fmt.Errorf("route declares no handlers and no config.methods")
	}

	return rt, nil
}

// verbName maps the reserved-word handler key "del" back to DELETE.
func verbName(key string) string {
	if key == "del" {
		return "delete"
	}
	return key
}

func (l *Loader) loadQueues(fsys fs.FS, resolver Resolver) (map[string]*Queue, error) {
	queues := make(map[string]*Queue)

	if _, err := fs.Stat(fsys, "queues"); err != nil {
		return queues, nil
	}

	entries, err := fs.ReadDir(fsys, "queues")
	if err != nil {
		return nil, err
	}

	for _, d := range entries {
		base := d.Name()
		if strings.HasPrefix(base, "_") || d.IsDir() {
			continue
		}
		if !l.hasRecognizedExtension(base) {
			continue
		}

		stem := l.stripExtension(base)
		name := stem
		fifo := strings.HasSuffix(stem, ".fifo")

		if !isValidQueueName(stem) {
			return nil, newManifestError(path.Join("queues", base),
				"invalid queue name %q: must match [A-Za-z0-9_-]+ with an optional .fifo suffix, max %d chars", stem, maxQueueNameLen)
		}

		file := path.Join("queues", base)
		mod, err := resolver.ResolveQueue(file, name)
		if err != nil {
			return nil, newManifestError(file, "resolving queue module: %w", err)
		}

		timeout := clampQueueTimeout(mod.Config.Timeout)

		q := &Queue{
			Name:    name,
			FIFO:    fifo,
			URL:     mod.Config.URL,
			Timeout: timeout,
			Source:  file,
			Module:  mod,
		}

		if _, dup := queues[name]; dup {
			return nil, newManifestError(file, "duplicate queue name %q", name)
		}
		queues[name] = q
	}

	return queues, nil
}

// loadWS scans a flat "ws" directory (no subdirectories, same grammar as
// queues/) for WebSocket channel modules, each named after its file stem.
func (l *Loader) loadWS(fsys fs.FS, resolver Resolver) (map[string]*WSRoute, error) {
	channels := make(map[string]*WSRoute)

	if _, err := fs.Stat(fsys, "ws"); err != nil {
		return channels, nil
	}

	entries, err := fs.ReadDir(fsys, "ws")
	if err != nil {
		return nil, err
	}

	for _, d := range entries {
		base := d.Name()
		if strings.HasPrefix(base, "_") || d.IsDir() {
			continue
		}
		if !l.hasRecognizedExtension(base) {
			continue
		}

		name := l.stripExtension(base)
		if !isValidChannelName(name) {
			return nil, newManifestError(path.Join("ws", base),
				"invalid channel name %q: must match [A-Za-z0-9_-]+, max %d chars", name, maxQueueNameLen)
		}

		file := path.Join("ws", base)
		mod, err := resolver.ResolveWS(file, name)
		if err != nil {
			return nil, newManifestError(file, "resolving ws module: %w", err)
		}

		timeout := mod.Config.Timeout
		if timeout <= 0 {
			timeout = defaultWSTimeout
		}

		route := &WSRoute{
			Name:    name,
			Type:    mod.Config.Type,
			Timeout: timeout,
			Source:  file,
			Module:  mod,
		}

		if _, dup := channels[name]; dup {
			return nil, newManifestError(file, "duplicate ws channel name %q", name)
		}
		channels[name] = route
	}

	return channels, nil
}

// loadWarmup scans the project root for a single "warmup.{ext}" file
// (no subdirectory, unlike api/queues/ws). At most one is recognized; a
// project with none returns a nil *WarmupModule.
func (l *Loader) loadWarmup(fsys fs.FS, resolver Resolver) (*WarmupModule, string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, "", err
	}

	for _, d := range entries {
		base := d.Name()
		if d.IsDir() || strings.HasPrefix(base, "_") {
			continue
		}
		if !l.hasRecognizedExtension(base) {
			continue
		}
		if l.stripExtension(base) != "warmup" {
			continue
		}

		mod, err := resolver.ResolveWarmup(base)
		if err != nil {
			return nil, "", newManifestError(base, "resolving warmup module: %w", err)
		}
		return &mod, base, nil
	}

	return nil, "", nil
}

func isValidChannelName(name string) bool {
	if name == "" || len(name) > maxQueueNameLen {
		return false
	}
	return nameSegmentRe.MatchString(name)
}

func isValidQueueName(stem string) bool {
	name := strings.TrimSuffix(stem, ".fifo")
	if name == "" || len(stem) > maxQueueNameLen {
		return false
	}
	return nameSegmentRe.MatchString(name)
}

func (l *Loader) hasRecognizedExtension(name string) bool {
	for _, ext := range l.extensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

func (l *Loader) stripExtension(name string) string {
	for _, ext := range l.extensions {
		if strings.HasSuffix(name, ext) {
			return strings.TrimSuffix(name, ext)
		}
	}
	return name
}

// translate converts a directory-scan path into a route path: drop base
// (already done by caller), drop
// extension, collapse "/index", expand "."-nested segments, convert
// brackets to colons (left to pathspec.Parse).
func (l *Loader) translate(rel string) (string, error) {
	stem := l.stripExtension(rel)
	if stem == rel {
		return "", fmt.Errorf("unrecognized file extension: %s", rel)
	}

	// Expand dot-nested segments: "profile.settings" -> "profile/settings".
	stem = strings.ReplaceAll(stem, ".", "/")

	segments := strings.Split(stem, "/")
	if len(segments) > 0 && segments[len(segments)-1] == "index" {
		segments = segments[:len(segments)-1]
	}

	return "/" + strings.Join(segments, "/"), nil
}

const (
	defaultQueueTimeout = 30 * time.Second
	maxQueueTimeout     = 500 * time.Second
)

// clampQueueTimeout clamps a configured queue timeout to [1s, 500s],
// defaulting a non-positive value to defaultQueueTimeout first.
func clampQueueTimeout(configured time.Duration) time.Duration {
	d := configured
	if d <= 0 {
		d = defaultQueueTimeout
	}
	if d < time.Second {
		d = time.Second
	}
	if d > maxQueueTimeout {
		d = maxQueueTimeout
	}
	return d
}
const defaultWSTimeout = 10 * time.Second
