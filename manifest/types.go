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
	"context"
	"time"

	"rivaas.dev/runtime/pathspec"
)

// Verb is an uppercase HTTP method, or "*" meaning "accept any method".
type Verb string

// CachePolicy decides the Cache-Control max-age (in seconds) for a 200
// response. Exactly one of Seconds/Func should be used; Func, if present,
// takes precedence and receives the coerced result value.
type CachePolicy struct {
	Seconds int
	Func    func(result Result) int
}

// ETagPolicy decides whether/how a 200 response gets an ETag header.
// Exactly one of Enabled/Value/Func is meaningful at a time, checked in
// that order: Func > Value > Enabled.
type ETagPolicy struct {
	Enabled bool
	Value   string
	Func    func(result Result) string
}

// RouteConfig mirrors a route module's optional `config` export.
type RouteConfig struct {
	Accepts []string // accepted content types ("application/json", "text/*"); nil = accept all
	Cache   CachePolicy
	CORS    bool
	ETag    ETagPolicy
	Methods []Verb // nil = derive from the handler map; "*" = accept all
	Timeout time.Duration
}

// QueueConfig mirrors a queue module's optional `config` export.
type QueueConfig struct {
	URL     string // optional incoming HTTP path for web-triggered enqueue
	Timeout time.Duration
	Type    string // "json" | "text" | "binary"; "" defaults to best-effort JSON
}

// User is the authenticated principal pinned to a request's ambient
// context. Identity beyond ID is opaque to the runtime.
type User struct {
	ID     string
	Claims map[string]any
}

// Request is the host-agnostic view of an inbound HTTP request handed to
// route modules and middleware.
type Request struct {
	Method      string
	URL         string
	Path        string
	Header      map[string][]string
	Body        []byte
	ContentType string
}

// Metadata is the second argument passed to a route handler per the
// module export contract: cookies, path parameters, a cancellation
// signal, and the authenticated user (nil if unauthenticated).
type Metadata struct {
	Cookies map[string]string
	Params  pathspec.Params
	Signal  context.Context
	User    *User
}

// Result is the tagged variant returned by a route handler or thrown in
// its place, replacing the source language's response|buffer|string|object
// polymorphism with a closed Go sum type.
type Result struct {
	kind resultKind

	status  int
	header  map[string]string
	body    []byte
	jsonVal any
}

type resultKind uint8

const (
	resultEmpty resultKind = iota
	resultText
	resultJSON
	resultRaw
	resultStructured
)

// EmptyResult is returned when a handler produces no value; the engine
// renders it as 204.
func EmptyResult() Result { return Result{kind: resultEmpty} }

// TextResult renders s as "text/plain; charset=utf-8".
func TextResult(s string) Result {
	return Result{kind: resultText, body: []byte(s)}
}

// JSONResult renders v as "application/json" via the engine's encoder.
func JSONResult(v any) Result {
	return Result{kind: resultJSON, jsonVal: v}
}

// RawResult renders body verbatim with the given content type.
func RawResult(body []byte, contentType string) Result {
	return Result{kind: resultRaw, body: body, header: map[string]string{"Content-Type": contentType}}
}

// StructuredResult carries an explicit status, headers and body, as when
// user code constructs its own response object.
func StructuredResult(status int, header map[string]string, body []byte) Result {
	return Result{kind: resultStructured, status: status, header: header, body: body}
}

// Kind, Status, Header, Body, JSONValue expose the tagged fields to the
// engine's coercion step (httpengine owns interpreting these; manifest
// only owns the shape).
func (r Result) Kind() string {
	switch r.kind {
	case resultEmpty:
		return "empty"
	case resultText:
		return "text"
	case resultJSON:
		return "json"
	case resultRaw:
		return "raw"
	case resultStructured:
		return "structured"
	default:
		return "empty"
	}
}

func (r Result) Status() int                  { return r.status }
func (r Result) Header() map[string]string     { return r.header }
func (r Result) Body() []byte                  { return r.body }
func (r Result) JSONValue() any                { return r.jsonVal }

// HandlerFunc is a route module's exported verb handler.
type HandlerFunc func(ctx context.Context, req *Request, meta *Metadata) (Result, error)

// AuthenticateFunc authenticates a request, returning the principal or an
// error. A returned *User with an empty ID is a programmer error: the HTTP
// engine answers it with a 403 and a logged diagnostic, the WebSocket
// engine refuses the connection with a 500.
type AuthenticateFunc func(ctx context.Context, req *Request, cookies map[string]string) (*User, error)

// RequestMiddlewareFunc is onRequest: may return an error to short-circuit
// (a *ResponseError carries a full Result; any other error is a plain
// handler error).
type RequestMiddlewareFunc func(ctx context.Context, req *Request) error

// ResponseMiddlewareFunc is onResponse: may replace the response.
type ResponseMiddlewareFunc func(ctx context.Context, req *Request, resp Result) (Result, error)

// ErrorMiddlewareFunc is onError: invoked exactly once per non-response
// error that reaches the end of the pipeline.
type ErrorMiddlewareFunc func(ctx context.Context, err error, req *Request)

// QueueHandlerFunc is a queue module's default export.
type QueueHandlerFunc func(ctx context.Context, payload any, meta *QueueMetadata) error

// QueueErrorFunc is a queue module's onError.
type QueueErrorFunc func(ctx context.Context, err error, meta *QueueMetadata)

// QueueMetadata is the metadata record passed to a queue handler.
type QueueMetadata struct {
	MessageID      string
	GroupID        string
	Params         map[string]string
	QueueName      string
	ReceivedCount  int
	SentAt         time.Time
	SequenceNumber string
	User           *User
}

// ConnectionMetadata is the metadata record passed to the four WebSocket
// lifecycle hooks.
type ConnectionMetadata struct {
	ConnectionID string
	Params       map[string]string
	User         *User
	Signal       context.Context
}

// OnOnlineFunc runs when an authenticated user's first open WebSocket
// connection is established; anonymous connections do not trigger it.
type OnOnlineFunc func(ctx context.Context, meta *ConnectionMetadata) error

// OnOfflineFunc runs when an authenticated user's last open WebSocket
// connection closes (cleanly or not); anonymous connections do not trigger it.
type OnOfflineFunc func(ctx context.Context, meta *ConnectionMetadata)

// OnMessageReceivedFunc handles an inbound WebSocket frame.
type OnMessageReceivedFunc func(ctx context.Context, payload []byte, meta *ConnectionMetadata) error

// OnMessageSentFunc observes an inbound WebSocket frame's raw bytes after
// the channel handler has processed it without error.
type OnMessageSentFunc func(ctx context.Context, payload []byte, meta *ConnectionMetadata)

// Hooks is the full set of per-directory middleware names recognized by a
// `_middleware` file or a route/queue module's own exports. Any subset may
// be nil; a merged Chain resolves the effective,
// non-nil value for each name by walking from the nearest ancestor down.
type Hooks struct {
	Authenticate      AuthenticateFunc
	OnRequest         RequestMiddlewareFunc
	OnResponse        ResponseMiddlewareFunc
	OnError           ErrorMiddlewareFunc
	OnOnline          OnOnlineFunc
	OnOffline         OnOfflineFunc
	OnMessageReceived OnMessageReceivedFunc
	OnMessageSent     OnMessageSentFunc
}

// RouteModule is what a Resolver hands back for a discovered api/ file.
// Handlers is keyed by lower-case verb name ("get", "post", ..., "del"
// for DELETE, since "delete" is a reserved word in some module systems);
// "default" may be
// used as a catch-all handler key.
type RouteModule struct {
	Config       RouteConfig
	Handlers     map[string]HandlerFunc
	Authenticate AuthenticateFunc
	OnRequest    RequestMiddlewareFunc
	OnResponse   ResponseMiddlewareFunc
	OnError      ErrorMiddlewareFunc
}

// QueueModule is what a Resolver hands back for a discovered queues/ file.
type QueueModule struct {
	Config  QueueConfig
	Handler QueueHandlerFunc
	OnError QueueErrorFunc
}

// WSConfig mirrors a WebSocket module's optional `config` export.
type WSConfig struct {
	Type    string // "json" | "text" | "binary"; how an inbound frame's body decodes
	Timeout time.Duration
}

// WarmupHandlerFunc is a warmup module's default export, invoked once
// with an ambient context before the engine starts serving traffic.
type WarmupHandlerFunc func(ctx context.Context) error

// WarmupModule is what a Resolver hands back for a discovered root-level
// warmup file. Handler is nil when no warmup file was found.
type WarmupModule struct {
	Handler WarmupHandlerFunc
}

// WSHandlerFunc is a WebSocket module's default export, invoked once per
// inbound Message event.
type WSHandlerFunc func(ctx context.Context, data any, meta *ConnectionMetadata) error

// WSModule is what a Resolver hands back for a discovered ws/ file.
type WSModule struct {
	Config            WSConfig
	Handler           WSHandlerFunc
	Authenticate      AuthenticateFunc
	OnOnline          OnOnlineFunc
	OnOffline         OnOfflineFunc
	OnMessageReceived OnMessageReceivedFunc
	OnMessageSent     OnMessageSentFunc
	OnError           ErrorMiddlewareFunc
}

// WSRoute is one registered WebSocket channel, named rather than
// path-matched: a connection picks its channel once at upgrade time (the
// host adapter's concern), and every event after that is addressed by
// opaque connection id, not by path.
type WSRoute struct {
	Name    string
	Type    string
	Timeout time.Duration
	Source  string
	Module  WSModule
}

// Route is one registered HTTP endpoint.
type Route struct {
	Template  *pathspec.Template
	Methods   map[Verb]bool
	AcceptAny bool // true when Methods contains "*"
	Accepts   []string
	CORS      bool
	Cache     CachePolicy
	ETag      ETagPolicy
	Timeout   time.Duration
	Source    string // originating filename, for diagnostics
	Module    RouteModule

	// FromQueue is set to the queue name when this route was synthesized
	// from a queue's config.url projection.
	FromQueue string
}

// AcceptsMethod reports whether m is acceptable for the route. HEAD falls
// through to GET, matching the nearest accepted verb.
func (rt *Route) AcceptsMethod(m Verb) bool {
	if rt.AcceptAny {
		return true
	}
	if m == "HEAD" && rt.Methods["GET"] {
		return true
	}
	return rt.Methods[m]
}

// AllowedMethods returns the accepted verbs, for use in an Allow header or
// CORS preflight response.
func (rt *Route) AllowedMethods() []string {
	if rt.AcceptAny {
		return []string{"*"}
	}
	out := make([]string, 0, len(rt.Methods))
	for m := range rt.Methods {
		out = append(out, string(m))
	}
	return out
}

// AcceptsContentType reports whether ct (a "type/subtype" primary token,
// parameters already stripped) is acceptable. Family matching ("type/*")
// is supported.
func (rt *Route) AcceptsContentType(ct string) bool {
	if len(rt.Accepts) == 0 {
		return true
	}
	for _, accepted := range rt.Accepts {
		if accepted == ct {
			return true
		}
		if idx := indexByte(accepted, '/'); idx >= 0 && accepted[idx+1:] == "*" {
			if len(ct) > idx && ct[:idx] == accepted[:idx] {
				return true
			}
		}
	}
	return false
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}

// Queue is one registered queue.
type Queue struct {
	Name    string
	FIFO    bool
	URL     string
	Timeout time.Duration
	Accepts []string
	Source  string
	Module  QueueModule
}
