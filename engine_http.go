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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"rivaas.dev/runtime/ambient"
	"rivaas.dev/runtime/manifest"
	"rivaas.dev/runtime/middleware"
)

// errNoHandler signals a route accepted the method (possibly via "*") but
// its module exposes no matching handler key, a manifest inconsistency
// rather than a client error.
var errNoHandler = errors.New("runtime: route has no handler for this method")

// bodilessMethods are the verbs step 4 ("content-type check") exempts.
var bodilessMethods = map[string]bool{http.MethodGet: true, http.MethodHead: true}

// requestScope bundles the values every pipeline step after resolve needs,
// so the step methods stay readable without a long, repeated parameter
// list.
type requestScope struct {
	req     *manifest.Request
	httpReq *http.Request
	cookies map[string]string
	params  map[string]string
	route   *manifest.Route
	hooks   manifest.Hooks
}

// ServeHTTP implements the fixed 11-step request pipeline.
func (rt *Runtime) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rw := &responseWriter{ResponseWriter: w}
	start := time.Now()
	routeTemplate := "_not_found"
	defer func() {
		rt.obs.HTTPRequest(r.Context(), r.Method, routeTemplate, rw.StatusCode(), time.Since(start))
	}()

	// 1. Resolve.
	route, params, ok := rt.services.Match(r.URL.Path)
	if !ok {
		http.Error(rw, "not found", http.StatusNotFound)
		return
	}
	routeTemplate = route.Template.String()

	// 2. CORS preflight.
	if route.CORS && r.Method == http.MethodOptions && middleware.IsPreflight(r) {
		rt.writeCORSPreflight(rw, route)
		return
	}

	// 3. Method check.
	verb := manifest.Verb(strings.ToUpper(r.Method))
	if !route.AcceptsMethod(verb) {
		rw.Header().Set("Allow", strings.Join(route.AllowedMethods(), ", "))
		http.Error(rw, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// 4. Content-type check.
	if !bodilessMethods[r.Method] {
		ct := primaryContentType(r.Header.Get("Content-Type"))
		if !route.AcceptsContentType(ct) {
			http.Error(rw, "unsupported media type", http.StatusUnsupportedMediaType)
			return
		}
	}

	body, _ := io.ReadAll(r.Body)
	req := &manifest.Request{
		Method:      r.Method,
		URL:         r.URL.String(),
		Path:        r.URL.Path,
		Header:      map[string][]string(r.Header),
		Body:        body,
		ContentType: r.Header.Get("Content-Type"),
	}
	cookies := make(map[string]string, len(r.Cookies()))
	for _, c := range r.Cookies() {
		cookies[c.Name] = c.Value
	}

	// 5. Scope open.
	ambientCtx, release, err := ambient.Open(r.Context(), rt.ambientOperations())
	if err != nil {
		rt.logger.Error("ambient scope open failed", "error", err)
		http.Error(rw, "internal error", http.StatusInternalServerError)
		return
	}
	defer release()

	timeout := middleware.ClampTimeout(route.Timeout, rt.defaultTimeout, rt.maxTimeout)
	budgetCtx, cancel := middleware.WithBudget(ambientCtx, timeout)
	defer cancel()

	hooks, err := rt.resolveHooks(route)
	if err != nil {
		rt.logger.Error("middleware resolve failed", "error", err, "path", req.Path)
		http.Error(rw, "internal error", http.StatusInternalServerError)
		return
	}

	scope := &requestScope{req: req, httpReq: r, cookies: cookies, params: params, route: route, hooks: hooks}
	rt.runRequestPipeline(budgetCtx, rw, scope)
}

// runRequestPipeline executes steps 6-11, racing the handler against
// ctx's deadline: the deadline and the handler both run; whichever
// resolves first wins.
func (rt *Runtime) runRequestPipeline(ctx context.Context, rw *responseWriter, scope *requestScope) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		rt.dispatchRequest(ctx, rw, scope)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		rw.WriteError(http.StatusInternalServerError, "Timed Out")
	}
}

// dispatchRequest runs steps 6-11 in sequence.
func (rt *Runtime) dispatchRequest(ctx context.Context, rw *responseWriter, scope *requestScope) {
	req, hooks := scope.req, scope.hooks

	// 6. onRequest.
	if hooks.OnRequest != nil {
		if err := hooks.OnRequest(ctx, req); err != nil {
			if result, isResponse := AsResponse(err); isResponse {
				rt.finishResponse(ctx, rw, scope, result)
				return
			}
			rt.reportError(ctx, rw, scope, err)
			return
		}
	}

	// 7. Authenticate.
	if hooks.Authenticate != nil {
		u, err := hooks.Authenticate(ctx, req, scope.cookies)
		if err != nil {
			if result, isResponse := AsResponse(err); isResponse {
				rt.finishResponse(ctx, rw, scope, result)
				return
			}
			rt.reportError(ctx, rw, scope, err)
			return
		}
		if u != nil {
			if u.ID == "" {
				rt.logger.Error("authenticate returned a user with an empty id", "path", req.Path)
				rw.WriteError(http.StatusForbidden, "forbidden")
				return
			}
			if scopeCtx, scopeErr := ambient.Current(ctx); scopeErr == nil {
				_ = scopeCtx.SetUser(u)
			}
		}
	}

	var user *manifest.User
	if scopeCtx, scopeErr := ambient.Current(ctx); scopeErr == nil {
		user = scopeCtx.User()
	}

	// 8. Handler.
	handler, err := selectHandler(scope.route, req.Method)
	if err != nil {
		rw.WriteError(http.StatusNotFound, "not found")
		return
	}

	meta := &manifest.Metadata{Cookies: scope.cookies, Params: scope.params, Signal: ctx, User: user}
	result, err := rt.invokeHandler(ctx, handler, req, meta)
	if err != nil {
		rt.reportError(ctx, rw, scope, err)
		return
	}

	rt.finishResponse(ctx, rw, scope, result)
}

// invokeHandler calls handler, converting a panic into an error exactly
// like a thrown non-response value would be (any other thrown value is
// an error).
func (rt *Runtime) invokeHandler(ctx context.Context, handler manifest.HandlerFunc, req *manifest.Request, meta *manifest.Metadata) (result manifest.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("runtime: handler panicked: %v", r)
		}
	}()
	return handler(ctx, req, meta)
}

// finishResponse runs steps 9-10 (coerce, onResponse) and writes the
// final bytes.
func (rt *Runtime) finishResponse(ctx context.Context, rw *responseWriter, scope *requestScope, result manifest.Result) {
	req, hooks, route := scope.req, scope.hooks, scope.route

	if hooks.OnResponse != nil {
		replaced, err := hooks.OnResponse(ctx, req, result)
		if err != nil {
			rt.reportError(ctx, rw, scope, err)
			return
		}
		result = replaced
	}

	if err := writeResult(rw, result, route); err != nil {
		rt.logger.Error("writing response failed", "error", err, "path", req.Path)
	}
}

// reportError runs step 11: onError fires exactly once for a non-response
// error. Failures in onError are logged only. The response body itself is
// rendered by rt.errorFormatter when one is configured (RFC9457, JSON:API,
// or a simple JSON shape); otherwise it falls back to a plain-text body.
func (rt *Runtime) reportError(ctx context.Context, rw *responseWriter, scope *requestScope, err error) {
	req, hooks := scope.req, scope.hooks
	rt.logger.Error("handler error", "error", err, "path", req.Path)
	if hooks.OnError != nil {
		func() {
			defer func() {
				if r := recover(); r != nil {
					rt.logger.Error("onError panicked", "panic", r, "path", req.Path)
				}
			}()
			hooks.OnError(ctx, err, req)
		}()
	}

	if rt.errorFormatter == nil {
		rw.WriteError(http.StatusInternalServerError, "internal error")
		return
	}

	resp := rt.errorFormatter.Format(scope.httpReq, err)
	header := make(http.Header, len(resp.Headers)+1)
	for k, vs := range resp.Headers {
		for _, v := range vs {
			header.Add(k, v)
		}
	}
	if resp.ContentType != "" {
		header.Set("Content-Type", resp.ContentType)
	}
	status := resp.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}

	var body []byte
	if resp.Body != nil {
		encoded, encErr := json.Marshal(resp.Body)
		if encErr != nil {
			rt.logger.Error("encoding formatted error response failed", "error", encErr, "path", req.Path)
		} else {
			body = encoded
		}
	}
	if writeErr := rw.WriteResponse(status, header, body); writeErr != nil {
		rt.logger.Error("writing formatted error response failed", "error", writeErr, "path", req.Path)
	}
}

// resolveHooks merges the ancestor `_middleware` chain with route's own
// module-level hook exports, the route's own exports overriding.
func (rt *Runtime) resolveHooks(route *manifest.Route) (manifest.Hooks, error) {
	dir := routeDir(route)
	chain, err := rt.chain.Resolve(dir)
	if err != nil {
		return manifest.Hooks{}, err
	}
	own := manifest.Hooks{
		Authenticate: route.Module.Authenticate,
		OnRequest:    route.Module.OnRequest,
		OnResponse:   route.Module.OnResponse,
		OnError:      route.Module.OnError,
	}
	return middleware.Merge(chain, own), nil
}

// selectHandler picks the route module's handler for method, preferring
// a same-named key, with DELETE able to fall back to the "del" key when
// "delete" is absent, and HEAD falling through to GET.
func selectHandler(route *manifest.Route, method string) (manifest.HandlerFunc, error) {
	key := strings.ToLower(method)
	if method == http.MethodHead {
		key = "get"
	}
	if h, ok := route.Module.Handlers[key]; ok {
		return h, nil
	}
	if method == http.MethodDelete {
		if h, ok := route.Module.Handlers["del"]; ok {
			return h, nil
		}
	}
	if h, ok := route.Module.Handlers["default"]; ok {
		return h, nil
	}
	return nil, errNoHandler
}

// writeCORSPreflight answers an OPTIONS preflight.
func (rt *Runtime) writeCORSPreflight(w http.ResponseWriter, route *manifest.Route) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	methods := route.AllowedMethods()
	if len(methods) == 1 && methods[0] == "*" {
		w.Header().Set("Access-Control-Allow-Methods", "*")
	} else {
		w.Header().Set("Access-Control-Allow-Methods", strings.Join(methods, ", "))
	}
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.WriteHeader(http.StatusNoContent)
}

// routeDir returns the manifest directory a route lives in, in the
// canonical-path space middleware.Chain walks (e.g. "/posts/:id" ->
// "/posts"), so a `_middleware` file sitting next to a route module
// applies to it and its own directory's ancestors apply too.
func routeDir(route *manifest.Route) string {
	return path.Dir(route.Template.String())
}

// primaryContentType strips parameters (e.g. "; charset=utf-8") from a
// Content-Type header value.
func primaryContentType(ct string) string {
	if idx := strings.IndexByte(ct, ';'); idx >= 0 {
		ct = ct[:idx]
	}
	return strings.TrimSpace(ct)
}
