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

package pathspec

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Builder constructs outbound URLs from a template, the way user code
// calls url(template, params, query) per the routing specification's
// URL-construction grammar. A Builder is bound to an optional base URL;
// when unset, Build returns a relative "pathname?query" string.
type Builder struct {
	base string
}

// NewBuilder returns a Builder bound to base ("" for relative URLs).
func NewBuilder(base string) *Builder {
	return &Builder{base: strings.TrimSuffix(base, "/")}
}

// Build renders template with params, routing any key in params that does
// not correspond to a declared path parameter into the query string.
// Values in extraQuery are merged on top (and take precedence for
// overlapping keys). A []string value in params produces a repeated query
// key.
func (b *Builder) Build(t *Template, params map[string]any, extraQuery url.Values) (string, error) {
	pathParams := make(map[string]string, len(t.ParamNames()))
	declared := make(map[string]bool, len(t.ParamNames()))
	for _, n := range t.ParamNames() {
		declared[n] = true
	}

	query := url.Values{}
	// Stable iteration so repeated calls with the same input produce the
	// same query-string ordering.
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := params[k]
		if declared[k] {
			pathParams[k] = fmt.Sprint(v)
			continue
		}
		switch vv := v.(type) {
		case []string:
			for _, item := range vv {
				query.Add(k, item)
			}
		case []any:
			for _, item := range vv {
				query.Add(k, fmt.Sprint(item))
			}
		default:
			query.Add(k, fmt.Sprint(v))
		}
	}

	for k, vs := range extraQuery {
		for _, v := range vs {
			query.Set(k, v)
		}
		if len(vs) > 1 {
			query[k] = append([]string(nil), vs...)
		}
	}

	pathname, err := t.Compile(pathParams)
	if err != nil {
		return "", err
	}

	u := pathname
	if enc := query.Encode(); enc != "" {
		u += "?" + enc
	}
	if b.base != "" {
		return b.base + u, nil
	}
	return u, nil
}
