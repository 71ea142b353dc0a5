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

// Package middleware resolves the effective per-module middleware chain by
// walking a manifest path's ancestor directories and merging their
// `_middleware` exports, nearest ancestor winning, and ships the
// engine-level cross-cutting concerns (panic recovery, request ids, access
// logging, CORS header assembly, timeouts, method override) every HTTP
// request passes through regardless of what a route declares.
package middleware
