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

// Package manifest scans a project's on-disk layout (api/** route
// handlers, queues/* queue handlers) and produces the immutable Services
// table the runtime dispatches against. It owns the filesystem-to-URL
// translation, the literal/parameter grammar validation, and the
// route/queue collision detection described by the routing specification;
// it does not load or compile user code itself — that is supplied by a
// Resolver, since source compilation of user modules is a host concern.
package manifest
