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

// Package ambient carries the request-scoped value a handler reaches for
// when it needs to push a queue job, send or close a WebSocket connection,
// look up connections, or read the authenticated user — without those
// operations being threaded explicitly through every call in between.
//
// Where the runtime this package models used an implicitly-propagating
// async-local value, this package makes the propagation explicit: the
// context is attached to the standard context.Context handed to a handler
// and recovered from it by Current. This keeps every event (HTTP request,
// WebSocket message, queue delivery) independent and safe for concurrent
// dispatch, since each carries its own value instead of sharing process-wide
// mutable state.
package ambient
