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

// Package runtime is the serverless backend framework's dispatch core: it
// loads a manifest.Services table, resolves inbound HTTP requests,
// WebSocket events, and queue messages to the right handler module, opens
// an ambient.Context for the duration of each event, runs the merged
// middleware chain around the handler, and coerces the handler's return
// value into a response (or a batch-failure report for queues).
package runtime
