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

// Package wsconn tracks which WebSocket connections are open and which
// authenticated user (if any) each one belongs to, backing the ambient
// getConnections/sendWebSocketMessage/closeWebSocket operations. A single
// process instance only needs the in-memory Store; a fleet of them behind
// a shared frontend needs Store backed by a shared broker, which is why
// Store is an interface with both a Memory and a Redis implementation.
package wsconn
