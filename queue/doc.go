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

// Package queue dispatches an inbound batch of queue messages to the
// manifest-registered handler for their queue, honoring standard
// (parallel, per-message partial failure) and FIFO (strict in-group
// order, cut-off on first failure) semantics, and reports back the
// itemIdentifier set the host should redeliver. It also backs the
// ambient queueJob operation in local/dev mode, where an enqueue
// re-enters the very same dispatch path instead of talking to a real
// broker.
package queue
