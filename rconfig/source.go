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

package rconfig

import "context"

// Source loads configuration data from a single location — a file, the
// process environment, or any other backing store. Load must be safe to
// call concurrently and need not normalize anything: key lowercasing and
// merge precedence are handled once, centrally, by Config.
type Source interface {
	Load(ctx context.Context) (map[string]any, error)
}

// Watcher is implemented by sources that can observe their backing store for
// changes and report them by blocking until ctx is cancelled or an error
// occurs. No bundled Source implements it today (EnvSource and FileSource
// are both point-in-time reads), but it is kept as the seam a future
// service-discovery-backed source would implement.
type Watcher interface {
	Watch(ctx context.Context) error
}
