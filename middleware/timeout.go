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

package middleware

import (
	"context"
	"time"
)

// ClampTimeout clamps a requested timeout to [1s, max]. A requested value
// of zero takes the default; anything above max is pulled down to it.
func ClampTimeout(requested, def, max time.Duration) time.Duration {
	d := requested
	if d <= 0 {
		d = def
	}
	if d < time.Second {
		d = time.Second
	}
	if max > 0 && d > max {
		d = max
	}
	return d
}

// WithBudget derives a child context bounded by d, and also by parent's own
// deadline if it is sooner — the same "handler vs. cancellation signal"
// race applies whether the caller is a per-message queue dispatch or a
// per-request HTTP timeout.
func WithBudget(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, d)
}
