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

package rlog

import (
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"time"
)

// logAttrPool reuses attribute slices across LogError/LogDuration/
// ErrorWithStack calls to cut allocations on hot error paths.
var logAttrPool = sync.Pool{
	New: func() any {
		s := make([]any, 0, 16)
		return &s
	},
}

// LogError logs err with msg and any extra attributes.
func (c *Config) LogError(err error, msg string, extra ...any) {
	if c.isShuttingDown.Load() {
		return
	}
	attrsPtr := logAttrPool.Get().(*[]any)
	attrs := (*attrsPtr)[:0]
	defer func() {
		*attrsPtr = (*attrsPtr)[:0]
		logAttrPool.Put(attrsPtr)
	}()

	attrs = append(attrs, "error", err.Error())
	attrs = append(attrs, extra...)
	c.Error(msg, attrs...)
}

// LogDuration logs msg with the elapsed time since start, as both a
// millisecond count ("duration_ms") and a human-readable string
// ("duration").
func (c *Config) LogDuration(msg string, start time.Time, extra ...any) {
	if c.isShuttingDown.Load() {
		return
	}
	duration := time.Since(start)
	attrsPtr := logAttrPool.Get().(*[]any)
	attrs := (*attrsPtr)[:0]
	defer func() {
		*attrsPtr = (*attrsPtr)[:0]
		logAttrPool.Put(attrsPtr)
	}()

	attrs = append(attrs, "duration_ms", duration.Milliseconds(), "duration", duration.String())
	attrs = append(attrs, extra...)
	c.Info(msg, attrs...)
}

// ErrorWithStack logs err at error level, optionally including a captured
// stack trace. Reserve includeStack for unexpected failures (panics,
// invariant violations); skip it for expected errors like not-found or
// validation failures.
func (c *Config) ErrorWithStack(msg string, err error, includeStack bool, extra ...any) {
	if c.isShuttingDown.Load() {
		return
	}
	attrsPtr := logAttrPool.Get().(*[]any)
	attrs := (*attrsPtr)[:0]
	defer func() {
		*attrsPtr = (*attrsPtr)[:0]
		logAttrPool.Put(attrsPtr)
	}()

	attrs = append(attrs, "error", err.Error())
	if includeStack {
		attrs = append(attrs, "stack", captureStack(3))
	}
	attrs = append(attrs, extra...)
	c.log(slog.LevelError, msg, attrs...)
}

func captureStack(skip int) string {
	var buf strings.Builder
	pcs := make([]uintptr, 10)
	n := runtime.Callers(skip, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		fmt.Fprintf(&buf, "%s\n\t%s:%d\n", frame.Function, frame.File, frame.Line)
		if !more {
			break
		}
	}
	return buf.String()
}
