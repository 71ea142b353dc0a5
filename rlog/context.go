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
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"rivaas.dev/runtime/telemetry/semconv"
)

// ContextLogger pulls trace/span IDs out of ctx (if an OTel span is
// active) and attaches them to every subsequent log call, so a request's
// logs and its trace can be correlated without threading IDs by hand.
type ContextLogger struct {
	logger  *slog.Logger
	ctx     context.Context
	traceID string
	spanID  string
}

// NewContextLogger wraps cfg's logger with ctx's trace correlation, if any.
func NewContextLogger(ctx context.Context, cfg *Config) *ContextLogger {
	sl := cfg.Logger()

	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		sc := span.SpanContext()
		traceID := sc.TraceID().String()
		spanID := sc.SpanID().String()
		sl = sl.With(semconv.TraceID, traceID, semconv.SpanID, spanID)
		return &ContextLogger{logger: sl, ctx: ctx, traceID: traceID, spanID: spanID}
	}
	return &ContextLogger{logger: sl, ctx: ctx}
}

// Logger returns the underlying slog.Logger, attributed with trace/span IDs.
func (cl *ContextLogger) Logger() *slog.Logger { return cl.logger }

// TraceID returns the correlated trace ID, empty if ctx carried no span.
func (cl *ContextLogger) TraceID() string { return cl.traceID }

// SpanID returns the correlated span ID, empty if ctx carried no span.
func (cl *ContextLogger) SpanID() string { return cl.spanID }

func (cl *ContextLogger) Debug(msg string, args ...any) { cl.logger.DebugContext(cl.ctx, msg, args...) }
func (cl *ContextLogger) Info(msg string, args ...any)  { cl.logger.InfoContext(cl.ctx, msg, args...) }
func (cl *ContextLogger) Warn(msg string, args ...any)  { cl.logger.WarnContext(cl.ctx, msg, args...) }
func (cl *ContextLogger) Error(msg string, args ...any) { cl.logger.ErrorContext(cl.ctx, msg, args...) }
