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

package obs

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"rivaas.dev/runtime/telemetry/semconv"
)

// Provider selects the metrics exporter backend.
type Provider string

const (
	// PrometheusProvider exposes an in-process /metrics handler (default).
	PrometheusProvider Provider = "prometheus"
	// OTLPProvider pushes metrics to an OTLP HTTP collector.
	OTLPProvider Provider = "otlp"
	// StdoutProvider writes metrics to stdout, for local debugging.
	StdoutProvider Provider = "stdout"
)

// DefaultDurationBuckets are histogram boundaries for dispatch duration, in
// seconds. 5ms through 10s, matching metrics.DefaultDurationBuckets.
var DefaultDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// Instrumentation is the OpenTelemetry/Prometheus-backed Recorder. Rather
// than a single-domain recorder, it carries one duration-histogram/counter
// pair per engine (HTTP, WebSocket, queue) rather than one pair total,
// since the three engines have distinct cardinality-bearing dimensions
// (route template, channel name, queue name).
//
// Instrumentation never calls otel.SetMeterProvider, so multiple
// Instrumentation values (or a host app's own meter provider) can coexist
// in the same process without clobbering each other.
type Instrumentation struct {
	serviceName    string
	serviceVersion string

	provider           Provider
	meterProvider      metric.MeterProvider
	tracerProvider     trace.TracerProvider
	meter              metric.Meter
	tracer             trace.Tracer
	prometheusHandler  http.Handler
	prometheusRegistry *promclient.Registry
	prometheusPath     string
	otlpEndpoint       string

	durationBuckets []float64

	httpDuration  metric.Float64Histogram
	httpCount     metric.Int64Counter
	wsDuration    metric.Float64Histogram
	wsCount       metric.Int64Counter
	queueDuration metric.Float64Histogram
	queueFailures metric.Int64Counter
	queueTotal    metric.Int64Counter

	logger *slog.Logger

	shutdownOnce sync.Once
	shutdownErr  error
}

// Option configures an Instrumentation.
type Option func(*Instrumentation)

// WithServiceName sets the service.name resource attribute.
func WithServiceName(name string) Option {
	return func(in *Instrumentation) { in.serviceName = name }
}

// WithServiceVersion sets the service.version resource attribute.
func WithServiceVersion(version string) Option {
	return func(in *Instrumentation) { in.serviceVersion = version }
}

// WithPrometheus selects the Prometheus provider. path defaults to
// "/metrics" when empty; Handler() serves the exposition from it.
func WithPrometheus(path string) Option {
	return func(in *Instrumentation) {
		in.provider = PrometheusProvider
		if path != "" {
			in.prometheusPath = path
		}
	}
}

// WithOTLP selects the OTLP metrics provider, pushing to endpoint.
func WithOTLP(endpoint string) Option {
	return func(in *Instrumentation) {
		in.provider = OTLPProvider
		in.otlpEndpoint = endpoint
	}
}

// WithStdout selects the stdout provider, for local debugging.
func WithStdout() Option {
	return func(in *Instrumentation) { in.provider = StdoutProvider }
}

// WithTracerProvider installs a caller-managed trace.TracerProvider.
// Instrumentation never stands up its own trace exporter pipeline —
// exporting spans to a backend is a host concern; when unset, spans are
// created against otel.GetTracerProvider(), which is a no-op until the
// host calls otel.SetTracerProvider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(in *Instrumentation) { in.tracerProvider = tp }
}

// WithDurationBuckets overrides the histogram bucket boundaries (seconds)
// shared by all three duration histograms.
func WithDurationBuckets(buckets ...float64) Option {
	return func(in *Instrumentation) { in.durationBuckets = buckets }
}

// WithLogger routes initialization diagnostics (export failures) to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(in *Instrumentation) { in.logger = logger }
}

// New builds an Instrumentation and initializes its metrics provider.
func New(opts ...Option) (*Instrumentation, error) {
	in := &Instrumentation{
		serviceName:     "rivaas-runtime",
		serviceVersion:  "0.0.0",
		provider:        PrometheusProvider,
		prometheusPath:  "/metrics",
		durationBuckets: DefaultDurationBuckets,
		logger:          slog.New(slog.NewTextHandler(discardWriter{}, nil)),
	}
	for _, opt := range opts {
		opt(in)
	}
	if err := in.initProvider(); err != nil {
		return nil, fmt.Errorf("obs: %w", err)
	}
	if err := in.initInstruments(); err != nil {
		return nil, fmt.Errorf("obs: %w", err)
	}
	if in.tracerProvider == nil {
		in.tracerProvider = otel.GetTracerProvider()
	}
	in.tracer = in.tracerProvider.Tracer("rivaas.dev/runtime/obs")
	return in, nil
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// Handler returns the Prometheus exposition handler. Only non-nil when the
// provider is PrometheusProvider.
func (in *Instrumentation) Handler() http.Handler { return in.prometheusHandler }

// Path returns the configured Prometheus exposition path.
func (in *Instrumentation) Path() string { return in.prometheusPath }

// Tracer returns the tracer used for engine-level spans.
func (in *Instrumentation) Tracer() trace.Tracer { return in.tracer }

func (in *Instrumentation) initInstruments() error {
	var err error
	if in.httpDuration, err = in.meter.Float64Histogram("http.server.duration",
		metric.WithDescription("HTTP request duration"), metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(in.durationBuckets...)); err != nil {
		return err
	}
	if in.httpCount, err = in.meter.Int64Counter("http.server.requests",
		metric.WithDescription("HTTP requests completed")); err != nil {
		return err
	}
	if in.wsDuration, err = in.meter.Float64Histogram("ws.server.duration",
		metric.WithDescription("WebSocket engine call duration"), metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(in.durationBuckets...)); err != nil {
		return err
	}
	if in.wsCount, err = in.meter.Int64Counter("ws.server.events",
		metric.WithDescription("WebSocket engine calls completed")); err != nil {
		return err
	}
	if in.queueDuration, err = in.meter.Float64Histogram("queue.dispatch.duration",
		metric.WithDescription("Queue batch dispatch duration"), metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(in.durationBuckets...)); err != nil {
		return err
	}
	if in.queueFailures, err = in.meter.Int64Counter("queue.dispatch.failures",
		metric.WithDescription("Queue messages that failed dispatch")); err != nil {
		return err
	}
	if in.queueTotal, err = in.meter.Int64Counter("queue.dispatch.messages",
		metric.WithDescription("Queue messages dispatched")); err != nil {
		return err
	}
	return nil
}

// HTTPRequest implements Recorder.
func (in *Instrumentation) HTTPRequest(ctx context.Context, method, routeTemplate string, status int, dur time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("http.request.method", method),
		attribute.String(semconv.HTTPRoute, routeTemplate),
		attribute.Int("http.response.status_code", status),
	)
	in.httpDuration.Record(ctx, dur.Seconds(), attrs)
	in.httpCount.Add(ctx, 1, attrs)
}

// WSEvent implements Recorder.
func (in *Instrumentation) WSEvent(ctx context.Context, channel, event string, status int, dur time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("ws.channel", channel),
		attribute.String("ws.event", event),
		attribute.Int("ws.status", status),
	)
	in.wsDuration.Record(ctx, dur.Seconds(), attrs)
	in.wsCount.Add(ctx, 1, attrs)
}

// QueueDispatch implements Recorder.
func (in *Instrumentation) QueueDispatch(ctx context.Context, queueName string, failed, total int, dur time.Duration) {
	attrs := metric.WithAttributes(attribute.String("queue.name", queueName))
	in.queueDuration.Record(ctx, dur.Seconds(), attrs)
	in.queueTotal.Add(ctx, int64(total), attrs)
	if failed > 0 {
		in.queueFailures.Add(ctx, int64(failed), attrs)
	}
}

// Shutdown implements Recorder. Idempotent.
func (in *Instrumentation) Shutdown(ctx context.Context) error {
	in.shutdownOnce.Do(func() { in.shutdownErr = in.shutdownProvider(ctx) })
	return in.shutdownErr
}

func (in *Instrumentation) emitError(msg string, args ...any) {
	if in.logger != nil {
		in.logger.Error(msg, args...)
	}
}
