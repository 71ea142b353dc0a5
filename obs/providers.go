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

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

// createResource builds the OTel resource describing this process,
// grounded on tracing/providers.go's createResource helper.
func createResource(serviceName, serviceVersion string) *resource.Resource {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(serviceVersion),
	)
}

// initProvider initializes the metrics provider, mirroring
// metrics.Recorder.initializeProvider's three-way switch, trimmed to drop
// global-registration and strict-port concerns this runtime doesn't need
// (the host process decides whether and where to expose /metrics).
func (in *Instrumentation) initProvider() error {
	switch in.provider {
	case PrometheusProvider:
		return in.initPrometheusProvider()
	case OTLPProvider:
		return in.initOTLPProvider()
	case StdoutProvider:
		return in.initStdoutProvider()
	default:
		return fmt.Errorf("unsupported metrics provider: %s", in.provider)
	}
}

func (in *Instrumentation) initPrometheusProvider() error {
	in.prometheusRegistry = promclient.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(in.prometheusRegistry))
	if err != nil {
		return fmt.Errorf("creating prometheus exporter: %w", err)
	}
	res := createResource(in.serviceName, in.serviceVersion)
	in.meterProvider = sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter), sdkmetric.WithResource(res))
	in.prometheusHandler = promhttp.HandlerFor(in.prometheusRegistry, promhttp.HandlerOpts{})
	in.meter = in.meterProvider.Meter("rivaas.dev/runtime/obs")
	return nil
}

func (in *Instrumentation) initOTLPProvider() error {
	opts := []otlpmetrichttp.Option{}
	if in.otlpEndpoint != "" {
		opts = append(opts, otlpmetrichttp.WithEndpoint(in.otlpEndpoint))
	}
	// Use context.Background here rather than a caller-supplied lifecycle
	// context: New() runs once at construction, before any request
	// context exists.
	exporter, err := otlpmetrichttp.New(context.Background(), opts...)
	if err != nil {
		return fmt.Errorf("creating otlp exporter: %w", err)
	}
	reader := sdkmetric.NewPeriodicReader(exporter)
	res := createResource(in.serviceName, in.serviceVersion)
	in.meterProvider = sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader), sdkmetric.WithResource(res))
	in.meter = in.meterProvider.Meter("rivaas.dev/runtime/obs")
	return nil
}

func (in *Instrumentation) initStdoutProvider() error {
	exporter, err := stdoutmetric.New()
	if err != nil {
		return fmt.Errorf("creating stdout exporter: %w", err)
	}
	reader := sdkmetric.NewPeriodicReader(exporter)
	res := createResource(in.serviceName, in.serviceVersion)
	in.meterProvider = sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader), sdkmetric.WithResource(res))
	in.meter = in.meterProvider.Meter("rivaas.dev/runtime/obs")
	return nil
}

// shutdownProvider shuts down the underlying SDK meter provider. Every path
// through initProvider constructs its own *sdkmetric.MeterProvider, so this
// type assertion always succeeds.
func (in *Instrumentation) shutdownProvider(ctx context.Context) error {
	mp, ok := in.meterProvider.(*sdkmetric.MeterProvider)
	if !ok {
		return nil
	}
	if err := mp.Shutdown(ctx); err != nil {
		in.emitError("metrics provider shutdown failed", "error", err)
		return fmt.Errorf("obs: shutdown: %w", err)
	}
	return nil
}
