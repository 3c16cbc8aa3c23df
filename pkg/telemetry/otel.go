// Package telemetry configures OpenTelemetry for the BlendGuard backend and
// holds the service's metric instruments.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// Options selects which signals leave the process
type Options struct {
	ServiceName    string
	ServiceVersion string
	// Environment becomes deployment.environment, e.g. the Stellar network
	Environment string
	Attributes  map[string]string

	// Metrics installs a Prometheus reader on a private registry
	Metrics bool
	// StdoutTraces and StdoutLogs print spans and log records; meant for local debugging
	StdoutTraces bool
	StdoutLogs   bool
}

// Telemetry owns the providers installed by Setup
type Telemetry struct {
	tp       *sdktrace.TracerProvider
	mp       *sdkmetric.MeterProvider
	lp       *sdklog.LoggerProvider
	registry *prometheus.Registry
}

// Setup installs global tracer, meter and logger providers and initializes the
// instruments in GetGlobalMetrics. Disabled signals still get providers, so
// instrumented code never needs to check.
func Setup(opts Options) (*Telemetry, error) {
	res, err := newResource(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	t := &Telemetry{}

	traceOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if opts.StdoutTraces {
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}
		traceOpts = append(traceOpts, sdktrace.WithBatcher(exp))
	}
	t.tp = sdktrace.NewTracerProvider(traceOpts...)
	otel.SetTracerProvider(t.tp)

	meterOpts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	if opts.Metrics {
		t.registry = prometheus.NewRegistry()
		reader, err := otelprom.New(otelprom.WithRegisterer(t.registry))
		if err != nil {
			return nil, fmt.Errorf("failed to create metric exporter: %w", err)
		}
		meterOpts = append(meterOpts, sdkmetric.WithReader(reader))
	}
	t.mp = sdkmetric.NewMeterProvider(meterOpts...)
	otel.SetMeterProvider(t.mp)

	if err := GetGlobalMetrics().InitMetrics(t.mp.Meter(opts.ServiceName)); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	logOpts := []sdklog.LoggerProviderOption{sdklog.WithResource(res)}
	if opts.StdoutLogs {
		exp, err := stdoutlog.New(stdoutlog.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create log exporter: %w", err)
		}
		logOpts = append(logOpts, sdklog.WithProcessor(sdklog.NewBatchProcessor(exp)))
	}
	t.lp = sdklog.NewLoggerProvider(logOpts...)
	global.SetLoggerProvider(t.lp)

	return t, nil
}

func newResource(opts Options) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{semconv.ServiceNameKey.String(opts.ServiceName)}
	if opts.ServiceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersionKey.String(opts.ServiceVersion))
	}
	if opts.Environment != "" {
		attrs = append(attrs, semconv.DeploymentEnvironmentKey.String(opts.Environment))
	}

	keys := make([]string, 0, len(opts.Attributes))
	for k := range opts.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, attribute.String(k, opts.Attributes[k]))
	}

	return resource.New(context.Background(), resource.WithAttributes(attrs...))
}

// Gatherer returns the Prometheus registry, or nil when metrics are disabled
func (t *Telemetry) Gatherer() prometheus.Gatherer {
	if t.registry == nil {
		return nil
	}
	return t.registry
}

// Shutdown flushes and stops the providers
func (t *Telemetry) Shutdown(ctx context.Context) error {
	return errors.Join(
		wrapShutdown("trace", t.tp.Shutdown(ctx)),
		wrapShutdown("meter", t.mp.Shutdown(ctx)),
		wrapShutdown("log", t.lp.Shutdown(ctx)),
	)
}

func wrapShutdown(provider string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s provider shutdown failed: %w", provider, err)
}

// GetMeter returns a meter for the given name
func GetMeter(name string) metric.Meter {
	return otel.GetMeterProvider().Meter(name)
}

// GetTracer returns a tracer for the given name
func GetTracer(name string) trace.Tracer {
	return otel.GetTracerProvider().Tracer(name)
}
