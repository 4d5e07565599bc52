// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry installs the OpenTelemetry providers that the realdom
// packages report to.
//
// The library packages only call otel.Tracer and otel.Meter; until Init
// runs those are no-ops. Binaries call Init once at startup:
//
//	shutdown, err := telemetry.Init(ctx, cfg)
//	if err != nil {
//	    return fmt.Errorf("init telemetry: %w", err)
//	}
//	defer shutdown(context.Background())
//
// Exporters: traces go to "otlp", "stdout" or "none"; metrics go to
// "prometheus" (scraped from MetricsHandler), "stdout" or "none".
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
)

var (
	// ErrNilContext is returned by Init when ctx is nil.
	ErrNilContext = errors.New("telemetry: nil context")
	// ErrUnknownExporter is returned for an unsupported exporter name.
	ErrUnknownExporter = errors.New("telemetry: unknown exporter")
)

// Config selects exporters and the service identity.
type Config struct {
	ServiceName    string `yaml:"service_name" validate:"required"`
	ServiceVersion string `yaml:"service_version"`

	// TraceExporter is "otlp", "stdout" or "none".
	TraceExporter string `yaml:"trace_exporter" validate:"oneof=otlp stdout none"`
	// MetricExporter is "prometheus", "stdout" or "none".
	MetricExporter string `yaml:"metric_exporter" validate:"oneof=prometheus stdout none"`

	OTLPEndpoint string `yaml:"otlp_endpoint" validate:"required_if=TraceExporter otlp"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`

	// MetricsAddr is where the metrics router listens, e.g. ":9464".
	// Empty disables it.
	MetricsAddr string `yaml:"metrics_addr" validate:"omitempty,hostname_port"`

	// Writer receives stdout exporter output. Defaults to os.Stdout.
	Writer io.Writer `yaml:"-"`
}

// DefaultConfig exports nothing. OTEL_TRACES_EXPORTER,
// OTEL_METRICS_EXPORTER and OTEL_EXPORTER_OTLP_ENDPOINT override it.
func DefaultConfig() Config {
	env := func(key, fallback string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return fallback
	}
	return Config{
		ServiceName:    "realdom",
		ServiceVersion: "0.1.0",
		TraceExporter:  env("OTEL_TRACES_EXPORTER", "none"),
		MetricExporter: env("OTEL_METRICS_EXPORTER", "none"),
		OTLPEndpoint:   env("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTLPInsecure:   true,
	}
}

func (c Config) out() io.Writer {
	if c.Writer == nil {
		return os.Stdout
	}
	return c.Writer
}

// spanExporters builds the span exporter for each TraceExporter name.
var spanExporters = map[string]func(context.Context, Config) (trace.SpanExporter, error){
	"otlp": func(ctx context.Context, c Config) (trace.SpanExporter, error) {
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(c.OTLPEndpoint)}
		if c.OTLPInsecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		return otlptracegrpc.New(ctx, opts...)
	},
	"stdout": func(_ context.Context, c Config) (trace.SpanExporter, error) {
		return stdouttrace.New(stdouttrace.WithWriter(c.out()))
	},
}

// metricReaders builds the reader for each MetricExporter name, plus the
// HTTP handler that serves it when the reader is pull based.
var metricReaders = map[string]func(Config) (metric.Reader, http.Handler, error){
	"prometheus": func(Config) (metric.Reader, http.Handler, error) {
		reg := prometheus.NewRegistry()
		reader, err := promexporter.New(promexporter.WithRegisterer(reg))
		if err != nil {
			return nil, nil, err
		}
		return reader, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), nil
	},
	"stdout": func(c Config) (metric.Reader, http.Handler, error) {
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(c.out()))
		if err != nil {
			return nil, nil, err
		}
		return metric.NewPeriodicReader(exp), nil, nil
	},
}

func enabled(exporter string) bool {
	return exporter != "" && exporter != "none"
}

// Init installs the global tracer and meter providers.
//
// Description:
//
//	Both exporter names are checked before anything is installed.
//	Exporters set to "none" leave the global provider untouched. The
//	returned shutdown stops the installed providers in reverse order and
//	must be called on exit.
//
// Inputs:
//
//	ctx - Context for exporter connections.
//	cfg - Exporter selection.
//
// Outputs:
//
//	func(context.Context) error - Shutdown. Never nil on success.
//	error - ErrNilContext, ErrUnknownExporter, or an exporter failure.
func Init(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	newSpans, tracing := spanExporters[cfg.TraceExporter]
	if enabled(cfg.TraceExporter) && !tracing {
		return nil, fmt.Errorf("%w: traces %q", ErrUnknownExporter, cfg.TraceExporter)
	}
	newReader, metering := metricReaders[cfg.MetricExporter]
	if enabled(cfg.MetricExporter) && !metering {
		return nil, fmt.Errorf("%w: metrics %q", ErrUnknownExporter, cfg.MetricExporter)
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
	)
	var stops []func(context.Context) error
	shutdown := func(ctx context.Context) error {
		var errs []error
		for _, stop := range slices.Backward(stops) {
			errs = append(errs, stop(ctx))
		}
		return errors.Join(errs...)
	}

	if tracing {
		exp, err := newSpans(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("create %s span exporter: %w", cfg.TraceExporter, err)
		}
		tp := trace.NewTracerProvider(trace.WithBatcher(exp), trace.WithResource(res))
		otel.SetTracerProvider(tp)
		stops = append(stops, tp.Shutdown)
	}

	if metering {
		reader, handler, err := newReader(cfg)
		if err != nil {
			_ = shutdown(ctx)
			return nil, fmt.Errorf("create %s metric reader: %w", cfg.MetricExporter, err)
		}
		mp := metric.NewMeterProvider(metric.WithResource(res), metric.WithReader(reader))
		otel.SetMeterProvider(mp)
		setMetricsHandler(handler)
		stops = append(stops, mp.Shutdown, func(context.Context) error {
			setMetricsHandler(nil)
			return nil
		})
	}

	return shutdown, nil
}

var (
	metricsMu      sync.RWMutex
	metricsHandler http.Handler
)

func setMetricsHandler(h http.Handler) {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	metricsHandler = h
}

// MetricsHandler returns the /metrics handler while the prometheus reader
// is installed, nil otherwise.
func MetricsHandler() http.Handler {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return metricsHandler
}
