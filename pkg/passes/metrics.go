// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package passes

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for pass resolution.
var (
	tracer = otel.Tracer("realdom.passes")
	meter  = otel.Meter("realdom.passes")
)

var (
	passRuns        metric.Int64Counter
	passChanges     metric.Int64Counter
	staleSkips      metric.Int64Counter
	resolveDuration metric.Float64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		passRuns, err = meter.Int64Counter(
			"realdom_pass_runs_total",
			metric.WithDescription("Number of reducer invocations"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		passChanges, err = meter.Int64Counter(
			"realdom_pass_changes_total",
			metric.WithDescription("Number of reducer invocations that changed node state"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		staleSkips, err = meter.Int64Counter(
			"realdom_pass_stale_skips_total",
			metric.WithDescription("Dirty entries dropped because the node was removed"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		resolveDuration, err = meter.Float64Histogram(
			"realdom_resolve_duration_seconds",
			metric.WithDescription("Duration of a full resolve"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordPassMetrics records the per-pass counters of one resolve.
func recordPassMetrics(ctx context.Context, id ID, runs, changes, stale int) {
	if err := initMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("pass", string(id)))
	if runs > 0 {
		passRuns.Add(ctx, int64(runs), attrs)
	}
	if changes > 0 {
		passChanges.Add(ctx, int64(changes), attrs)
	}
	if stale > 0 {
		staleSkips.Add(ctx, int64(stale), attrs)
	}
}

// recordResolveDuration records the latency of one resolve.
func recordResolveDuration(ctx context.Context, d time.Duration) {
	if err := initMetrics(); err != nil {
		return
	}
	resolveDuration.Record(ctx, d.Seconds())
}

// startResolveSpan creates a span for a resolve.
func startResolveSpan(ctx context.Context, dirty int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "passes.Resolve",
		trace.WithAttributes(
			attribute.Int("passes.dirty_entries", dirty),
		),
	)
}
