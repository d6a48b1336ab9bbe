/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package issuereconciler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	oteltrace "go.opentelemetry.io/otel/trace"
)

var (
	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "issuefix_runs_total",
			Help: "Total number of fix runs by terminal status",
		},
		[]string{"status"},
	)

	iterationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "issuefix_iterations_total",
			Help: "Total number of iterations by decision",
		},
		[]string{"decision"},
	)

	fileChangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "issuefix_file_changes_total",
			Help: "Total number of files handled by outcome",
		},
		[]string{"outcome"},
	)

	regressionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "issuefix_ci_regressions_total",
			Help: "Total number of iterations rejected for a CI regression",
		},
	)

	runDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "issuefix_run_duration_seconds",
			Help:    "Wall time of fix runs",
			Buckets: prometheus.ExponentialBuckets(30, 2, 8),
		},
		[]string{"status"},
	)
)

func tracer() oteltrace.Tracer {
	return otel.Tracer("chainguard.dev/issuefix/reconcilers/issuereconciler",
		oteltrace.WithInstrumentationVersion("1.0.0"))
}
