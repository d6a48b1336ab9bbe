/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package agenttrace

import (
	"context"

	"github.com/chainguard-dev/clog"
)

// NewDefaultTracer creates a tracer that logs completed traces to clog.
func NewDefaultTracer[T any](ctx context.Context) Tracer[T] {
	logger := clog.FromContext(ctx)

	return ByCode[T](func(trace *Trace[T]) {
		log := logger.With(
			"trace_id", trace.ID,
			"operation", trace.Operation,
			"duration_ms", trace.Duration().Milliseconds(),
		)
		if trace.Error != nil {
			log.Warnf("Agent operation failed: %v", trace.Error)
			return
		}
		log.Debug("Agent trace completed", "trace", trace.String())
	})
}
