/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package agenttrace

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
)

// ExecutionContext identifies the run an agent operation belongs to.
type ExecutionContext struct {
	Repository string `json:"repository,omitempty"` // owner/name
	Issue      int    `json:"issue,omitempty"`
	Iteration  int    `json:"iteration,omitempty"` // 0 outside the fix loop
}

// EnrichAttributes appends the bounded execution context fields to
// baseAttrs. The issue number is left out of metrics; traces carry it.
func (e ExecutionContext) EnrichAttributes(baseAttrs []attribute.KeyValue) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, len(baseAttrs), len(baseAttrs)+2)
	copy(attrs, baseAttrs)

	if e.Repository != "" {
		attrs = append(attrs, attribute.String("repository", e.Repository))
	}
	// Iterations are capped, so this stays bounded.
	attrs = append(attrs, attribute.Int("iteration", e.Iteration))
	return attrs
}

func (e ExecutionContext) spanAttributes() []attribute.KeyValue {
	var attrs []attribute.KeyValue
	if e.Repository != "" {
		attrs = append(attrs, attribute.String("repository", e.Repository))
	}
	if e.Issue != 0 {
		attrs = append(attrs, attribute.Int("issue", e.Issue))
	}
	if e.Iteration != 0 {
		attrs = append(attrs, attribute.Int("iteration", e.Iteration))
	}
	return attrs
}

type executionContextKey struct{}

// WithExecutionContext adds execution context to the Go context
func WithExecutionContext(ctx context.Context, execCtx ExecutionContext) context.Context {
	return context.WithValue(ctx, executionContextKey{}, execCtx)
}

// GetExecutionContext retrieves execution context from the Go context
func GetExecutionContext(ctx context.Context) ExecutionContext {
	if execCtx, ok := ctx.Value(executionContextKey{}).(ExecutionContext); ok {
		return execCtx
	}
	return ExecutionContext{}
}

// Enricher is a metrics attribute enricher that reads the execution context
// from ctx.
func Enricher(ctx context.Context, baseAttrs []attribute.KeyValue) []attribute.KeyValue {
	return GetExecutionContext(ctx).EnrichAttributes(baseAttrs)
}
