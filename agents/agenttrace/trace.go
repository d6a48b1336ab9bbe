/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package agenttrace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Trace represents one agent operation from prompt to result
type Trace[T any] struct {
	ID          string           `json:"id"`
	Operation   string           `json:"operation"`
	InputPrompt string           `json:"input_prompt"`
	ExecContext ExecutionContext `json:"exec_context,omitempty"`
	Result      T                `json:"result"`
	Error       error            `json:"error,omitempty"`
	StartTime   time.Time        `json:"start_time"`
	EndTime     time.Time        `json:"end_time"`
	tracer      Tracer[T]
	mu          sync.Mutex // Protects mutable fields
	ctx         context.Context
	span        oteltrace.Span
}

// Tracer receives completed traces.
type Tracer[T any] interface {
	NewTrace(ctx context.Context, operation, prompt string) *Trace[T]
	RecordTrace(trace *Trace[T])
}

type byCode[T any] struct {
	callback func(*Trace[T])
}

// ByCode returns a Tracer that hands every completed trace to callback.
func ByCode[T any](callback func(*Trace[T])) Tracer[T] {
	return &byCode[T]{callback: callback}
}

func (b *byCode[T]) NewTrace(ctx context.Context, operation, prompt string) *Trace[T] {
	return newTraceWithTracer[T](ctx, b, operation, prompt)
}

func (b *byCode[T]) RecordTrace(trace *Trace[T]) {
	b.callback(trace)
}

type tracerKey[T any] struct{}

// WithTracer installs tracer for traces of type T started under ctx.
func WithTracer[T any](ctx context.Context, tracer Tracer[T]) context.Context {
	return context.WithValue(ctx, tracerKey[T]{}, tracer)
}

// TracerFromContext returns the tracer installed with WithTracer, or one
// that logs traces at debug level.
func TracerFromContext[T any](ctx context.Context) Tracer[T] {
	if t, ok := ctx.Value(tracerKey[T]{}).(Tracer[T]); ok {
		return t
	}
	return NewDefaultTracer[T](ctx)
}

// StartTrace starts a trace of operation with the tracer from ctx.
func StartTrace[T any](ctx context.Context, operation, prompt string) *Trace[T] {
	return TracerFromContext[T](ctx).NewTrace(ctx, operation, prompt)
}

func newTraceWithTracer[T any](ctx context.Context, tracer Tracer[T], operation, prompt string) *Trace[T] {
	execCtx := GetExecutionContext(ctx)

	tr := otel.Tracer("chainguard.dev/issuefix/agents/agenttrace",
		oteltrace.WithInstrumentationVersion("1.0.0"))
	attrs := append([]attribute.KeyValue{
		attribute.String("agent.operation", operation),
		attribute.Int("agent.prompt_bytes", len(prompt)),
	}, execCtx.spanAttributes()...)
	ctx, span := tr.Start(ctx, "agent.operation", oteltrace.WithAttributes(attrs...))

	return &Trace[T]{
		ID:          generateTraceID(),
		Operation:   operation,
		InputPrompt: prompt,
		ExecContext: execCtx,
		StartTime:   time.Now(),
		tracer:      tracer,
		ctx:         ctx,
		span:        span,
	}
}

// Context returns the context carrying the trace's span.
func (t *Trace[T]) Context() context.Context {
	return t.ctx
}

// Complete marks the trace as complete with the given result and automatically records it
func (t *Trace[T]) Complete(result T, err error) {
	t.mu.Lock()
	t.Result = result
	t.Error = err
	t.EndTime = time.Now()
	tracer := t.tracer
	span := t.span
	t.mu.Unlock()

	if span != nil {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}

	tracer.RecordTrace(t)
}

// Duration returns the total duration of the trace
func (t *Trace[T]) Duration() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.EndTime.IsZero() {
		return time.Since(t.StartTime)
	}
	return t.EndTime.Sub(t.StartTime)
}

// String returns a structured representation of the trace
func (t *Trace[T]) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var sb strings.Builder

	var duration time.Duration
	if t.EndTime.IsZero() {
		duration = time.Since(t.StartTime)
	} else {
		duration = t.EndTime.Sub(t.StartTime)
	}

	fmt.Fprintf(&sb, "=== Trace %s (%s) ===\n", t.ID, t.Operation)
	if t.ExecContext.Repository != "" {
		fmt.Fprintf(&sb, "Issue: %s#%d iteration %d\n", t.ExecContext.Repository, t.ExecContext.Issue, t.ExecContext.Iteration)
	}
	fmt.Fprintf(&sb, "Prompt: %s\n", clip(t.InputPrompt, 200))
	fmt.Fprintf(&sb, "Duration: %v\n", duration)

	sb.WriteString("\nCompletion:\n")
	switch {
	case t.Error != nil:
		fmt.Fprintf(&sb, "  Error: %v\n", t.Error)
	case any(t.Result) != nil:
		fmt.Fprintf(&sb, "  Result: %s\n", clip(fmt.Sprintf("%v", t.Result), 500))
	default:
		sb.WriteString("  Result: <nil>\n")
	}
	return sb.String()
}

func clip(s string, n int) string {
	if len(s) > n {
		return s[:n-3] + "..."
	}
	return s
}

// generateTraceID generates a unique trace ID
func generateTraceID() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return time.Now().Format("20060102-150405.000000")
	}
	// Format: YYYYMMDD-HHMMSS-RRRRRRRR
	return fmt.Sprintf("%s-%s", time.Now().Format("20060102-150405"), hex.EncodeToString(b))
}
