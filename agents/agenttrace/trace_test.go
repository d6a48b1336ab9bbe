/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package agenttrace

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestByCode(t *testing.T) {
	ctx := context.Background()
	var captured *Trace[string]
	tracer := ByCode[string](func(trace *Trace[string]) {
		captured = trace
	})

	trace := tracer.NewTrace(ctx, "review", "is this right?")
	if captured != nil {
		t.Fatal("trace recorded before completion")
	}
	trace.Complete("yes", nil)

	if captured != trace {
		t.Fatalf("captured trace: got = %v, wanted = %v", captured, trace)
	}
	if captured.Operation != "review" || captured.InputPrompt != "is this right?" || captured.Result != "yes" {
		t.Errorf("captured trace = %+v", captured)
	}
	if captured.EndTime.Before(captured.StartTime) {
		t.Errorf("end time %v before start time %v", captured.EndTime, captured.StartTime)
	}
}

func TestTracerFromContext(t *testing.T) {
	ctx := context.Background()
	if TracerFromContext[string](ctx) == nil {
		t.Fatal("TracerFromContext() on an empty context: got = nil, wanted = default tracer")
	}

	var strs []*Trace[string]
	var ints []*Trace[int]
	ctx = WithTracer[string](ctx, ByCode[string](func(tr *Trace[string]) { strs = append(strs, tr) }))
	ctx = WithTracer[int](ctx, ByCode[int](func(tr *Trace[int]) { ints = append(ints, tr) }))

	StartTrace[string](ctx, "fix_file", "p").Complete("code", nil)
	StartTrace[int](ctx, "count", "p").Complete(42, nil)

	if len(strs) != 1 || strs[0].Result != "code" {
		t.Errorf("string traces = %v", strs)
	}
	if len(ints) != 1 || ints[0].Result != 42 {
		t.Errorf("int traces = %v", ints)
	}
}

func TestTraceCarriesExecutionContext(t *testing.T) {
	ec := ExecutionContext{Repository: "octo/hello", Issue: 42, Iteration: 2}
	ctx := WithExecutionContext(context.Background(), ec)

	var got *Trace[string]
	ctx = WithTracer[string](ctx, ByCode[string](func(tr *Trace[string]) { got = tr }))
	trace := StartTrace[string](ctx, "select_files", "prompt")
	if GetExecutionContext(trace.Context()) != ec {
		t.Errorf("trace context lost the execution context")
	}
	trace.Complete("", errors.New("boom"))

	if got.ExecContext != ec {
		t.Errorf("ExecContext = %+v, want %+v", got.ExecContext, ec)
	}
	s := got.String()
	for _, want := range []string{"(select_files)", "octo/hello#42 iteration 2", "Error: boom"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() = %q, missing %q", s, want)
		}
	}
}

func TestEnricher(t *testing.T) {
	base := []attribute.KeyValue{attribute.String("model", "m")}

	got := Enricher(context.Background(), base)
	if len(got) != 2 || got[1].Key != "iteration" {
		t.Errorf("Enricher() without context = %v", got)
	}

	ctx := WithExecutionContext(context.Background(), ExecutionContext{Repository: "octo/hello", Issue: 42, Iteration: 3})
	got = Enricher(ctx, base)
	want := map[attribute.Key]string{"model": "m", "repository": "octo/hello", "iteration": "3"}
	if len(got) != len(want) {
		t.Fatalf("Enricher() = %v", got)
	}
	for _, kv := range got {
		if kv.Value.Emit() != want[kv.Key] {
			t.Errorf("%s = %q, want %q", kv.Key, kv.Value.Emit(), want[kv.Key])
		}
	}
	if len(base) != 1 {
		t.Errorf("base attributes modified: %v", base)
	}
}

func TestClip(t *testing.T) {
	if got := clip("abcdefghij", 8); got != "abcde..." {
		t.Errorf("clip() = %q", got)
	}
	if got := clip("abc", 8); got != "abc" {
		t.Errorf("clip() = %q", got)
	}
}
