/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package agenttrace traces change agent operations.

# Overview

  - ExecutionContext: run-level metadata (repository, issue, iteration) carried on the context
  - Trace[T]: one agent operation from rendered prompt to result
  - Tracer[T]: receives completed traces

Each trace opens an OpenTelemetry span named "agent.operation" carrying the
operation name and execution context, so model calls made under
Trace.Context nest beneath it.

# Usage

	ctx = agenttrace.WithExecutionContext(ctx, agenttrace.ExecutionContext{
		Repository: "octo/hello",
		Issue:      42,
		Iteration:  1,
	})

	trace := agenttrace.StartTrace[string](ctx, "review", prompt)
	text, err := completer.Complete(trace.Context(), system, prompt)
	trace.Complete(text, err)

Enrich model metrics with the bounded execution context fields:

	executor.WithAttributeEnricher(agenttrace.Enricher)
*/
package agenttrace
