/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package result interprets language model responses that are supposed to be
structured but often are not.

Models asked for JSON tend to wrap it in markdown fences, embed it in prose, or
ignore the instruction entirely. This package handles all three.

# JSON Extraction

ExtractJSON finds JSON in a response, trying in order:

 1. the first ```json fenced block
 2. a response wrapped entirely in a generic ``` fence
 3. the outermost object or array embedded in surrounding text

Extract combines ExtractJSON with json.Unmarshal:

	verdict, err := result.Extract[Verdict](response)

# Tagged Outcomes

Callers that must tolerate malformed output use a Parser, which yields an
Outcome tagged with how the value was obtained:

	p := result.Parser[[]string]{
		Fallback: func(text string) ([]string, bool) {
			paths := result.ExtractPaths(text)
			return paths, len(paths) > 0
		},
	}
	switch out := p.Parse(response); out.Kind {
	case result.Structured, result.Extracted:
		use(out.Value)
	case result.Empty:
		// treat as a failed call
	}

# Fallback Extractors

  - ExtractPaths scans for quoted file-like tokens.
  - ApprovalSignal searches for approval keywords, honoring negations.
  - ExtractCode strips a markdown fence from generated file content.

All functions are safe for concurrent use.
*/
package result
