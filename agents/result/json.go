/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package result

import (
	"bytes"
	"encoding/json"
	"strings"
)

// ExtractJSON extracts JSON content from a text response that may contain markdown code blocks.
// It prefers the first ```json block, then a response wrapped entirely in a code fence, and
// finally the outermost object or array embedded in surrounding prose.
func ExtractJSON(responseText string) string {
	if block, ok := fencedBlock(responseText, "json"); ok {
		return strings.TrimSpace(block)
	}

	trimmed := strings.TrimSpace(responseText)
	if strings.HasPrefix(trimmed, "```") && strings.HasSuffix(trimmed, "```") && len(trimmed) >= 6 {
		inner := strings.TrimSuffix(trimmed, "```")
		// Drop the opening fence and any language tag on its line.
		if nl := strings.IndexByte(inner, '\n'); nl >= 0 {
			inner = inner[nl+1:]
		} else {
			inner = strings.TrimPrefix(inner, "```")
		}
		return strings.TrimSpace(inner)
	}

	if embedded, ok := embeddedJSON(trimmed); ok {
		return embedded
	}
	return trimmed
}

// fencedBlock returns the body of the first fenced block whose opening line is
// ```lang. An unterminated block runs to the end of the text.
func fencedBlock(text, lang string) (string, bool) {
	var buf bytes.Buffer
	in, found := false, false
	for line := range strings.SplitSeq(text, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case !in && trimmed == "```"+lang:
			in, found = true, true
			continue
		case in && trimmed == "```":
			return buf.String(), true
		}
		if in {
			if buf.Len() > 0 {
				buf.WriteByte('\n')
			}
			buf.WriteString(line)
		}
	}
	return buf.String(), found
}

// embeddedJSON finds the first '{' or '[' and returns the text up to the
// matching last '}' or ']' when that span is valid JSON.
func embeddedJSON(text string) (string, bool) {
	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return "", false
	}
	closer := byte('}')
	if text[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(text, closer)
	if end <= start {
		return "", false
	}
	candidate := text[start : end+1]
	if !json.Valid([]byte(candidate)) {
		return "", false
	}
	return candidate, true
}

// Extract extracts JSON content from a text response and unmarshals it into the provided type.
// It combines ExtractJSON with json.Unmarshal for convenience.
func Extract[T any](responseText string) (T, error) {
	var result T
	if err := json.Unmarshal([]byte(ExtractJSON(responseText)), &result); err != nil {
		return result, err
	}
	return result, nil
}
