/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package changeagent

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"chainguard.dev/issuefix/agents/result"
	"chainguard.dev/issuefix/ci"
)

// maxFallbackReason bounds the reason recovered from an unstructured review.
const maxFallbackReason = 500

var pathsParser = result.Parser[[]string]{
	Validate: func(paths []string) error {
		if len(paths) == 0 {
			return errors.New("no paths")
		}
		for _, p := range paths {
			if strings.TrimSpace(p) == "" {
				return errors.New("empty path")
			}
		}
		return nil
	},
	Fallback: func(text string) ([]string, bool) {
		paths := result.ExtractPaths(text)
		return paths, len(paths) > 0
	},
}

// cleanPaths normalizes selected paths, confines them to the repository root,
// and drops duplicates.
func cleanPaths(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		p = strings.TrimSpace(p)
		p = strings.TrimPrefix(path.Clean("/"+p), "/")
		if p == "" || p == "." || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// verdictJSON distinguishes a missing "approved" key from false.
type verdictJSON struct {
	Approved        *bool    `json:"approved"`
	Reason          string   `json:"reason"`
	Issues          []string `json:"issues"`
	Recommendations []string `json:"recommendations"`
}

var verdictParser = result.Parser[verdictJSON]{
	Validate: func(v verdictJSON) error {
		if v.Approved == nil {
			return errors.New(`missing "approved"`)
		}
		return nil
	},
	Fallback: func(text string) (verdictJSON, bool) {
		text = strings.TrimSpace(text)
		approved := result.ApprovalSignal(text)
		return verdictJSON{
			Approved: &approved,
			Reason:   result.Truncate(text, maxFallbackReason),
		}, true
	},
}

func parseVerdict(text string) result.Outcome[Verdict] {
	out := verdictParser.Parse(text)
	if !out.Ok() {
		return result.Outcome[Verdict]{ParseErr: out.ParseErr}
	}
	v := out.Value
	return result.Outcome[Verdict]{
		Kind: out.Kind,
		Value: Verdict{
			Approved:        *v.Approved,
			Reason:          v.Reason,
			Issues:          v.Issues,
			Recommendations: v.Recommendations,
		},
		ParseErr: out.ParseErr,
	}
}

var commandsParser = result.Parser[ci.Commands]{
	Validate: func(c ci.Commands) error {
		if strings.TrimSpace(c.SyntaxCheck) == "" {
			return errors.New("missing syntax_check")
		}
		return nil
	},
}

// parseCode interprets a fix_file response. Plain content is Structured;
// content recovered from a markdown fence is Extracted.
func parseCode(text string) result.Outcome[string] {
	if strings.TrimSpace(text) == "" {
		return result.Outcome[string]{ParseErr: result.ErrBlank}
	}
	code := result.ExtractCode(text)
	if code == text {
		return result.StructuredOf(text)
	}
	if strings.TrimSpace(code) == "" {
		return result.Outcome[string]{ParseErr: fmt.Errorf("empty code block")}
	}
	return result.Outcome[string]{Kind: result.Extracted, Value: code, ParseErr: errors.New("response was fenced")}
}
