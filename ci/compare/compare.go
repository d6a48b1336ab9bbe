/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package compare decides whether a CI run after a change regressed relative
// to the run on the unmodified base.
package compare

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"chainguard.dev/issuefix/ci"
)

// outputTail bounds how much of a failing check's output is quoted in a recommendation.
const outputTail = 1500

// Comparison is the outcome of comparing two CI summaries.
type Comparison struct {
	IsRegression    bool     `json:"is_regression"`
	Issues          []string `json:"issues,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// gating are the checks that can produce a regression. Quality is advisory.
var gating = []ci.Check{ci.CheckSyntax, ci.CheckTest}

// Compare reports a regression for every gating check that passed before and
// fails after. A check that is Unknown on either side is not judged.
func Compare(before, after ci.Summary) Comparison {
	var c Comparison
	for _, check := range gating {
		b, a := before.Status(check), after.Status(check)
		if b == ci.Unknown || a == ci.Unknown {
			continue
		}
		if b == ci.Passed && a == ci.Failed {
			c.IsRegression = true
			c.Issues = append(c.Issues, fmt.Sprintf("%s check passed before the change and fails after it", check))
			c.Recommendations = append(c.Recommendations, recommend(check, after.Checks.Get(check)))
		}
	}

	// Quality never gates, but a new failure is worth surfacing to the refinement.
	if before.Quality == ci.Passed && after.Quality == ci.Failed {
		c.Recommendations = append(c.Recommendations, recommend(ci.CheckQuality, after.Checks.Quality))
	}
	return c
}

func recommend(check ci.Check, r *ci.CheckResult) string {
	if r == nil {
		return fmt.Sprintf("Restore the %s check to passing.", check)
	}
	out := strings.TrimSpace(r.Stderr)
	if out == "" {
		out = strings.TrimSpace(r.Stdout)
	}
	if len(out) > outputTail {
		start := len(out) - outputTail
		for start < len(out) && !utf8.RuneStart(out[start]) {
			start++
		}
		out = "..." + out[start:]
	}
	if out == "" {
		return fmt.Sprintf("Restore the %s check (`%s`) to passing; it exited %d.", check, r.Command, r.ExitCode)
	}
	return fmt.Sprintf("Restore the %s check (`%s`) to passing; it exited %d with:\n%s", check, r.Command, r.ExitCode, out)
}
