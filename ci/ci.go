/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package ci

import (
	"encoding/json"
	"fmt"
)

// TimeoutExitCode is the exit code recorded for a check that exceeded its timeout.
const TimeoutExitCode = -1

// Check names a configured CI command.
type Check string

const (
	CheckSyntax  Check = "syntax"
	CheckTest    Check = "test"
	CheckQuality Check = "quality"
)

// Status is the three-valued outcome of a single check.
type Status int

const (
	// Unknown means the check was absent, skipped, or timed out.
	Unknown Status = iota
	Passed
	Failed
)

func (s Status) String() string {
	switch s {
	case Passed:
		return "passed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the status as its string form.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts the string form produced by MarshalJSON.
func (s *Status) UnmarshalJSON(b []byte) error {
	var v string
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch v {
	case "passed":
		*s = Passed
	case "failed":
		*s = Failed
	case "unknown", "":
		*s = Unknown
	default:
		return fmt.Errorf("unknown status %q", v)
	}
	return nil
}

// Commands are the shell commands to run for each check.
// An empty Test or Quality means the check is not configured.
type Commands struct {
	SyntaxCheck string `json:"syntax_check" jsonschema:"required,description=Syntax or type-check command. Never a full build."`
	Test        string `json:"test,omitempty" jsonschema:"description=Test command or empty when the repository has no tests."`
	Quality     string `json:"quality,omitempty" jsonschema:"description=Optional linter or formatter check."`
	WorkingDir  string `json:"working_dir,omitempty" jsonschema:"description=Directory relative to the repository root to run commands in."`
}

// For returns the command configured for the given check.
func (c Commands) For(check Check) string {
	switch check {
	case CheckSyntax:
		return c.SyntaxCheck
	case CheckTest:
		return c.Test
	case CheckQuality:
		return c.Quality
	}
	return ""
}

// CheckResult is the raw output of one executed check.
type CheckResult struct {
	Command  string `json:"command"`
	ExitCode int    `json:"exit_code"`
	Stdout   string `json:"stdout,omitempty"`
	Stderr   string `json:"stderr,omitempty"`
	TimedOut bool   `json:"timed_out,omitempty"`
}

// Status classifies the result. A nil result is Unknown.
func (r *CheckResult) Status() Status {
	switch {
	case r == nil, r.TimedOut, r.ExitCode == TimeoutExitCode:
		return Unknown
	case r.ExitCode == 0:
		return Passed
	default:
		return Failed
	}
}

// Results holds the per-check output of one sandbox run. Nil entries were not run.
type Results struct {
	Syntax  *CheckResult `json:"syntax,omitempty"`
	Test    *CheckResult `json:"test,omitempty"`
	Quality *CheckResult `json:"quality,omitempty"`
}

// Get returns the result for the given check.
func (r Results) Get(check Check) *CheckResult {
	switch check {
	case CheckSyntax:
		return r.Syntax
	case CheckTest:
		return r.Test
	case CheckQuality:
		return r.Quality
	}
	return nil
}

// Summary is the tri-state view of a Results used for comparison and review.
type Summary struct {
	Syntax  Status `json:"syntax"`
	Tests   Status `json:"tests"`
	Quality Status `json:"quality"`

	Checks Results `json:"checks"`
}

// Summarize converts raw results into a Summary.
func Summarize(r Results) Summary {
	return Summary{
		Syntax:  r.Syntax.Status(),
		Tests:   r.Test.Status(),
		Quality: r.Quality.Status(),
		Checks:  r,
	}
}

// Status returns the status of the given check.
func (s Summary) Status(check Check) Status {
	switch check {
	case CheckSyntax:
		return s.Syntax
	case CheckTest:
		return s.Tests
	case CheckQuality:
		return s.Quality
	}
	return Unknown
}

// Checks lists the checks in evaluation order.
var Checks = []Check{CheckSyntax, CheckTest, CheckQuality}
