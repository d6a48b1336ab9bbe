/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package ci holds the result types shared by the sandboxed CI runner, the
// command resolver, and the regression comparator.
//
// A check is one of three configured commands: a syntax check, a test run,
// and an advisory quality check. Each check's outcome is summarized as a
// three-valued Status. Unknown means the check was not configured, was not
// run, or timed out; it is never a pass.
package ci
