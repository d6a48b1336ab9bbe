/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package sandbox runs CI commands against a fresh clone of a branch. A
// Runner is configured with the GitHub token source used for cloning and the
// per-check timeouts, and each call to Run:
//   - Clones the branch shallowly into a new temporary workspace.
//   - Executes the configured syntax, test and quality commands in order,
//     each under its own timeout.
//   - Removes the workspace before returning, whatever the outcome.
//
// A command that exceeds its timeout is reported with ci.TimeoutExitCode so
// that callers classify it as unknown rather than as a failure.
package sandbox
