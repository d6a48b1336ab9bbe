/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package issuereconciler drives one issue to a reviewed pull request.
//
// A run turns the issue into a technical specification, then iterates:
// select the files to change, rewrite them one at a time on a branch derived
// from the issue number, open the pull request the first time a file is
// written, run CI in a sandbox, compare the results with the CI run on the
// base branch, and ask for a review. A rejection refines the specification
// and starts the next iteration, until the review approves or the iteration
// budget runs out.
//
// A CI regression always rejects the change, whatever the reviewer would
// have said; the reviewer is not consulted in that case.
//
// Runs are sequential. Cancellation is honored between iterations, and every
// external call is bounded by its own timeout instead.
//
// Usage:
//
//	rec, err := issuereconciler.New(issuereconciler.Deps{
//		Agent:   agent,
//		Gateway: gw,
//		Sandbox: runner,
//		Changes: cm,
//	})
//	if err != nil {
//		return err
//	}
//	res, err := rec.Run(ctx, issuereconciler.Request{Issue: issue, MaxIterations: 3})
package issuereconciler
