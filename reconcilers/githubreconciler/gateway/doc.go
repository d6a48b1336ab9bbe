/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package gateway performs the branch, file and pull request operations a
// fix run needs against GitHub.
//
// Writes use optimistic concurrency: PutFile sends the blob SHA the caller
// last read, and GitHub rejects the write with ErrConflict when the file
// changed in between. EnsureBranch and EnsureChangeProposal are idempotent;
// calling them again for the same branch returns the existing object.
//
// Errors are classified with githubreconciler.Classify, so callers can match
// githubreconciler.ErrAuth, ErrNotFound and ErrConflict with errors.Is.
package gateway
