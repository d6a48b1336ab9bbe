/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package resolver chooses the CI commands to run for a repository.
//
// Resolution has two phases. The first asks an Inferrer (usually the change
// agent) to propose commands from a bounded listing and the contents of
// recognized manifest files. When that fails, yields nothing usable, proposes
// a full build as the syntax check, or proposes tests for a repository
// without test indicators, the resolver falls back to a static table keyed by
// manifest presence.
//
// Whichever phase answers, the test command is empty unless the structure
// contains test files, test directories, or test configuration files.
package resolver
