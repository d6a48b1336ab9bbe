/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package changemanager owns the pull request of a fix run: the branch it is
// opened from, the title and body rendered from templates, and the summary
// comments posted when the run ends.
//
// A CM is configured once per identity. Each run gets a Session, which
// creates the pull request the first time it is asked to and reuses it for
// the rest of the run.
package changemanager
