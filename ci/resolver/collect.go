/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package resolver

import (
	"context"
	"slices"

	"chainguard.dev/issuefix/agents/result"
	"chainguard.dev/issuefix/ci"
	"github.com/chainguard-dev/clog"
)

const (
	maxManifests     = 10
	maxManifestRunes = 4000
)

// ReadFunc reads a file from the repository being resolved.
type ReadFunc func(ctx context.Context, path string) (string, error)

// Collect builds a Structure from a listing, reading the contents of
// recognized manifest and test configuration files near the root.
// Unreadable manifests are skipped.
func Collect(ctx context.Context, entries []ci.Entry, truncated bool, read ReadFunc) ci.Structure {
	names := append(DefaultTable().ManifestNames(), testConfigNames...)
	s := ci.Structure{
		Entries:   entries,
		Manifests: make(map[string]string),
		Truncated: truncated,
	}
	for _, e := range entries {
		if len(s.Manifests) >= maxManifests {
			break
		}
		if e.Type != ci.EntryFile || e.Depth() > 1 || !slices.Contains(names, e.Base()) {
			continue
		}
		content, err := read(ctx, e.Path)
		if err != nil {
			clog.FromContext(ctx).With("path", e.Path).Warnf("Skipping unreadable manifest: %v", err)
			continue
		}
		s.Manifests[e.Path] = result.Truncate(content, maxManifestRunes)
	}
	return s
}
