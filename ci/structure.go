/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package ci

import (
	"path"
	"sort"
	"strings"
)

// EntryType tags a repository listing entry.
type EntryType string

const (
	EntryFile EntryType = "file"
	EntryDir  EntryType = "dir"
)

// Entry is one element of a bounded, flat repository listing.
type Entry struct {
	Path string    `json:"path"`
	Type EntryType `json:"type"`
}

// Depth is the number of directories above the entry. Root entries have depth 0.
func (e Entry) Depth() int {
	return strings.Count(strings.Trim(e.Path, "/"), "/")
}

// Base returns the final path element.
func (e Entry) Base() string {
	return path.Base(e.Path)
}

// Structure is a bounded view of a repository used to pick CI commands.
type Structure struct {
	Entries []Entry `json:"entries"`
	// Manifests maps recognized manifest paths to their (possibly truncated) contents.
	Manifests map[string]string `json:"manifests,omitempty"`
	// Truncated is set when the listing hit its depth or item bound.
	Truncated bool `json:"truncated,omitempty"`
}

// Listing renders the entries one per line, directories suffixed with a slash.
func (s Structure) Listing() string {
	var b strings.Builder
	for _, e := range s.Entries {
		b.WriteString(e.Path)
		if e.Type == EntryDir {
			b.WriteByte('/')
		}
		b.WriteByte('\n')
	}
	if s.Truncated {
		b.WriteString("... (listing truncated)\n")
	}
	return b.String()
}

// ManifestPaths returns the manifest paths in a stable order.
func (s Structure) ManifestPaths() []string {
	paths := make([]string, 0, len(s.Manifests))
	for p := range s.Manifests {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
