/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package resolver

import (
	"slices"
	"testing"

	"chainguard.dev/issuefix/ci"
)

func TestDefaultTable(t *testing.T) {
	table := DefaultTable()
	if len(table.Ecosystems) == 0 {
		t.Fatal("no ecosystems in embedded table")
	}
	for _, e := range table.Ecosystems {
		if LooksLikeBuild(e.Syntax) {
			t.Errorf("ecosystem %s syntax command %q is a build", e.Name, e.Syntax)
		}
	}
	for _, m := range []string{"go.mod", "package.json", "pyproject.toml", "Cargo.toml", "pom.xml"} {
		if !slices.Contains(table.ManifestNames(), m) {
			t.Errorf("ManifestNames() missing %s", m)
		}
	}
}

func TestFallbackMatching(t *testing.T) {
	tests := []struct {
		name      string
		in        ci.Structure
		ecosystem string
		dir       string
	}{{
		name:      "typescript wins over node",
		in:        files("package.json", "tsconfig.json", "src/index.ts"),
		ecosystem: "typescript",
	}, {
		name:      "root manifest wins over nested",
		in:        files("tools/go.mod", "package.json"),
		ecosystem: "node",
	}, {
		name:      "nested manifest sets working dir",
		in:        files("README.md", "backend/requirements.txt", "backend/app.py"),
		ecosystem: "python",
		dir:       "backend",
	}, {
		name:      "unknown ecosystem",
		in:        files("README.md", "docs/index.html"),
		ecosystem: "generic",
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmds, ecosystem := DefaultTable().Fallback(tt.in)
			if ecosystem != tt.ecosystem {
				t.Errorf("ecosystem = %s, want %s", ecosystem, tt.ecosystem)
			}
			if cmds.WorkingDir != tt.dir {
				t.Errorf("WorkingDir = %q, want %q", cmds.WorkingDir, tt.dir)
			}
			if cmds.SyntaxCheck == "" {
				t.Error("SyntaxCheck is empty")
			}
		})
	}
}

func TestParseTable(t *testing.T) {
	if _, err := ParseTable([]byte("ecosystems: []\n")); err == nil {
		t.Error("expected error for missing generic command")
	}
	if _, err := ParseTable([]byte("ecosystems:\n  - name: x\ngeneric:\n  syntax: 'true'\n")); err == nil {
		t.Error("expected error for incomplete ecosystem")
	}
	tbl, err := ParseTable([]byte("ecosystems:\n  - name: x\n    manifests: [x.txt]\n    syntax: xcheck\ngeneric:\n  syntax: 'true'\n"))
	if err != nil {
		t.Fatalf("ParseTable: %v", err)
	}
	r := New(nil, WithTable(tbl))
	if got, _ := r.table.Fallback(files("x.txt")); got.SyntaxCheck != "xcheck" {
		t.Errorf("custom table not used: %+v", got)
	}
}
