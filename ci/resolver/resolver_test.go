/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package resolver

import (
	"context"
	"errors"
	"testing"

	"chainguard.dev/issuefix/agents/result"
	"chainguard.dev/issuefix/ci"
	"github.com/google/go-cmp/cmp"
)

type fakeInferrer struct {
	out   result.Outcome[ci.Commands]
	err   error
	calls int
}

func (f *fakeInferrer) InferCommands(context.Context, ci.Structure) (result.Outcome[ci.Commands], error) {
	f.calls++
	return f.out, f.err
}

func files(paths ...string) ci.Structure {
	var s ci.Structure
	for _, p := range paths {
		s.Entries = append(s.Entries, ci.Entry{Path: p, Type: ci.EntryFile})
	}
	return s
}

var errDenied = errors.New("denied")

func TestResolve(t *testing.T) {
	pyWithTests := files("pyproject.toml", "app/main.py", "tests/test_main.py")
	pyNoTests := files("pyproject.toml", "app/main.py")

	tests := []struct {
		name     string
		inferrer *fakeInferrer
		in       ci.Structure
		want     ci.Commands
		source   Source
	}{{
		name:     "structured inference accepted",
		inferrer: &fakeInferrer{out: result.StructuredOf(ci.Commands{SyntaxCheck: " ruff check . ", Test: "pytest"})},
		in:       pyWithTests,
		want:     ci.Commands{SyntaxCheck: "ruff check .", Test: "pytest"},
		source:   SourceInferred,
	}, {
		name:     "empty inference falls back",
		inferrer: &fakeInferrer{out: result.EmptyOf[ci.Commands]()},
		in:       pyWithTests,
		want:     ci.Commands{SyntaxCheck: "python -m compileall -q .", Test: "python -m pytest -q", Quality: "python -m flake8 --count --select=E9,F63,F7,F82 ."},
		source:   SourceFallback,
	}, {
		name:     "tests proposed without indicators falls back",
		inferrer: &fakeInferrer{out: result.StructuredOf(ci.Commands{SyntaxCheck: "ruff check .", Test: "pytest"})},
		in:       pyNoTests,
		want:     ci.Commands{SyntaxCheck: "python -m compileall -q .", Quality: "python -m flake8 --count --select=E9,F63,F7,F82 ."},
		source:   SourceFallback,
	}, {
		name:     "build as syntax check falls back",
		inferrer: &fakeInferrer{out: result.StructuredOf(ci.Commands{SyntaxCheck: "go build ./..."})},
		in:       files("go.mod", "main.go"),
		want:     ci.Commands{SyntaxCheck: "go vet ./...", Quality: `test -z "$(gofmt -l .)"`},
		source:   SourceFallback,
	}, {
		name:     "missing syntax check falls back",
		inferrer: &fakeInferrer{out: result.ExtractedOf(ci.Commands{Test: "go test ./..."})},
		in:       files("go.mod", "main_test.go"),
		want:     ci.Commands{SyntaxCheck: "go vet ./...", Test: "go test ./...", Quality: `test -z "$(gofmt -l .)"`},
		source:   SourceFallback,
	}, {
		name:     "inference error falls back",
		inferrer: &fakeInferrer{err: errors.New("timeout")},
		in:       files("Cargo.toml", "src/main.rs"),
		want:     ci.Commands{SyntaxCheck: "cargo check --quiet", Quality: "cargo fmt --check"},
		source:   SourceFallback,
	}, {
		name:     "escaping working dir is dropped",
		inferrer: &fakeInferrer{out: result.StructuredOf(ci.Commands{SyntaxCheck: "go vet ./...", WorkingDir: "../elsewhere"})},
		in:       files("go.mod"),
		want:     ci.Commands{SyntaxCheck: "go vet ./..."},
		source:   SourceInferred,
	}, {
		name:   "no inferrer",
		in:     files("README.md"),
		want:   ci.Commands{SyntaxCheck: "true"},
		source: SourceFallback,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r *Resolver
			if tt.inferrer != nil {
				r = New(tt.inferrer)
			} else {
				r = New(nil)
			}
			got, err := r.Resolve(context.Background(), tt.in)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if got.Source != tt.source {
				t.Errorf("Source = %s, want %s (reason %q)", got.Source, tt.source, got.Reason)
			}
			if diff := cmp.Diff(tt.want, got.Commands); diff != "" {
				t.Errorf("Commands mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolveFatalError(t *testing.T) {
	inf := &fakeInferrer{err: errDenied}
	r := New(inf, WithFatalErrors(func(err error) bool { return errors.Is(err, errDenied) }))

	if _, err := r.Resolve(context.Background(), files("go.mod")); !errors.Is(err, errDenied) {
		t.Fatalf("Resolve() error = %v, want errDenied", err)
	}
}

// The test command must be empty whenever no indicators exist, on every path.
func TestResolveNeverProposesTestsWithoutIndicators(t *testing.T) {
	structures := []ci.Structure{
		files("go.mod", "main.go"),
		files("package.json", "index.js"),
		files("Cargo.toml", "src/lib.rs"),
		files("pom.xml", "src/main/java/App.java"),
		files("README.md"),
	}
	inferrers := []*fakeInferrer{
		nil,
		{out: result.EmptyOf[ci.Commands]()},
		{out: result.StructuredOf(ci.Commands{SyntaxCheck: "true", Test: "make test"})},
		{err: errors.New("boom")},
	}

	for _, s := range structures {
		for _, inf := range inferrers {
			r := New(nil)
			if inf != nil {
				r = New(inf)
			}
			got, err := r.Resolve(context.Background(), s)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if got.Commands.Test != "" {
				t.Errorf("Resolve(%v) Test = %q, want empty", s.Entries, got.Commands.Test)
			}
		}
	}
}

func TestLooksLikeBuild(t *testing.T) {
	tests := map[string]bool{
		"npm run build":            true,
		"go build ./...":           true,
		"make":                     true,
		"make all":                 true,
		"mvn package":              true,
		"tsc -p .":                 true,
		"npx tsc --noEmit":         false,
		"python -m compileall -q .": false,
		"go vet ./...":             false,
		"cargo check":              false,
	}
	for cmd, want := range tests {
		if got := LooksLikeBuild(cmd); got != want {
			t.Errorf("LooksLikeBuild(%q) = %v, want %v", cmd, got, want)
		}
	}
}
