/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package resolver

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"chainguard.dev/issuefix/agents/result"
	"chainguard.dev/issuefix/ci"
	"github.com/chainguard-dev/clog"
)

// Inferrer proposes CI commands for a repository structure.
type Inferrer interface {
	InferCommands(ctx context.Context, s ci.Structure) (result.Outcome[ci.Commands], error)
}

// Source records which phase produced a Resolution.
type Source string

const (
	SourceInferred Source = "inferred"
	SourceFallback Source = "fallback"
)

// Resolution is the outcome of Resolve.
type Resolution struct {
	Commands ci.Commands
	Source   Source
	// Ecosystem names the fallback table row used, if any.
	Ecosystem string
	// Reason explains why inference was not used.
	Reason string
}

// Resolver implements the two-phase command resolution.
type Resolver struct {
	inferrer Inferrer
	table    *Table
	fatal    func(error) bool
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithTable replaces the embedded fallback table.
func WithTable(t *Table) Option {
	return func(r *Resolver) {
		r.table = t
	}
}

// WithFatalErrors makes Resolve return inference errors matching fn instead
// of falling back. Used for credential failures that must abort a run.
func WithFatalErrors(fn func(error) bool) Option {
	return func(r *Resolver) {
		r.fatal = fn
	}
}

// New creates a Resolver. A nil inferrer always uses the fallback table.
func New(inferrer Inferrer, opts ...Option) *Resolver {
	r := &Resolver{
		inferrer: inferrer,
		table:    DefaultTable(),
		fatal:    func(error) bool { return false },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// buildMarkers are fragments of commands that compile or package a project.
var buildMarkers = []string{
	"npm run build", "yarn build", "pnpm build", "pnpm run build",
	"mvn package", "mvn install", "mvn compile", "mvn verify",
	"gradle build", "gradlew build", "gradle assemble", "gradlew assemble",
	"cargo build", "go build", "docker build", "webpack", "vite build",
	"make ", "cmake ", "python setup.py build", "bazel build",
}

// LooksLikeBuild reports whether a command runs a full build rather than a
// syntax or type check.
func LooksLikeBuild(command string) bool {
	c := strings.ToLower(strings.TrimSpace(command)) + " "
	if c == "make " {
		return true
	}
	for _, m := range buildMarkers {
		if strings.Contains(c, m) {
			return true
		}
	}
	// tsc without --noEmit writes output.
	return strings.Contains(c, "tsc ") && !strings.Contains(c, "--noemit")
}

// Resolve returns the commands to run for the structure.
func (r *Resolver) Resolve(ctx context.Context, s ci.Structure) (Resolution, error) {
	log := clog.FromContext(ctx)
	hasTests := HasTestIndicators(s)

	reason := "no inferrer configured"
	if r.inferrer != nil {
		cmds, err := r.infer(ctx, s, hasTests)
		switch {
		case err == nil:
			log.With("syntax", cmds.SyntaxCheck).With("test", cmds.Test).Info("Using inferred CI commands")
			return Resolution{Commands: cmds, Source: SourceInferred}, nil
		case r.fatal(err):
			return Resolution{}, fmt.Errorf("inferring CI commands: %w", err)
		default:
			reason = err.Error()
		}
	}

	cmds, ecosystem := r.table.Fallback(s)
	log.With("reason", reason).With("ecosystem", ecosystem).Warn("Falling back to static CI commands")
	return Resolution{
		Commands:  cmds,
		Source:    SourceFallback,
		Ecosystem: ecosystem,
		Reason:    reason,
	}, nil
}

var errNoTests = errors.New("test command proposed but no test indicators found")

func (r *Resolver) infer(ctx context.Context, s ci.Structure, hasTests bool) (ci.Commands, error) {
	out, err := r.inferrer.InferCommands(ctx, s)
	if err != nil {
		return ci.Commands{}, err
	}
	cmds, ok := out.Get()
	if !ok {
		if out.ParseErr != nil {
			return ci.Commands{}, fmt.Errorf("unusable inference: %w", out.ParseErr)
		}
		return ci.Commands{}, errors.New("unusable inference")
	}

	cmds = normalize(cmds)
	switch {
	case cmds.SyntaxCheck == "":
		return ci.Commands{}, errors.New("inference proposed no syntax check")
	case LooksLikeBuild(cmds.SyntaxCheck):
		return ci.Commands{}, fmt.Errorf("inferred syntax check %q is a build", cmds.SyntaxCheck)
	case cmds.Test != "" && !hasTests:
		return ci.Commands{}, errNoTests
	}
	if !hasTests {
		cmds.Test = ""
	}
	return cmds, nil
}

// normalize trims commands and confines the working directory to the repository.
func normalize(c ci.Commands) ci.Commands {
	c.SyntaxCheck = strings.TrimSpace(c.SyntaxCheck)
	c.Test = strings.TrimSpace(c.Test)
	c.Quality = strings.TrimSpace(c.Quality)

	dir := strings.TrimSpace(c.WorkingDir)
	if dir != "" {
		dir = path.Clean(dir)
		if dir == "." || path.IsAbs(dir) || dir == ".." || strings.HasPrefix(dir, "../") {
			dir = ""
		}
	}
	c.WorkingDir = dir
	return c
}
