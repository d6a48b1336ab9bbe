/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package changeagent

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"chainguard.dev/issuefix/agents/agenttrace"
	"chainguard.dev/issuefix/agents/metrics"
	"chainguard.dev/issuefix/agents/result"
	"chainguard.dev/issuefix/ci"
	"chainguard.dev/issuefix/reconcilers/githubreconciler"
	"github.com/chainguard-dev/clog"
)

type agent struct {
	completer Completer
}

var _ Interface = (*agent)(nil)

// New returns an Interface backed by the completer.
func New(completer Completer) (Interface, error) {
	if completer == nil {
		return nil, errors.New("completer cannot be nil")
	}
	return &agent{completer: completer}, nil
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering %s prompt: %w", t.Name(), err)
	}
	return buf.String(), nil
}

func (a *agent) complete(ctx context.Context, operation, system string, t *template.Template, data any) (string, error) {
	user, err := render(t, data)
	if err != nil {
		return "", err
	}
	trace := agenttrace.StartTrace[string](metrics.WithOperation(ctx, operation), operation, user)
	text, err := a.completer.Complete(trace.Context(), system, user)
	trace.Complete(text, err)
	if err != nil {
		return "", fmt.Errorf("%s: %w", operation, err)
	}
	return text, nil
}

func logFallback[T any](ctx context.Context, operation string, out result.Outcome[T]) {
	if out.Kind == result.Structured {
		return
	}
	clog.FromContext(ctx).With("operation", operation).With("outcome", out.Kind.String()).
		Warnf("Structured response unusable: %v", out.ParseErr)
}

// GenerateSpec implements Interface.
func (a *agent) GenerateSpec(ctx context.Context, issue githubreconciler.Issue) (string, error) {
	text, err := a.complete(ctx, "generate_spec", specSystem, specTemplate, issue)
	if err != nil {
		return "", err
	}
	spec := strings.TrimSpace(text)
	if spec == "" {
		return "", errors.New("generate_spec: empty specification")
	}
	return spec, nil
}

// SelectFiles implements Interface.
func (a *agent) SelectFiles(ctx context.Context, req SelectRequest) (result.Outcome[[]string], error) {
	text, err := a.complete(ctx, "select_files", selectSystem, selectTemplate, req)
	if err != nil {
		return result.EmptyOf[[]string](), err
	}
	out := pathsParser.Parse(text)
	logFallback(ctx, "select_files", out)
	if out.Ok() {
		out.Value = cleanPaths(out.Value)
		if len(out.Value) == 0 {
			return result.Outcome[[]string]{ParseErr: errors.New("no usable paths")}, nil
		}
	}
	return out, nil
}

// FixFile implements Interface.
func (a *agent) FixFile(ctx context.Context, spec, path, content string) (result.Outcome[string], error) {
	text, err := a.complete(ctx, "fix_file", fixSystem, fixTemplate, struct {
		Spec, Path, Content string
	}{spec, path, content})
	if err != nil {
		return result.EmptyOf[string](), err
	}
	out := parseCode(text)
	logFallback(ctx, "fix_file", out)
	return out, nil
}

// RefineSpec implements Interface.
func (a *agent) RefineSpec(ctx context.Context, spec string, issue githubreconciler.Issue, verdict Verdict) (string, error) {
	text, err := a.complete(ctx, "refine_spec", refineSystem, refineTemplate, struct {
		Spec    string
		Issue   githubreconciler.Issue
		Verdict Verdict
	}{spec, issue, verdict})
	if err != nil {
		return "", err
	}
	refined := strings.TrimSpace(text)
	if refined == "" {
		return "", errors.New("refine_spec: empty specification")
	}
	return refined, nil
}

// Review implements Interface.
func (a *agent) Review(ctx context.Context, req ReviewRequest) (result.Outcome[Verdict], error) {
	text, err := a.complete(ctx, "review", reviewSystem, reviewTemplate, struct {
		ReviewRequest
		Schema string
	}{req, verdictSchema})
	if err != nil {
		return result.EmptyOf[Verdict](), err
	}
	out := parseVerdict(text)
	logFallback(ctx, "review", out)
	return out, nil
}

// InferCommands implements Interface.
func (a *agent) InferCommands(ctx context.Context, s ci.Structure) (result.Outcome[ci.Commands], error) {
	text, err := a.complete(ctx, "infer_commands", inferSystem, inferTemplate, struct {
		Listing   string
		Manifests map[string]string
		Schema    string
	}{s.Listing(), s.Manifests, commandsSchema})
	if err != nil {
		return result.EmptyOf[ci.Commands](), err
	}
	out := commandsParser.Parse(text)
	logFallback(ctx, "infer_commands", out)
	return out, nil
}
