/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package testing provides a scriptable changeagent for orchestrator tests.
package testing

import (
	"context"
	"sync"

	"chainguard.dev/issuefix/agents/changeagent"
	"chainguard.dev/issuefix/agents/result"
	"chainguard.dev/issuefix/ci"
	"chainguard.dev/issuefix/reconcilers/githubreconciler"
)

// Fake implements changeagent.Interface with overridable behavior.
// Nil hooks produce benign defaults: a fixed spec, no files, unchanged
// content, an approving review and no inferred commands.
type Fake struct {
	GenerateSpecFunc  func(ctx context.Context, issue githubreconciler.Issue) (string, error)
	SelectFilesFunc   func(ctx context.Context, req changeagent.SelectRequest) (result.Outcome[[]string], error)
	FixFileFunc       func(ctx context.Context, spec, path, content string) (result.Outcome[string], error)
	RefineSpecFunc    func(ctx context.Context, spec string, issue githubreconciler.Issue, verdict changeagent.Verdict) (string, error)
	ReviewFunc        func(ctx context.Context, req changeagent.ReviewRequest) (result.Outcome[changeagent.Verdict], error)
	InferCommandsFunc func(ctx context.Context, s ci.Structure) (result.Outcome[ci.Commands], error)

	mu       sync.Mutex
	calls    map[string]int
	fixes    []string
	reviews  []changeagent.ReviewRequest
	selected []changeagent.SelectRequest
	verdicts []changeagent.Verdict
}

var _ changeagent.Interface = (*Fake)(nil)

func (f *Fake) record(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[op]++
}

// Calls returns how many times the named operation was invoked.
func (f *Fake) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// FixedPaths returns the paths passed to FixFile, in call order.
func (f *Fake) FixedPaths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.fixes...)
}

// ReviewRequests returns every request passed to Review.
func (f *Fake) ReviewRequests() []changeagent.ReviewRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]changeagent.ReviewRequest(nil), f.reviews...)
}

// SelectRequests returns every request passed to SelectFiles.
func (f *Fake) SelectRequests() []changeagent.SelectRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]changeagent.SelectRequest(nil), f.selected...)
}

// RefineVerdicts returns the verdicts passed to RefineSpec.
func (f *Fake) RefineVerdicts() []changeagent.Verdict {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]changeagent.Verdict(nil), f.verdicts...)
}

// GenerateSpec implements changeagent.Interface.
func (f *Fake) GenerateSpec(ctx context.Context, issue githubreconciler.Issue) (string, error) {
	f.record("generate_spec")
	if f.GenerateSpecFunc != nil {
		return f.GenerateSpecFunc(ctx, issue)
	}
	return "spec for " + issue.Title, nil
}

// SelectFiles implements changeagent.Interface.
func (f *Fake) SelectFiles(ctx context.Context, req changeagent.SelectRequest) (result.Outcome[[]string], error) {
	f.record("select_files")
	f.mu.Lock()
	f.selected = append(f.selected, req)
	f.mu.Unlock()
	if f.SelectFilesFunc != nil {
		return f.SelectFilesFunc(ctx, req)
	}
	return result.EmptyOf[[]string](), nil
}

// FixFile implements changeagent.Interface.
func (f *Fake) FixFile(ctx context.Context, spec, path, content string) (result.Outcome[string], error) {
	f.record("fix_file")
	f.mu.Lock()
	f.fixes = append(f.fixes, path)
	f.mu.Unlock()
	if f.FixFileFunc != nil {
		return f.FixFileFunc(ctx, spec, path, content)
	}
	return result.StructuredOf(content), nil
}

// RefineSpec implements changeagent.Interface.
func (f *Fake) RefineSpec(ctx context.Context, spec string, issue githubreconciler.Issue, verdict changeagent.Verdict) (string, error) {
	f.record("refine_spec")
	f.mu.Lock()
	f.verdicts = append(f.verdicts, verdict)
	f.mu.Unlock()
	if f.RefineSpecFunc != nil {
		return f.RefineSpecFunc(ctx, spec, issue, verdict)
	}
	return spec + "\n(refined)", nil
}

// Review implements changeagent.Interface.
func (f *Fake) Review(ctx context.Context, req changeagent.ReviewRequest) (result.Outcome[changeagent.Verdict], error) {
	f.record("review")
	f.mu.Lock()
	f.reviews = append(f.reviews, req)
	f.mu.Unlock()
	if f.ReviewFunc != nil {
		return f.ReviewFunc(ctx, req)
	}
	return result.StructuredOf(changeagent.Verdict{Approved: true, Reason: "looks good"}), nil
}

// InferCommands implements changeagent.Interface.
func (f *Fake) InferCommands(ctx context.Context, s ci.Structure) (result.Outcome[ci.Commands], error) {
	f.record("infer_commands")
	if f.InferCommandsFunc != nil {
		return f.InferCommandsFunc(ctx, s)
	}
	return result.EmptyOf[ci.Commands](), nil
}
