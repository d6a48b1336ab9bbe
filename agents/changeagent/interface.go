/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package changeagent

import (
	"context"
	"errors"

	"chainguard.dev/issuefix/agents/result"
	"chainguard.dev/issuefix/ci"
	"chainguard.dev/issuefix/reconcilers/githubreconciler"
)

// ErrAuth is returned (wrapped) when the model endpoint rejects credentials.
var ErrAuth = errors.New("model endpoint rejected credentials")

// Completer performs a single model completion.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Verdict is a review decision.
type Verdict struct {
	Approved        bool     `json:"approved" jsonschema:"required,description=True only if the change fully resolves the issue without breaking anything."`
	Reason          string   `json:"reason" jsonschema:"required,description=One paragraph explaining the decision."`
	Issues          []string `json:"issues,omitempty" jsonschema:"description=Concrete problems that block approval."`
	Recommendations []string `json:"recommendations,omitempty" jsonschema:"description=Specific changes that would address the issues."`
}

// ChangedFile is a file rewritten during an iteration.
type ChangedFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// SelectRequest asks which files to change.
type SelectRequest struct {
	Spec       string
	Repository string
	// Listing is a bounded repository listing, one path per line.
	Listing string
}

// ReviewRequest carries everything the reviewer sees.
type ReviewRequest struct {
	Issue   githubreconciler.Issue
	Spec    string
	Changed []ChangedFile
	Before  ci.Summary
	After   ci.Summary
}

// Interface is the set of model-backed operations used by the fix loop.
type Interface interface {
	// GenerateSpec turns an issue into a technical specification.
	GenerateSpec(ctx context.Context, issue githubreconciler.Issue) (string, error)
	// SelectFiles proposes repository-relative paths to change, in order.
	SelectFiles(ctx context.Context, req SelectRequest) (result.Outcome[[]string], error)
	// FixFile returns the full replacement content of one file.
	FixFile(ctx context.Context, spec, path, content string) (result.Outcome[string], error)
	// RefineSpec produces the next specification version from review feedback.
	RefineSpec(ctx context.Context, spec string, issue githubreconciler.Issue, verdict Verdict) (string, error)
	// Review decides whether the change resolves the issue.
	Review(ctx context.Context, req ReviewRequest) (result.Outcome[Verdict], error)
	// InferCommands proposes CI commands for a repository.
	InferCommands(ctx context.Context, s ci.Structure) (result.Outcome[ci.Commands], error)
}
