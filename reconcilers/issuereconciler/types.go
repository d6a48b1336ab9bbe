/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package issuereconciler

import (
	"context"

	"chainguard.dev/issuefix/agents/changeagent"
	"chainguard.dev/issuefix/ci"
	"chainguard.dev/issuefix/ci/compare"
	"chainguard.dev/issuefix/ci/resolver"
	"chainguard.dev/issuefix/reconcilers/githubreconciler"
	"chainguard.dev/issuefix/reconcilers/githubreconciler/changemanager"
	"chainguard.dev/issuefix/reconcilers/githubreconciler/gateway"
)

// Status is the terminal state of a run.
type Status string

const (
	StatusAccepted Status = "ACCEPTED"
	StatusFailed   Status = "FAILED"
)

// Decision is the outcome of one iteration.
type Decision string

const (
	DecisionAccept Decision = "ACCEPT"
	DecisionRefine Decision = "REFINE"
	DecisionFail   Decision = "FAIL"
)

// Sandbox runs CI commands against a branch.
type Sandbox interface {
	Run(ctx context.Context, repo githubreconciler.Repo, branch string, cmds ci.Commands) (ci.Results, error)
}

// CommandResolver chooses the CI commands for a repository structure.
type CommandResolver interface {
	Resolve(ctx context.Context, s ci.Structure) (resolver.Resolution, error)
}

// AuditSink persists the iteration log of a finished run.
type AuditSink interface {
	Write(ctx context.Context, runID string, run Result) error
}

// Request describes one run.
type Request struct {
	Issue githubreconciler.Issue
	// Spec skips specification generation when set.
	Spec string
	// MaxIterations bounds the loop. Zero or negative selects the default.
	MaxIterations int
	// Commands skips command resolution when set.
	Commands *ci.Commands
}

// SpecVersion is one version of the technical specification.
type SpecVersion struct {
	Version int    `json:"version"`
	Text    string `json:"text"`
}

// FileChangeSet partitions the files handled in one iteration.
type FileChangeSet struct {
	Succeeded []changeagent.ChangedFile  `json:"succeeded,omitempty"`
	Failed    []changemanager.FailedFile `json:"failed,omitempty"`
}

// Paths returns the succeeded paths in order.
func (fcs FileChangeSet) Paths() []string {
	out := make([]string, 0, len(fcs.Succeeded))
	for _, f := range fcs.Succeeded {
		out = append(out, f.Path)
	}
	return out
}

// IterationRecord is the immutable log entry of one iteration.
type IterationRecord struct {
	Index       int                 `json:"index"`
	SpecVersion int                 `json:"spec_version"`
	Selected    []string            `json:"selected,omitempty"`
	Changes     FileChangeSet       `json:"changes"`
	After       *ci.Summary         `json:"ci_after,omitempty"`
	Comparison  compare.Comparison  `json:"comparison"`
	Verdict     changeagent.Verdict `json:"verdict"`
	// Reviewed is false when the verdict was synthesized without a review.
	Reviewed bool     `json:"reviewed"`
	Decision Decision `json:"decision"`
}

// Result is the structured outcome of a run.
type Result struct {
	RunID      string                 `json:"run_id"`
	Issue      githubreconciler.Issue `json:"issue"`
	Status     Status                 `json:"status"`
	Proposal   *gateway.Proposal      `json:"proposal,omitempty"`
	Iterations int                    `json:"iterations"`
	// Reason explains a failure.
	Reason     string               `json:"reason,omitempty"`
	LastReview *changeagent.Verdict `json:"last_review,omitempty"`
	Commands   ci.Commands          `json:"commands"`
	Before     ci.Summary           `json:"ci_before"`
	Specs      []SpecVersion        `json:"specs"`
	Records    []IterationRecord    `json:"records"`
}
