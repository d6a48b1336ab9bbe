/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package gateway

import (
	"context"

	"chainguard.dev/issuefix/ci"
	"chainguard.dev/issuefix/reconcilers/githubreconciler"
)

// File is a file's content at a ref together with its blob SHA.
type File struct {
	Path    string
	Content string
	// SHA is the revision token for optimistic writes. Empty when the file
	// does not exist yet.
	SHA string
}

// PutRequest writes one file to a branch.
type PutRequest struct {
	Path    string
	Content string
	Branch  string
	Message string
	// ExpectedSHA is the blob SHA the content was derived from, or empty to
	// create the file.
	ExpectedSHA string
}

// ProposalRequest describes the pull request to create for a branch.
type ProposalRequest struct {
	Branch string
	Base   string
	Title  string
	Body   string
}

// Proposal identifies a pull request.
type Proposal struct {
	Number int    `json:"number"`
	URL    string `json:"url"`
	Branch string `json:"branch"`
}

// Interface is the set of hosting operations used by a fix run.
type Interface interface {
	// GetIssue loads the issue's title and body.
	GetIssue(ctx context.Context, repo githubreconciler.Repo, number int) (githubreconciler.Issue, error)

	// DefaultBranch returns the repository's default branch name.
	DefaultBranch(ctx context.Context, repo githubreconciler.Repo) (string, error)

	// BranchHead returns the commit SHA the branch points to.
	BranchHead(ctx context.Context, repo githubreconciler.Repo, branch string) (string, error)

	// EnsureBranch creates the branch at fromSHA unless it exists. It
	// reports whether the branch was created by this call.
	EnsureBranch(ctx context.Context, repo githubreconciler.Repo, name, fromSHA string) (bool, error)

	// GetFile reads a file at a branch, tag or commit.
	GetFile(ctx context.Context, repo githubreconciler.Repo, path, ref string) (File, error)

	// PutFile writes a file and returns its new blob SHA.
	PutFile(ctx context.Context, repo githubreconciler.Repo, req PutRequest) (string, error)

	// Tree lists the repository at ref, keeping entries less than maxDepth
	// levels deep and at most maxEntries of them. The boolean reports
	// whether the listing was cut short.
	Tree(ctx context.Context, repo githubreconciler.Repo, ref string, maxDepth, maxEntries int) ([]ci.Entry, bool, error)

	// EnsureChangeProposal returns the open pull request for the branch,
	// creating one when none exists.
	EnsureChangeProposal(ctx context.Context, repo githubreconciler.Repo, req ProposalRequest) (Proposal, error)

	// AddComment posts a comment on an issue or pull request.
	AddComment(ctx context.Context, repo githubreconciler.Repo, number int, body string) error
}
