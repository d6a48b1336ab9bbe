/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package changemanager

import (
	"context"
	"errors"
	"fmt"

	"chainguard.dev/issuefix/reconcilers/githubreconciler"
	"chainguard.dev/issuefix/reconcilers/githubreconciler/gateway"
	"github.com/chainguard-dev/clog"
)

// Session represents work on the pull request of a single run.
type Session struct {
	manager    *CM
	gateway    gateway.Interface
	issue      githubreconciler.Issue
	branchName string
	base       string // Base branch for the PR

	proposal *gateway.Proposal // nil until EnsureProposal succeeds
}

// BranchName returns the branch the pull request is opened from.
func (s *Session) BranchName() string {
	return s.branchName
}

// Base returns the branch the pull request targets.
func (s *Session) Base() string {
	return s.base
}

// Proposal returns the pull request, if one has been ensured.
func (s *Session) Proposal() (gateway.Proposal, bool) {
	if s.proposal == nil {
		return gateway.Proposal{}, false
	}
	return *s.proposal, true
}

// EnsureProposal creates the pull request from the session's branch, or
// returns the one already created in this run. The gateway reuses an
// existing open pull request for the branch, so concurrent creation never
// yields two.
func (s *Session) EnsureProposal(ctx context.Context, data Data) (gateway.Proposal, error) {
	if s.proposal != nil {
		return *s.proposal, nil
	}
	if len(data.Changed) == 0 {
		return gateway.Proposal{}, errors.New("no changed files to propose")
	}

	title, body, err := s.manager.Render(data)
	if err != nil {
		return gateway.Proposal{}, err
	}

	log := clog.FromContext(ctx).With("branch", s.branchName)
	log.Infof("Ensuring pull request with head %s and base %s", s.branchName, s.base)

	p, err := s.gateway.EnsureChangeProposal(ctx, s.issue.Repo, gateway.ProposalRequest{
		Branch: s.branchName,
		Base:   s.base,
		Title:  title,
		Body:   body,
	})
	if err != nil {
		return gateway.Proposal{}, fmt.Errorf("ensuring pull request: %w", err)
	}
	s.proposal = &p

	log.With("proposal", p.Number).Infof("Using PR #%d: %s", p.Number, p.URL)
	return p, nil
}

// Comment posts body on the pull request. It is a no-op without one.
func (s *Session) Comment(ctx context.Context, body string) error {
	if s.proposal == nil {
		return nil
	}
	if err := s.gateway.AddComment(ctx, s.issue.Repo, s.proposal.Number, body); err != nil {
		return fmt.Errorf("commenting on PR #%d: %w", s.proposal.Number, err)
	}
	return nil
}
