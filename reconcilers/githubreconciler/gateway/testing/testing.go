/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package testing provides an in-memory gateway for orchestrator tests.
package testing

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"chainguard.dev/issuefix/ci"
	"chainguard.dev/issuefix/reconcilers/githubreconciler"
	"chainguard.dev/issuefix/reconcilers/githubreconciler/gateway"
)

// Fake is an in-memory gateway.Interface for a single repository.
// Proposals are keyed by branch, so EnsureChangeProposal is idempotent.
type Fake struct {
	mu sync.Mutex

	defaultBranch string
	issues        map[int]githubreconciler.Issue
	branches      map[string]string            // name -> head
	files         map[string]map[string]string // branch -> path -> content
	proposals     map[string]gateway.Proposal
	requests      []gateway.ProposalRequest
	comments      map[int][]string
	commits       []string
	calls         map[string]int
	nextProposal  int
	nextCommit    int

	// GetFileErr is returned by GetFile for the path, on every branch.
	GetFileErr map[string]error
	// PutConflicts makes the next n writes of the path fail with ErrConflict.
	PutConflicts map[string]int
	// PutErr is returned by PutFile for the path.
	PutErr map[string]error
	// ProposalErr is returned by EnsureChangeProposal when set.
	ProposalErr error
	// CommentErr is returned by AddComment when set.
	CommentErr error
	// OnPut runs before each write, while no lock is held.
	OnPut func(req gateway.PutRequest)
}

var _ gateway.Interface = (*Fake)(nil)

// New returns a Fake whose default branch holds files.
func New(defaultBranch string, files map[string]string) *Fake {
	f := &Fake{
		defaultBranch: defaultBranch,
		issues:        map[int]githubreconciler.Issue{},
		branches:      map[string]string{defaultBranch: "base-0"},
		files:         map[string]map[string]string{defaultBranch: {}},
		proposals:     map[string]gateway.Proposal{},
		comments:      map[int][]string{},
		calls:         map[string]int{},
		nextProposal:  1,
		GetFileErr:    map[string]error{},
		PutConflicts:  map[string]int{},
		PutErr:        map[string]error{},
	}
	for p, c := range files {
		f.files[defaultBranch][p] = c
	}
	return f
}

// AddIssue registers an issue for GetIssue.
func (f *Fake) AddIssue(issue githubreconciler.Issue) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.issues[issue.Number] = issue
}

// SetFile writes content directly to a branch, bypassing conflict checks.
func (f *Fake) SetFile(branch, p, content string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.files[branch] == nil {
		f.files[branch] = map[string]string{}
	}
	f.files[branch][p] = content
}

// File returns a file's content on a branch.
func (f *Fake) File(branch, p string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.files[branch][p]
	return c, ok
}

// Proposals returns every proposal created, ordered by number.
func (f *Fake) Proposals() []gateway.Proposal {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]gateway.Proposal, 0, len(f.proposals))
	for _, p := range f.proposals {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// ProposalRequests returns every EnsureChangeProposal request, in order.
func (f *Fake) ProposalRequests() []gateway.ProposalRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]gateway.ProposalRequest(nil), f.requests...)
}

// Comments returns the comments posted on number.
func (f *Fake) Comments(number int) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.comments[number]...)
}

// Commits returns the commit messages of successful writes.
func (f *Fake) Commits() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.commits...)
}

// Calls returns how many times the named method was invoked.
func (f *Fake) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func blobSHA(content string) string {
	sum := sha1.Sum([]byte(content))
	return hex.EncodeToString(sum[:])
}

// GetIssue implements gateway.Interface.
func (f *Fake) GetIssue(_ context.Context, repo githubreconciler.Repo, number int) (githubreconciler.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["GetIssue"]++
	issue, ok := f.issues[number]
	if !ok {
		return githubreconciler.Issue{}, fmt.Errorf("getting issue: %w", githubreconciler.ErrNotFound)
	}
	issue.Repo = repo
	return issue, nil
}

// DefaultBranch implements gateway.Interface.
func (f *Fake) DefaultBranch(context.Context, githubreconciler.Repo) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["DefaultBranch"]++
	return f.defaultBranch, nil
}

// BranchHead implements gateway.Interface.
func (f *Fake) BranchHead(_ context.Context, _ githubreconciler.Repo, branch string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["BranchHead"]++
	head, ok := f.branches[branch]
	if !ok {
		return "", fmt.Errorf("getting branch %s: %w", branch, githubreconciler.ErrNotFound)
	}
	return head, nil
}

// EnsureBranch implements gateway.Interface.
func (f *Fake) EnsureBranch(_ context.Context, _ githubreconciler.Repo, name, fromSHA string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["EnsureBranch"]++
	if _, ok := f.branches[name]; ok {
		return false, nil
	}
	f.branches[name] = fromSHA
	f.files[name] = map[string]string{}
	for p, c := range f.files[f.defaultBranch] {
		f.files[name][p] = c
	}
	return true, nil
}

// GetFile implements gateway.Interface.
func (f *Fake) GetFile(_ context.Context, _ githubreconciler.Repo, p, ref string) (gateway.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["GetFile"]++
	if err := f.GetFileErr[p]; err != nil {
		return gateway.File{}, err
	}
	content, ok := f.files[ref][p]
	if !ok {
		return gateway.File{}, fmt.Errorf("reading %s: %w", p, githubreconciler.ErrNotFound)
	}
	return gateway.File{Path: p, Content: content, SHA: blobSHA(content)}, nil
}

// PutFile implements gateway.Interface.
func (f *Fake) PutFile(_ context.Context, _ githubreconciler.Repo, req gateway.PutRequest) (string, error) {
	if f.OnPut != nil {
		f.OnPut(req)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["PutFile"]++

	if err := f.PutErr[req.Path]; err != nil {
		return "", err
	}
	if f.PutConflicts[req.Path] > 0 {
		f.PutConflicts[req.Path]--
		return "", fmt.Errorf("writing %s: %w", req.Path, githubreconciler.ErrConflict)
	}
	files, ok := f.files[req.Branch]
	if !ok {
		return "", fmt.Errorf("writing %s: branch %s: %w", req.Path, req.Branch, githubreconciler.ErrNotFound)
	}
	current, exists := files[req.Path]
	switch {
	case exists && blobSHA(current) != req.ExpectedSHA:
		return "", fmt.Errorf("writing %s: %w", req.Path, githubreconciler.ErrConflict)
	case !exists && req.ExpectedSHA != "":
		return "", fmt.Errorf("writing %s: %w", req.Path, githubreconciler.ErrNotFound)
	}

	files[req.Path] = req.Content
	f.nextCommit++
	f.branches[req.Branch] = fmt.Sprintf("commit-%d", f.nextCommit)
	f.commits = append(f.commits, req.Message)
	return blobSHA(req.Content), nil
}

// Tree implements gateway.Interface.
func (f *Fake) Tree(_ context.Context, _ githubreconciler.Repo, ref string, maxDepth, maxEntries int) ([]ci.Entry, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["Tree"]++

	files, ok := f.files[ref]
	if !ok {
		return nil, false, fmt.Errorf("listing tree: %w", githubreconciler.ErrNotFound)
	}
	seen := map[string]ci.EntryType{}
	for p := range files {
		seen[p] = ci.EntryFile
		for dir := path.Dir(p); dir != "."; dir = path.Dir(dir) {
			seen[dir] = ci.EntryDir
		}
	}
	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var entries []ci.Entry
	for _, p := range paths {
		if strings.Count(p, "/") >= maxDepth {
			continue
		}
		if len(entries) >= maxEntries {
			return entries, true, nil
		}
		entries = append(entries, ci.Entry{Path: p, Type: seen[p]})
	}
	return entries, false, nil
}

// EnsureChangeProposal implements gateway.Interface.
func (f *Fake) EnsureChangeProposal(_ context.Context, repo githubreconciler.Repo, req gateway.ProposalRequest) (gateway.Proposal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["EnsureChangeProposal"]++
	f.requests = append(f.requests, req)
	if f.ProposalErr != nil {
		return gateway.Proposal{}, f.ProposalErr
	}
	if p, ok := f.proposals[req.Branch]; ok {
		return p, nil
	}
	p := gateway.Proposal{
		Number: f.nextProposal,
		URL:    fmt.Sprintf("%s/pull/%d", repo.URL(), f.nextProposal),
		Branch: req.Branch,
	}
	f.nextProposal++
	f.proposals[req.Branch] = p
	return p, nil
}

// AddComment implements gateway.Interface.
func (f *Fake) AddComment(_ context.Context, _ githubreconciler.Repo, number int, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["AddComment"]++
	if f.CommentErr != nil {
		return f.CommentErr
	}
	f.comments[number] = append(f.comments[number], body)
	return nil
}
