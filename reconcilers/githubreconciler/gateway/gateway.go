/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"chainguard.dev/issuefix/ci"
	"chainguard.dev/issuefix/reconcilers/githubreconciler"
	"github.com/chainguard-dev/clog"
	"github.com/google/go-github/v84/github"
	"github.com/shurcooL/githubv4"
)

// Option configures a Gateway.
type Option func(*Gateway)

// WithGraphQLURL points pull request lookups at a GraphQL endpoint other
// than api.github.com, such as GitHub Enterprise Server.
func WithGraphQLURL(url string) Option {
	return func(g *Gateway) {
		g.gql = githubv4.NewEnterpriseClient(url, g.client.Client())
	}
}

// Gateway implements Interface with the GitHub REST and GraphQL APIs.
type Gateway struct {
	client *github.Client
	gql    *githubv4.Client
}

var _ Interface = (*Gateway)(nil)

// New returns a Gateway using client for every call.
func New(client *github.Client, opts ...Option) *Gateway {
	g := &Gateway{
		client: client,
		gql:    githubv4.NewClient(client.Client()),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GetIssue implements Interface.
func (g *Gateway) GetIssue(ctx context.Context, repo githubreconciler.Repo, number int) (githubreconciler.Issue, error) {
	issue, _, err := g.client.Issues.Get(ctx, repo.Owner, repo.Name, number)
	if err != nil {
		return githubreconciler.Issue{}, githubreconciler.Classify(err, "getting issue")
	}
	return githubreconciler.Issue{
		Repo:   repo,
		Number: number,
		Title:  issue.GetTitle(),
		Body:   issue.GetBody(),
	}, nil
}

// DefaultBranch implements Interface.
func (g *Gateway) DefaultBranch(ctx context.Context, repo githubreconciler.Repo) (string, error) {
	r, _, err := g.client.Repositories.Get(ctx, repo.Owner, repo.Name)
	if err != nil {
		return "", githubreconciler.Classify(err, "getting repository")
	}
	if r.GetDefaultBranch() == "" {
		return "", fmt.Errorf("repository %s has no default branch", repo)
	}
	return r.GetDefaultBranch(), nil
}

// BranchHead implements Interface.
func (g *Gateway) BranchHead(ctx context.Context, repo githubreconciler.Repo, branch string) (string, error) {
	ref, _, err := g.client.Git.GetRef(ctx, repo.Owner, repo.Name, "heads/"+branch)
	if err != nil {
		return "", githubreconciler.Classify(err, "getting branch "+branch)
	}
	return ref.GetObject().GetSHA(), nil
}

// EnsureBranch implements Interface.
func (g *Gateway) EnsureBranch(ctx context.Context, repo githubreconciler.Repo, name, fromSHA string) (bool, error) {
	log := clog.FromContext(ctx).With("branch", name)

	if _, err := g.BranchHead(ctx, repo, name); err == nil {
		log.Info("Branch already exists")
		return false, nil
	} else if !errors.Is(err, githubreconciler.ErrNotFound) {
		return false, err
	}

	req, err := g.client.NewRequest(http.MethodPost, fmt.Sprintf("repos/%s/%s/git/refs", repo.Owner, repo.Name), map[string]string{
		"ref": "refs/heads/" + name,
		"sha": fromSHA,
	})
	if err != nil {
		return false, fmt.Errorf("building create ref request: %w", err)
	}
	if _, err := g.client.Do(ctx, req, nil); err != nil {
		// 422 means the reference already exists.
		if githubreconciler.StatusCode(err) == http.StatusUnprocessableEntity {
			log.Info("Branch was created concurrently")
			return false, nil
		}
		return false, githubreconciler.Classify(err, "creating branch "+name)
	}

	log.With("sha", fromSHA).Info("Created branch")
	return true, nil
}

// GetFile implements Interface.
func (g *Gateway) GetFile(ctx context.Context, repo githubreconciler.Repo, path, ref string) (File, error) {
	fc, _, _, err := g.client.Repositories.GetContents(ctx, repo.Owner, repo.Name, path, &github.RepositoryContentGetOptions{Ref: ref})
	if err != nil {
		return File{}, githubreconciler.Classify(err, "reading "+path)
	}
	if fc == nil {
		return File{}, fmt.Errorf("reading %s: is a directory", path)
	}
	content, err := fc.GetContent()
	if err != nil {
		return File{}, fmt.Errorf("decoding %s: %w", path, err)
	}
	return File{Path: path, Content: content, SHA: fc.GetSHA()}, nil
}

// PutFile implements Interface.
func (g *Gateway) PutFile(ctx context.Context, repo githubreconciler.Repo, req PutRequest) (string, error) {
	opts := &github.RepositoryContentFileOptions{
		Message: github.Ptr(req.Message),
		Content: []byte(req.Content),
		Branch:  github.Ptr(req.Branch),
	}

	var (
		resp *github.RepositoryContentResponse
		err  error
	)
	if req.ExpectedSHA == "" {
		resp, _, err = g.client.Repositories.CreateFile(ctx, repo.Owner, repo.Name, req.Path, opts)
	} else {
		opts.SHA = github.Ptr(req.ExpectedSHA)
		resp, _, err = g.client.Repositories.UpdateFile(ctx, repo.Owner, repo.Name, req.Path, opts)
	}
	if err != nil {
		return "", githubreconciler.Classify(err, "writing "+req.Path)
	}
	return resp.GetContent().GetSHA(), nil
}

// Tree implements Interface.
func (g *Gateway) Tree(ctx context.Context, repo githubreconciler.Repo, ref string, maxDepth, maxEntries int) ([]ci.Entry, bool, error) {
	tree, _, err := g.client.Git.GetTree(ctx, repo.Owner, repo.Name, ref, true)
	if err != nil {
		return nil, false, githubreconciler.Classify(err, "listing tree")
	}

	truncated := tree.GetTruncated()
	entries := make([]ci.Entry, 0, min(len(tree.Entries), maxEntries))
	for _, te := range tree.Entries {
		var typ ci.EntryType
		switch te.GetType() {
		case "blob":
			typ = ci.EntryFile
		case "tree":
			typ = ci.EntryDir
		default:
			// Submodules.
			continue
		}
		e := ci.Entry{Path: te.GetPath(), Type: typ}
		if e.Depth() >= maxDepth {
			continue
		}
		if len(entries) >= maxEntries {
			truncated = true
			break
		}
		entries = append(entries, e)
	}
	return entries, truncated, nil
}

// EnsureChangeProposal implements Interface.
func (g *Gateway) EnsureChangeProposal(ctx context.Context, repo githubreconciler.Repo, req ProposalRequest) (Proposal, error) {
	log := clog.FromContext(ctx).With("branch", req.Branch)

	existing, err := g.findOpenProposal(ctx, repo, req.Branch, req.Base)
	if err != nil {
		log.Warnf("Failed to query open pull requests, creating: %v", err)
	} else if existing != nil {
		log.With("proposal", existing.Number).Info("Reusing open pull request")
		return *existing, nil
	}

	pr, _, err := g.client.PullRequests.Create(ctx, repo.Owner, repo.Name, &github.NewPullRequest{
		Title: github.Ptr(req.Title),
		Body:  github.Ptr(req.Body),
		Head:  github.Ptr(req.Branch),
		Base:  github.Ptr(req.Base),
	})
	if err == nil {
		log.With("proposal", pr.GetNumber()).Infof("Created pull request %s", pr.GetHTMLURL())
		return Proposal{Number: pr.GetNumber(), URL: pr.GetHTMLURL(), Branch: req.Branch}, nil
	}
	if githubreconciler.StatusCode(err) != http.StatusUnprocessableEntity {
		return Proposal{}, githubreconciler.Classify(err, "creating pull request")
	}

	// An open pull request for the branch may already exist. A closed or
	// merged one from an earlier run is never reused.
	prs, _, lerr := g.client.PullRequests.List(ctx, repo.Owner, repo.Name, &github.PullRequestListOptions{
		State: "open",
		Head:  repo.Owner + ":" + req.Branch,
	})
	if lerr != nil {
		return Proposal{}, githubreconciler.Classify(lerr, "listing pull requests")
	}
	for _, pr := range prs {
		if pr.GetState() != "open" {
			continue
		}
		log.With("proposal", pr.GetNumber()).Info("Reusing open pull request after create conflict")
		return Proposal{Number: pr.GetNumber(), URL: pr.GetHTMLURL(), Branch: req.Branch}, nil
	}
	return Proposal{}, githubreconciler.Classify(err, "creating pull request")
}

// findOpenProposal looks up an open pull request from branch into base.
func (g *Gateway) findOpenProposal(ctx context.Context, repo githubreconciler.Repo, branch, base string) (*Proposal, error) {
	var query struct {
		Repository struct {
			PullRequests struct {
				Nodes []struct {
					Number int
					Url    string
				}
			} `graphql:"pullRequests(headRefName: $headRef, baseRefName: $baseRef, states: [OPEN], first: 1)"`
		} `graphql:"repository(owner: $owner, name: $repo)"`
	}

	variables := map[string]any{
		"owner":   githubv4.String(repo.Owner),
		"repo":    githubv4.String(repo.Name),
		"headRef": githubv4.String(branch),
		"baseRef": githubv4.String(base),
	}

	if err := g.gql.Query(ctx, &query, variables); err != nil {
		return nil, fmt.Errorf("querying pull request: %w", err)
	}
	if len(query.Repository.PullRequests.Nodes) == 0 {
		return nil, nil
	}
	pr := query.Repository.PullRequests.Nodes[0]
	return &Proposal{Number: pr.Number, URL: pr.Url, Branch: branch}, nil
}

// AddComment implements Interface.
func (g *Gateway) AddComment(ctx context.Context, repo githubreconciler.Repo, number int, body string) error {
	if strings.TrimSpace(body) == "" {
		return errors.New("comment body cannot be empty")
	}
	if _, _, err := g.client.Issues.CreateComment(ctx, repo.Owner, repo.Name, number, &github.IssueComment{
		Body: github.Ptr(body),
	}); err != nil {
		return githubreconciler.Classify(err, "posting comment")
	}
	return nil
}

// Reader adapts gw.GetFile to a function reading paths at a fixed ref.
func Reader(gw Interface, repo githubreconciler.Repo, ref string) func(ctx context.Context, path string) (string, error) {
	return func(ctx context.Context, path string) (string, error) {
		f, err := gw.GetFile(ctx, repo, path, ref)
		if err != nil {
			return "", err
		}
		return f.Content, nil
	}
}
