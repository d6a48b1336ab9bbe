/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"chainguard.dev/issuefix/ci"
	"chainguard.dev/issuefix/reconcilers/githubreconciler"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-github/v84/github"
)

var testRepo = githubreconciler.Repo{Owner: "octo", Name: "hello"}

// fakeGitHub serves the subset of the GitHub API the gateway uses.
type fakeGitHub struct {
	mu sync.Mutex

	branches map[string]string            // name -> sha
	files    map[string]map[string]string // branch -> path -> content
	shas     map[string]map[string]string // branch -> path -> blob sha
	prs      []map[string]any
	comments map[int][]string

	openPRNode   map[string]any // returned by the GraphQL lookup when set
	graphqlFails bool
	createPR422  bool
	createRef422 bool
	prCreates    int
	refCreates   int
	nextSHA      int
}

func newFakeGitHub() *fakeGitHub {
	return &fakeGitHub{
		branches: map[string]string{"main": "base-sha"},
		files: map[string]map[string]string{"main": {
			"main.go": "package main\n",
		}},
		shas: map[string]map[string]string{"main": {
			"main.go": "blob-1",
		}},
		comments: map[int][]string{},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func notFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
}

func (f *fakeGitHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	const prefix = "/repos/octo/hello/"
	p := r.URL.Path
	switch {
	case r.URL.Path == "/graphql":
		if f.graphqlFails {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		nodes := []any{}
		if f.openPRNode != nil {
			nodes = append(nodes, f.openPRNode)
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{
			"repository": map[string]any{"pullRequests": map[string]any{"nodes": nodes}},
		}})

	case r.Method == http.MethodGet && p == "/repos/octo/hello":
		writeJSON(w, http.StatusOK, map[string]any{"default_branch": "main"})

	case r.Method == http.MethodGet && p == prefix+"issues/12":
		writeJSON(w, http.StatusOK, map[string]any{"number": 12, "title": "Greeting typo", "body": "Helo"})

	case r.Method == http.MethodGet && strings.HasPrefix(p, prefix+"git/ref/heads/"):
		name := strings.TrimPrefix(p, prefix+"git/ref/heads/")
		sha, ok := f.branches[name]
		if !ok {
			notFound(w)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ref": "refs/heads/" + name, "object": map[string]any{"sha": sha}})

	case r.Method == http.MethodPost && p == prefix+"git/refs":
		f.refCreates++
		var body struct{ Ref, SHA string }
		json.NewDecoder(r.Body).Decode(&body)
		name := strings.TrimPrefix(body.Ref, "refs/heads/")
		if _, ok := f.branches[name]; ok || f.createRef422 {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "Reference already exists"})
			return
		}
		f.branches[name] = body.SHA
		f.files[name] = map[string]string{}
		f.shas[name] = map[string]string{}
		for k, v := range f.files["main"] {
			f.files[name][k] = v
			f.shas[name][k] = f.shas["main"][k]
		}
		writeJSON(w, http.StatusCreated, map[string]any{"ref": body.Ref, "object": map[string]any{"sha": body.SHA}})

	case strings.HasPrefix(p, prefix+"contents/"):
		f.contents(w, r, strings.TrimPrefix(p, prefix+"contents/"))

	case r.Method == http.MethodGet && strings.HasPrefix(p, prefix+"git/trees/"):
		writeJSON(w, http.StatusOK, map[string]any{
			"sha": "tree-sha",
			"tree": []map[string]any{
				{"path": "README.md", "type": "blob"},
				{"path": "cmd", "type": "tree"},
				{"path": "cmd/main.go", "type": "blob"},
				{"path": "cmd/internal", "type": "tree"},
				{"path": "cmd/internal/x.go", "type": "blob"},
				{"path": "go.mod", "type": "blob"},
				{"path": "vendor-lib", "type": "commit"},
				{"path": "main_test.go", "type": "blob"},
			},
			"truncated": false,
		})

	case r.Method == http.MethodPost && p == prefix+"pulls":
		f.prCreates++
		if f.createPR422 {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "A pull request already exists"})
			return
		}
		var body struct{ Title, Body, Head, Base string }
		json.NewDecoder(r.Body).Decode(&body)
		n := 100 + len(f.prs)
		pr := map[string]any{"number": n, "html_url": fmt.Sprintf("https://github.com/octo/hello/pull/%d", n), "state": "open", "head": body.Head, "title": body.Title}
		f.prs = append(f.prs, pr)
		writeJSON(w, http.StatusCreated, pr)

	case r.Method == http.MethodGet && p == prefix+"pulls":
		state := r.URL.Query().Get("state")
		head := r.URL.Query().Get("head")
		out := []map[string]any{}
		for _, pr := range f.prs {
			if "octo:"+pr["head"].(string) != head {
				continue
			}
			if state == "open" && pr["state"] != "open" {
				continue
			}
			out = append(out, pr)
		}
		writeJSON(w, http.StatusOK, out)

	case r.Method == http.MethodPost && strings.HasPrefix(p, prefix+"issues/") && strings.HasSuffix(p, "/comments"):
		var n int
		fmt.Sscanf(strings.TrimPrefix(p, prefix+"issues/"), "%d", &n)
		var body struct{ Body string }
		json.NewDecoder(r.Body).Decode(&body)
		f.comments[n] = append(f.comments[n], body.Body)
		writeJSON(w, http.StatusCreated, map[string]any{"id": 1, "body": body.Body})

	default:
		notFound(w)
	}
}

func (f *fakeGitHub) contents(w http.ResponseWriter, r *http.Request, path string) {
	switch r.Method {
	case http.MethodGet:
		ref := r.URL.Query().Get("ref")
		content, ok := f.files[ref][path]
		if !ok {
			notFound(w)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"type":     "file",
			"path":     path,
			"encoding": "base64",
			"content":  base64.StdEncoding.EncodeToString([]byte(content)),
			"sha":      f.shas[ref][path],
		})

	case http.MethodPut:
		var body struct {
			Message string `json:"message"`
			Content string `json:"content"`
			SHA     string `json:"sha"`
			Branch  string `json:"branch"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		current, exists := f.shas[body.Branch][path]
		if exists && body.SHA != current {
			writeJSON(w, http.StatusConflict, map[string]string{"message": "does not match"})
			return
		}
		if !exists && body.SHA != "" {
			notFound(w)
			return
		}
		raw, _ := base64.StdEncoding.DecodeString(body.Content)
		f.nextSHA++
		sha := fmt.Sprintf("blob-new-%d", f.nextSHA)
		f.files[body.Branch][path] = string(raw)
		f.shas[body.Branch][path] = sha
		writeJSON(w, http.StatusOK, map[string]any{"content": map[string]any{"path": path, "sha": sha}})
	}
}

func newTestGateway(t *testing.T, f *fakeGitHub) *Gateway {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	client := github.NewClient(nil)
	u, err := url.Parse(srv.URL + "/")
	if err != nil {
		t.Fatalf("parsing server URL: %v", err)
	}
	client.BaseURL = u
	return New(client, WithGraphQLURL(srv.URL+"/graphql"))
}

func TestGetIssueAndDefaultBranch(t *testing.T) {
	ctx := context.Background()
	gw := newTestGateway(t, newFakeGitHub())

	issue, err := gw.GetIssue(ctx, testRepo, 12)
	if err != nil {
		t.Fatalf("GetIssue: %v", err)
	}
	want := githubreconciler.Issue{Repo: testRepo, Number: 12, Title: "Greeting typo", Body: "Helo"}
	if diff := cmp.Diff(want, issue); diff != "" {
		t.Errorf("GetIssue() mismatch (-want +got):\n%s", diff)
	}

	branch, err := gw.DefaultBranch(ctx, testRepo)
	if err != nil {
		t.Fatalf("DefaultBranch: %v", err)
	}
	if branch != "main" {
		t.Errorf("DefaultBranch() = %q, want main", branch)
	}
}

func TestEnsureBranch(t *testing.T) {
	ctx := context.Background()
	f := newFakeGitHub()
	gw := newTestGateway(t, f)

	created, err := gw.EnsureBranch(ctx, testRepo, "issuefix/issue-12", "base-sha")
	if err != nil {
		t.Fatalf("EnsureBranch: %v", err)
	}
	if !created {
		t.Error("first EnsureBranch should create the branch")
	}

	created, err = gw.EnsureBranch(ctx, testRepo, "issuefix/issue-12", "base-sha")
	if err != nil {
		t.Fatalf("EnsureBranch: %v", err)
	}
	if created {
		t.Error("second EnsureBranch should reuse the branch")
	}
	if f.refCreates != 1 {
		t.Errorf("ref creates = %d, want 1", f.refCreates)
	}

	head, err := gw.BranchHead(ctx, testRepo, "issuefix/issue-12")
	if err != nil {
		t.Fatalf("BranchHead: %v", err)
	}
	if head != "base-sha" {
		t.Errorf("BranchHead() = %q, want base-sha", head)
	}
}

func TestEnsureBranchRace(t *testing.T) {
	f := newFakeGitHub()
	f.createRef422 = true
	gw := newTestGateway(t, f)

	created, err := gw.EnsureBranch(context.Background(), testRepo, "issuefix/issue-12", "base-sha")
	if err != nil {
		t.Fatalf("EnsureBranch: %v", err)
	}
	if created {
		t.Error("a 422 on create means the branch exists")
	}
}

func TestFileRoundTrip(t *testing.T) {
	ctx := context.Background()
	gw := newTestGateway(t, newFakeGitHub())

	if _, err := gw.EnsureBranch(ctx, testRepo, "fix", "base-sha"); err != nil {
		t.Fatalf("EnsureBranch: %v", err)
	}

	f, err := gw.GetFile(ctx, testRepo, "main.go", "fix")
	if err != nil {
		t.Fatalf("GetFile: %v", err)
	}
	if f.Content != "package main\n" || f.SHA != "blob-1" {
		t.Errorf("GetFile() = %+v", f)
	}

	sha, err := gw.PutFile(ctx, testRepo, PutRequest{
		Path:        "main.go",
		Content:     "package main\n\nfunc main() {}\n",
		Branch:      "fix",
		Message:     "Fix main.go for issue #12 (iteration 1)",
		ExpectedSHA: f.SHA,
	})
	if err != nil {
		t.Fatalf("PutFile: %v", err)
	}
	if sha == "" || sha == f.SHA {
		t.Errorf("PutFile() sha = %q", sha)
	}

	// A write based on the stale SHA conflicts.
	_, err = gw.PutFile(ctx, testRepo, PutRequest{Path: "main.go", Content: "x", Branch: "fix", Message: "m", ExpectedSHA: f.SHA})
	if !errors.Is(err, githubreconciler.ErrConflict) {
		t.Errorf("stale PutFile() error = %v, want ErrConflict", err)
	}

	// New files are created without a SHA.
	if _, err := gw.PutFile(ctx, testRepo, PutRequest{Path: "greet/greet.go", Content: "package greet\n", Branch: "fix", Message: "m"}); err != nil {
		t.Errorf("create PutFile: %v", err)
	}
}

func TestGetFileNotFound(t *testing.T) {
	gw := newTestGateway(t, newFakeGitHub())
	_, err := gw.GetFile(context.Background(), testRepo, "missing.go", "main")
	if !errors.Is(err, githubreconciler.ErrNotFound) {
		t.Errorf("GetFile() error = %v, want ErrNotFound", err)
	}
}

func TestTree(t *testing.T) {
	gw := newTestGateway(t, newFakeGitHub())

	entries, truncated, err := gw.Tree(context.Background(), testRepo, "main", 2, 100)
	if err != nil {
		t.Fatalf("Tree: %v", err)
	}
	want := []ci.Entry{
		{Path: "README.md", Type: ci.EntryFile},
		{Path: "cmd", Type: ci.EntryDir},
		{Path: "cmd/main.go", Type: ci.EntryFile},
		{Path: "cmd/internal", Type: ci.EntryDir},
		{Path: "go.mod", Type: ci.EntryFile},
		{Path: "main_test.go", Type: ci.EntryFile},
	}
	if diff := cmp.Diff(want, entries); diff != "" {
		t.Errorf("Tree() mismatch (-want +got):\n%s", diff)
	}
	if truncated {
		t.Error("Tree() should not be truncated")
	}

	entries, truncated, err = gw.Tree(context.Background(), testRepo, "main", 1, 2)
	if err != nil {
		t.Fatalf("Tree: %v", err)
	}
	if len(entries) != 2 || !truncated {
		t.Errorf("capped Tree() = %v, truncated=%v", entries, truncated)
	}
}

func TestEnsureChangeProposal(t *testing.T) {
	ctx := context.Background()
	req := ProposalRequest{Branch: "issuefix/issue-12", Base: "main", Title: "Fix: Greeting typo (issue #12)", Body: "Closes #12"}

	t.Run("creates when none exists", func(t *testing.T) {
		f := newFakeGitHub()
		gw := newTestGateway(t, f)
		p, err := gw.EnsureChangeProposal(ctx, testRepo, req)
		if err != nil {
			t.Fatalf("EnsureChangeProposal: %v", err)
		}
		if p.Number != 100 || p.Branch != req.Branch || p.URL != "https://github.com/octo/hello/pull/100" {
			t.Errorf("EnsureChangeProposal() = %+v", p)
		}
	})

	t.Run("reuses open pull request", func(t *testing.T) {
		f := newFakeGitHub()
		f.openPRNode = map[string]any{"number": 7, "url": "https://github.com/octo/hello/pull/7"}
		gw := newTestGateway(t, f)
		p, err := gw.EnsureChangeProposal(ctx, testRepo, req)
		if err != nil {
			t.Fatalf("EnsureChangeProposal: %v", err)
		}
		if p.Number != 7 {
			t.Errorf("Number = %d, want 7", p.Number)
		}
		if f.prCreates != 0 {
			t.Errorf("prCreates = %d, want 0", f.prCreates)
		}
	})

	t.Run("create conflict falls back to listing", func(t *testing.T) {
		f := newFakeGitHub()
		f.graphqlFails = true
		f.createPR422 = true
		f.prs = []map[string]any{{"number": 3, "html_url": "https://github.com/octo/hello/pull/3", "state": "open", "head": req.Branch}}
		gw := newTestGateway(t, f)
		p, err := gw.EnsureChangeProposal(ctx, testRepo, req)
		if err != nil {
			t.Fatalf("EnsureChangeProposal: %v", err)
		}
		if p.Number != 3 {
			t.Errorf("Number = %d, want 3", p.Number)
		}
	})

	t.Run("create conflict ignores closed pull requests", func(t *testing.T) {
		f := newFakeGitHub()
		f.graphqlFails = true
		f.createPR422 = true
		f.prs = []map[string]any{
			{"number": 3, "html_url": "https://github.com/octo/hello/pull/3", "state": "closed", "head": req.Branch},
			{"number": 4, "html_url": "https://github.com/octo/hello/pull/4", "state": "merged", "head": req.Branch},
		}
		gw := newTestGateway(t, f)
		p, err := gw.EnsureChangeProposal(ctx, testRepo, req)
		if !errors.Is(err, githubreconciler.ErrConflict) {
			t.Errorf("EnsureChangeProposal() = %+v, %v; want ErrConflict", p, err)
		}
	})

	t.Run("create conflict without match", func(t *testing.T) {
		f := newFakeGitHub()
		f.createPR422 = true
		gw := newTestGateway(t, f)
		_, err := gw.EnsureChangeProposal(ctx, testRepo, req)
		if !errors.Is(err, githubreconciler.ErrConflict) {
			t.Errorf("EnsureChangeProposal() error = %v, want ErrConflict", err)
		}
	})
}

func TestAddComment(t *testing.T) {
	f := newFakeGitHub()
	gw := newTestGateway(t, f)
	if err := gw.AddComment(context.Background(), testRepo, 100, "All checks passed."); err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	if diff := cmp.Diff([]string{"All checks passed."}, f.comments[100]); diff != "" {
		t.Errorf("comments mismatch (-want +got):\n%s", diff)
	}
	if err := gw.AddComment(context.Background(), testRepo, 100, "  "); err == nil {
		t.Error("expected error for empty comment")
	}
}

func TestReader(t *testing.T) {
	gw := newTestGateway(t, newFakeGitHub())
	read := Reader(gw, testRepo, "main")
	got, err := read(context.Background(), "main.go")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got != "package main\n" {
		t.Errorf("read() = %q", got)
	}
}
