/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package githubreconciler

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// Repo identifies a GitHub repository.
type Repo struct {
	Owner string `json:"owner"`
	Name  string `json:"name"`
}

// String returns owner/name.
func (r Repo) String() string {
	return r.Owner + "/" + r.Name
}

// URL returns the repository's web URL.
func (r Repo) URL() string {
	return fmt.Sprintf("https://github.com/%s/%s", r.Owner, r.Name)
}

// Issue is the immutable input to a fix run.
type Issue struct {
	Repo   Repo   `json:"repo"`
	Number int    `json:"number"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

// URL returns the issue's web URL.
func (i Issue) URL() string {
	return fmt.Sprintf("%s/issues/%d", i.Repo.URL(), i.Number)
}

var (
	issueURLPattern = regexp.MustCompile(`github\.com/([^/]+)/([^/]+)/issues/(\d+)`)
	repoURLPattern  = regexp.MustCompile(`github\.com/([^/]+)/([^/?#]+)`)
)

// ParseIssueURL extracts the repository and issue number from an issue URL
// such as https://github.com/owner/repo/issues/42.
func ParseIssueURL(raw string) (Repo, int, error) {
	m := issueURLPattern.FindStringSubmatch(raw)
	if m == nil {
		return Repo{}, 0, fmt.Errorf("not a GitHub issue URL: %q", raw)
	}
	n, err := strconv.Atoi(m[3])
	if err != nil || n <= 0 {
		return Repo{}, 0, fmt.Errorf("invalid issue number in %q", raw)
	}
	return Repo{Owner: m[1], Name: m[2]}, n, nil
}

// ParseRepoURL extracts the repository from a repository or issue URL.
// A trailing .git suffix is ignored.
func ParseRepoURL(raw string) (Repo, error) {
	if u, err := url.Parse(raw); err == nil && u.Host != "" && u.Host != "github.com" && u.Host != "www.github.com" {
		return Repo{}, fmt.Errorf("not a GitHub URL: %q", raw)
	}
	m := repoURLPattern.FindStringSubmatch(raw)
	if m == nil {
		return Repo{}, fmt.Errorf("not a GitHub repository URL: %q", raw)
	}
	name := strings.TrimSuffix(m[2], ".git")
	if name == "" {
		return Repo{}, fmt.Errorf("missing repository name in %q", raw)
	}
	return Repo{Owner: m[1], Name: name}, nil
}
