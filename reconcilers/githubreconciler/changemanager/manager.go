/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package changemanager

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"chainguard.dev/issuefix/agents/result"
	"chainguard.dev/issuefix/reconcilers/githubreconciler"
	"chainguard.dev/issuefix/reconcilers/githubreconciler/gateway"
)

// maxSpecInBody bounds the specification quoted in a pull request body.
const maxSpecInBody = 2000

// FailedFile is a file the run could not change, with the reason.
type FailedFile struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Data is the input to the title and body templates.
type Data struct {
	Issue   githubreconciler.Issue
	Spec    string
	Changed []string
	Failed  []FailedFile
}

// Option configures a CM (ChangeManager).
type Option func(*CM)

// WithTitleTemplate overrides the pull request title template.
func WithTitleTemplate(t *template.Template) Option {
	return func(cm *CM) {
		cm.titleTemplate = t
	}
}

// WithBodyTemplate overrides the pull request body template.
func WithBodyTemplate(t *template.Template) Option {
	return func(cm *CM) {
		cm.bodyTemplate = t
	}
}

var funcs = template.FuncMap{
	"spec": func(s string) string {
		if len([]rune(s)) <= maxSpecInBody {
			return s
		}
		return result.Truncate(s, maxSpecInBody) + "..."
	},
}

// DefaultTitleTemplate renders "Fix: <title> (issue #N)".
var DefaultTitleTemplate = template.Must(template.New("title").Funcs(funcs).Parse(
	`Fix: {{.Issue.Title}} (issue #{{.Issue.Number}})`))

// DefaultBodyTemplate lists the changed files, quotes the specification and
// links the issue. Files that could not be changed are listed as warnings.
var DefaultBodyTemplate = template.Must(template.New("body").Funcs(funcs).Parse(`## Description
This pull request resolves issue #{{.Issue.Number}}.

## Changes
{{range .Changed}}- ` + "`{{.}}`" + `
{{end}}
## Technical specification
{{spec .Spec}}

## Related issue
Closes #{{.Issue.Number}}
{{- if .Failed}}

## Warnings
The following files could not be processed:
{{range .Failed}}- ` + "`{{.Path}}`" + `: {{.Reason}}
{{end}}{{end}}`))

// CM manages the pull requests opened by one identity.
// It uses Go templates to generate titles and bodies from Data.
type CM struct {
	identity      string
	titleTemplate *template.Template
	bodyTemplate  *template.Template
}

// New creates a new CM with the given identity.
// The identity prefixes every branch name, so distinct deployments never
// share branches.
func New(identity string, opts ...Option) (*CM, error) {
	if identity == "" {
		return nil, errors.New("identity cannot be empty")
	}
	if strings.ContainsAny(identity, " ~^:?*[\\") {
		return nil, fmt.Errorf("identity %q is not a valid branch prefix", identity)
	}

	cm := &CM{
		identity:      identity,
		titleTemplate: DefaultTitleTemplate,
		bodyTemplate:  DefaultBodyTemplate,
	}
	for _, opt := range opts {
		opt(cm)
	}
	if cm.titleTemplate == nil {
		return nil, errors.New("titleTemplate cannot be nil")
	}
	if cm.bodyTemplate == nil {
		return nil, errors.New("bodyTemplate cannot be nil")
	}
	return cm, nil
}

// Identity returns the identity the CM was created with.
func (cm *CM) Identity() string {
	return cm.identity
}

// BranchName returns the branch used for an issue: {identity}/issue-{number}.
func (cm *CM) BranchName(issueNumber int) string {
	return cm.identity + "/issue-" + strconv.Itoa(issueNumber)
}

// CommitMessage returns the message for a file written during an iteration.
func CommitMessage(path string, issueNumber, iteration int) string {
	return fmt.Sprintf("Fix %s for issue #%d (iteration %d)", path, issueNumber, iteration)
}

// Render executes the title and body templates.
func (cm *CM) Render(data Data) (title, body string, err error) {
	var buf bytes.Buffer
	if err := cm.titleTemplate.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("executing title template: %w", err)
	}
	title = strings.TrimSpace(buf.String())

	buf.Reset()
	if err := cm.bodyTemplate.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("executing body template: %w", err)
	}
	body = buf.String()
	body += fmt.Sprintf("\n\n> **Note:** This pull request is maintained by `%s` and is updated on every iteration of the fix run.", cm.identity)
	return title, body, nil
}

// NewSession starts the pull request lifecycle of one run.
func (cm *CM) NewSession(gw gateway.Interface, issue githubreconciler.Issue, base string) *Session {
	return &Session{
		manager:    cm,
		gateway:    gw,
		issue:      issue,
		branchName: cm.BranchName(issue.Number),
		base:       base,
	}
}
