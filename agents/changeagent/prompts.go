/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package changeagent

import (
	"strings"
	"text/template"

	"chainguard.dev/issuefix/agents/result"
	"chainguard.dev/issuefix/agents/schema"
	"chainguard.dev/issuefix/ci"
)

var funcs = template.FuncMap{
	"truncate": result.Truncate,
	"tail": func(s string, n int) string {
		r := []rune(strings.TrimSpace(s))
		if len(r) <= n {
			return string(r)
		}
		return "..." + string(r[len(r)-n:])
	},
	"join": strings.Join,
}

func mustTemplate(name, text string) *template.Template {
	return template.Must(template.New(name).Funcs(funcs).Parse(text))
}

const specSystem = `You are a senior software engineer. You turn GitHub issues into precise technical specifications that another engineer can implement without further questions.`

var specTemplate = mustTemplate("spec", `Repository: {{.Repo}}
Issue #{{.Number}}: {{.Title}}

{{if .Body}}{{.Body}}{{else}}(no description){{end}}

Write a technical specification for resolving this issue. Include:
1. A short summary of the problem.
2. The required behavior after the fix.
3. The files or components that most likely need to change, by path when you can infer it.
4. Acceptance criteria.
5. Risks and edge cases.

Answer in plain text or markdown.`)

const selectSystem = `You are a senior software engineer deciding which existing files must be edited to implement a specification. You answer only with JSON.`

var selectTemplate = mustTemplate("select", `Repository: {{.Repository}}

Repository listing (bounded):
{{.Listing}}
Technical specification:
{{.Spec}}

Return a JSON array of repository-relative file paths to edit, most important first.
Only include files that must change. Prefer existing paths from the listing.

`+"```json"+`
["path/to/file.ext"]
`+"```")

const fixSystem = `You are a senior software engineer editing one file to implement a specification. You return the complete new file content and nothing else.`

var fixTemplate = mustTemplate("fix", `Technical specification:
{{.Spec}}

File: {{.Path}}
Current content:
<<<FILE
{{.Content}}
FILE>>>

Return the complete updated content of {{.Path}}. Keep unrelated code unchanged. Do not add explanations.
If the file does not need changes, return it unchanged.`)

const refineSystem = `You are a senior software engineer revising a technical specification after a failed code review.`

var refineTemplate = mustTemplate("refine", `Issue #{{.Issue.Number}}: {{.Issue.Title}}

{{.Issue.Body}}

Current technical specification:
{{.Spec}}

The last implementation was rejected.
Reason: {{.Verdict.Reason}}
{{- if .Verdict.Issues}}
Issues:
{{- range .Verdict.Issues}}
- {{.}}
{{- end}}
{{- end}}
{{- if .Verdict.Recommendations}}
Recommendations:
{{- range .Verdict.Recommendations}}
- {{.}}
{{- end}}
{{- end}}

Write the complete revised specification. Address every issue explicitly and keep what was correct.`)

var verdictSchema = schema.MustText[Verdict]()

const reviewSystem = `You are a strict code reviewer. You approve a change only when it resolves the issue and does not break the build or tests. You answer only with JSON.`

var reviewTemplate = mustTemplate("review", `Issue #{{.Issue.Number}}: {{.Issue.Title}}

{{.Issue.Body}}

Technical specification:
{{.Spec}}

Changed files:
{{- range .Changed}}

--- {{.Path}}
{{truncate .Content 6000}}
{{- end}}

CI before the change: syntax={{.Before.Syntax}} tests={{.Before.Tests}} quality={{.Before.Quality}}
CI after the change: syntax={{.After.Syntax}} tests={{.After.Tests}} quality={{.After.Quality}}
{{- with .After.Checks.Syntax}}{{if .ExitCode}}
Syntax check output (exit {{.ExitCode}}):
{{tail .Stderr 1500}}{{tail .Stdout 1500}}{{end}}{{end}}
{{- with .After.Checks.Test}}{{if .ExitCode}}
Test output (exit {{.ExitCode}}):
{{tail .Stderr 1500}}{{tail .Stdout 1500}}{{end}}{{end}}

Respond with a JSON object matching this schema:
{{.Schema}}`)

var commandsSchema = schema.MustText[ci.Commands]()

const inferSystem = `You are a build engineer choosing fast verification commands for a repository. You answer only with JSON.`

var inferTemplate = mustTemplate("infer", `Repository listing (bounded):
{{.Listing}}
{{- range $path, $content := .Manifests}}

--- {{$path}}
{{$content}}
{{- end}}

Choose shell commands to verify a change to this repository:
- syntax_check: a syntax or type check only. Never a full build, packaging step, or compile of release artifacts.
- test: the test command, or an empty string if the repository has no tests.
- quality: an optional linter check, or an empty string.
- working_dir: the directory holding the project manifest, relative to the root, or an empty string.

Respond with a JSON object matching this schema:
{{.Schema}}`)
