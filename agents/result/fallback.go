/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package result

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// quotedPath matches quoted tokens that look like source or config files.
var quotedPath = regexp.MustCompile(`["'` + "`" + `]([^"'` + "`" + `\s]+\.(?:py|js|ts|java|cpp|c|h|go|rs|php|rb|yml|yaml|json|md|txt|html|css|jsx|tsx|toml|cfg|ini|sh))["'` + "`" + `]`)

// ExtractPaths scans free text for quoted file-like paths, in order of first
// appearance and without duplicates.
func ExtractPaths(text string) []string {
	seen := make(map[string]bool)
	var paths []string
	for _, m := range quotedPath.FindAllStringSubmatch(text, -1) {
		p := strings.TrimPrefix(m[1], "./")
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		paths = append(paths, p)
	}
	return paths
}

var (
	rejectionWords = map[string]bool{
		"unapproved": true, "disapproved": true, "rejected": true, "отклонено": true,
	}
	approvalWords = map[string]bool{"approved": true, "принято": true, "одобрено": true}
	negations     = map[string]bool{
		"not": true, "no": true, "cannot": true, "never": true, "не": true, "нельзя": true,
	}
)

// negationWindow is how many words before an approval word are searched for a negation.
const negationWindow = 3

// ApprovalSignal searches free text for an approval keyword, matched as a
// whole word. Any rejection word, or a negation shortly before an approval
// word, makes it return false, as does finding no keyword at all.
func ApprovalSignal(text string) bool {
	words := strings.FieldsFunc(strings.ToLower(strings.ReplaceAll(text, "’", "'")), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
	approved := false
	for i, w := range words {
		switch {
		case rejectionWords[w]:
			return false
		case approvalWords[w]:
			for _, prev := range words[max(0, i-negationWindow):i] {
				if negations[prev] || strings.HasSuffix(prev, "n't") {
					return false
				}
			}
			approved = true
		}
	}
	return approved
}

// Truncate shortens s to at most n runes.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

// ExtractCode returns the body of the first fenced code block, or the text
// unchanged when it contains no fence. A fenced body is returned with a
// single trailing newline.
func ExtractCode(text string) string {
	lines := strings.Split(text, "\n")
	start := -1
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			start = i
			break
		}
	}
	if start < 0 {
		return text
	}

	var body []string
	for _, line := range lines[start+1:] {
		if strings.TrimSpace(line) == "```" {
			break
		}
		body = append(body, strings.TrimSuffix(line, "\r"))
	}
	return strings.TrimRight(strings.Join(body, "\n"), "\n") + "\n"
}
