/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package changemanager

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"chainguard.dev/issuefix/agents/result"
	"chainguard.dev/issuefix/ci"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
)

// maxReasonInComment bounds the review reason quoted in a comment.
const maxReasonInComment = 1000

// Row is one iteration as shown in a summary comment.
type Row struct {
	Iteration   int
	SpecVersion int
	Changed     int
	Failed      int
	After       ci.Summary
	Regression  bool
	Decision    string
}

// Outcome is what a summary comment reports.
type Outcome struct {
	Accepted bool
	Reason   string
	Rows     []Row
}

// SummaryComment renders the comment posted on the pull request when a run
// ends.
func SummaryComment(o Outcome) string {
	var b strings.Builder
	if o.Accepted {
		fmt.Fprintf(&b, "## ✅ Fix accepted after %d iteration(s)\n\n", len(o.Rows))
	} else {
		fmt.Fprintf(&b, "## ❌ Fix not accepted after %d iteration(s)\n\n", len(o.Rows))
	}
	if reason := strings.TrimSpace(o.Reason); reason != "" {
		b.WriteString("**Review:** ")
		b.WriteString(result.Truncate(reason, maxReasonInComment))
		b.WriteString("\n\n")
	}
	if len(o.Rows) > 0 {
		b.WriteString(IterationTable(o.Rows))
	}
	if !o.Accepted {
		b.WriteString("\nThe branch is left in place for manual follow-up.\n")
	}
	return b.String()
}

// IterationTable renders rows as a markdown table.
func IterationTable(rows []Row) string {
	var buf bytes.Buffer
	table := createStandardTable([]string{"#", "Spec", "Changed", "Failed", "Syntax", "Tests", "Quality", "Regression", "Decision"}, &buf)
	for _, r := range rows {
		regression := "no"
		if r.Regression {
			regression = "yes"
		}
		_ = table.Append([]string{
			strconv.Itoa(r.Iteration),
			"v" + strconv.Itoa(r.SpecVersion),
			strconv.Itoa(r.Changed),
			strconv.Itoa(r.Failed),
			r.After.Syntax.String(),
			r.After.Tests.String(),
			r.After.Quality.String(),
			regression,
			r.Decision,
		})
	}
	_ = table.Render()
	return buf.String()
}

// createStandardTable creates a table with markdown borders and left aligned
// cells, unwrapped so the output stays valid markdown.
func createStandardTable(headers []string, w io.Writer) *tablewriter.Table {
	cfg := tablewriter.Config{
		Header: tw.CellConfig{
			Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			Formatting: tw.CellFormatting{AutoFormat: tw.Off},
		},
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignLeft},
		},
		Behavior: tw.Behavior{TrimSpace: tw.Off},
	}
	return tablewriter.NewTable(w,
		tablewriter.WithConfig(cfg),
		tablewriter.WithHeader(headers),
		tablewriter.WithRenderer(renderer.NewBlueprint()),
		tablewriter.WithRendition(tw.Rendition{
			Symbols: tw.NewSymbols(tw.StyleMarkdown),
			Borders: tw.Border{Left: tw.On, Top: tw.Off, Right: tw.On, Bottom: tw.Off},
		}),
		tablewriter.WithRowAutoWrap(tw.WrapNone),
	)
}
