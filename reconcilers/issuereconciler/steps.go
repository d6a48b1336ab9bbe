/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package issuereconciler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"chainguard.dev/issuefix/agents/changeagent"
	"chainguard.dev/issuefix/ci"
	"chainguard.dev/issuefix/reconcilers/githubreconciler"
	"chainguard.dev/issuefix/reconcilers/githubreconciler/changemanager"
	"chainguard.dev/issuefix/reconcilers/githubreconciler/gateway"
	"github.com/chainguard-dev/clog"
)

var errNoContent = errors.New("fix returned no content")

func (st *run) selectFiles(ctx context.Context, spec string) ([]string, error) {
	mctx, cancel := bounded(ctx, st.r.timeouts.Model)
	defer cancel()

	out, err := st.r.deps.Agent.SelectFiles(mctx, changeagent.SelectRequest{
		Spec:       spec,
		Repository: st.issue.Repo.String(),
		Listing:    st.structure.Listing(),
	})
	switch {
	case IsAuthError(err):
		return nil, fmt.Errorf("selecting files: %w", err)
	case err != nil:
		clog.FromContext(ctx).Warnf("File selection failed, treating as empty: %v", err)
		return nil, nil
	}
	paths, _ := out.Get()
	return paths, nil
}

// applyFixes fixes and writes each path in order. Only rejected credentials
// stop the iteration; any other failure is recorded against its file.
func (st *run) applyFixes(ctx context.Context, index int, spec string, paths []string) (FileChangeSet, error) {
	var fcs FileChangeSet

	if err := st.ensureBranch(ctx); err != nil {
		if IsAuthError(err) {
			return fcs, err
		}
		for _, p := range paths {
			fcs.Failed = append(fcs.Failed, changemanager.FailedFile{Path: p, Reason: err.Error()})
		}
		fileChangesTotal.WithLabelValues("failed").Add(float64(len(paths)))
		return fcs, nil
	}

	for _, p := range paths {
		log := clog.FromContext(ctx).With("path", p)
		content, written, err := st.applyFile(ctx, index, spec, p)
		switch {
		case IsAuthError(err):
			return fcs, fmt.Errorf("changing %s: %w", p, err)
		case err != nil:
			log.Warnf("Failed to change file: %v", err)
			fcs.Failed = append(fcs.Failed, changemanager.FailedFile{Path: p, Reason: failureReason(err)})
			fileChangesTotal.WithLabelValues("failed").Inc()
		case written:
			log.Info("Committed fix")
			fcs.Succeeded = append(fcs.Succeeded, changeagent.ChangedFile{Path: p, Content: content})
			fileChangesTotal.WithLabelValues("written").Inc()
		default:
			log.Info("Fix left the file unchanged")
			fcs.Succeeded = append(fcs.Succeeded, changeagent.ChangedFile{Path: p, Content: content})
			fileChangesTotal.WithLabelValues("unchanged").Inc()
		}
	}
	return fcs, nil
}

func failureReason(err error) string {
	if errors.Is(err, githubreconciler.ErrNotFound) {
		return "not found"
	}
	return err.Error()
}

// applyFile reads, fixes and writes one file. A write conflict re-reads the
// file and retries the write once, regenerating the fix if the content moved.
func (st *run) applyFile(ctx context.Context, index int, spec, path string) (string, bool, error) {
	file, err := st.readFile(ctx, path)
	if err != nil {
		return "", false, err
	}
	fixed, err := st.fix(ctx, spec, path, file.Content)
	if err != nil {
		return "", false, err
	}
	if fixed == file.Content {
		return fixed, false, nil
	}

	err = st.put(ctx, index, path, fixed, file.SHA)
	if !errors.Is(err, githubreconciler.ErrConflict) {
		if err != nil {
			return "", false, fmt.Errorf("writing file: %w", err)
		}
		return fixed, true, nil
	}

	clog.FromContext(ctx).With("path", path).Warn("Write conflicted, re-reading and retrying once")
	fresh, err := st.readFile(ctx, path)
	if err != nil {
		return "", false, fmt.Errorf("re-reading after conflict: %w", err)
	}
	if fresh.Content != file.Content {
		if fixed, err = st.fix(ctx, spec, path, fresh.Content); err != nil {
			return "", false, err
		}
		if fixed == fresh.Content {
			return fixed, false, nil
		}
	}
	if err := st.put(ctx, index, path, fixed, fresh.SHA); err != nil {
		if errors.Is(err, githubreconciler.ErrConflict) {
			return "", false, fmt.Errorf("write conflict after retry: %w", err)
		}
		return "", false, fmt.Errorf("writing file: %w", err)
	}
	return fixed, true, nil
}

// readFile reads path from the fix branch, falling back to the base branch
// when the branch does not have it. A file read from the base has no SHA on
// the branch, so the write creates it.
func (st *run) readFile(ctx context.Context, path string) (gateway.File, error) {
	gctx, cancel := bounded(ctx, st.r.timeouts.GitHub)
	defer cancel()

	f, err := st.r.deps.Gateway.GetFile(gctx, st.issue.Repo, path, st.session.BranchName())
	if !errors.Is(err, githubreconciler.ErrNotFound) {
		return f, err
	}
	f, err = st.r.deps.Gateway.GetFile(gctx, st.issue.Repo, path, st.base)
	if err != nil {
		return gateway.File{}, err
	}
	f.SHA = ""
	return f, nil
}

func (st *run) fix(ctx context.Context, spec, path, content string) (string, error) {
	mctx, cancel := bounded(ctx, st.r.timeouts.Model)
	defer cancel()

	out, err := st.r.deps.Agent.FixFile(mctx, spec, path, content)
	if err != nil {
		return "", err
	}
	fixed, ok := out.Get()
	if !ok || strings.TrimSpace(fixed) == "" {
		return "", errNoContent
	}
	return fixed, nil
}

func (st *run) put(ctx context.Context, index int, path, content, sha string) error {
	gctx, cancel := bounded(ctx, st.r.timeouts.GitHub)
	defer cancel()

	_, err := st.r.deps.Gateway.PutFile(gctx, st.issue.Repo, gateway.PutRequest{
		Path:        path,
		Content:     content,
		Branch:      st.session.BranchName(),
		Message:     changemanager.CommitMessage(path, st.issue.Number, index),
		ExpectedSHA: sha,
	})
	return err
}

// ensureBranch creates the fix branch from the base head the first time it
// is needed in a run.
func (st *run) ensureBranch(ctx context.Context) error {
	if st.branchReady {
		return nil
	}
	gctx, cancel := bounded(ctx, st.r.timeouts.GitHub)
	defer cancel()

	branch := st.session.BranchName()
	created, err := st.r.deps.Gateway.EnsureBranch(gctx, st.issue.Repo, branch, st.baseSHA)
	if err != nil {
		return fmt.Errorf("creating branch %s: %w", branch, err)
	}
	if created {
		clog.FromContext(ctx).With("branch", branch).Infof("Created branch from %s", st.baseSHA)
	} else {
		clog.FromContext(ctx).With("branch", branch).Info("Reusing existing branch")
	}
	st.branchReady = true
	return nil
}

// ensureProposal opens the pull request once. Failures other than rejected
// credentials are retried on the next call.
func (st *run) ensureProposal(ctx context.Context, spec string, fcs FileChangeSet) error {
	if _, ok := st.session.Proposal(); ok || len(fcs.Succeeded) == 0 {
		return nil
	}
	gctx, cancel := bounded(ctx, st.r.timeouts.GitHub)
	defer cancel()

	_, err := st.session.EnsureProposal(gctx, changemanager.Data{
		Issue:   st.issue,
		Spec:    spec,
		Changed: fcs.Paths(),
		Failed:  fcs.Failed,
	})
	switch {
	case IsAuthError(err):
		return err
	case err != nil:
		clog.FromContext(ctx).Warnf("Failed to open pull request: %v", err)
	}
	return nil
}

func (st *run) review(ctx context.Context, spec string, fcs FileChangeSet, after ci.Summary) (changeagent.Verdict, error) {
	mctx, cancel := bounded(ctx, st.r.timeouts.Model)
	defer cancel()

	out, err := st.r.deps.Agent.Review(mctx, changeagent.ReviewRequest{
		Issue:   st.issue,
		Spec:    spec,
		Changed: fcs.Succeeded,
		Before:  st.before,
		After:   after,
	})
	switch {
	case IsAuthError(err):
		return changeagent.Verdict{}, fmt.Errorf("reviewing: %w", err)
	case err != nil:
		clog.FromContext(ctx).Warnf("Review failed, rejecting: %v", err)
		return changeagent.Verdict{Reason: fmt.Sprintf("review failed: %v", err)}, nil
	}
	v, ok := out.Get()
	if !ok {
		return changeagent.Verdict{Reason: "review returned no verdict"}, nil
	}
	return v, nil
}

// refine returns the next specification version. A failed or empty
// refinement keeps the current version.
func (st *run) refine(ctx context.Context, spec SpecVersion, verdict changeagent.Verdict) (SpecVersion, error) {
	mctx, cancel := bounded(ctx, st.r.timeouts.Model)
	defer cancel()

	text, err := st.r.deps.Agent.RefineSpec(mctx, spec.Text, st.issue, verdict)
	switch {
	case IsAuthError(err):
		return spec, fmt.Errorf("refining specification: %w", err)
	case err != nil:
		clog.FromContext(ctx).Warnf("Refinement failed, keeping the current specification: %v", err)
		return spec, nil
	}
	if text = strings.TrimSpace(text); text == "" {
		clog.FromContext(ctx).Warn("Refinement was empty, keeping the current specification")
		return spec, nil
	}
	return SpecVersion{Version: spec.Version + 1, Text: text}, nil
}

// comment posts the summary of a finished run on the pull request, if any.
func (st *run) comment(ctx context.Context, res *Result, accepted bool) {
	if _, ok := st.session.Proposal(); !ok {
		return
	}
	reason := res.Reason
	if res.LastReview != nil && res.LastReview.Reason != "" {
		reason = res.LastReview.Reason
	}
	body := changemanager.SummaryComment(changemanager.Outcome{
		Accepted: accepted,
		Reason:   reason,
		Rows:     rows(res.Records),
	})

	gctx, cancel := bounded(ctx, st.r.timeouts.GitHub)
	defer cancel()
	if err := st.session.Comment(gctx, body); err != nil {
		clog.FromContext(ctx).Warnf("Failed to post summary comment: %v", err)
	}
}

func rows(records []IterationRecord) []changemanager.Row {
	out := make([]changemanager.Row, 0, len(records))
	for _, rec := range records {
		row := changemanager.Row{
			Iteration:   rec.Index,
			SpecVersion: rec.SpecVersion,
			Changed:     len(rec.Changes.Succeeded),
			Failed:      len(rec.Changes.Failed),
			Regression:  rec.Comparison.IsRegression,
			Decision:    string(rec.Decision),
		}
		if rec.After != nil {
			row.After = *rec.After
		}
		out = append(out, row)
	}
	return out
}
