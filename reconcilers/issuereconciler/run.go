/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package issuereconciler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"chainguard.dev/issuefix/agents/agenttrace"
	"chainguard.dev/issuefix/agents/changeagent"
	"chainguard.dev/issuefix/ci"
	"chainguard.dev/issuefix/ci/compare"
	"chainguard.dev/issuefix/reconcilers/githubreconciler"
	"chainguard.dev/issuefix/reconcilers/githubreconciler/changemanager"
	"github.com/chainguard-dev/clog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Run drives one issue to a terminal result. The returned Result is always
// populated; a non-nil error means the run was aborted because credentials
// were rejected.
func (r *Reconciler) Run(ctx context.Context, req Request) (res Result, err error) {
	issue := req.Issue
	maxIter := NormalizeIterations(req.MaxIterations, r.defaultMax)
	start := r.now()

	ctx, span := tracer().Start(ctx, "issuefix.run", oteltrace.WithAttributes(
		attribute.String("repository", issue.Repo.String()),
		attribute.Int("issue", issue.Number),
		attribute.Int("max_iterations", maxIter),
	))
	ctx = clog.WithLogger(ctx, clog.FromContext(ctx).With("issue", issue.Number).With("repository", issue.Repo.String()))
	ctx = agenttrace.WithExecutionContext(ctx, agenttrace.ExecutionContext{
		Repository: issue.Repo.String(),
		Issue:      issue.Number,
	})

	res = Result{
		RunID:  runID(issue, start),
		Issue:  issue,
		Status: StatusFailed,
	}
	defer func() {
		res.Iterations = len(res.Records)
		if err != nil {
			res.Status = StatusFailed
			res.Reason = fmt.Sprintf("aborted: %v", err)
			span.RecordError(err)
		}
		if res.Status == StatusAccepted {
			span.SetStatus(codes.Ok, "")
		} else {
			span.SetStatus(codes.Error, res.Reason)
		}
		span.SetAttributes(
			attribute.String("status", string(res.Status)),
			attribute.Int("iterations", res.Iterations),
		)
		span.End()

		runsTotal.WithLabelValues(string(res.Status)).Inc()
		runDuration.WithLabelValues(string(res.Status)).Observe(time.Since(start).Seconds())
		clog.FromContext(ctx).With("status", res.Status).With("iterations", res.Iterations).Infof("Run finished: %s", res.Reason)
		r.audit(ctx, res)
	}()

	st, err := r.begin(ctx, req, &res)
	if err != nil || st == nil {
		return res, err
	}
	return res, st.loop(ctx, maxIter, &res)
}

// run is the mutable state of one Run.
type run struct {
	r         *Reconciler
	issue     githubreconciler.Issue
	base      string
	baseSHA   string
	structure ci.Structure
	commands  ci.Commands
	before    ci.Summary
	session   *changemanager.Session

	branchReady bool
}

// failed records a non-fatal terminal failure, or returns err when it must
// abort the run.
func failed(res *Result, what string, err error) error {
	if IsAuthError(err) {
		return fmt.Errorf("%s: %w", what, err)
	}
	res.Status = StatusFailed
	res.Reason = fmt.Sprintf("%s: %v", what, err)
	return nil
}

// begin performs the one-time setup: specification, repository structure,
// CI commands and the CI baseline on the base branch. A nil run with a nil
// error means the run already failed.
func (r *Reconciler) begin(ctx context.Context, req Request, res *Result) (*run, error) {
	log := clog.FromContext(ctx)
	issue := req.Issue

	gctx, cancel := bounded(ctx, r.timeouts.GitHub)
	base, err := r.deps.Gateway.DefaultBranch(gctx, issue.Repo)
	cancel()
	if err != nil {
		return nil, failed(res, "resolving default branch", err)
	}

	spec := strings.TrimSpace(req.Spec)
	if spec == "" {
		log.Info("Generating technical specification")
		generated, err := r.Analyze(ctx, issue)
		if err != nil {
			return nil, failed(res, "generating specification", err)
		}
		if spec = strings.TrimSpace(generated); spec == "" {
			res.Reason = "generating specification: empty response"
			return nil, nil
		}
	}
	res.Specs = []SpecVersion{{Version: 1, Text: spec}}

	structure, err := r.Structure(ctx, issue.Repo, base)
	if err != nil {
		return nil, failed(res, "reading repository structure", err)
	}

	if req.Commands != nil {
		res.Commands = *req.Commands
	} else {
		resolution, err := r.resolve(ctx, structure)
		if err != nil {
			return nil, failed(res, "resolving CI commands", err)
		}
		log.With("source", resolution.Source).Info("Resolved CI commands")
		res.Commands = resolution.Commands
	}

	gctx, cancel = bounded(ctx, r.timeouts.GitHub)
	baseSHA, err := r.deps.Gateway.BranchHead(gctx, issue.Repo, base)
	cancel()
	if err != nil {
		return nil, failed(res, "resolving base branch head", err)
	}

	log.With("branch", base).Info("Running CI on the base branch")
	before, err := r.runCI(ctx, issue.Repo, base, res.Commands)
	if err != nil {
		return nil, err
	}
	res.Before = before

	return &run{
		r:         r,
		issue:     issue,
		base:      base,
		baseSHA:   baseSHA,
		structure: structure,
		commands:  res.Commands,
		before:    before,
		session:   r.deps.Changes.NewSession(r.deps.Gateway, issue, base),
	}, nil
}

func currentSpec(res *Result) SpecVersion {
	return res.Specs[len(res.Specs)-1]
}

func (st *run) loop(ctx context.Context, maxIter int, res *Result) error {
	log := clog.FromContext(ctx)
	defer func() {
		if p, ok := st.session.Proposal(); ok {
			res.Proposal = &p
		}
	}()

	for i := 1; i <= maxIter; i++ {
		if err := ctx.Err(); err != nil {
			res.Reason = fmt.Sprintf("cancelled before iteration %d: %v", i, err)
			return nil
		}

		spec := currentSpec(res)
		rec, err := st.iterate(ctx, i, spec, i == maxIter)
		res.Records = append(res.Records, rec)
		if err != nil {
			return err
		}
		iterationsTotal.WithLabelValues(string(rec.Decision)).Inc()
		verdict := rec.Verdict
		res.LastReview = &verdict

		switch rec.Decision {
		case DecisionAccept:
			if err := st.ensureProposal(ctx, spec.Text, rec.Changes); err != nil {
				return err
			}
			if _, ok := st.session.Proposal(); !ok {
				res.Reason = "change was approved but the pull request could not be opened"
				st.comment(ctx, res, false)
				return nil
			}
			res.Status = StatusAccepted
			res.Reason = ""
			st.comment(ctx, res, true)
			return nil

		case DecisionFail:
			if i == 1 && len(rec.Selected) == 0 {
				res.Reason = verdict.Reason
			} else {
				res.Reason = fmt.Sprintf("not accepted after %d iteration(s): %s", i, verdict.Reason)
			}
			st.comment(ctx, res, false)
			return nil

		case DecisionRefine:
			next, err := st.refine(ctx, spec, verdict)
			if err != nil {
				return err
			}
			if next.Version != spec.Version {
				res.Specs = append(res.Specs, next)
			}
			log.With("iteration", i).With("spec_version", next.Version).Info("Refined specification")
		}
	}
	return nil
}

// iterate performs one select, apply, verify and review pass.
func (st *run) iterate(ctx context.Context, index int, spec SpecVersion, final bool) (rec IterationRecord, err error) {
	ctx, span := tracer().Start(ctx, "issuefix.iteration", oteltrace.WithAttributes(
		attribute.Int("iteration", index),
		attribute.Int("spec_version", spec.Version),
	))
	log := clog.FromContext(ctx).With("iteration", index)
	ctx = clog.WithLogger(ctx, log)
	ec := agenttrace.GetExecutionContext(ctx)
	ec.Iteration = index
	ctx = agenttrace.WithExecutionContext(ctx, ec)

	rec = IterationRecord{Index: index, SpecVersion: spec.Version}
	defer func() {
		if err != nil {
			rec.Decision = DecisionFail
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.SetAttributes(attribute.String("decision", string(rec.Decision)))
		span.End()
	}()
	next := DecisionRefine
	if final {
		next = DecisionFail
	}

	log.Info("Selecting files")
	rec.Selected, err = st.selectFiles(ctx, spec.Text)
	if err != nil {
		return rec, err
	}
	if len(rec.Selected) == 0 {
		rec.Verdict = changeagent.Verdict{
			Reason:          "no files were selected for the specification",
			Issues:          []string{"The specification does not identify which files to change."},
			Recommendations: []string{"Name the files and functions that must change."},
		}
		if index == 1 {
			rec.Decision = DecisionFail
		} else {
			rec.Decision = next
		}
		return rec, nil
	}

	log.With("files", len(rec.Selected)).Info("Applying fixes")
	rec.Changes, err = st.applyFixes(ctx, index, spec.Text, rec.Selected)
	if err != nil {
		return rec, err
	}
	if len(rec.Changes.Succeeded) == 0 {
		rec.Verdict = changeagent.Verdict{
			Reason: "none of the selected files could be changed",
			Issues: failureIssues(rec.Changes.Failed),
		}
		rec.Decision = next
		return rec, nil
	}

	if err := st.ensureProposal(ctx, spec.Text, rec.Changes); err != nil {
		return rec, err
	}

	log.Info("Running CI on the fix branch")
	after, err := st.r.runCI(ctx, st.issue.Repo, st.session.BranchName(), st.commands)
	if err != nil {
		return rec, err
	}
	rec.After = &after
	rec.Comparison = compare.Compare(st.before, after)

	if rec.Comparison.IsRegression {
		regressionsTotal.Inc()
		log.With("issues", len(rec.Comparison.Issues)).Warn("CI regressed, rejecting without review")
		rec.Verdict = changeagent.Verdict{
			Reason:          "CI regression: " + strings.Join(rec.Comparison.Issues, "; "),
			Issues:          rec.Comparison.Issues,
			Recommendations: rec.Comparison.Recommendations,
		}
		rec.Decision = next
		return rec, nil
	}

	log.Info("Requesting review")
	rec.Verdict, err = st.review(ctx, spec.Text, rec.Changes, after)
	if err != nil {
		return rec, err
	}
	rec.Reviewed = true

	if rec.Verdict.Approved {
		rec.Decision = DecisionAccept
	} else {
		rec.Decision = next
	}
	log.With("approved", rec.Verdict.Approved).With("decision", rec.Decision).Info("Review complete")
	return rec, nil
}

func failureIssues(failed []changemanager.FailedFile) []string {
	out := make([]string, 0, len(failed))
	for _, f := range failed {
		out = append(out, fmt.Sprintf("%s: %s", f.Path, f.Reason))
	}
	return out
}
