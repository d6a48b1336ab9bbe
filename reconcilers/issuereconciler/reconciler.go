/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package issuereconciler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chainguard.dev/issuefix/agents/changeagent"
	"chainguard.dev/issuefix/ci"
	"chainguard.dev/issuefix/ci/resolver"
	"chainguard.dev/issuefix/reconcilers/githubreconciler"
	"chainguard.dev/issuefix/reconcilers/githubreconciler/changemanager"
	"chainguard.dev/issuefix/reconcilers/githubreconciler/gateway"
	"github.com/chainguard-dev/clog"
)

const (
	// DefaultMaxIterations is used when a request does not set a budget.
	DefaultMaxIterations = 3
	// MaxIterationsCap bounds any requested budget.
	MaxIterationsCap = 10

	structureDepth = 2
	structureItems = 500
)

// Deps are the collaborators of a Reconciler.
type Deps struct {
	Agent   changeagent.Interface
	Gateway gateway.Interface
	Sandbox Sandbox
	Changes *changemanager.CM

	// Resolver defaults to one backed by Agent.
	Resolver CommandResolver
	// Audit receives every finished run. Optional.
	Audit AuditSink
}

// Timeouts bound each external call. Zero fields keep their defaults.
type Timeouts struct {
	Model  time.Duration
	GitHub time.Duration
	CI     time.Duration
}

// Option configures a Reconciler.
type Option func(*Reconciler) error

// WithTimeouts overrides the per-call timeouts.
func WithTimeouts(t Timeouts) Option {
	return func(r *Reconciler) error {
		if t.Model < 0 || t.GitHub < 0 || t.CI < 0 {
			return errors.New("timeouts must be non-negative")
		}
		if t.Model > 0 {
			r.timeouts.Model = t.Model
		}
		if t.GitHub > 0 {
			r.timeouts.GitHub = t.GitHub
		}
		if t.CI > 0 {
			r.timeouts.CI = t.CI
		}
		return nil
	}
}

// WithDefaultMaxIterations sets the budget used when a request leaves it unset.
func WithDefaultMaxIterations(n int) Option {
	return func(r *Reconciler) error {
		if n <= 0 {
			return fmt.Errorf("default max iterations must be positive, got %d", n)
		}
		r.defaultMax = min(n, MaxIterationsCap)
		return nil
	}
}

// Reconciler runs the fix loop for issues.
type Reconciler struct {
	deps       Deps
	timeouts   Timeouts
	defaultMax int
	now        func() time.Time
}

// New validates deps and creates a Reconciler.
func New(deps Deps, opts ...Option) (*Reconciler, error) {
	switch {
	case deps.Agent == nil:
		return nil, errors.New("agent cannot be nil")
	case deps.Gateway == nil:
		return nil, errors.New("gateway cannot be nil")
	case deps.Sandbox == nil:
		return nil, errors.New("sandbox cannot be nil")
	case deps.Changes == nil:
		return nil, errors.New("change manager cannot be nil")
	}
	if deps.Resolver == nil {
		deps.Resolver = resolver.New(deps.Agent, resolver.WithFatalErrors(IsAuthError))
	}

	r := &Reconciler{
		deps: deps,
		timeouts: Timeouts{
			Model:  5 * time.Minute,
			GitHub: time.Minute,
			CI:     30 * time.Minute,
		},
		defaultMax: DefaultMaxIterations,
		now:        time.Now,
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}
	return r, nil
}

// IsAuthError reports whether err means credentials were rejected by GitHub
// or by the model endpoint. Such errors abort a run.
func IsAuthError(err error) bool {
	return errors.Is(err, githubreconciler.ErrAuth) || errors.Is(err, changeagent.ErrAuth)
}

// NormalizeIterations applies the default and the cap to a requested budget.
func NormalizeIterations(n, def int) int {
	if n <= 0 {
		n = def
	}
	return min(n, MaxIterationsCap)
}

// bounded derives a context for one external call. It keeps the values of
// ctx but not its cancellation; only the timeout ends the call.
func bounded(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), d)
}

// Structure lists the repository at ref and collects its manifests.
func (r *Reconciler) Structure(ctx context.Context, repo githubreconciler.Repo, ref string) (ci.Structure, error) {
	tctx, cancel := bounded(ctx, r.timeouts.GitHub)
	entries, truncated, err := r.deps.Gateway.Tree(tctx, repo, ref, structureDepth, structureItems)
	cancel()
	if err != nil {
		return ci.Structure{}, fmt.Errorf("listing repository: %w", err)
	}

	read := gateway.Reader(r.deps.Gateway, repo, ref)
	return resolver.Collect(ctx, entries, truncated, func(ctx context.Context, p string) (string, error) {
		rctx, cancel := bounded(ctx, r.timeouts.GitHub)
		defer cancel()
		return read(rctx, p)
	}), nil
}

// ResolveCommands chooses the CI commands for the repository at ref.
func (r *Reconciler) ResolveCommands(ctx context.Context, repo githubreconciler.Repo, ref string) (resolver.Resolution, error) {
	s, err := r.Structure(ctx, repo, ref)
	if err != nil {
		return resolver.Resolution{}, err
	}
	return r.resolve(ctx, s)
}

func (r *Reconciler) resolve(ctx context.Context, s ci.Structure) (resolver.Resolution, error) {
	mctx, cancel := bounded(ctx, r.timeouts.Model)
	defer cancel()
	return r.deps.Resolver.Resolve(mctx, s)
}

// Analyze generates the technical specification for an issue without
// touching the repository.
func (r *Reconciler) Analyze(ctx context.Context, issue githubreconciler.Issue) (string, error) {
	mctx, cancel := bounded(ctx, r.timeouts.Model)
	defer cancel()
	spec, err := r.deps.Agent.GenerateSpec(mctx, issue)
	if err != nil {
		return "", fmt.Errorf("generating specification: %w", err)
	}
	return spec, nil
}

// runCI executes the commands against branch. Sandbox failures other than
// rejected credentials produce an all-unknown summary.
func (r *Reconciler) runCI(ctx context.Context, repo githubreconciler.Repo, branch string, cmds ci.Commands) (ci.Summary, error) {
	cctx, cancel := bounded(ctx, r.timeouts.CI)
	defer cancel()

	results, err := r.deps.Sandbox.Run(cctx, repo, branch, cmds)
	switch {
	case IsAuthError(err):
		return ci.Summary{}, fmt.Errorf("running CI on %s: %w", branch, err)
	case err != nil:
		clog.FromContext(ctx).With("branch", branch).Warnf("CI run failed, treating all checks as unknown: %v", err)
		return ci.Summary{}, nil
	}
	return ci.Summarize(results), nil
}

func (r *Reconciler) audit(ctx context.Context, res Result) {
	if r.deps.Audit == nil {
		return
	}
	actx, cancel := bounded(ctx, r.timeouts.GitHub)
	defer cancel()
	if err := r.deps.Audit.Write(actx, res.RunID, res); err != nil {
		clog.FromContext(ctx).With("run_id", res.RunID).Warnf("Failed to write audit record: %v", err)
	}
}

func runID(issue githubreconciler.Issue, start time.Time) string {
	return fmt.Sprintf("%s-%s-%d-%s", issue.Repo.Owner, issue.Repo.Name, issue.Number, start.UTC().Format("20060102T150405Z"))
}
