/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package sandbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"chainguard.dev/issuefix/ci"
	"chainguard.dev/issuefix/reconcilers/githubreconciler"
	"github.com/chainguard-dev/clog"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"golang.org/x/oauth2"
)

const workspacePrefix = "issuefix-sandbox-"

// repoURL resolves the remote git URL for a repository. Tests override it to
// clone from local filesystem paths.
var repoURL = defaultRemoteURL

func defaultRemoteURL(repo githubreconciler.Repo) string {
	return repo.URL()
}

// Runner executes CI commands in ephemeral clones.
type Runner struct {
	tokenSource   oauth2.TokenSource
	root          string
	depth         int
	outputLimit   int
	cloneTimeout  time.Duration
	checkTimeouts map[ci.Check]time.Duration
	env           []string
}

// Option configures a Runner.
type Option func(*Runner) error

// WithTokenSource authenticates clones with the token source. Without one,
// clones are anonymous.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(r *Runner) error {
		if ts == nil {
			return errors.New("token source cannot be nil")
		}
		r.tokenSource = ts
		return nil
	}
}

// WithWorkspaceRoot creates workspaces under dir instead of the system
// temporary directory.
func WithWorkspaceRoot(dir string) Option {
	return func(r *Runner) error {
		r.root = dir
		return nil
	}
}

// WithDepth sets the clone depth. Zero clones the full history.
func WithDepth(depth int) Option {
	return func(r *Runner) error {
		if depth < 0 {
			return fmt.Errorf("depth must be non-negative, got %d", depth)
		}
		r.depth = depth
		return nil
	}
}

// WithOutputLimit bounds the bytes of stdout and stderr kept per check.
func WithOutputLimit(n int) Option {
	return func(r *Runner) error {
		if n <= 0 {
			return fmt.Errorf("output limit must be positive, got %d", n)
		}
		r.outputLimit = n
		return nil
	}
}

// WithCloneTimeout bounds the clone.
func WithCloneTimeout(d time.Duration) Option {
	return func(r *Runner) error {
		if d <= 0 {
			return fmt.Errorf("clone timeout must be positive, got %v", d)
		}
		r.cloneTimeout = d
		return nil
	}
}

// WithCheckTimeout bounds one check.
func WithCheckTimeout(check ci.Check, d time.Duration) Option {
	return func(r *Runner) error {
		if d <= 0 {
			return fmt.Errorf("%s timeout must be positive, got %v", check, d)
		}
		r.checkTimeouts[check] = d
		return nil
	}
}

// WithEnv appends KEY=VALUE pairs to the environment of every command.
func WithEnv(kv ...string) Option {
	return func(r *Runner) error {
		for _, e := range kv {
			if !strings.Contains(e, "=") {
				return fmt.Errorf("invalid environment entry %q", e)
			}
		}
		r.env = append(r.env, kv...)
		return nil
	}
}

// New creates a Runner. By default clones have depth 1, checks get 5 minutes
// (tests 10) and 64KiB of output per stream is kept.
func New(opts ...Option) (*Runner, error) {
	r := &Runner{
		depth:        1,
		outputLimit:  64 << 10,
		cloneTimeout: 5 * time.Minute,
		checkTimeouts: map[ci.Check]time.Duration{
			ci.CheckSyntax:  5 * time.Minute,
			ci.CheckTest:    10 * time.Minute,
			ci.CheckQuality: 5 * time.Minute,
		},
		env: []string{"CI=true"},
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}
	return r, nil
}

// Run clones branch of repo and executes the configured commands. A nil entry
// in the returned Results means the check was not configured. An error is
// returned only when no command could run.
func (r *Runner) Run(ctx context.Context, repo githubreconciler.Repo, branch string, cmds ci.Commands) (ci.Results, error) {
	if branch == "" {
		return ci.Results{}, errors.New("branch cannot be empty")
	}
	log := clog.FromContext(ctx).With("branch", branch)

	dir, err := os.MkdirTemp(r.root, workspacePrefix)
	if err != nil {
		return ci.Results{}, fmt.Errorf("creating workspace: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			log.Warnf("Failed to remove workspace %s: %v", dir, err)
		}
	}()

	if err := r.clone(ctx, repo, branch, dir); err != nil {
		return ci.Results{}, err
	}

	workdir, err := resolveWorkingDir(dir, cmds.WorkingDir)
	if err != nil {
		return ci.Results{}, err
	}

	var res ci.Results
	for _, check := range []ci.Check{ci.CheckSyntax, ci.CheckTest, ci.CheckQuality} {
		command := strings.TrimSpace(cmds.For(check))
		if command == "" {
			continue
		}
		cr := r.exec(ctx, check, command, workdir)
		log.With("check", check).With("exit_code", cr.ExitCode).Infof("Ran %s check: %s", check, cr.Status())
		switch check {
		case ci.CheckSyntax:
			res.Syntax = cr
		case ci.CheckTest:
			res.Test = cr
		case ci.CheckQuality:
			res.Quality = cr
		}
	}
	return res, nil
}

func (r *Runner) clone(ctx context.Context, repo githubreconciler.Repo, branch, dir string) error {
	auth, err := r.auth()
	if err != nil {
		return fmt.Errorf("%w: getting token: %w", githubreconciler.ErrAuth, err)
	}

	cctx, cancel := context.WithTimeout(ctx, r.cloneTimeout)
	defer cancel()

	remote := repoURL(repo)
	clog.FromContext(ctx).Infof("Cloning %s@%s into %s", remote, branch, dir)
	opts := &git.CloneOptions{
		URL:           remote,
		ReferenceName: plumbing.NewBranchReferenceName(branch),
		SingleBranch:  true,
		Depth:         r.depth,
		Tags:          git.NoTags,
	}
	if auth != nil {
		opts.Auth = auth
	}
	if _, err := git.PlainCloneContext(cctx, dir, false, opts); err != nil {
		if errors.Is(err, transport.ErrAuthenticationRequired) || errors.Is(err, transport.ErrAuthorizationFailed) {
			return fmt.Errorf("%w: cloning repository: %w", githubreconciler.ErrAuth, err)
		}
		return fmt.Errorf("cloning repository: %w", err)
	}
	return nil
}

func (r *Runner) auth() (*githttp.BasicAuth, error) {
	if r.tokenSource == nil {
		return nil, nil
	}
	token, err := r.tokenSource.Token()
	if err != nil {
		return nil, err
	}
	return &githttp.BasicAuth{
		Username: "unused-when-using-access-tokens",
		Password: token.AccessToken,
	}, nil
}

func resolveWorkingDir(root, rel string) (string, error) {
	if rel == "" || rel == "." {
		return root, nil
	}
	full := filepath.Join(root, filepath.Clean(rel))
	r, err := filepath.Rel(root, full)
	if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("working directory %q escapes the workspace", rel)
	}
	info, err := os.Stat(full)
	if err != nil {
		return "", fmt.Errorf("working directory %q: %w", rel, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("working directory %q is not a directory", rel)
	}
	return full, nil
}

func (r *Runner) exec(ctx context.Context, check ci.Check, command, dir string) *ci.CheckResult {
	cctx, cancel := context.WithTimeout(ctx, r.checkTimeouts[check])
	defer cancel()

	stdout := &tailBuffer{limit: r.outputLimit}
	stderr := &tailBuffer{limit: r.outputLimit}

	cmd := exec.CommandContext(cctx, "sh", "-c", command)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), r.env...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	// Children that keep the pipes open must not block Wait past the deadline.
	cmd.WaitDelay = 5 * time.Second

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	res := &ci.CheckResult{
		Command: command,
		Stdout:  stdout.String(),
		Stderr:  stderr.String(),
	}
	var exitErr *exec.ExitError
	switch {
	case errors.Is(cctx.Err(), context.DeadlineExceeded):
		clog.FromContext(ctx).With("check", check).Warnf("Check timed out after %v", elapsed.Round(time.Millisecond))
		res.ExitCode = ci.TimeoutExitCode
		res.TimedOut = true
	case err == nil:
		res.ExitCode = 0
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
		if res.ExitCode == ci.TimeoutExitCode {
			// Killed by a signal without our deadline firing.
			res.ExitCode = 128
		}
	default:
		// The shell itself could not start.
		res.ExitCode = 127
		if res.Stderr == "" {
			res.Stderr = err.Error()
		}
	}
	return res
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	limit     int
	buf       []byte
	truncated bool
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.limit; over > 0 {
		b.buf = append(b.buf[:0], b.buf[over:]...)
		b.truncated = true
	}
	return len(p), nil
}

// String returns the kept output. A truncated tail starts on a rune boundary.
func (b *tailBuffer) String() string {
	if b.truncated {
		buf := b.buf
		for len(buf) > 0 && !utf8.RuneStart(buf[0]) {
			buf = buf[1:]
		}
		return "[output truncated]\n" + string(buf)
	}
	return string(b.buf)
}
