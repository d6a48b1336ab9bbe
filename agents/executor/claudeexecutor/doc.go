/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package claudeexecutor completes prompts with Anthropic Claude models,
// either through the Anthropic API or through Vertex AI.
//
// # Basic Usage
//
//	client := anthropic.NewClient(
//	    vertex.WithGoogleAuth(ctx, region, projectID),
//	)
//
//	exec, err := claudeexecutor.New(client,
//	    claudeexecutor.WithModel("claude-sonnet-4@20250514"),
//	    claudeexecutor.WithMaxTokens(8192),
//	)
//	if err != nil {
//	    return err
//	}
//
//	text, err := exec.Complete(ctx, system, user)
//
// The executor retries rate limiting, overloaded and transient server errors
// with backoff (see WithRetryConfig). Rejected credentials are reported as
// changeagent.ErrAuth so callers can stop immediately.
//
// Token usage and call latency are recorded through the agents/metrics
// package, labeled with the operation carried in the context.
package claudeexecutor
