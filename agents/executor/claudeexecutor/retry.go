/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package claudeexecutor

import (
	"errors"

	"chainguard.dev/issuefix/agents/executor/retry"
	"github.com/anthropics/anthropic-sdk-go"
)

// isRetryableClaudeError checks if an error is a retryable Claude API error.
// Returns true for rate limit, overloaded, and transient server errors.
func isRetryableClaudeError(err error) bool {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return retry.RetryableStatus(apiErr.StatusCode)
	}
	return false
}

// isAuthError reports whether Claude rejected the credentials.
func isAuthError(err error) bool {
	var apiErr *anthropic.Error
	return errors.As(err, &apiErr) && retry.AuthStatus(apiErr.StatusCode)
}
