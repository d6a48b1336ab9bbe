/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package claudeexecutor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"chainguard.dev/issuefix/agents/changeagent"
	"chainguard.dev/issuefix/agents/executor/retry"
	"chainguard.dev/issuefix/agents/metrics"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/chainguard-dev/clog"
)

// executor provides the private implementation
type executor struct {
	client       anthropic.Client
	modelName    string
	maxTokens    int64
	temperature  float64
	genaiMetrics *metrics.GenAI    // OpenTelemetry metrics for token usage and call latency
	retryConfig  retry.RetryConfig // retry configuration for transient Claude API errors
}

var _ changeagent.Completer = (*executor)(nil)

// New creates a new Claude completer with minimal required configuration
func New(client anthropic.Client, opts ...Option) (changeagent.Completer, error) {
	e := &executor{
		client:       client,
		modelName:    "claude-sonnet-4@20250514", // Default to Sonnet 4
		maxTokens:    8192,
		temperature:  0,
		genaiMetrics: metrics.NewGenAI("chainguard.ai.agents"),
		retryConfig:  retry.DefaultRetryConfig(),
	}

	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	return e, nil
}

// Complete implements changeagent.Completer.
func (e *executor) Complete(ctx context.Context, system, user string) (text string, err error) {
	operation := metrics.Operation(ctx)
	log := clog.FromContext(ctx).With("model", e.modelName).With("operation", operation)

	start := time.Now()
	defer func() {
		e.genaiMetrics.RecordCall(ctx, e.modelName, operation, time.Since(start), err)
	}()

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(e.modelName),
		MaxTokens:   e.maxTokens,
		Temperature: anthropic.Float(e.temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	log.With("prompt_length", len(user)).Info("Sending Claude request")

	message, err := retry.RetryWithBackoff(ctx, e.retryConfig, operation, isRetryableClaudeError, func() (*anthropic.Message, error) {
		return e.client.Messages.New(ctx, params)
	})
	if err != nil {
		if isAuthError(err) {
			return "", fmt.Errorf("%w: %w", changeagent.ErrAuth, err)
		}
		return "", fmt.Errorf("failed to get Claude response: %w", err)
	}

	if message.Usage.InputTokens > 0 || message.Usage.OutputTokens > 0 {
		e.genaiMetrics.RecordTokens(ctx, e.modelName, message.Usage.InputTokens, message.Usage.OutputTokens)
	}

	var parts []string
	for _, content := range message.Content {
		if content.Type == "text" {
			parts = append(parts, content.Text)
		}
	}
	if len(parts) == 0 {
		return "", errors.New("no text content in Claude's response")
	}
	return strings.Join(parts, ""), nil
}
