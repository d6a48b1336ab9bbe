/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package googleexecutor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"chainguard.dev/issuefix/agents/changeagent"
	"chainguard.dev/issuefix/agents/executor/retry"
	"chainguard.dev/issuefix/agents/metrics"
	"github.com/chainguard-dev/clog"
	"google.golang.org/genai"
)

// executor is the private implementation of changeagent.Completer
type executor struct {
	client          *genai.Client
	model           string
	temperature     float32
	maxOutputTokens int32
	resourceLabels  map[string]string
	genaiMetrics    *metrics.GenAI    // OpenTelemetry metrics for token usage and call latency
	retryConfig     retry.RetryConfig // retry configuration for transient Vertex AI errors
}

var _ changeagent.Completer = (*executor)(nil)

// New creates a new Gemini completer with the given configuration
func New(client *genai.Client, options ...Option) (changeagent.Completer, error) {
	if client == nil {
		return nil, errors.New("client is required")
	}

	exec := &executor{
		client:          client,
		model:           "gemini-2.5-flash", // Default to Gemini 2.5 Flash
		temperature:     0,
		maxOutputTokens: 8192,
		genaiMetrics:    metrics.NewGenAI("chainguard.ai.agents"),
		retryConfig:     retry.DefaultRetryConfig(),
	}

	for _, opt := range options {
		if err := opt(exec); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	return exec, nil
}

// Complete implements changeagent.Completer.
func (e *executor) Complete(ctx context.Context, system, user string) (text string, err error) {
	operation := metrics.Operation(ctx)
	log := clog.FromContext(ctx).With("model", e.model).With("operation", operation)

	start := time.Now()
	defer func() {
		e.genaiMetrics.RecordCall(ctx, e.model, operation, time.Since(start), err)
	}()

	config := &genai.GenerateContentConfig{
		Temperature:     ptr(e.temperature),
		MaxOutputTokens: e.maxOutputTokens,
	}
	if system != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{
				Text: system,
			}},
		}
	}
	if len(e.resourceLabels) > 0 {
		config.Labels = e.resourceLabels
	}

	log.With("prompt_length", len(user)).Info("Sending Gemini request")

	response, err := retry.RetryWithBackoff(ctx, e.retryConfig, operation, isRetryableVertexError, func() (*genai.GenerateContentResponse, error) {
		return e.client.Models.GenerateContent(ctx, e.model, genai.Text(user), config)
	})
	if err != nil {
		if isAuthError(err) {
			return "", fmt.Errorf("%w: %w", changeagent.ErrAuth, err)
		}
		return "", fmt.Errorf("failed to generate content with model %q: %w", e.model, err)
	}

	if response.UsageMetadata != nil {
		e.genaiMetrics.RecordTokens(ctx, e.model, int64(response.UsageMetadata.PromptTokenCount), int64(response.UsageMetadata.CandidatesTokenCount))
	}

	if len(response.Candidates) == 0 {
		return "", errors.New("no content generated - no candidates")
	}
	candidate := response.Candidates[0]
	if candidate.Content == nil {
		return "", errors.New("no content generated - candidate content is nil")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if part.Text != "" && !part.Thought {
			parts = append(parts, part.Text)
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("no text content found in response (finish reason %s)", candidate.FinishReason)
	}
	return strings.Join(parts, ""), nil
}

// ptr is a helper function to create a pointer to a value
func ptr[T any](v T) *T {
	return &v
}
