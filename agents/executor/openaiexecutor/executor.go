/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package openaiexecutor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chainguard.dev/issuefix/agents/changeagent"
	"chainguard.dev/issuefix/agents/executor/retry"
	"chainguard.dev/issuefix/agents/metrics"
	"github.com/chainguard-dev/clog"
	"github.com/openai/openai-go"
)

const (
	// DeepSeekBaseURL is the OpenAI-compatible endpoint of DeepSeek.
	DeepSeekBaseURL = "https://api.deepseek.com"
	// OpenRouterBaseURL is the OpenAI-compatible endpoint of OpenRouter.
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"
)

type executor struct {
	client       openai.Client
	model        string
	temperature  float64
	maxTokens    int64
	genaiMetrics *metrics.GenAI
	retryConfig  retry.RetryConfig
}

var _ changeagent.Completer = (*executor)(nil)

// New creates a completer for an OpenAI-compatible chat completion API.
func New(client openai.Client, opts ...Option) (changeagent.Completer, error) {
	e := &executor{
		client:       client,
		model:        "gpt-4o-mini",
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

func isRetryable(err error) bool {
	var apiErr *openai.Error
	return errors.As(err, &apiErr) && retry.RetryableStatus(apiErr.StatusCode)
}

func isAuthError(err error) bool {
	var apiErr *openai.Error
	return errors.As(err, &apiErr) && retry.AuthStatus(apiErr.StatusCode)
}

// Complete implements changeagent.Completer.
func (e *executor) Complete(ctx context.Context, system, user string) (text string, err error) {
	operation := metrics.Operation(ctx)
	log := clog.FromContext(ctx).With("model", e.model).With("operation", operation)

	start := time.Now()
	defer func() {
		e.genaiMetrics.RecordCall(ctx, e.model, operation, time.Since(start), err)
	}()

	var messages []openai.ChatCompletionMessageParamUnion
	if system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	messages = append(messages, openai.UserMessage(user))

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(e.model),
		Messages:    messages,
		Temperature: openai.Float(e.temperature),
	}
	if e.maxTokens > 0 {
		params.MaxTokens = openai.Int(e.maxTokens)
	}

	log.With("prompt_length", len(user)).Info("Sending chat completion request")

	resp, err := retry.RetryWithBackoff(ctx, e.retryConfig, operation, isRetryable, func() (*openai.ChatCompletion, error) {
		return e.client.Chat.Completions.New(ctx, params)
	})
	if err != nil {
		if isAuthError(err) {
			return "", fmt.Errorf("%w: %w", changeagent.ErrAuth, err)
		}
		return "", fmt.Errorf("chat completion: %w", err)
	}

	e.genaiMetrics.RecordTokens(ctx, e.model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
