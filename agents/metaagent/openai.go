/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package metaagent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"chainguard.dev/issuefix/agents/changeagent"
	"chainguard.dev/issuefix/agents/executor/openaiexecutor"
	"github.com/chainguard-dev/clog"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// defaultOpenRouterTitle is sent as X-Title when none is configured.
const defaultOpenRouterTitle = "GitHub Issue Fixer"

// Endpoint is a resolved OpenAI-compatible endpoint.
type Endpoint struct {
	BaseURL string
	Model   string
	Headers map[string]string
}

// ResolveEndpoint applies the base URL precedence and the per-endpoint
// default model. An explicit base URL wins over UseDeepSeek, which wins over
// UseOpenRouter.
func ResolveEndpoint(cfg Config) Endpoint {
	ep := Endpoint{BaseURL: strings.TrimSpace(cfg.OpenAIBaseURL)}
	if ep.BaseURL == "" {
		switch {
		case cfg.UseDeepSeek:
			ep.BaseURL = openaiexecutor.DeepSeekBaseURL
		case cfg.UseOpenRouter:
			ep.BaseURL = openaiexecutor.OpenRouterBaseURL
		}
	}

	lower := strings.ToLower(ep.BaseURL)
	ep.Model = cfg.Model
	switch {
	case strings.Contains(lower, "deepseek"):
		if ep.Model == "" {
			ep.Model = "deepseek-chat"
		}
	case strings.Contains(lower, "openrouter"):
		if ep.Model == "" {
			ep.Model = "openai/gpt-4o-mini"
		}
		ep.Headers = map[string]string{"X-Title": defaultOpenRouterTitle}
		if cfg.OpenRouterTitle != "" {
			ep.Headers["X-Title"] = cfg.OpenRouterTitle
		}
		if cfg.OpenRouterReferer != "" {
			ep.Headers["HTTP-Referer"] = cfg.OpenRouterReferer
		}
	default:
		if ep.Model == "" {
			ep.Model = "gpt-4o-mini"
		}
	}
	return ep
}

func newOpenAICompleter(ctx context.Context, cfg Config) (changeagent.Completer, error) {
	if cfg.OpenAIAPIKey == "" {
		return nil, errors.New("OpenAI-compatible models need an API key")
	}
	ep := ResolveEndpoint(cfg)

	clientOpts := []option.RequestOption{option.WithAPIKey(cfg.OpenAIAPIKey)}
	if ep.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(ep.BaseURL))
	}
	for k, v := range ep.Headers {
		clientOpts = append(clientOpts, option.WithHeader(k, v))
	}

	clog.FromContext(ctx).With("model", ep.Model).With("base_url", ep.BaseURL).Info("Using OpenAI-compatible endpoint")

	opts := []openaiexecutor.Option{
		openaiexecutor.WithModel(ep.Model),
		openaiexecutor.WithTemperature(0),
	}
	if cfg.Retry != nil {
		opts = append(opts, openaiexecutor.WithRetryConfig(*cfg.Retry))
	}
	if cfg.Enricher != nil {
		opts = append(opts, openaiexecutor.WithAttributeEnricher(cfg.Enricher))
	}

	exec, err := openaiexecutor.New(openai.NewClient(clientOpts...), opts...)
	if err != nil {
		return nil, fmt.Errorf("creating OpenAI executor: %w", err)
	}
	return exec, nil
}
