/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package metaagent

import (
	"context"
	"errors"
	"fmt"

	"chainguard.dev/issuefix/agents/changeagent"
	"chainguard.dev/issuefix/agents/executor/claudeexecutor"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/vertex"
)

func newClaudeCompleter(ctx context.Context, cfg Config) (changeagent.Completer, error) {
	var client anthropic.Client
	switch {
	case cfg.AnthropicAPIKey != "":
		client = anthropic.NewClient(option.WithAPIKey(cfg.AnthropicAPIKey))
	case cfg.ProjectID != "":
		client = anthropic.NewClient(
			vertex.WithGoogleAuth(ctx, cfg.Region, cfg.ProjectID),
		)
	default:
		return nil, errors.New("claude models need an Anthropic API key or a Google Cloud project")
	}

	opts := []claudeexecutor.Option{
		claudeexecutor.WithModel(cfg.Model),
		claudeexecutor.WithTemperature(0),
		claudeexecutor.WithMaxTokens(16000),
	}
	if cfg.Retry != nil {
		opts = append(opts, claudeexecutor.WithRetryConfig(*cfg.Retry))
	}
	if cfg.Enricher != nil {
		opts = append(opts, claudeexecutor.WithAttributeEnricher(cfg.Enricher))
	}

	exec, err := claudeexecutor.New(client, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating Claude executor: %w", err)
	}
	return exec, nil
}
