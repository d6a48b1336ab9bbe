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
	"chainguard.dev/issuefix/agents/executor/googleexecutor"
	"google.golang.org/genai"
)

func newGoogleCompleter(ctx context.Context, cfg Config) (changeagent.Completer, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("gemini models need a Google Cloud project")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  cfg.ProjectID,
		Location: cfg.Region,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Google AI client: %w", err)
	}

	opts := []googleexecutor.Option{
		googleexecutor.WithModel(cfg.Model),
		googleexecutor.WithTemperature(0),
		googleexecutor.WithMaxOutputTokens(32768),
		googleexecutor.WithResourceLabels(map[string]string{"component": "issuefix"}),
	}
	if cfg.Retry != nil {
		opts = append(opts, googleexecutor.WithRetryConfig(*cfg.Retry))
	}
	if cfg.Enricher != nil {
		opts = append(opts, googleexecutor.WithAttributeEnricher(cfg.Enricher))
	}

	exec, err := googleexecutor.New(client, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating Google executor: %w", err)
	}
	return exec, nil
}
