/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package metaagent

import (
	"context"
	"strings"

	"chainguard.dev/issuefix/agents/changeagent"
)

// Provider names the backend a model is served by.
type Provider string

const (
	ProviderClaude Provider = "claude"
	ProviderGoogle Provider = "google"
	ProviderOpenAI Provider = "openai"
)

// ProviderFor returns the provider serving the model.
func ProviderFor(model string) Provider {
	modelLower := strings.ToLower(model)
	switch {
	case strings.HasPrefix(modelLower, "claude-"):
		return ProviderClaude
	case strings.HasPrefix(modelLower, "gemini-"):
		return ProviderGoogle
	default:
		return ProviderOpenAI
	}
}

// NewCompleter creates the Completer for cfg.Model.
func NewCompleter(ctx context.Context, cfg Config) (changeagent.Completer, error) {
	switch ProviderFor(cfg.Model) {
	case ProviderClaude:
		return newClaudeCompleter(ctx, cfg)
	case ProviderGoogle:
		return newGoogleCompleter(ctx, cfg)
	default:
		return newOpenAICompleter(ctx, cfg)
	}
}
