/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package metaagent

import (
	"chainguard.dev/issuefix/agents/executor/retry"
	"chainguard.dev/issuefix/agents/metrics"
)

// Config selects and configures the model provider.
type Config struct {
	// Model is the model name. When empty, an OpenAI-compatible default for
	// the selected endpoint is used.
	Model string

	// ProjectID and Region address Vertex AI for claude-* and gemini-* models.
	ProjectID string
	Region    string

	// AnthropicAPIKey routes claude-* models to the Anthropic API instead of Vertex AI.
	AnthropicAPIKey string

	// OpenAIAPIKey authenticates OpenAI-compatible endpoints.
	OpenAIAPIKey string
	// OpenAIBaseURL overrides the endpoint. It takes precedence over
	// UseDeepSeek and UseOpenRouter.
	OpenAIBaseURL string
	UseDeepSeek   bool
	UseOpenRouter bool

	// OpenRouterReferer and OpenRouterTitle are sent as the HTTP-Referer and
	// X-Title headers OpenRouter uses for attribution.
	OpenRouterReferer string
	OpenRouterTitle   string

	// Retry overrides the executor retry configuration when non-nil.
	Retry *retry.RetryConfig

	// Enricher adds attributes to every recorded model metric.
	Enricher metrics.AttributeEnricher
}
