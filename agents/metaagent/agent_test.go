/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package metaagent

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestProviderFor(t *testing.T) {
	tests := []struct {
		model string
		want  Provider
	}{
		{model: "claude-sonnet-4@20250514", want: ProviderClaude},
		{model: "Claude-3-opus", want: ProviderClaude},
		{model: "gemini-2.5-flash", want: ProviderGoogle},
		{model: "gpt-4o-mini", want: ProviderOpenAI},
		{model: "deepseek-chat", want: ProviderOpenAI},
		{model: "", want: ProviderOpenAI},
		{model: "cla", want: ProviderOpenAI},
	}
	for _, tt := range tests {
		if got := ProviderFor(tt.model); got != tt.want {
			t.Errorf("ProviderFor(%q) = %q, want %q", tt.model, got, tt.want)
		}
	}
}

func TestResolveEndpoint(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want Endpoint
	}{{
		name: "openai default",
		cfg:  Config{},
		want: Endpoint{Model: "gpt-4o-mini"},
	}, {
		name: "deepseek default model",
		cfg:  Config{UseDeepSeek: true, UseOpenRouter: true},
		want: Endpoint{BaseURL: "https://api.deepseek.com", Model: "deepseek-chat"},
	}, {
		name: "openrouter headers",
		cfg:  Config{UseOpenRouter: true, OpenRouterReferer: "https://example.com"},
		want: Endpoint{
			BaseURL: "https://openrouter.ai/api/v1",
			Model:   "openai/gpt-4o-mini",
			Headers: map[string]string{"X-Title": "GitHub Issue Fixer", "HTTP-Referer": "https://example.com"},
		},
	}, {
		name: "explicit base url wins",
		cfg:  Config{OpenAIBaseURL: " https://llm.internal/v1 ", UseDeepSeek: true, Model: "qwen"},
		want: Endpoint{BaseURL: "https://llm.internal/v1", Model: "qwen"},
	}, {
		name: "explicit model kept",
		cfg:  Config{UseDeepSeek: true, Model: "deepseek-reasoner"},
		want: Endpoint{BaseURL: "https://api.deepseek.com", Model: "deepseek-reasoner"},
	}}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, ResolveEndpoint(tt.cfg)); diff != "" {
				t.Errorf("ResolveEndpoint() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNewCompleterErrors(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{{
		name:    "openai without key",
		cfg:     Config{Model: "gpt-4o"},
		wantErr: "API key",
	}, {
		name:    "claude without credentials",
		cfg:     Config{Model: "claude-sonnet-4@20250514"},
		wantErr: "Anthropic API key",
	}, {
		name:    "gemini without project",
		cfg:     Config{Model: "gemini-2.5-flash"},
		wantErr: "Google Cloud project",
	}}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCompleter(ctx, tt.cfg)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("NewCompleter() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestNewCompleter(t *testing.T) {
	ctx := context.Background()
	for _, cfg := range []Config{
		{Model: "gpt-4o", OpenAIAPIKey: "sk-test"},
		{OpenAIAPIKey: "sk-test", UseOpenRouter: true},
		{Model: "claude-sonnet-4@20250514", AnthropicAPIKey: "sk-ant-test"},
	} {
		if c, err := NewCompleter(ctx, cfg); err != nil || c == nil {
			t.Errorf("NewCompleter(%+v) = %v, %v", cfg, c, err)
		}
	}
}
