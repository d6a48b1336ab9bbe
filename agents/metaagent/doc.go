/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package metaagent builds the changeagent.Completer for a configured model.
//
// The model name selects the provider:
//   - Models starting with "claude-" use Anthropic's SDK, through the
//     Anthropic API when an API key is set and through Vertex AI otherwise
//   - Models starting with "gemini-" use Google's Generative AI SDK on Vertex AI
//   - Anything else uses an OpenAI-compatible chat completion API, which may
//     be OpenAI, DeepSeek or OpenRouter
//
// # Usage
//
//	completer, err := metaagent.NewCompleter(ctx, metaagent.Config{
//	    Model:        "claude-sonnet-4@20250514",
//	    ProjectID:    projectID,
//	    Region:       "us-east5",
//	})
//	agent, err := changeagent.New(completer)
package metaagent
