/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package openaiexecutor completes prompts against OpenAI-compatible chat
// completion APIs: OpenAI itself, DeepSeek and OpenRouter.
//
//	client := openai.NewClient(
//	    option.WithAPIKey(key),
//	    option.WithBaseURL(openaiexecutor.DeepSeekBaseURL),
//	)
//	exec, err := openaiexecutor.New(client, openaiexecutor.WithModel("deepseek-chat"))
package openaiexecutor
