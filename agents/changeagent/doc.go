/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package changeagent provides the language model operations used to fix an
// issue: writing a technical specification, choosing files, rewriting a file,
// refining the specification from review feedback, reviewing the result, and
// inferring CI commands.
//
// The agent is provider agnostic. It renders prompts and interprets responses;
// a Completer from one of the executor packages performs the model call.
// Responses that should be structured are interpreted with result.Parser, so
// callers receive an Outcome tagged Structured, Extracted, or Empty.
package changeagent
