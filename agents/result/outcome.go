/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package result

import (
	"errors"
	"fmt"
	"strings"
)

// Kind tags how an Outcome's value was obtained.
type Kind int

const (
	// Empty means neither structured parsing nor fallback extraction produced a value.
	Empty Kind = iota
	// Structured means the response parsed as the expected JSON shape.
	Structured
	// Extracted means the value came from best-effort text extraction.
	Extracted
)

func (k Kind) String() string {
	switch k {
	case Structured:
		return "structured"
	case Extracted:
		return "extracted"
	default:
		return "empty"
	}
}

// Outcome is the tagged result of interpreting a model response.
type Outcome[T any] struct {
	Kind  Kind
	Value T
	// ParseErr records why structured parsing failed, when it did.
	ParseErr error
}

// Ok reports whether the outcome carries a value.
func (o Outcome[T]) Ok() bool {
	return o.Kind != Empty
}

// Get returns the value and whether one is present.
func (o Outcome[T]) Get() (T, bool) {
	return o.Value, o.Ok()
}

// StructuredOf wraps a value parsed from structured output.
func StructuredOf[T any](v T) Outcome[T] {
	return Outcome[T]{Kind: Structured, Value: v}
}

// ExtractedOf wraps a value recovered by fallback extraction.
func ExtractedOf[T any](v T) Outcome[T] {
	return Outcome[T]{Kind: Extracted, Value: v}
}

// EmptyOf returns an Outcome without a value.
func EmptyOf[T any]() Outcome[T] {
	return Outcome[T]{}
}

// Parser interprets model responses as T, falling back to text extraction.
type Parser[T any] struct {
	// Validate rejects structurally valid but semantically unusable values.
	Validate func(T) error
	// Fallback recovers a value from text that failed structured parsing.
	Fallback func(text string) (T, bool)
}

// ErrBlank is recorded when the response has no content at all.
var ErrBlank = errors.New("blank response")

// Parse applies structured parsing, then validation, then the fallback.
func (p Parser[T]) Parse(text string) Outcome[T] {
	if strings.TrimSpace(text) == "" {
		return Outcome[T]{ParseErr: ErrBlank}
	}

	v, err := Extract[T](text)
	if err == nil && p.Validate != nil {
		if verr := p.Validate(v); verr != nil {
			err = fmt.Errorf("validating structured response: %w", verr)
		}
	}
	if err == nil {
		return StructuredOf(v)
	}

	if p.Fallback != nil {
		if fv, ok := p.Fallback(text); ok {
			return Outcome[T]{Kind: Extracted, Value: fv, ParseErr: err}
		}
	}
	return Outcome[T]{ParseErr: err}
}
