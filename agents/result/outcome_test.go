/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package result

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func pathsParser() Parser[[]string] {
	return Parser[[]string]{
		Validate: func(paths []string) error {
			for _, p := range paths {
				if p == "" {
					return errors.New("empty path")
				}
			}
			return nil
		},
		Fallback: func(text string) ([]string, bool) {
			paths := ExtractPaths(text)
			return paths, len(paths) > 0
		},
	}
}

func TestParserParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		kind     Kind
		want     []string
		parseErr bool
	}{{
		name:  "structured",
		input: "```json\n[\"main.go\", \"pkg/util.go\"]\n```",
		kind:  Structured,
		want:  []string{"main.go", "pkg/util.go"},
	}, {
		name:     "extracted from prose",
		input:    "You should edit 'app.py' and then \"tests/test_app.py\".",
		kind:     Extracted,
		want:     []string{"app.py", "tests/test_app.py"},
		parseErr: true,
	}, {
		name:     "validation failure falls back",
		input:    `["", "src/index.ts"]`,
		kind:     Extracted,
		want:     []string{"src/index.ts"},
		parseErr: true,
	}, {
		name:     "nothing usable",
		input:    "I cannot determine which files to change.",
		kind:     Empty,
		parseErr: true,
	}, {
		name:     "blank",
		input:    "  \n",
		kind:     Empty,
		parseErr: true,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pathsParser().Parse(tt.input)
			if got.Kind != tt.kind {
				t.Fatalf("Kind = %v, want %v", got.Kind, tt.kind)
			}
			if diff := cmp.Diff(tt.want, got.Value); tt.kind != Empty && diff != "" {
				t.Errorf("Value mismatch (-want +got):\n%s", diff)
			}
			if (got.ParseErr != nil) != tt.parseErr {
				t.Errorf("ParseErr = %v, want error: %v", got.ParseErr, tt.parseErr)
			}
			if got.Ok() != (tt.kind != Empty) {
				t.Errorf("Ok() = %v", got.Ok())
			}
		})
	}
}

func TestParserBlank(t *testing.T) {
	got := Parser[int]{}.Parse("")
	if !errors.Is(got.ParseErr, ErrBlank) {
		t.Errorf("ParseErr = %v, want ErrBlank", got.ParseErr)
	}
}

func TestOutcomeConstructors(t *testing.T) {
	if v, ok := StructuredOf(3).Get(); !ok || v != 3 {
		t.Errorf("StructuredOf(3).Get() = %v, %v", v, ok)
	}
	if ExtractedOf("x").Kind != Extracted {
		t.Error("ExtractedOf kind")
	}
	if EmptyOf[string]().Ok() {
		t.Error("EmptyOf should not be ok")
	}
	if Structured.String() != "structured" || Empty.String() != "empty" {
		t.Error("Kind.String")
	}
}
