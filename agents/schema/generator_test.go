/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package schema_test

import (
	"encoding/json"
	"strings"
	"testing"

	"chainguard.dev/issuefix/agents/schema"
	"chainguard.dev/issuefix/ci"
)

func TestReflect(t *testing.T) {
	type nested struct {
		Value string `json:"value" jsonschema:"description=Nested value"`
	}
	type sample struct {
		Name   string  `json:"name" jsonschema:"description=Name,required"`
		Count  int     `json:"count,omitempty"`
		Nested *nested `json:"nested,omitempty"`
	}

	s := schema.Reflect(&sample{})
	if s == nil {
		t.Fatal("expected schema")
	}
	if len(s.Required) != 1 || s.Required[0] != "name" {
		t.Fatalf("unexpected required: %#v", s.Required)
	}
	if s.Version != "" {
		t.Errorf("Version = %q, want empty", s.Version)
	}

	name, ok := s.Properties.Get("name")
	if !ok {
		t.Fatal("missing name property")
	}
	if name.Description != "Name" {
		t.Fatalf("unexpected description: %q", name.Description)
	}

	nestedSchema, ok := s.Properties.Get("nested")
	if !ok {
		t.Fatal("missing nested property")
	}
	if _, ok := nestedSchema.Properties.Get("value"); !ok {
		t.Fatal("missing nested value property")
	}
}

func TestText(t *testing.T) {
	text, err := schema.Text[ci.Commands]()
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if strings.Contains(text, "$ref") || strings.Contains(text, "$defs") {
		t.Errorf("schema should be fully inlined:\n%s", text)
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(text), &decoded); err != nil {
		t.Fatalf("schema text is not JSON: %v", err)
	}
	props, ok := decoded["properties"].(map[string]any)
	if !ok {
		t.Fatalf("missing properties in %s", text)
	}
	for _, field := range []string{"syntax_check", "test", "quality", "working_dir"} {
		if _, ok := props[field]; !ok {
			t.Errorf("missing property %q", field)
		}
	}
	if req, _ := decoded["required"].([]any); len(req) != 1 || req[0] != "syntax_check" {
		t.Errorf("required = %v, want [syntax_check]", decoded["required"])
	}
}
