/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package claudeexecutor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"chainguard.dev/issuefix/agents/changeagent"
	"chainguard.dev/issuefix/agents/executor/retry"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

var fastRetry = retry.RetryConfig{MaxRetries: 2, BaseBackoff: time.Millisecond, MaxBackoff: time.Millisecond}

func newTestClient(url string) anthropic.Client {
	return anthropic.NewClient(
		option.WithBaseURL(url),
		option.WithAPIKey("test-key"),
		option.WithMaxRetries(0),
	)
}

const messageResponse = `{
  "id": "msg_01",
  "type": "message",
  "role": "assistant",
  "model": "claude-sonnet-4@20250514",
  "content": [{"type": "text", "text": "[\"main.go\"]"}],
  "stop_reason": "end_turn",
  "usage": {"input_tokens": 12, "output_tokens": 4}
}`

func TestComplete(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("path = %s, want /v1/messages", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(messageResponse))
	}))
	defer srv.Close()

	exec, err := New(newTestClient(srv.URL), WithRetryConfig(fastRetry))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := exec.Complete(context.Background(), "be terse", "which files?")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != `["main.go"]` {
		t.Errorf("Complete() = %q", got)
	}
	if body["model"] != "claude-sonnet-4@20250514" {
		t.Errorf("model = %v", body["model"])
	}
	if body["temperature"] != float64(0) {
		t.Errorf("temperature = %v, want 0", body["temperature"])
	}
	system, _ := body["system"].([]any)
	if len(system) != 1 {
		t.Fatalf("system = %v", body["system"])
	}
}

func TestCompleteRetriesOverloaded(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			w.WriteHeader(529)
			w.Write([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`))
			return
		}
		w.Write([]byte(messageResponse))
	}))
	defer srv.Close()

	exec, err := New(newTestClient(srv.URL), WithRetryConfig(fastRetry))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := exec.Complete(context.Background(), "", "hi"); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("calls = %d, want 2", got)
	}
}

func TestCompleteAuthError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	defer srv.Close()

	exec, err := New(newTestClient(srv.URL), WithRetryConfig(fastRetry))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = exec.Complete(context.Background(), "", "hi")
	if !errors.Is(err, changeagent.ErrAuth) {
		t.Fatalf("Complete() error = %v, want ErrAuth", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestOptions(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{name: "non-claude model", opt: WithModel("gpt-4o")},
		{name: "zero tokens", opt: WithMaxTokens(0)},
		{name: "too many tokens", opt: WithMaxTokens(64000)},
		{name: "temperature", opt: WithTemperature(1.5)},
		{name: "retry", opt: WithRetryConfig(retry.RetryConfig{MaxRetries: -1})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(anthropic.NewClient(), tt.opt); err == nil {
				t.Error("expected error")
			}
		})
	}
}
