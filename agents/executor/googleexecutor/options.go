/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package googleexecutor

import (
	"fmt"
	"maps"
	"os"
	"strings"

	"chainguard.dev/issuefix/agents/executor/retry"
	"chainguard.dev/issuefix/agents/metrics"
)

// Option is a functional option for configuring an executor
type Option func(*executor) error

// WithModel sets the model to use for generation
func WithModel(model string) Option {
	return func(e *executor) error {
		if !strings.HasPrefix(model, "gemini-") {
			return fmt.Errorf("model %q does not appear to be a Gemini model (expected gemini-* format)", model)
		}
		e.model = model
		return nil
	}
}

// WithTemperature sets the temperature for generation.
// Gemini models support temperature values from 0.0 to 2.0.
func WithTemperature(temperature float32) Option {
	return func(e *executor) error {
		if temperature < 0.0 || temperature > 2.0 {
			return fmt.Errorf("temperature must be between 0.0 and 2.0, got %f", temperature)
		}
		e.temperature = temperature
		return nil
	}
}

// WithMaxOutputTokens sets the maximum output tokens for generation
func WithMaxOutputTokens(tokens int32) Option {
	return func(e *executor) error {
		if tokens <= 0 {
			return fmt.Errorf("max output tokens must be positive, got %d", tokens)
		}
		if tokens > 32768 {
			return fmt.Errorf("max output tokens %d exceeds maximum of 32768", tokens)
		}
		e.maxOutputTokens = tokens
		return nil
	}
}

// WithAttributeEnricher sets a custom attribute enricher for metrics.
func WithAttributeEnricher(enricher metrics.AttributeEnricher) Option {
	return func(e *executor) error {
		e.genaiMetrics.SetAttributeEnricher(enricher)
		return nil
	}
}

// WithRetryConfig sets the retry configuration for handling transient Vertex AI errors.
// This is particularly useful for handling 429 RESOURCE_EXHAUSTED errors that occur
// when quota limits are hit. If not set, a default configuration is used.
func WithRetryConfig(cfg retry.RetryConfig) Option {
	return func(e *executor) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		e.retryConfig = cfg
		return nil
	}
}

// WithResourceLabels sets labels that are sent with each Vertex AI API request.
// Automatically includes default labels from environment variables:
//   - service_name: from K_SERVICE (defaults to "unknown")
//   - product: from CHAINGUARD_PRODUCT (defaults to "unknown")
//   - team: from CHAINGUARD_TEAM (defaults to "unknown")
//
// Custom labels passed to this function will override defaults if they use the same keys.
func WithResourceLabels(labels map[string]string) Option {
	return func(e *executor) error {
		e.resourceLabels = map[string]string{
			"service_name": envOr("K_SERVICE", "unknown"),
			"product":      envOr("CHAINGUARD_PRODUCT", "unknown"),
			"team":         envOr("CHAINGUARD_TEAM", "unknown"),
		}
		maps.Copy(e.resourceLabels, labels)
		return nil
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
