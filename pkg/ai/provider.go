// Package ai provides text completion providers and the prompts built on top of them.
package ai

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Options tune one completion request.
type Options struct {
	MaxTokens   int
	Temperature float64
}

// DefaultOptions apply when a caller passes zero values.
var DefaultOptions = Options{MaxTokens: 1000, Temperature: 0.7}

func (o Options) withDefaults() Options {
	if o.MaxTokens <= 0 {
		o.MaxTokens = DefaultOptions.MaxTokens
	}

	return o
}

// Provider completes a prompt into text.
type Provider interface {
	Complete(ctx context.Context, prompt string, opts Options) (string, error)
	Name() string
}

// Unconfigured is the provider used when no API key is set. Every call fails.
type Unconfigured struct {
	ProviderName string
}

func (u Unconfigured) Complete(context.Context, string, Options) (string, error) {
	return "", &ProviderError{
		Provider: u.Name(),
		Message:  "no AI provider configured, set GEMINI_API_KEY or OPENAI_API_KEY",
	}
}

func (u Unconfigured) Name() string {
	if u.ProviderName == "" {
		return "none"
	}

	return u.ProviderName
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}
