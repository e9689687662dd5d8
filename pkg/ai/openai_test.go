package ai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BabaVossRS3/FlowForge/pkg/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAI_Complete(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4o-mini", body["model"])
		assert.InDelta(t, 200, body["max_tokens"], 0)

		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hello there"}}]}`))
	}))
	defer server.Close()

	provider := ai.NewOpenAI(ai.OpenAIConfig{APIKey: "sk-test", BaseURL: server.URL, HTTPClient: server.Client()})

	text, err := provider.Complete(context.Background(), "hi", ai.Options{MaxTokens: 200, Temperature: 0.7})
	require.NoError(t, err)
	assert.Equal(t, "hello there", text)
}

func TestOpenAI_RateLimitIsQuotaError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	provider := ai.NewOpenAI(ai.OpenAIConfig{APIKey: "sk-test", BaseURL: server.URL, HTTPClient: server.Client()})

	_, err := provider.Complete(context.Background(), "hi", ai.Options{})
	require.Error(t, err)
	assert.True(t, ai.IsQuotaError(err))
}

func TestUnconfigured(t *testing.T) {
	t.Parallel()

	_, err := ai.Unconfigured{}.Complete(context.Background(), "hi", ai.Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no AI provider configured")
	assert.False(t, ai.IsQuotaError(err))
}
