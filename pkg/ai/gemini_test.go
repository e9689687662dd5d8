package ai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/BabaVossRS3/FlowForge/pkg/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func geminiText(text string) string {
	return `{"candidates":[{"content":{"parts":[{"text":"` + text + `"}]}}]}`
}

func TestGemini_DiscoversAndCachesModel(t *testing.T) {
	t.Parallel()

	var listCalls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/v1/models":
			listCalls.Add(1)
			assert.Equal(t, "secret", r.URL.Query().Get("key"))
			_, _ = w.Write([]byte(`{"models":[
				{"name":"models/embedding-001","supportedGenerationMethods":["embedContent"]},
				{"name":"models/gemini-1.5-pro","supportedGenerationMethods":["generateContent"]},
				{"name":"models/gemini-1.5-flash","supportedGenerationMethods":["generateContent"]}
			]}`))
		case r.URL.Path == "/v1/models/gemini-1.5-flash:generateContent":
			var body map[string]any
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			config := body["generationConfig"].(map[string]any)
			assert.InDelta(t, 5, config["maxOutputTokens"], 0)
			_, _ = w.Write([]byte(geminiText("True.")))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	provider := ai.NewGemini(ai.GeminiConfig{APIKey: "secret", BaseURL: server.URL, HTTPClient: server.Client()})

	for range 2 {
		text, err := provider.Complete(context.Background(), "prompt", ai.Options{MaxTokens: 5, Temperature: 0.1})
		require.NoError(t, err)
		assert.Equal(t, "True.", text)
	}

	assert.Equal(t, int32(1), listCalls.Load())
}

func TestGemini_FallsBackWhenListingFails(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet:
			w.WriteHeader(http.StatusForbidden)
		case r.URL.Path == "/v1beta/models/gemini-pro:generateContent":
			_, _ = w.Write([]byte(geminiText("ok")))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer server.Close()

	provider := ai.NewGemini(ai.GeminiConfig{APIKey: "k", BaseURL: server.URL, HTTPClient: server.Client()})

	text, err := provider.Complete(context.Background(), "prompt", ai.Options{})
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
}

func TestGemini_QuotaStopsFallback(t *testing.T) {
	t.Parallel()

	var generateCalls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusForbidden)

			return
		}

		generateCalls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	provider := ai.NewGemini(ai.GeminiConfig{APIKey: "k", BaseURL: server.URL, HTTPClient: server.Client()})

	_, err := provider.Complete(context.Background(), "prompt", ai.Options{})
	require.Error(t, err)
	assert.True(t, ai.IsQuotaError(err))
	assert.Equal(t, int32(1), generateCalls.Load())
}

func TestGemini_RediscoversAfterNotFound(t *testing.T) {
	t.Parallel()

	var listCalls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/v1/models":
			if listCalls.Add(1) == 1 {
				_, _ = w.Write([]byte(`{"models":[{"name":"models/gemini-pro","supportedGenerationMethods":["generateContent"]}]}`))

				return
			}

			_, _ = w.Write([]byte(`{"models":[{"name":"models/gemini-2.0-flash","supportedGenerationMethods":["generateContent"]}]}`))
		case strings.HasSuffix(r.URL.Path, "gemini-2.0-flash:generateContent"):
			_, _ = w.Write([]byte(geminiText("fresh")))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	provider := ai.NewGemini(ai.GeminiConfig{APIKey: "k", BaseURL: server.URL, HTTPClient: server.Client()})

	text, err := provider.Complete(context.Background(), "prompt", ai.Options{})
	require.NoError(t, err)
	assert.Equal(t, "fresh", text)
	assert.Equal(t, int32(2), listCalls.Load())
}

func TestGemini_MissingKey(t *testing.T) {
	t.Parallel()

	_, err := ai.NewGemini(ai.GeminiConfig{}).Complete(context.Background(), "p", ai.Options{})

	var providerErr *ai.ProviderError

	require.ErrorAs(t, err, &providerErr)
	assert.False(t, providerErr.Quota)
}
