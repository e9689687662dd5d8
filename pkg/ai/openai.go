package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultOpenAIBaseURL = "https://api.openai.com"
	DefaultOpenAIModel   = "gpt-4o-mini"
)

type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// OpenAI calls the chat completions endpoint.
type OpenAI struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}

	client := cfg.HTTPClient
	if client == nil {
		client = newHTTPClient(60 * time.Second)
	}

	return &OpenAI{apiKey: cfg.APIKey, baseURL: baseURL, model: model, client: client}
}

func (o *OpenAI) Name() string {
	return "openai"
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (o *OpenAI) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	if o.apiKey == "" {
		return "", &ProviderError{Provider: o.Name(), Message: "OPENAI_API_KEY is not set"}
	}

	opts = opts.withDefaults()

	reqBody, err := json.Marshal(map[string]any{
		"model":       o.model,
		"messages":    []openAIMessage{{Role: "user", Content: prompt}},
		"max_tokens":  opts.MaxTokens,
		"temperature": opts.Temperature,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/v1/chat/completions", bytes.NewReader(reqBody))
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return "", &ProviderError{Provider: o.Name(), Message: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", &ProviderError{
			Provider:   o.Name(),
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Quota:      isQuotaStatus(resp.StatusCode),
		}
	}

	var parsed struct {
		Choices []struct {
			Message openAIMessage `json:"message"`
		} `json:"choices"`
	}

	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode openai response: %w", err)
	}

	if len(parsed.Choices) == 0 {
		return "", &ProviderError{Provider: o.Name(), Message: "response has no choices"}
	}

	return parsed.Choices[0].Message.Content, nil
}
