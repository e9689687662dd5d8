package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"
)

const DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

var (
	geminiAPIVersions = []string{"v1", "v1beta"}

	// geminiModels is ordered cheapest and fastest first.
	geminiModels = []string{
		"gemini-2.0-flash",
		"gemini-1.5-flash-latest",
		"gemini-1.5-flash",
		"gemini-1.5-flash-8b",
		"gemini-1.5-pro-latest",
		"gemini-1.5-pro",
		"gemini-1.0-pro",
		"gemini-pro",
	}

	errNoGeminiModels = errors.New("no Gemini models available for generateContent")
)

type GeminiConfig struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Gemini talks to the Generative Language REST API. The model is discovered through ListModels
// and cached until the API reports it missing.
type Gemini struct {
	apiKey  string
	baseURL string
	client  *http.Client
	logger  *slog.Logger

	mu       sync.Mutex
	resolved *geminiModel
}

type geminiModel struct {
	apiVersion string
	modelID    string
}

func NewGemini(cfg GeminiConfig) *Gemini {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultGeminiBaseURL
	}

	client := cfg.HTTPClient
	if client == nil {
		client = newHTTPClient(60 * time.Second)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Gemini{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		client:  client,
		logger:  logger.With("provider", "gemini"),
	}
}

func (g *Gemini) Name() string {
	return "gemini"
}

func (g *Gemini) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	if g.apiKey == "" {
		return "", &ProviderError{Provider: g.Name(), Message: "GEMINI_API_KEY is not set"}
	}

	opts = opts.withDefaults()

	model, err := g.resolveModel(ctx)
	if err == nil {
		text, genErr := g.generate(ctx, model, prompt, opts)
		if genErr == nil {
			return text, nil
		}

		if IsQuotaError(genErr) {
			return "", genErr
		}

		if IsNotFound(genErr) {
			g.forgetModel()

			model, err = g.resolveModel(ctx)
			if err != nil {
				return "", err
			}

			return g.generate(ctx, model, prompt, opts)
		}

		err = genErr
	}

	g.logger.WarnContext(ctx, "discovered model unavailable, trying known models", "error", err)

	lastErr := err

	for _, version := range geminiAPIVersions {
		for _, modelID := range geminiModels {
			text, genErr := g.generate(ctx, geminiModel{apiVersion: version, modelID: modelID}, prompt, opts)
			if genErr == nil {
				return text, nil
			}

			g.logger.DebugContext(ctx, "model failed", "api_version", version, "model", modelID, "error", genErr)

			if IsQuotaError(genErr) {
				return "", genErr
			}

			lastErr = genErr
		}
	}

	return "", lastErr
}

func (g *Gemini) forgetModel() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.resolved = nil
}

func (g *Gemini) resolveModel(ctx context.Context) (geminiModel, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.resolved != nil {
		return *g.resolved, nil
	}

	var lastErr error

	for _, version := range geminiAPIVersions {
		names, err := g.listModels(ctx, version)
		if err != nil {
			lastErr = err

			continue
		}

		if modelID := pickGeminiModel(names); modelID != "" {
			g.resolved = &geminiModel{apiVersion: version, modelID: modelID}

			return *g.resolved, nil
		}
	}

	if lastErr != nil {
		return geminiModel{}, lastErr
	}

	return geminiModel{}, &ProviderError{Provider: g.Name(), Message: errNoGeminiModels.Error()}
}

func (g *Gemini) listModels(ctx context.Context, version string) ([]string, error) {
	endpoint := fmt.Sprintf("%s/%s/models?key=%s", g.baseURL, version, url.QueryEscape(g.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, &ProviderError{Provider: g.Name(), Message: fmt.Sprintf("list models: %v", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{
			Provider:   g.Name(),
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("ListModels failed for %s: %s", version, body),
		}
	}

	var payload struct {
		Models []struct {
			Name                       string   `json:"name"`
			SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
		} `json:"models"`
	}

	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode model list: %w", err)
	}

	names := make([]string, 0, len(payload.Models))

	for _, model := range payload.Models {
		if slices.Contains(model.SupportedGenerationMethods, "generateContent") {
			names = append(names, strings.TrimPrefix(model.Name, "models/"))
		}
	}

	return names, nil
}

// pickGeminiModel prefers the known cheap models, then any model supporting generateContent.
func pickGeminiModel(available []string) string {
	for _, preferred := range geminiModels {
		if slices.Contains(available, preferred) {
			return preferred
		}
	}

	if len(available) > 0 {
		return available[0]
	}

	return ""
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (g *Gemini) generate(ctx context.Context, model geminiModel, prompt string, opts Options) (string, error) {
	reqBody, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     opts.Temperature,
			MaxOutputTokens: opts.MaxTokens,
		},
	})
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/%s/models/%s:generateContent?key=%s",
		g.baseURL, model.apiVersion, model.modelID, url.QueryEscape(g.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", &ProviderError{Provider: g.Name(), Message: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		if isQuotaStatus(resp.StatusCode) {
			return "", &ProviderError{
				Provider:   g.Name(),
				StatusCode: resp.StatusCode,
				Message:    "quota or rate limit reached, please try again later",
				Quota:      true,
			}
		}

		return "", &ProviderError{
			Provider:   g.Name(),
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("using %s/%s: %s", model.apiVersion, model.modelID, body),
		}
	}

	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode gemini response: %w", err)
	}

	var text strings.Builder

	if len(parsed.Candidates) > 0 {
		for _, part := range parsed.Candidates[0].Content.Parts {
			text.WriteString(part.Text)
		}
	}

	if strings.TrimSpace(text.String()) == "" {
		return "", &ProviderError{
			Provider: g.Name(),
			Message:  fmt.Sprintf("response missing text using %s/%s", model.apiVersion, model.modelID),
		}
	}

	return text.String(), nil
}
