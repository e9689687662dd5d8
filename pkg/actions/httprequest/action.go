// Package httprequest performs the outbound HTTP request of an http action node.
package httprequest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/BabaVossRS3/FlowForge/pkg/models"
	"github.com/BabaVossRS3/FlowForge/pkg/template"
)

const (
	defaultTimeoutSeconds = 30
	maxResponseBytes      = 1 << 20
)

var (
	// ErrHTTPRequestURLInvalid is returned when the action has no URL.
	ErrHTTPRequestURLInvalid = errors.New("invalid HTTP request url")
	// ErrHTTPServerError is returned when every attempt answered with a 5xx status.
	ErrHTTPServerError = errors.New("server error during HTTP request")
)

// Action is one configured HTTP request.
type Action struct {
	Method  string
	URL     string
	Headers models.HTTPHeaders
	Body    any
	Timeout time.Duration
	Retry   RetryConfig
}

type RetryConfig struct {
	Attempts int
	Delay    time.Duration
}

// Response is what the request answered.
type Response struct {
	StatusCode int
	URL        string
	Body       any
	Headers    http.Header
}

// NewAction applies defaults to an http action config: GET, a 30 second timeout and a single attempt.
func NewAction(cfg *models.HTTPAction) (*Action, error) {
	if cfg == nil || strings.TrimSpace(cfg.URL) == "" {
		return nil, ErrHTTPRequestURLInvalid
	}

	method := strings.ToUpper(strings.TrimSpace(cfg.Method))
	if method == "" {
		method = http.MethodGet
	}

	timeout := time.Duration(cfg.Timeout) * time.Second
	if cfg.Timeout <= 0 {
		timeout = defaultTimeoutSeconds * time.Second
	}

	retry := RetryConfig{Attempts: 1}
	if cfg.Retry != nil && cfg.Retry.Attempts > 1 {
		retry = RetryConfig{
			Attempts: cfg.Retry.Attempts,
			Delay:    time.Duration(cfg.Retry.Delay) * time.Second,
		}
	}

	return &Action{
		Method:  method,
		URL:     strings.TrimSpace(cfg.URL),
		Headers: cfg.Headers,
		Body:    cfg.Body,
		Timeout: timeout,
		Retry:   retry,
	}, nil
}

// Execute sends the request, rendering templates in the URL, header values and string body
// against data. Non-2xx answers are returned as responses, not errors.
func (a *Action) Execute(ctx context.Context, client *http.Client, data map[string]any, logger *slog.Logger) (*Response, error) {
	logger = logger.With("module", "http_request_action", "method", a.Method)

	if client == nil {
		client = http.DefaultClient
	}

	ctx, cancel := context.WithTimeout(ctx, a.Timeout)
	defer cancel()

	var (
		lastErr error
		resp    *http.Response
		url     string
	)

	for attempt := 1; attempt <= a.Retry.Attempts; attempt++ {
		if attempt > 1 {
			logger.InfoContext(ctx, "retrying HTTP request", "attempt", attempt, "attempts", a.Retry.Attempts)

			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("http request cancelled: %w", ctx.Err())
			case <-time.After(a.Retry.Delay):
			}
		}

		req, err := a.buildRequest(ctx, data)
		if err != nil {
			return nil, err
		}

		url = req.URL.String()

		resp, err = client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request failed: %w", err)
			resp = nil

			continue
		}

		if resp.StatusCode >= 500 && attempt < a.Retry.Attempts {
			_ = resp.Body.Close()

			lastErr = fmt.Errorf("status %d: %w", resp.StatusCode, ErrHTTPServerError)
			resp = nil

			continue
		}

		break
	}

	if resp == nil {
		return nil, lastErr
	}

	return a.processResponse(ctx, resp, url, logger)
}

func (a *Action) buildRequest(ctx context.Context, data map[string]any) (*http.Request, error) {
	url, err := template.RenderString(a.URL, data)
	if err != nil {
		return nil, fmt.Errorf("failed to render url template: %w", err)
	}

	body, contentType, err := a.buildRequestBody(data)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, a.Method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create http request: %w", err)
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	for _, header := range a.Headers {
		if header.Key == "" {
			continue
		}

		value, err := template.RenderString(header.Value, data)
		if err != nil {
			return nil, fmt.Errorf("failed to render header '%s' template: %w", header.Key, err)
		}

		req.Header.Set(header.Key, value)
	}

	return req, nil
}

// buildRequestBody sends strings as given and JSON-encodes anything else.
func (a *Action) buildRequestBody(data map[string]any) (io.Reader, string, error) {
	switch body := a.Body.(type) {
	case nil:
		return nil, "", nil
	case string:
		if body == "" {
			return nil, "", nil
		}

		rendered, err := template.RenderString(body, data)
		if err != nil {
			return nil, "", fmt.Errorf("failed to render body template: %w", err)
		}

		return strings.NewReader(rendered), "", nil
	default:
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, "", fmt.Errorf("failed to marshal body: %w", err)
		}

		return strings.NewReader(string(encoded)), "application/json", nil
	}
}

func (a *Action) processResponse(ctx context.Context, resp *http.Response, url string, logger *slog.Logger) (*Response, error) {
	defer func() {
		_ = resp.Body.Close()
	}()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var body any
	if err := json.Unmarshal(bodyBytes, &body); err != nil {
		body = string(bodyBytes)
	}

	logger.InfoContext(ctx, "HTTP request completed", "status", resp.StatusCode, "body_length", len(bodyBytes))

	return &Response{
		StatusCode: resp.StatusCode,
		URL:        url,
		Body:       body,
		Headers:    resp.Header,
	}, nil
}
