// Package messaging delivers outbound chat messages and email on behalf of workflow actions.
package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var (
	ErrPlatformNotSupported  = errors.New("platform not supported for chat replies")
	ErrIncompleteCredentials = errors.New("integration credentials incomplete")
	ErrMissingRecipient      = errors.New("message recipient is required")
)

const defaultTimeout = 30 * time.Second

// Sender posts a text message to one chat platform.
type Sender interface {
	Platform() string
	Send(ctx context.Context, recipient, text string, credentials map[string]string) error
}

// APIError is a non-success answer from a platform API.
type APIError struct {
	Platform   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s API error: %s", e.Platform, e.Body)
	}

	return fmt.Sprintf("%s API error (%d): %s", e.Platform, e.StatusCode, e.Body)
}

// NewHTTPClient returns a traced client for platform APIs.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// Registry routes chat replies to the sender of the message's platform.
type Registry struct {
	senders map[string]Sender
}

func NewRegistry(senders ...Sender) *Registry {
	r := &Registry{senders: make(map[string]Sender, len(senders))}
	for _, sender := range senders {
		r.senders[sender.Platform()] = sender
	}

	return r
}

// DefaultRegistry registers every supported platform against its public API.
func DefaultRegistry(client *http.Client) *Registry {
	return NewRegistry(
		NewWhatsApp(client),
		NewSlack(client),
		NewDiscord(client),
		NewTelegram(client),
		NewTeams(client),
	)
}

func (r *Registry) Sender(platform string) (Sender, bool) {
	sender, ok := r.senders[platform]

	return sender, ok
}

func (r *Registry) Send(ctx context.Context, platform, recipient, text string, credentials map[string]string) error {
	sender, ok := r.Sender(platform)
	if !ok {
		return fmt.Errorf("%w: %q", ErrPlatformNotSupported, platform)
	}

	return sender.Send(ctx, recipient, text, credentials)
}

// postJSON sends body as JSON and returns the status code and the response body.
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, body any) (int, []byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, err
	}

	req.Header.Set("Content-Type", "application/json")

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, nil, err
	}

	return resp.StatusCode, respBody, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

func clientOrDefault(client *http.Client) *http.Client {
	if client == nil {
		return NewHTTPClient(defaultTimeout)
	}

	return client
}
