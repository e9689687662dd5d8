package messaging

import (
	"context"
	"fmt"
	"net/http"
)

// Teams posts to an incoming webhook; the recipient is implied by the webhook URL.
type Teams struct {
	client *http.Client
}

func NewTeams(client *http.Client) *Teams {
	return &Teams{client: clientOrDefault(client)}
}

func (t *Teams) Platform() string { return "teams" }

func (t *Teams) Send(ctx context.Context, _ string, text string, credentials map[string]string) error {
	webhookURL := credentials["webhookUrl"]
	if webhookURL == "" {
		return fmt.Errorf("Teams: %w: missing webhookUrl", ErrIncompleteCredentials)
	}

	status, body, err := postJSON(ctx, t.client, webhookURL, nil, map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("Teams request: %w", err)
	}

	if !isSuccess(status) {
		return &APIError{Platform: "Teams", StatusCode: status, Body: string(body)}
	}

	return nil
}
