package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

const DefaultSlackBaseURL = "https://slack.com/api"

type Slack struct {
	BaseURL string
	client  *http.Client
}

func NewSlack(client *http.Client) *Slack {
	return &Slack{BaseURL: DefaultSlackBaseURL, client: clientOrDefault(client)}
}

func (s *Slack) Platform() string { return "slack" }

type slackResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// Send calls chat.postMessage. Slack answers 200 for most failures, so the ok flag decides.
func (s *Slack) Send(ctx context.Context, recipient, text string, credentials map[string]string) error {
	botToken := credentials["botToken"]
	if botToken == "" {
		return fmt.Errorf("Slack: %w: missing botToken", ErrIncompleteCredentials)
	}

	status, body, err := postJSON(ctx, s.client, s.BaseURL+"/chat.postMessage",
		map[string]string{"Authorization": "Bearer " + botToken},
		map[string]string{"channel": recipient, "text": text})
	if err != nil {
		return fmt.Errorf("Slack request: %w", err)
	}

	var parsed slackResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return &APIError{Platform: "Slack", StatusCode: status, Body: string(body)}
	}

	if !parsed.OK {
		return &APIError{Platform: "Slack", Body: parsed.Error}
	}

	return nil
}
