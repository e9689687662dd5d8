package messaging

import (
	"context"
	"fmt"
	"net/http"
)

const DefaultDiscordBaseURL = "https://discord.com/api/v10"

type Discord struct {
	BaseURL string
	client  *http.Client
}

func NewDiscord(client *http.Client) *Discord {
	return &Discord{BaseURL: DefaultDiscordBaseURL, client: clientOrDefault(client)}
}

func (d *Discord) Platform() string { return "discord" }

// Send posts to a channel id with a bot token.
func (d *Discord) Send(ctx context.Context, recipient, text string, credentials map[string]string) error {
	botToken := credentials["botToken"]
	if botToken == "" {
		return fmt.Errorf("Discord: %w: missing botToken", ErrIncompleteCredentials)
	}

	status, body, err := postJSON(ctx, d.client, d.BaseURL+"/channels/"+recipient+"/messages",
		map[string]string{"Authorization": "Bot " + botToken},
		map[string]string{"content": text})
	if err != nil {
		return fmt.Errorf("Discord request: %w", err)
	}

	if !isSuccess(status) {
		return &APIError{Platform: "Discord", StatusCode: status, Body: string(body)}
	}

	return nil
}
